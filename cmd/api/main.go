package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/lawlink/lawlink-api/internal/database"
	"github.com/lawlink/lawlink-api/internal/http/handlers"
	httpmw "github.com/lawlink/lawlink-api/internal/http/middleware"
	"github.com/lawlink/lawlink-api/internal/platform/mailer"
	"github.com/lawlink/lawlink-api/internal/platform/wechat"
	"github.com/lawlink/lawlink-api/internal/repo/postgres"
	"github.com/lawlink/lawlink-api/internal/service"
	"github.com/lawlink/lawlink-api/pkg/config"
	"github.com/lawlink/lawlink-api/pkg/events"
	"github.com/lawlink/lawlink-api/pkg/logger"
	mw "github.com/lawlink/lawlink-api/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.Auth.JWTSecret == "" {
		logger.Error("JWT_SECRET is not set, refusing to start")
		os.Exit(1)
	}

	// Connect to database
	ctx := context.Background()
	db := database.NewHandle(cfg.Database)
	if _, err := db.Get(ctx); err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to event bus; booking flow works without one.
	var eventBus events.EventBus
	if cfg.NATS.URL != "" {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		eventBus = bus
	} else {
		logger.Warn("NATS_URL not set, events disabled")
		eventBus = events.NewNoopEventBus()
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepo(db)
	firmRepo := postgres.NewFirmRepo(db)
	serviceRepo := postgres.NewServiceRepo(db)
	consultationRepo := postgres.NewConsultationRepo(db)

	// Outbound integrations
	wechatClient := wechat.NewHTTPClient(cfg.WeChat.AppID, cfg.WeChat.Secret)
	transport := mailer.FromConfig(cfg.Email)
	if transport == nil {
		logger.Warn("No mail transport configured, booking emails disabled")
	}
	dispatcher := mailer.NewDispatcher(transport, cfg.Email.NotifyEmails)

	// Initialize services
	authService := service.NewAuthService(userRepo, wechatClient, eventBus, cfg)
	bookingService := service.NewBookingService(firmRepo, serviceRepo, consultationRepo, dispatcher, eventBus)
	catalogService := service.NewCatalogService(firmRepo, serviceRepo)

	// Initialize handlers
	authn := httpmw.NewAuthenticator(authService)
	authHandler := handlers.NewAuthHandler(authService, cfg.Auth.TokenTTL)
	userHandler := handlers.NewUserHandler(authService, bookingService)
	consultationHandler := handlers.NewConsultationHandler(bookingService)
	firmHandler := handlers.NewFirmHandler(catalogService)
	serviceHandler := handlers.NewServiceHandler(catalogService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Replays cached responses for retried booking POSTs when Redis is up.
	if cfg.Redis.URL != "" {
		store, err := mw.NewRedisStore(cfg.Redis.URL)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		r.Use(mw.IdempotencyMiddleware(store))
	} else {
		logger.Warn("REDIS_URL not set, idempotent replays disabled")
	}

	// Routes
	r.Mount("/auth", authHandler.Routes())
	r.Mount("/users", userHandler.Routes(authn))
	r.Mount("/consultations", consultationHandler.Routes(authn))
	r.Mount("/firms", firmHandler.Routes(authn))
	r.Mount("/services", serviceHandler.Routes(authn))

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down api...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting api", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
