package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lawlink/lawlink-api/internal/domain"
	"github.com/lawlink/lawlink-api/internal/http/response"
	"github.com/lawlink/lawlink-api/internal/service"
	"github.com/lawlink/lawlink-api/pkg/auth"
	"github.com/lawlink/lawlink-api/pkg/logger"
)

type AuthHandler struct {
	Auth     service.AuthService
	TokenTTL time.Duration
}

func NewAuthHandler(authSvc service.AuthService, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{Auth: authSvc, TokenTTL: tokenTTL}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/wechat", h.wechatLogin)
	r.Post("/anonymous", h.anonymousLogin)
	r.Post("/login", h.passwordLogin)
	r.Post("/register", h.register)
	return r
}

func (h *AuthHandler) wechatLogin(w http.ResponseWriter, r *http.Request) {
	var in domain.WeChatLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	resp, err := h.Auth.WeChatLogin(r.Context(), &in, clientIP(r))
	if err != nil {
		h.writeAuthError(w, r, "wechat login failed", err)
		return
	}
	h.writeLogin(w, resp)
}

func (h *AuthHandler) anonymousLogin(w http.ResponseWriter, r *http.Request) {
	var in domain.AnonymousLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	resp, err := h.Auth.AnonymousLogin(r.Context(), &in, clientIP(r))
	if err != nil {
		h.writeAuthError(w, r, "anonymous login failed", err)
		return
	}
	h.writeLogin(w, resp)
}

func (h *AuthHandler) passwordLogin(w http.ResponseWriter, r *http.Request) {
	var in domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	resp, err := h.Auth.PasswordLogin(r.Context(), &in, clientIP(r))
	if err != nil {
		h.writeAuthError(w, r, "login failed", err)
		return
	}
	h.writeLogin(w, resp)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var in domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	resp, err := h.Auth.Register(r.Context(), &in)
	if err != nil {
		h.writeAuthError(w, r, "registration failed", err)
		return
	}
	h.writeLogin(w, resp)
}

// writeLogin sets the session cookie alongside the JSON body, so both
// cookie-carrying browsers and header-carrying API clients work.
func (h *AuthHandler) writeLogin(w http.ResponseWriter, resp *domain.LoginResponse) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    resp.Token,
		Path:     "/",
		MaxAge:   int(h.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	response.WriteJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.WarnContext(r.Context(), msg, "error", err)
	response.WriteDomainError(w, err)
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
