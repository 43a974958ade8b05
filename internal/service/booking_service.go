package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lawlink/lawlink-api/internal/domain"
	"github.com/lawlink/lawlink-api/internal/platform/mailer"
	"github.com/lawlink/lawlink-api/internal/repo/postgres"
	"github.com/lawlink/lawlink-api/pkg/events"
	"github.com/lawlink/lawlink-api/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// BookingService creates consultations against a firm's service catalogue and
// fans out the notification emails for each booking.
type BookingService interface {
	CreateConsultation(ctx context.Context, userID *int64, req *domain.CreateConsultationRequest) (*domain.Consultation, *mailer.Summary, error)
	GetConsultation(ctx context.Context, actor *domain.User, id int64) (*domain.Consultation, error)
	ListConsultations(ctx context.Context, page, size int) (*domain.ConsultationPage, error)
	ListUserConsultations(ctx context.Context, userID int64, limit int) ([]domain.Consultation, error)
	UpdateStatus(ctx context.Context, actor *domain.User, id int64, status string) (*domain.Consultation, error)
}

type bookingService struct {
	firms         postgres.FirmRepository
	services      postgres.ServiceRepository
	consultations postgres.ConsultationRepository
	dispatcher    *mailer.Dispatcher
	bus           events.EventBus
	now           func() time.Time
}

func NewBookingService(
	firms postgres.FirmRepository,
	services postgres.ServiceRepository,
	consultations postgres.ConsultationRepository,
	dispatcher *mailer.Dispatcher,
	bus events.EventBus,
) BookingService {
	return &bookingService{
		firms:         firms,
		services:      services,
		consultations: consultations,
		dispatcher:    dispatcher,
		bus:           bus,
		now:           time.Now,
	}
}

// CreateConsultation validates the request, resolves firm and service,
// persists the booking (retiring the chosen slot when it was listed) and
// dispatches the notification fan-out. Email failures are reported in the
// summary but never fail the booking.
func (s *bookingService) CreateConsultation(ctx context.Context, userID *int64, req *domain.CreateConsultationRequest) (*domain.Consultation, *mailer.Summary, error) {
	req.Normalize()
	if err := req.Validate(s.now()); err != nil {
		return nil, nil, err
	}

	var (
		firm    *domain.Firm
		service *domain.Service
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		firm, err = s.firms.GetByID(gctx, req.FirmID)
		return err
	})
	g.Go(func() error {
		var err error
		service, err = s.services.GetByID(gctx, req.ServiceID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("failed to resolve booking target: %w", err)
	}
	if firm == nil {
		return nil, nil, &domain.NotFoundError{Resource: "firm"}
	}
	if service == nil || service.FirmID != firm.ID {
		return nil, nil, &domain.NotFoundError{Resource: "service"}
	}

	preferredAt := req.PreferredAt()

	// Only instants the service actually advertises get claimed; anything
	// else is a best-effort booking that leaves the inventory untouched.
	var claimSlotAt *time.Time
	if domain.ContainsInstant(service.AvailableTimes, preferredAt) {
		claimSlotAt = &preferredAt
	}

	c := &domain.Consultation{
		UserID:      userID,
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		FirmID:      firm.ID,
		FirmName:    firm.Name,
		ServiceID:   service.ID,
		ServiceName: service.Title,
		Message:     req.Message,
		PreferredAt: preferredAt,
	}
	created, err := s.consultations.Create(ctx, c, claimSlotAt)
	if err != nil {
		return nil, nil, err
	}

	s.publishCreated(ctx, created)

	firmEmail := firm.Email
	if req.FirmEmail != "" {
		firmEmail = req.FirmEmail
	}
	summary := s.dispatcher.Dispatch(ctx, mailer.BookingNotice{
		ConsultationID: created.ID,
		FirmName:       created.FirmName,
		ServiceName:    created.ServiceName,
		ContactName:    created.Name,
		ContactPhone:   created.Phone,
		ContactEmail:   created.Email,
		Message:        created.Message,
		PreferredAt:    created.PreferredAt,
		FirmEmail:      firmEmail,
	})

	return created, summary, nil
}

func (s *bookingService) GetConsultation(ctx context.Context, actor *domain.User, id int64) (*domain.Consultation, error) {
	c, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get consultation: %w", err)
	}
	if c == nil {
		return nil, &domain.NotFoundError{Resource: "consultation"}
	}
	if !canTouch(actor, c) {
		return nil, domain.ErrForbidden
	}
	return c, nil
}

func (s *bookingService) ListConsultations(ctx context.Context, page, size int) (*domain.ConsultationPage, error) {
	return s.consultations.ListPage(ctx, page, size)
}

func (s *bookingService) ListUserConsultations(ctx context.Context, userID int64, limit int) ([]domain.Consultation, error) {
	return s.consultations.ListByUser(ctx, userID, limit)
}

// UpdateStatus moves a consultation through its lifecycle. Admins can touch
// any record; everyone else only their own.
func (s *bookingService) UpdateStatus(ctx context.Context, actor *domain.User, id int64, status string) (*domain.Consultation, error) {
	parsed, ok := domain.ParseConsultationStatus(status)
	if !ok {
		return nil, domain.NewValidationError("status", "must be one of pending, contacted, converted, cancelled")
	}

	c, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get consultation: %w", err)
	}
	if c == nil {
		return nil, &domain.NotFoundError{Resource: "consultation"}
	}
	if !canTouch(actor, c) {
		return nil, domain.ErrForbidden
	}

	updated, err := s.consultations.UpdateStatus(ctx, id, parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	if updated == nil {
		return nil, &domain.NotFoundError{Resource: "consultation"}
	}

	ev := events.ConsultationStatusChangedEvent{
		ConsultationID: updated.ID,
		Status:         string(updated.Status),
		ChangedBy:      actor.ID,
		ChangedAt:      time.Now(),
	}
	if err := s.bus.Publish(ctx, events.ConsultationStatusChanged, ev); err != nil {
		logger.WarnContext(ctx, "failed to publish status change event", "error", err, "consultation_id", updated.ID)
	}

	return updated, nil
}

func canTouch(actor *domain.User, c *domain.Consultation) bool {
	if actor == nil {
		return false
	}
	if actor.Role == domain.RoleAdmin {
		return true
	}
	return c.UserID != nil && *c.UserID == actor.ID
}

func (s *bookingService) publishCreated(ctx context.Context, c *domain.Consultation) {
	ev := events.ConsultationCreatedEvent{
		ConsultationID: c.ID,
		FirmID:         c.FirmID,
		FirmName:       c.FirmName,
		ServiceID:      c.ServiceID,
		ServiceName:    c.ServiceName,
		ContactName:    c.Name,
		ContactEmail:   c.Email,
		PreferredAt:    c.PreferredAt,
		CreatedAt:      c.CreatedAt,
	}
	if err := s.bus.Publish(ctx, events.ConsultationCreated, ev); err != nil {
		logger.WarnContext(ctx, "failed to publish consultation created event", "error", err, "consultation_id", c.ID)
	}
}
