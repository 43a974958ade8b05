package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lawlink/lawlink-api/internal/domain"
	"github.com/lawlink/lawlink-api/internal/repo/postgres"
)

// CatalogService manages the browsable firm and service catalogue.
type CatalogService interface {
	CreateFirm(ctx context.Context, req *domain.UpsertFirmRequest) (*domain.Firm, error)
	UpdateFirm(ctx context.Context, id int64, req *domain.UpsertFirmRequest) (*domain.Firm, error)
	GetFirm(ctx context.Context, id int64) (*domain.Firm, error)
	ListFirms(ctx context.Context, limit, offset int) ([]domain.Firm, error)

	CreateService(ctx context.Context, req *domain.UpsertServiceRequest) (*domain.Service, error)
	UpdateService(ctx context.Context, id int64, req *domain.UpsertServiceRequest) (*domain.Service, error)
	GetService(ctx context.Context, id int64) (*domain.Service, error)
	ListFirmServices(ctx context.Context, firmID int64, limit, offset int) ([]domain.Service, error)
}

type catalogService struct {
	firms    postgres.FirmRepository
	services postgres.ServiceRepository
}

func NewCatalogService(firms postgres.FirmRepository, services postgres.ServiceRepository) CatalogService {
	return &catalogService{firms: firms, services: services}
}

func (s *catalogService) CreateFirm(ctx context.Context, req *domain.UpsertFirmRequest) (*domain.Firm, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	// Only future instants are bookable, so past ones never enter the inventory.
	req.AvailableTimes = domain.FutureInstants(req.AvailableTimes, time.Now())
	f, err := s.firms.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create firm: %w", err)
	}
	return f, nil
}

func (s *catalogService) UpdateFirm(ctx context.Context, id int64, req *domain.UpsertFirmRequest) (*domain.Firm, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetFirm(ctx, id); err != nil {
		return nil, err
	}
	req.AvailableTimes = domain.FutureInstants(req.AvailableTimes, time.Now())
	f, err := s.firms.Update(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update firm: %w", err)
	}
	return f, nil
}

func (s *catalogService) GetFirm(ctx context.Context, id int64) (*domain.Firm, error) {
	f, err := s.firms.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get firm: %w", err)
	}
	if f == nil {
		return nil, &domain.NotFoundError{Resource: "firm"}
	}
	return f, nil
}

func (s *catalogService) ListFirms(ctx context.Context, limit, offset int) ([]domain.Firm, error) {
	return s.firms.List(ctx, limit, offset)
}

func (s *catalogService) CreateService(ctx context.Context, req *domain.UpsertServiceRequest) (*domain.Service, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetFirm(ctx, req.FirmID); err != nil {
		return nil, err
	}
	req.AvailableTimes = domain.FutureInstants(req.AvailableTimes, time.Now())
	sv, err := s.services.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return sv, nil
}

func (s *catalogService) UpdateService(ctx context.Context, id int64, req *domain.UpsertServiceRequest) (*domain.Service, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetService(ctx, id); err != nil {
		return nil, err
	}
	req.AvailableTimes = domain.FutureInstants(req.AvailableTimes, time.Now())
	sv, err := s.services.Update(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update service: %w", err)
	}
	return sv, nil
}

func (s *catalogService) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	sv, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	if sv == nil {
		return nil, &domain.NotFoundError{Resource: "service"}
	}
	return sv, nil
}

func (s *catalogService) ListFirmServices(ctx context.Context, firmID int64, limit, offset int) ([]domain.Service, error) {
	return s.services.ListByFirm(ctx, firmID, limit, offset)
}
