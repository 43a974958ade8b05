package service

import (
	"context"
	"time"

	"github.com/lawlink/lawlink-api/internal/domain"
	"github.com/lawlink/lawlink-api/internal/platform/wechat"
	"github.com/lawlink/lawlink-api/pkg/events"
)

type mockUserRepo struct {
	users   map[int64]*domain.User
	nextID  int64
	failAll error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*domain.User), nextID: 1}
}

func (m *mockUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	if m.failAll != nil {
		return nil, m.failAll
	}
	cp := *u
	cp.ID = m.nextID
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.nextID++
	m.users[cp.ID] = &cp
	return &cp, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	if m.failAll != nil {
		return nil, m.failAll
	}
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return m.findBy(func(u *domain.User) bool { return username != "" && u.Username == username })
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.findBy(func(u *domain.User) bool { return email != "" && u.Email == email })
}

func (m *mockUserRepo) FindByOpenID(_ context.Context, openID string) (*domain.User, error) {
	return m.findBy(func(u *domain.User) bool { return openID != "" && u.WeChatOpenID == openID })
}

func (m *mockUserRepo) FindByEmailOrPhone(_ context.Context, email, phone string) (*domain.User, error) {
	return m.findBy(func(u *domain.User) bool {
		return (email != "" && u.Email == email) || (phone != "" && u.Phone == phone)
	})
}

func (m *mockUserRepo) Update(_ context.Context, u *domain.User) error {
	if m.failAll != nil {
		return m.failAll
	}
	cp := *u
	cp.UpdatedAt = time.Now()
	m.users[cp.ID] = &cp
	return nil
}

func (m *mockUserRepo) findBy(match func(*domain.User) bool) (*domain.User, error) {
	if m.failAll != nil {
		return nil, m.failAll
	}
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

type mockWeChatClient struct {
	session *wechat.Session
	err     error
}

func (m *mockWeChatClient) Exchange(context.Context, string) (*wechat.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

type mockFirmRepo struct {
	firms  map[int64]*domain.Firm
	nextID int64
	err    error
}

func (m *mockFirmRepo) Create(_ context.Context, req *domain.UpsertFirmRequest) (*domain.Firm, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.nextID == 0 {
		m.nextID = int64(len(m.firms)) + 1
	}
	f := &domain.Firm{
		ID: m.nextID, Name: req.Name, Slug: req.Slug, Email: req.Email,
		AvailableTimes: req.AvailableTimes,
	}
	m.nextID++
	m.firms[f.ID] = f
	cp := *f
	return &cp, nil
}

func (m *mockFirmRepo) Update(_ context.Context, id int64, req *domain.UpsertFirmRequest) (*domain.Firm, error) {
	if m.err != nil {
		return nil, m.err
	}
	f, ok := m.firms[id]
	if !ok {
		return nil, nil
	}
	f.Name, f.Slug, f.Email = req.Name, req.Slug, req.Email
	f.AvailableTimes = req.AvailableTimes
	cp := *f
	return &cp, nil
}

func (m *mockFirmRepo) GetByID(_ context.Context, id int64) (*domain.Firm, error) {
	if m.err != nil {
		return nil, m.err
	}
	f, ok := m.firms[id]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (m *mockFirmRepo) List(_ context.Context, limit, offset int) ([]domain.Firm, error) {
	return nil, m.err
}

type mockServiceRepo struct {
	services map[int64]*domain.Service
	nextID   int64
	err      error
}

func (m *mockServiceRepo) Create(_ context.Context, req *domain.UpsertServiceRequest) (*domain.Service, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.nextID == 0 {
		m.nextID = int64(len(m.services)) + 1
	}
	s := &domain.Service{
		ID: m.nextID, FirmID: req.FirmID, Title: req.Title, Price: req.Price,
		AvailableTimes: req.AvailableTimes,
	}
	m.nextID++
	m.services[s.ID] = s
	cp := *s
	return &cp, nil
}

func (m *mockServiceRepo) Update(_ context.Context, id int64, req *domain.UpsertServiceRequest) (*domain.Service, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.services[id]
	if !ok {
		return nil, nil
	}
	s.Title, s.Price = req.Title, req.Price
	s.AvailableTimes = req.AvailableTimes
	cp := *s
	return &cp, nil
}

func (m *mockServiceRepo) GetByID(_ context.Context, id int64) (*domain.Service, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.services[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockServiceRepo) ListByFirm(_ context.Context, firmID int64, limit, offset int) ([]domain.Service, error) {
	return nil, m.err
}

type mockConsultationRepo struct {
	consultations map[int64]*domain.Consultation
	nextID        int64
	createErr     error

	// lastClaim records the slot the latest Create tried to retire.
	lastClaim *time.Time
}

func newMockConsultationRepo() *mockConsultationRepo {
	return &mockConsultationRepo{consultations: make(map[int64]*domain.Consultation), nextID: 1}
}

func (m *mockConsultationRepo) Create(_ context.Context, c *domain.Consultation, claimSlotAt *time.Time) (*domain.Consultation, error) {
	m.lastClaim = claimSlotAt
	if m.createErr != nil {
		return nil, m.createErr
	}
	cp := *c
	cp.ID = m.nextID
	cp.Status = domain.StatusPending
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.nextID++
	m.consultations[cp.ID] = &cp
	return &cp, nil
}

func (m *mockConsultationRepo) GetByID(_ context.Context, id int64) (*domain.Consultation, error) {
	c, ok := m.consultations[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *mockConsultationRepo) ListPage(_ context.Context, page, size int) (*domain.ConsultationPage, error) {
	items := make([]domain.Consultation, 0, len(m.consultations))
	for _, c := range m.consultations {
		items = append(items, *c)
	}
	return &domain.ConsultationPage{Items: items, Total: int64(len(items)), Page: page, Size: size, Pages: 1}, nil
}

func (m *mockConsultationRepo) ListByUser(_ context.Context, userID int64, limit int) ([]domain.Consultation, error) {
	var items []domain.Consultation
	for _, c := range m.consultations {
		if c.UserID != nil && *c.UserID == userID {
			items = append(items, *c)
		}
	}
	return items, nil
}

func (m *mockConsultationRepo) UpdateStatus(_ context.Context, id int64, status domain.ConsultationStatus) (*domain.Consultation, error) {
	c, ok := m.consultations[id]
	if !ok {
		return nil, nil
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

type mockEventBus struct {
	published []string
}

func (m *mockEventBus) Publish(_ context.Context, subject string, _ interface{}) error {
	m.published = append(m.published, subject)
	return nil
}

func (m *mockEventBus) Subscribe(string, func(*events.Message)) error { return nil }

func (m *mockEventBus) Close() error { return nil }
