package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lawlink/lawlink-api/internal/database"
	"github.com/lawlink/lawlink-api/internal/domain"
)

type ServiceRepository interface {
	Create(ctx context.Context, req *domain.UpsertServiceRequest) (*domain.Service, error)
	Update(ctx context.Context, id int64, req *domain.UpsertServiceRequest) (*domain.Service, error)
	GetByID(ctx context.Context, id int64) (*domain.Service, error)
	ListByFirm(ctx context.Context, firmID int64, limit, offset int) ([]domain.Service, error)
}

type ServiceRepo struct{ db *database.Handle }

func NewServiceRepo(db *database.Handle) *ServiceRepo { return &ServiceRepo{db: db} }

const serviceCols = `id, firm_id, title, description, category, price, created_at, updated_at`

func scanService(row pgx.Row) (*domain.Service, error) {
	var s domain.Service
	err := row.Scan(
		&s.ID, &s.FirmID, &s.Title, &s.Description, &s.Category, &s.Price,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ServiceRepo) Create(ctx context.Context, req *domain.UpsertServiceRequest) (*domain.Service, error) {
	const q = `
INSERT INTO services (firm_id, title, description, category, price)
VALUES ($1,$2,$3,$4,$5)
RETURNING ` + serviceCols
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	s, err := scanService(pool.QueryRow(qctx, q,
		req.FirmID, req.Title, req.Description, req.Category, req.Price,
	))
	if err != nil || s == nil {
		return nil, err
	}
	if err := r.replaceSlots(ctx, s.ID, req.AvailableTimes); err != nil {
		return nil, err
	}
	s.AvailableTimes = req.AvailableTimes
	return s, nil
}

func (r *ServiceRepo) Update(ctx context.Context, id int64, req *domain.UpsertServiceRequest) (*domain.Service, error) {
	const q = `
UPDATE services SET firm_id=$2, title=$3, description=$4, category=$5, price=$6, updated_at=now()
WHERE id=$1
RETURNING ` + serviceCols
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	s, err := scanService(pool.QueryRow(qctx, q, id,
		req.FirmID, req.Title, req.Description, req.Category, req.Price,
	))
	if err != nil || s == nil {
		return nil, err
	}
	if req.AvailableTimes != nil {
		if err := r.replaceSlots(ctx, s.ID, req.AvailableTimes); err != nil {
			return nil, err
		}
	}
	s.AvailableTimes, err = r.slots(ctx, s.ID)
	return s, err
}

func (r *ServiceRepo) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	const q = `SELECT ` + serviceCols + ` FROM services WHERE id=$1`
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	s, err := scanService(pool.QueryRow(qctx, q, id))
	if err != nil || s == nil {
		return nil, err
	}
	s.AvailableTimes, err = r.slots(ctx, id)
	return s, err
}

func (r *ServiceRepo) ListByFirm(ctx context.Context, firmID int64, limit, offset int) ([]domain.Service, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + serviceCols + ` FROM services WHERE firm_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := pool.Query(qctx, q, firmID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ss := make([]domain.Service, 0, limit)
	for rows.Next() {
		var s domain.Service
		if err := rows.Scan(
			&s.ID, &s.FirmID, &s.Title, &s.Description, &s.Category, &s.Price,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ss = append(ss, s)
	}
	return ss, rows.Err()
}

func (r *ServiceRepo) slots(ctx context.Context, serviceID int64) ([]time.Time, error) {
	const q = `SELECT slot_at FROM service_slots WHERE service_id=$1 ORDER BY slot_at`
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := pool.Query(qctx, q, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *ServiceRepo) replaceSlots(ctx context.Context, serviceID int64, times []time.Time) error {
	pool, err := r.db.Get(ctx)
	if err != nil {
		return err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := pool.Begin(qctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(qctx)

	if _, err := tx.Exec(qctx, `DELETE FROM service_slots WHERE service_id=$1`, serviceID); err != nil {
		return err
	}
	for _, t := range times {
		if _, err := tx.Exec(qctx,
			`INSERT INTO service_slots (service_id, slot_at) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			serviceID, t); err != nil {
			return err
		}
	}
	return tx.Commit(qctx)
}
