package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lawlink/lawlink-api/internal/database"
	"github.com/lawlink/lawlink-api/internal/domain"
)

type ConsultationRepository interface {
	// Create persists the consultation and, when claimSlotAt is set, retires
	// that instant from the service's inventory in the same transaction.
	// A zero-row slot delete means a concurrent booking claimed it first and
	// surfaces as a Conflict without committing the consultation.
	Create(ctx context.Context, c *domain.Consultation, claimSlotAt *time.Time) (*domain.Consultation, error)
	GetByID(ctx context.Context, id int64) (*domain.Consultation, error)
	ListPage(ctx context.Context, page, size int) (*domain.ConsultationPage, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Consultation, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ConsultationStatus) (*domain.Consultation, error)
}

type ConsultationRepo struct{ db *database.Handle }

func NewConsultationRepo(db *database.Handle) *ConsultationRepo {
	return &ConsultationRepo{db: db}
}

const consultationCols = `id, user_id, name, phone, email, firm_id, firm_name,
service_id, service_name, message, preferred_at, status, created_at, updated_at`

func scanConsultation(row pgx.Row) (*domain.Consultation, error) {
	var c domain.Consultation
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Email, &c.FirmID, &c.FirmName,
		&c.ServiceID, &c.ServiceName, &c.Message, &c.PreferredAt, &c.Status,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConsultationRepo) Create(ctx context.Context, c *domain.Consultation, claimSlotAt *time.Time) (*domain.Consultation, error) {
	const insertQ = `
INSERT INTO consultations (user_id, name, phone, email, firm_id, firm_name,
  service_id, service_name, message, preferred_at, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,'pending')
RETURNING ` + consultationCols

	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := pool.Begin(qctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(qctx)

	created, err := scanConsultation(tx.QueryRow(qctx, insertQ,
		c.UserID, c.Name, c.Phone, c.Email, c.FirmID, c.FirmName,
		c.ServiceID, c.ServiceName, c.Message, c.PreferredAt,
	))
	if err != nil {
		return nil, err
	}

	if claimSlotAt != nil {
		ct, err := tx.Exec(qctx,
			`DELETE FROM service_slots WHERE service_id=$1 AND slot_at=$2`,
			c.ServiceID, *claimSlotAt)
		if err != nil {
			return nil, err
		}
		if ct.RowsAffected() == 0 {
			// The slot was listed when we validated but is gone now: a
			// concurrent booking won the race.
			return nil, &domain.ConflictError{
				Code:    domain.ConflictSlotTaken,
				Message: "the requested time slot is no longer available",
			}
		}
	}

	if err := tx.Commit(qctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *ConsultationRepo) GetByID(ctx context.Context, id int64) (*domain.Consultation, error) {
	const q = `SELECT ` + consultationCols + ` FROM consultations WHERE id=$1`
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanConsultation(pool.QueryRow(qctx, q, id))
}

func (r *ConsultationRepo) ListPage(ctx context.Context, page, size int) (*domain.ConsultationPage, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var total int64
	if err := pool.QueryRow(qctx, `SELECT count(*) FROM consultations`).Scan(&total); err != nil {
		return nil, err
	}

	const q = `SELECT ` + consultationCols + ` FROM consultations ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := pool.Query(qctx, q, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Consultation, 0, size)
	for rows.Next() {
		var c domain.Consultation
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Email, &c.FirmID, &c.FirmName,
			&c.ServiceID, &c.ServiceName, &c.Message, &c.PreferredAt, &c.Status,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pages := int((total + int64(size) - 1) / int64(size))
	return &domain.ConsultationPage{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: pages,
	}, nil
}

func (r *ConsultationRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Consultation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	const q = `SELECT ` + consultationCols + ` FROM consultations WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := pool.Query(qctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Consultation, 0, limit)
	for rows.Next() {
		var c domain.Consultation
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Email, &c.FirmID, &c.FirmName,
			&c.ServiceID, &c.ServiceName, &c.Message, &c.PreferredAt, &c.Status,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *ConsultationRepo) UpdateStatus(ctx context.Context, id int64, status domain.ConsultationStatus) (*domain.Consultation, error) {
	const q = `UPDATE consultations SET status=$2, updated_at=now() WHERE id=$1 RETURNING ` + consultationCols
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanConsultation(pool.QueryRow(qctx, q, id, status))
}
