package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lawlink/lawlink-api/internal/database"
	"github.com/lawlink/lawlink-api/internal/domain"
)

type FirmRepository interface {
	Create(ctx context.Context, req *domain.UpsertFirmRequest) (*domain.Firm, error)
	Update(ctx context.Context, id int64, req *domain.UpsertFirmRequest) (*domain.Firm, error)
	GetByID(ctx context.Context, id int64) (*domain.Firm, error)
	List(ctx context.Context, limit, offset int) ([]domain.Firm, error)
}

type FirmRepo struct{ db *database.Handle }

func NewFirmRepo(db *database.Handle) *FirmRepo { return &FirmRepo{db: db} }

const firmCols = `id, name, slug, address, city, phone, email, tags, practice_areas, staff, created_at, updated_at`

func scanFirm(row pgx.Row) (*domain.Firm, error) {
	var f domain.Firm
	err := row.Scan(
		&f.ID, &f.Name, &f.Slug, &f.Address, &f.City, &f.Phone, &f.Email,
		&f.Tags, &f.PracticeAreas, &f.Staff, &f.CreatedAt, &f.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FirmRepo) Create(ctx context.Context, req *domain.UpsertFirmRequest) (*domain.Firm, error) {
	const q = `
INSERT INTO firms (name, slug, address, city, phone, email, tags, practice_areas, staff)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING ` + firmCols
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	f, err := scanFirm(pool.QueryRow(qctx, q,
		req.Name, req.Slug, req.Address, req.City, req.Phone, req.Email,
		req.Tags, req.PracticeAreas, req.Staff,
	))
	if err != nil || f == nil {
		return nil, err
	}
	if err := r.replaceSlots(ctx, f.ID, req.AvailableTimes); err != nil {
		return nil, err
	}
	f.AvailableTimes = req.AvailableTimes
	return f, nil
}

func (r *FirmRepo) Update(ctx context.Context, id int64, req *domain.UpsertFirmRequest) (*domain.Firm, error) {
	const q = `
UPDATE firms SET name=$2, slug=$3, address=$4, city=$5, phone=$6, email=$7,
  tags=$8, practice_areas=$9, staff=$10, updated_at=now()
WHERE id=$1
RETURNING ` + firmCols
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	f, err := scanFirm(pool.QueryRow(qctx, q, id,
		req.Name, req.Slug, req.Address, req.City, req.Phone, req.Email,
		req.Tags, req.PracticeAreas, req.Staff,
	))
	if err != nil || f == nil {
		return nil, err
	}
	if req.AvailableTimes != nil {
		if err := r.replaceSlots(ctx, f.ID, req.AvailableTimes); err != nil {
			return nil, err
		}
	}
	f.AvailableTimes, err = r.slots(ctx, f.ID)
	return f, err
}

func (r *FirmRepo) GetByID(ctx context.Context, id int64) (*domain.Firm, error) {
	const q = `SELECT ` + firmCols + ` FROM firms WHERE id=$1`
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	f, err := scanFirm(pool.QueryRow(qctx, q, id))
	if err != nil || f == nil {
		return nil, err
	}
	f.AvailableTimes, err = r.slots(ctx, id)
	return f, err
}

func (r *FirmRepo) List(ctx context.Context, limit, offset int) ([]domain.Firm, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + firmCols + ` FROM firms ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := pool.Query(qctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fs := make([]domain.Firm, 0, limit)
	for rows.Next() {
		var f domain.Firm
		if err := rows.Scan(
			&f.ID, &f.Name, &f.Slug, &f.Address, &f.City, &f.Phone, &f.Email,
			&f.Tags, &f.PracticeAreas, &f.Staff, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	return fs, rows.Err()
}

func (r *FirmRepo) slots(ctx context.Context, firmID int64) ([]time.Time, error) {
	const q = `SELECT slot_at FROM firm_slots WHERE firm_id=$1 ORDER BY slot_at`
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := pool.Query(qctx, q, firmID)
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

// replaceSlots swaps the firm's whole inventory. The unique constraint on
// (firm_id, slot_at) keeps duplicate instants collapsed.
func (r *FirmRepo) replaceSlots(ctx context.Context, firmID int64, times []time.Time) error {
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

	if _, err := tx.Exec(qctx, `DELETE FROM firm_slots WHERE firm_id=$1`, firmID); err != nil {
		return err
	}
	for _, t := range times {
		if _, err := tx.Exec(qctx,
			`INSERT INTO firm_slots (firm_id, slot_at) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			firmID, t); err != nil {
			return err
		}
	}
	return tx.Commit(qctx)
}
