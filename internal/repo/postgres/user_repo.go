package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lawlink/lawlink-api/internal/database"
	"github.com/lawlink/lawlink-api/internal/domain"
)

const queryTimeout = 3 * time.Second

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByOpenID(ctx context.Context, openID string) (*domain.User, error)
	FindByEmailOrPhone(ctx context.Context, email, phone string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

type UserRepo struct{ db *database.Handle }

func NewUserRepo(db *database.Handle) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, username, password_hash, name, avatar_url, email, phone,
role, provider, wechat_openid, wechat_unionid, wechat_session_key,
last_login_at, last_login_ip, metadata, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var username, email, openID *string
	err := row.Scan(
		&u.ID, &username, &u.PasswordHash, &u.Name, &u.AvatarURL, &email, &u.Phone,
		&u.Role, &u.Provider, &openID, &u.WeChatUnionID, &u.WeChatSessionKey,
		&u.LastLoginAt, &u.LastLoginIP, &u.Metadata, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Username = deref(username)
	u.Email = deref(email)
	u.WeChatOpenID = deref(openID)
	return &u, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nullable maps "" to NULL so the partial unique indexes treat absence as
// non-conflicting.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	const q = `
INSERT INTO users (username, password_hash, name, avatar_url, email, phone,
  role, provider, wechat_openid, wechat_unionid, wechat_session_key,
  last_login_at, last_login_ip, metadata)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING ` + userCols
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(pool.QueryRow(ctx, q,
		nullable(u.Username), u.PasswordHash, u.Name, u.AvatarURL, nullable(u.Email), u.Phone,
		u.Role, u.Provider, nullable(u.WeChatOpenID), u.WeChatUnionID, u.WeChatSessionKey,
		u.LastLoginAt, u.LastLoginIP, u.Metadata,
	))
}

func (r *UserRepo) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	return r.findOne(ctx, q, id)
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE username=$1`
	return r.findOne(ctx, q, username)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email=$1`
	return r.findOne(ctx, q, email)
}

func (r *UserRepo) FindByOpenID(ctx context.Context, openID string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE wechat_openid=$1`
	return r.findOne(ctx, q, openID)
}

// FindByEmailOrPhone returns the first user matching either clause; there is
// no preference order beyond whichever clause matches.
func (r *UserRepo) FindByEmailOrPhone(ctx context.Context, email, phone string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users
WHERE (email=$1 AND $1 <> '') OR (phone=$2 AND $2 <> '') LIMIT 1`
	return r.findOne(ctx, q, email, phone)
}

func (r *UserRepo) findOne(ctx context.Context, q string, args ...any) (*domain.User, error) {
	pool, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(pool.QueryRow(ctx, q, args...))
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	const q = `
UPDATE users SET
  username=$2, password_hash=$3, name=$4, avatar_url=$5, email=$6, phone=$7,
  role=$8, provider=$9, wechat_openid=$10, wechat_unionid=$11,
  wechat_session_key=$12, last_login_at=$13, last_login_ip=$14, metadata=$15,
  updated_at=now()
WHERE id=$1`
	pool, err := r.db.Get(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err = pool.Exec(ctx, q, u.ID,
		nullable(u.Username), u.PasswordHash, u.Name, u.AvatarURL, nullable(u.Email), u.Phone,
		u.Role, u.Provider, nullable(u.WeChatOpenID), u.WeChatUnionID,
		u.WeChatSessionKey, u.LastLoginAt, u.LastLoginIP, u.Metadata,
	)
	return err
}
