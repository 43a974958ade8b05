package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/lawlink/lawlink-api/internal/domain"
	"github.com/lawlink/lawlink-api/internal/platform/wechat"
	"github.com/lawlink/lawlink-api/internal/repo/postgres"
	"github.com/lawlink/lawlink-api/internal/roles"
	"github.com/lawlink/lawlink-api/pkg/auth"
	"github.com/lawlink/lawlink-api/pkg/config"
	"github.com/lawlink/lawlink-api/pkg/events"
	"github.com/lawlink/lawlink-api/pkg/logger"
)

// AuthService normalizes the three login paths into one User record and one
// signed token.
type AuthService interface {
	WeChatLogin(ctx context.Context, req *domain.WeChatLoginRequest, originIP string) (*domain.LoginResponse, error)
	AnonymousLogin(ctx context.Context, req *domain.AnonymousLoginRequest, originIP string) (*domain.LoginResponse, error)
	PasswordLogin(ctx context.Context, req *domain.LoginRequest, originIP string) (*domain.LoginResponse, error)
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.LoginResponse, error)
	VerifyToken(ctx context.Context, token string) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, req *domain.UpdateProfileRequest) (*domain.User, error)
}

type authService struct {
	users  postgres.UserRepository
	wechat wechat.Client
	bus    events.EventBus
	config *config.Config
}

func NewAuthService(users postgres.UserRepository, wc wechat.Client, bus events.EventBus, cfg *config.Config) AuthService {
	return &authService{users: users, wechat: wc, bus: bus, config: cfg}
}

func (s *authService) roleConfig() roles.Config {
	return roles.Config{
		AdminEmails:  s.config.Auth.AdminEmails,
		AdminOpenIDs: s.config.Auth.AdminOpenIDs,
	}
}

func (s *authService) issueToken(u *domain.User) (string, error) {
	return auth.NewToken(u.ID, string(u.Role), string(u.Provider), s.config.Auth.JWTSecret, s.config.Auth.TokenTTL)
}

func (s *authService) loginResponse(u *domain.User) (*domain.LoginResponse, error) {
	token, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}
	return &domain.LoginResponse{Token: token, User: u.Sanitize()}, nil
}

func touchLastLogin(u *domain.User, originIP string) {
	now := time.Now()
	u.LastLoginAt = &now
	u.LastLoginIP = originIP
}

// mergeNonEmpty overwrites dst only when src carries a value; a login with a
// sparse profile never blanks fields an earlier login filled in.
func mergeNonEmpty(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func (s *authService) WeChatLogin(ctx context.Context, req *domain.WeChatLoginRequest, originIP string) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, err := s.wechat.Exchange(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindByOpenID(ctx, session.OpenID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up wechat user: %w", err)
	}

	if u == nil {
		u = &domain.User{
			Name:             req.Name,
			AvatarURL:        req.AvatarURL,
			Email:            req.Email,
			Phone:            req.Phone,
			Provider:         domain.ProviderWeChat,
			WeChatOpenID:     session.OpenID,
			WeChatUnionID:    session.UnionID,
			WeChatSessionKey: session.SessionKey,
			Role:             roles.Resolve(s.roleConfig(), req.Email, session.OpenID, ""),
		}
		if u.Name == "" {
			u.Name = guestName()
		}
		touchLastLogin(u, originIP)
		if u, err = s.users.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to create wechat user: %w", err)
		}
		s.publishRegistered(ctx, u)
	} else {
		mergeNonEmpty(&u.Name, req.Name)
		mergeNonEmpty(&u.AvatarURL, req.AvatarURL)
		mergeNonEmpty(&u.Email, req.Email)
		mergeNonEmpty(&u.Phone, req.Phone)
		u.WeChatUnionID = session.UnionID
		u.WeChatSessionKey = session.SessionKey
		u.Role = roles.Resolve(s.roleConfig(), u.Email, u.WeChatOpenID, "")
		touchLastLogin(u, originIP)
		if err := s.users.Update(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to refresh wechat user: %w", err)
		}
	}

	return s.loginResponse(u)
}

func (s *authService) AnonymousLogin(ctx context.Context, req *domain.AnonymousLoginRequest, originIP string) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmailOrPhone(ctx, req.Email, req.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to look up guest: %w", err)
	}

	if u == nil {
		u = &domain.User{
			Name:     req.Name,
			Email:    req.Email,
			Phone:    req.Phone,
			Provider: domain.ProviderAnonymous,
			Role:     roles.Resolve(s.roleConfig(), req.Email, "", req.RequestedRole),
		}
		if u.Name == "" {
			u.Name = guestName()
		}
		touchLastLogin(u, originIP)
		if u, err = s.users.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to create guest: %w", err)
		}
		s.publishRegistered(ctx, u)
	} else {
		mergeNonEmpty(&u.Name, req.Name)
		mergeNonEmpty(&u.Email, req.Email)
		mergeNonEmpty(&u.Phone, req.Phone)
		u.Role = roles.Resolve(s.roleConfig(), u.Email, u.WeChatOpenID, req.RequestedRole)
		touchLastLogin(u, originIP)
		if err := s.users.Update(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to refresh guest: %w", err)
		}
	}

	return s.loginResponse(u)
}

func (s *authService) PasswordLogin(ctx context.Context, req *domain.LoginRequest, originIP string) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if u == nil || u.PasswordHash == "" {
		return nil, domain.ErrInvalidCredentials
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, domain.ErrInvalidCredentials
	}

	touchLastLogin(u, originIP)
	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	return s.loginResponse(u)
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.users.FindByUsername(ctx, req.Username); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	} else if existing != nil {
		return nil, &domain.ConflictError{Code: domain.ConflictUsernameExists, Message: "username is already taken"}
	}
	if existing, err := s.users.FindByEmail(ctx, req.Email); err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	} else if existing != nil {
		return nil, &domain.ConflictError{Code: domain.ConflictEmailExists, Message: "email is already registered"}
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &domain.User{
		Username:     req.Username,
		PasswordHash: hash,
		Name:         req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		Provider:     domain.ProviderPassword,
		Role:         domain.RoleUser,
	}
	if u, err = s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.publishRegistered(ctx, u)

	return s.loginResponse(u)
}

// VerifyToken checks signature and expiry and re-loads the current user. A
// valid token whose subject no longer exists is still a credential failure.
func (s *authService) VerifyToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := auth.Parse(token, s.config.Auth.JWTSecret)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	u, err := s.users.FindByID(ctx, claims.Sub)
	if err != nil {
		return nil, fmt.Errorf("failed to load token subject: %w", err)
	}
	if u == nil {
		return nil, domain.ErrInvalidCredentials
	}
	return u, nil
}

func (s *authService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return nil, &domain.NotFoundError{Resource: "user"}
	}
	return u, nil
}

func (s *authService) UpdateProfile(ctx context.Context, id int64, req *domain.UpdateProfileRequest) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		mergeNonEmpty(&u.Name, *req.Name)
	}
	if req.AvatarURL != nil {
		mergeNonEmpty(&u.AvatarURL, *req.AvatarURL)
	}
	if req.Email != nil {
		mergeNonEmpty(&u.Email, domain.NormalizeEmail(*req.Email))
	}
	if req.Phone != nil {
		mergeNonEmpty(&u.Phone, *req.Phone)
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return u, nil
}

func (s *authService) publishRegistered(ctx context.Context, u *domain.User) {
	ev := events.UserRegisteredEvent{
		UserID:   u.ID,
		Provider: string(u.Provider),
		Role:     string(u.Role),
		At:       time.Now(),
	}
	if err := s.bus.Publish(ctx, events.UserRegistered, ev); err != nil {
		logger.WarnContext(ctx, "failed to publish user registered event", "error", err, "user_id", u.ID)
	}
}

func guestName() string {
	return "访客" + uuid.NewString()[:8]
}
