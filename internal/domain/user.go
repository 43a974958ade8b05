package domain

import (
	"regexp"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Provider string

const (
	ProviderWeChat    Provider = "wechat"
	ProviderAnonymous Provider = "anonymous"
	ProviderPassword  Provider = "password"
	ProviderAdmin     Provider = "admin"
)

type User struct {
	ID               int64             `json:"id"`
	Username         string            `json:"username,omitempty"`
	PasswordHash     string            `json:"-"`
	Name             string            `json:"name"`
	AvatarURL        string            `json:"avatar_url,omitempty"`
	Email            string            `json:"email,omitempty"`
	Phone            string            `json:"phone,omitempty"`
	Role             Role              `json:"role"`
	Provider         Provider          `json:"provider"`
	WeChatOpenID     string            `json:"-"`
	WeChatUnionID    string            `json:"-"`
	WeChatSessionKey string            `json:"-"`
	LastLoginAt      *time.Time        `json:"last_login_at,omitempty"`
	LastLoginIP      string            `json:"-"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// UserInfo is the client-safe projection of a User. It never carries the
// password hash or the raw wechat session key.
type UserInfo struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username,omitempty"`
	Name        string     `json:"name"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Role        Role       `json:"role"`
	Provider    Provider   `json:"provider"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (u *User) Sanitize() *UserInfo {
	return &UserInfo{
		ID:          u.ID,
		Username:    u.Username,
		Name:        u.Name,
		AvatarURL:   u.AvatarURL,
		Email:       u.Email,
		Phone:       u.Phone,
		Role:        u.Role,
		Provider:    u.Provider,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = NormalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r *RegisterRequest) Validate() error {
	if r.Username == "" {
		return NewValidationError("username", "is required")
	}
	if len(r.Password) < 6 {
		return NewValidationError("password", "must be at least 6 characters")
	}
	if r.Email == "" || !IsValidEmail(r.Email) {
		return NewValidationError("email", "must be a valid email address")
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

func (r *LoginRequest) Validate() error {
	if r.Username == "" {
		return NewValidationError("username", "is required")
	}
	if r.Password == "" {
		return NewValidationError("password", "is required")
	}
	return nil
}

type AnonymousLoginRequest struct {
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Name          string `json:"name,omitempty"`
	RequestedRole string `json:"role,omitempty"`
}

func (r *AnonymousLoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Name = strings.TrimSpace(r.Name)
	r.RequestedRole = strings.TrimSpace(r.RequestedRole)
}

func (r *AnonymousLoginRequest) Validate() error {
	if r.Email != "" && !IsValidEmail(r.Email) {
		return NewValidationError("email", "must be a valid email address")
	}
	return nil
}

type WeChatLoginRequest struct {
	Code      string `json:"code"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

func (r *WeChatLoginRequest) Normalize() {
	r.Code = strings.TrimSpace(r.Code)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r *WeChatLoginRequest) Validate() error {
	if r.Code == "" {
		return NewValidationError("code", "is required")
	}
	return nil
}

type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

func (r *UpdateProfileRequest) Validate() error {
	if r.Email != nil && *r.Email != "" && !IsValidEmail(NormalizeEmail(*r.Email)) {
		return NewValidationError("email", "must be a valid email address")
	}
	return nil
}

type LoginResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}
