package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lawlink/lawlink-api/internal/domain"
	"github.com/lawlink/lawlink-api/internal/platform/wechat"
	"github.com/lawlink/lawlink-api/pkg/auth"
	"github.com/lawlink/lawlink-api/pkg/config"
	"github.com/lawlink/lawlink-api/pkg/events"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:    "test-secret",
			TokenTTL:     14 * 24 * time.Hour,
			AdminEmails:  "admin@lawlink.local, boss@firm.cn",
			AdminOpenIDs: "openid-admin-1",
		},
	}
}

func newTestAuthService(users *mockUserRepo, wc wechat.Client) (AuthService, *mockEventBus) {
	bus := &mockEventBus{}
	return NewAuthService(users, wc, bus, testConfig()), bus
}

func TestWeChatLoginCreatesUser(t *testing.T) {
	users := newMockUserRepo()
	wc := &mockWeChatClient{session: &wechat.Session{OpenID: "oid-1", UnionID: "uid-1", SessionKey: "sk"}}
	svc, bus := newTestAuthService(users, wc)

	resp, err := svc.WeChatLogin(context.Background(), &domain.WeChatLoginRequest{Code: "code-1", Name: "张三"}, "1.2.3.4")
	if err != nil {
		t.Fatalf("WeChatLogin() error = %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	if resp.User.Name != "张三" {
		t.Errorf("name = %q, want 张三", resp.User.Name)
	}
	if resp.User.Role != domain.RoleUser {
		t.Errorf("role = %q, want user", resp.User.Role)
	}
	if resp.User.Provider != domain.ProviderWeChat {
		t.Errorf("provider = %q, want wechat", resp.User.Provider)
	}

	stored := users.users[resp.User.ID]
	if stored.WeChatOpenID != "oid-1" || stored.WeChatSessionKey != "sk" {
		t.Errorf("wechat identity not persisted: %+v", stored)
	}
	if stored.LastLoginIP != "1.2.3.4" {
		t.Errorf("last login ip = %q", stored.LastLoginIP)
	}

	found := false
	for _, subj := range bus.published {
		if subj == events.UserRegistered {
			found = true
		}
	}
	if !found {
		t.Error("expected a user registered event")
	}
}

func TestWeChatLoginGeneratesGuestName(t *testing.T) {
	users := newMockUserRepo()
	wc := &mockWeChatClient{session: &wechat.Session{OpenID: "oid-2"}}
	svc, _ := newTestAuthService(users, wc)

	resp, err := svc.WeChatLogin(context.Background(), &domain.WeChatLoginRequest{Code: "code"}, "")
	if err != nil {
		t.Fatalf("WeChatLogin() error = %v", err)
	}
	if resp.User.Name == "" {
		t.Fatal("expected a generated guest name")
	}
}

func TestWeChatLoginMergesWithoutBlanking(t *testing.T) {
	users := newMockUserRepo()
	existing, _ := users.Create(context.Background(), &domain.User{
		Name:         "李四",
		Email:        "lisi@example.com",
		Provider:     domain.ProviderWeChat,
		Role:         domain.RoleUser,
		WeChatOpenID: "oid-3",
	})
	wc := &mockWeChatClient{session: &wechat.Session{OpenID: "oid-3", SessionKey: "sk-new"}}
	svc, _ := newTestAuthService(users, wc)

	// Sparse profile on re-login must not erase earlier fields.
	resp, err := svc.WeChatLogin(context.Background(), &domain.WeChatLoginRequest{Code: "code", Phone: "13800138000"}, "")
	if err != nil {
		t.Fatalf("WeChatLogin() error = %v", err)
	}
	if resp.User.ID != existing.ID {
		t.Fatalf("expected reuse of user %d, got %d", existing.ID, resp.User.ID)
	}
	if resp.User.Name != "李四" || resp.User.Email != "lisi@example.com" {
		t.Errorf("profile fields were blanked: %+v", resp.User)
	}
	if resp.User.Phone != "13800138000" {
		t.Errorf("phone not merged: %q", resp.User.Phone)
	}
	if users.users[existing.ID].WeChatSessionKey != "sk-new" {
		t.Error("session key not refreshed")
	}
}

func TestWeChatLoginUpstreamFailure(t *testing.T) {
	users := newMockUserRepo()
	wc := &mockWeChatClient{err: &domain.UpstreamAuthError{Detail: "code expired"}}
	svc, _ := newTestAuthService(users, wc)

	_, err := svc.WeChatLogin(context.Background(), &domain.WeChatLoginRequest{Code: "stale"}, "")
	var upstream *domain.UpstreamAuthError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamAuthError, got %v", err)
	}
	if len(users.users) != 0 {
		t.Error("no user should be written on upstream failure")
	}
}

func TestAnonymousLoginUpsertsByContact(t *testing.T) {
	users := newMockUserRepo()
	svc, _ := newTestAuthService(users, &mockWeChatClient{})

	first, err := svc.AnonymousLogin(context.Background(), &domain.AnonymousLoginRequest{Email: "guest@example.com"}, "")
	if err != nil {
		t.Fatalf("AnonymousLogin() error = %v", err)
	}
	second, err := svc.AnonymousLogin(context.Background(), &domain.AnonymousLoginRequest{Email: "guest@example.com", Name: "王五"}, "")
	if err != nil {
		t.Fatalf("AnonymousLogin() error = %v", err)
	}
	if first.User.ID != second.User.ID {
		t.Fatalf("expected the same user, got %d then %d", first.User.ID, second.User.ID)
	}
	if second.User.Name != "王五" {
		t.Errorf("name not merged on second login: %q", second.User.Name)
	}
}

func TestAnonymousLoginAdminRequestIsGated(t *testing.T) {
	users := newMockUserRepo()
	svc, _ := newTestAuthService(users, &mockWeChatClient{})

	resp, err := svc.AnonymousLogin(context.Background(), &domain.AnonymousLoginRequest{Email: "stranger@example.com", RequestedRole: "admin"}, "")
	if err != nil {
		t.Fatalf("AnonymousLogin() error = %v", err)
	}
	if resp.User.Role != domain.RoleUser {
		t.Errorf("unlisted identity requesting admin got %q", resp.User.Role)
	}

	resp, err = svc.AnonymousLogin(context.Background(), &domain.AnonymousLoginRequest{Email: "Admin@lawlink.local", RequestedRole: "admin"}, "")
	if err != nil {
		t.Fatalf("AnonymousLogin() error = %v", err)
	}
	if resp.User.Role != domain.RoleAdmin {
		t.Errorf("allow-listed identity requesting admin got %q", resp.User.Role)
	}
}

func TestPasswordLoginAndRegister(t *testing.T) {
	users := newMockUserRepo()
	svc, _ := newTestAuthService(users, &mockWeChatClient{})
	ctx := context.Background()

	reg, err := svc.Register(ctx, &domain.RegisterRequest{Username: "zhang", Password: "hunter22", Email: "zhang@example.com"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.User.Provider != domain.ProviderPassword {
		t.Errorf("provider = %q", reg.User.Provider)
	}

	login, err := svc.PasswordLogin(ctx, &domain.LoginRequest{Username: "zhang", Password: "hunter22"}, "5.6.7.8")
	if err != nil {
		t.Fatalf("PasswordLogin() error = %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Errorf("logged in as %d, registered as %d", login.User.ID, reg.User.ID)
	}

	if _, err := svc.PasswordLogin(ctx, &domain.LoginRequest{Username: "zhang", Password: "wrong"}, ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.PasswordLogin(ctx, &domain.LoginRequest{Username: "nobody", Password: "hunter22"}, ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v, want ErrInvalidCredentials", err)
	}
}

func TestPasswordLoginRejectsPasswordlessAccount(t *testing.T) {
	users := newMockUserRepo()
	users.Create(context.Background(), &domain.User{Username: "wechat-only", Provider: domain.ProviderWeChat, Role: domain.RoleUser})
	svc, _ := newTestAuthService(users, &mockWeChatClient{})

	_, err := svc.PasswordLogin(context.Background(), &domain.LoginRequest{Username: "wechat-only", Password: "anything"}, "")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterConflicts(t *testing.T) {
	users := newMockUserRepo()
	svc, _ := newTestAuthService(users, &mockWeChatClient{})
	ctx := context.Background()

	if _, err := svc.Register(ctx, &domain.RegisterRequest{Username: "dup", Password: "secret1", Email: "dup@example.com"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	var conflict *domain.ConflictError
	_, err := svc.Register(ctx, &domain.RegisterRequest{Username: "dup", Password: "secret1", Email: "other@example.com"})
	if !errors.As(err, &conflict) || conflict.Code != domain.ConflictUsernameExists {
		t.Errorf("duplicate username: got %v", err)
	}
	_, err = svc.Register(ctx, &domain.RegisterRequest{Username: "other", Password: "secret1", Email: "dup@example.com"})
	if !errors.As(err, &conflict) || conflict.Code != domain.ConflictEmailExists {
		t.Errorf("duplicate email: got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestAuthService(newMockUserRepo(), &mockWeChatClient{})

	var verr *domain.ValidationError
	_, err := svc.Register(context.Background(), &domain.RegisterRequest{Username: "u", Password: "short", Email: "u@example.com"})
	if !errors.As(err, &verr) || verr.Field != "password" {
		t.Errorf("short password: got %v", err)
	}
	_, err = svc.Register(context.Background(), &domain.RegisterRequest{Username: "u", Password: "longenough", Email: "not-an-email"})
	if !errors.As(err, &verr) || verr.Field != "email" {
		t.Errorf("bad email: got %v", err)
	}
}

func TestVerifyToken(t *testing.T) {
	users := newMockUserRepo()
	svc, _ := newTestAuthService(users, &mockWeChatClient{})
	ctx := context.Background()

	reg, err := svc.Register(ctx, &domain.RegisterRequest{Username: "holder", Password: "secret1", Email: "holder@example.com"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	u, err := svc.VerifyToken(ctx, reg.Token)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if u.ID != reg.User.ID {
		t.Errorf("subject = %d, want %d", u.ID, reg.User.ID)
	}

	if _, err := svc.VerifyToken(ctx, "not.a.token"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("garbage token: got %v", err)
	}

	// A token whose subject has vanished is still a credential failure.
	dangling, err := auth.NewToken(9999, "user", "password", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}
	if _, err := svc.VerifyToken(ctx, dangling); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("dangling subject: got %v", err)
	}
}

func TestPasswordHashNeverLeaves(t *testing.T) {
	users := newMockUserRepo()
	svc, _ := newTestAuthService(users, &mockWeChatClient{})

	resp, err := svc.Register(context.Background(), &domain.RegisterRequest{Username: "safe", Password: "secret1", Email: "safe@example.com"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	// The response carries the sanitized projection, which has no hash
	// field at all; make sure the stored hash verifies and is argon2id.
	hash := users.users[resp.User.ID].PasswordHash
	ok, err := argon2id.ComparePasswordAndHash("secret1", hash)
	if err != nil || !ok {
		t.Errorf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
}

func TestUpdateProfileMergesPointers(t *testing.T) {
	users := newMockUserRepo()
	svc, _ := newTestAuthService(users, &mockWeChatClient{})
	ctx := context.Background()

	reg, err := svc.Register(ctx, &domain.RegisterRequest{Username: "prof", Password: "secret1", Email: "prof@example.com"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	name := "新名字"
	u, err := svc.UpdateProfile(ctx, reg.User.ID, &domain.UpdateProfileRequest{Name: &name})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if u.Name != "新名字" {
		t.Errorf("name = %q", u.Name)
	}
	if u.Email != "prof@example.com" {
		t.Errorf("untouched email changed: %q", u.Email)
	}

	bad := "not-an-email"
	var verr *domain.ValidationError
	if _, err := svc.UpdateProfile(ctx, reg.User.ID, &domain.UpdateProfileRequest{Email: &bad}); !errors.As(err, &verr) {
		t.Errorf("bad email: got %v", err)
	}
}
