package middleware

import (
	"context"
	"net/http"

	"github.com/lawlink/lawlink-api/internal/domain"
	"github.com/lawlink/lawlink-api/internal/http/response"
	"github.com/lawlink/lawlink-api/internal/service"
	"github.com/lawlink/lawlink-api/pkg/auth"
)

type ctxKey string

const CtxUser ctxKey = "user"

// Authenticator resolves the token found on the request (header, cookie or
// query parameter) into the current user.
type Authenticator struct {
	auth service.AuthService
}

func NewAuthenticator(authSvc service.AuthService) *Authenticator {
	return &Authenticator{auth: authSvc}
}

// Require rejects requests without a valid token.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := auth.ExtractToken(r)
		if raw == "" {
			response.WriteError(w, http.StatusUnauthorized, "authentication required", response.CodeUnauthorized)
			return
		}
		u, err := a.auth.VerifyToken(r.Context(), raw)
		if err != nil {
			response.WriteError(w, http.StatusUnauthorized, "invalid or expired token", response.CodeInvalidToken)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u)))
	})
}

// Optional attaches the user when a valid token is present and lets the
// request through either way. An invalid token is still rejected so a
// client never silently downgrades to anonymous.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := auth.ExtractToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		u, err := a.auth.VerifyToken(r.Context(), raw)
		if err != nil {
			response.WriteError(w, http.StatusUnauthorized, "invalid or expired token", response.CodeInvalidToken)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u)))
	})
}

// RequireAdmin runs after Require and rejects non-admin users.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return a.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := CurrentUser(r)
		if u == nil || u.Role != domain.RoleAdmin {
			response.WriteError(w, http.StatusForbidden, "admin access required", response.CodeForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func withUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, CtxUser, u)
}

// CurrentUser returns the authenticated user, or nil on anonymous requests.
func CurrentUser(r *http.Request) *domain.User {
	v := r.Context().Value(CtxUser)
	if v == nil {
		return nil
	}
	return v.(*domain.User)
}
