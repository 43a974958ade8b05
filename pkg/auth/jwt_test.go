package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := NewToken(42, "admin", "password", "secret", time.Hour)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}

	claims, err := Parse(tok, "secret")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Sub != 42 || claims.Role != "admin" || claims.Provider != "password" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenExpiry(t *testing.T) {
	tok, err := NewToken(1, "user", "anonymous", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}
	if _, err := Parse(tok, "secret"); err == nil {
		t.Error("expected an expired token to fail")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	tok, _ := NewToken(1, "user", "anonymous", "secret", time.Hour)
	if _, err := Parse(tok, "other"); err == nil {
		t.Error("expected a bad signature to fail")
	}
}

func TestMissingSecret(t *testing.T) {
	if _, err := NewToken(1, "user", "anonymous", "", time.Hour); !errors.Is(err, ErrNoSecret) {
		t.Errorf("NewToken: got %v, want ErrNoSecret", err)
	}
	if _, err := Parse("anything", ""); !errors.Is(err, ErrNoSecret) {
		t.Errorf("Parse: got %v, want ErrNoSecret", err)
	}
}

func TestExtractTokenPrecedence(t *testing.T) {
	// Header wins over cookie and query.
	r := httptest.NewRequest("GET", "/?token=from-query", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	r.AddCookie(&http.Cookie{Name: TokenCookie, Value: "from-cookie"})
	if got := ExtractToken(r); got != "from-header" {
		t.Errorf("header precedence: got %q", got)
	}

	// Cookie wins over query.
	r = httptest.NewRequest("GET", "/?token=from-query", nil)
	r.AddCookie(&http.Cookie{Name: TokenCookie, Value: "from-cookie"})
	if got := ExtractToken(r); got != "from-cookie" {
		t.Errorf("cookie precedence: got %q", got)
	}

	// Query is the last resort.
	r = httptest.NewRequest("GET", "/?token=from-query", nil)
	if got := ExtractToken(r); got != "from-query" {
		t.Errorf("query fallback: got %q", got)
	}

	r = httptest.NewRequest("GET", "/", nil)
	if got := ExtractToken(r); got != "" {
		t.Errorf("no credential: got %q", got)
	}
}
