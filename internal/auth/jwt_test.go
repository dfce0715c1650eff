package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"campus/identity/internal/model"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := NewSessionToken("secret", "issuer", time.Minute, "user-1", model.RoleStudent)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	claims, err := ParseToken("secret", "issuer", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "student" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject user-1, got %s", claims.Subject)
	}
}

func TestSessionTokenExpiry(t *testing.T) {
	// A token past its expiry is rejected.
	token, err := NewSessionToken("secret", "issuer", -time.Minute, "user-1", model.RoleStudent)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", "issuer", token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired token error, got %v", err)
	}

	// Expiry is exclusive: a token whose exp equals the verification instant
	// is already invalid, so a zero TTL never yields a usable token.
	token, err = NewSessionToken("secret", "issuer", 0, "user-1", model.RoleStudent)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", "issuer", token); err == nil {
		t.Fatalf("expected zero-ttl token to be rejected")
	}

	// Just inside the window it still verifies.
	token, err = NewSessionToken("secret", "issuer", time.Hour, "user-1", model.RoleStudent)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", "issuer", token); err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
}

func TestSessionTokenWrongSecret(t *testing.T) {
	token, err := NewSessionToken("secret", "issuer", time.Minute, "user-1", model.RoleAdmin)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("other-secret", "issuer", token); err == nil {
		t.Fatalf("expected signature mismatch")
	}
	if _, err := ParseToken("secret", "other-issuer", token); err == nil {
		t.Fatalf("expected issuer mismatch")
	}
}
