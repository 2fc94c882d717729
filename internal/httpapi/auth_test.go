package httpapi

import (
	"strings"
	"testing"
	"time"

	"github.com/Matongos/inventory/internal/domain"
)

func TestSignAndParseRoundTrip(t *testing.T) {
	auth := NewAuthManager("0123456789abcdef0123456789abcdef", time.Hour)

	token, expiresAt, err := auth.Sign(domain.User{ID: 7, Username: "admin", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	actor, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if actor.UserID != 7 || actor.Username != "admin" || actor.Role != domain.RoleAdmin {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	auth := NewAuthManager("0123456789abcdef0123456789abcdef", time.Hour)
	token, _, err := auth.Sign(domain.User{ID: 1, Username: "admin", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := auth.ParseToken(tampered); err == nil {
		t.Fatalf("expected tampered token to be rejected")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	signer := NewAuthManager("0123456789abcdef0123456789abcdef", time.Hour)
	verifier := NewAuthManager("another-secret-another-secret-32", time.Hour)

	token, _, err := signer.Sign(domain.User{ID: 1, Username: "admin", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatalf("expected token signed with different secret to be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	auth := NewAuthManager("0123456789abcdef0123456789abcdef", time.Nanosecond)
	token, _, err := auth.Sign(domain.User{ID: 1, Username: "admin", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	auth := NewAuthManager("0123456789abcdef0123456789abcdef", time.Hour)
	for _, raw := range []string{"", "not-a-token", strings.Repeat("a", 300)} {
		if _, err := auth.ParseToken(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
