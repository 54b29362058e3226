package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/satacare/sata-system/internal/core/domain"
)

func TestTokenIssuer_SessionRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret")
	user := &domain.User{ID: "u1", Username: "carol", Role: "Administrator"}

	token, err := issuer.IssueSession(user)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	claims, err := issuer.VerifySession(token)
	if err != nil {
		t.Fatalf("verify session: %v", err)
	}
	if claims.Subject != "u1" || claims.Username != "carol" || claims.Role != domain.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenIssuer_ResetRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret")
	user := &domain.User{ID: "u1", Username: "carol"}

	token, err := issuer.IssueReset(user)
	if err != nil {
		t.Fatalf("issue reset: %v", err)
	}

	claims, err := issuer.VerifyReset(token)
	if err != nil {
		t.Fatalf("verify reset: %v", err)
	}
	if claims.Subject != "u1" || claims.Action != "reset" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" {
		t.Fatalf("reset token must carry a unique id")
	}
	if ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time); ttl != ResetTokenTTL {
		t.Fatalf("expected 15m lifetime, got %s", ttl)
	}
}

func TestTokenIssuer_MissingSecret(t *testing.T) {
	issuer := NewTokenIssuer("")
	if _, err := issuer.IssueSession(&domain.User{}); err != domain.ErrConfigMissing {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
	if _, err := issuer.VerifyReset("any"); err != domain.ErrConfigMissing {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
}

func TestTokenIssuer_VerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("one").IssueSession(&domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokenIssuer("two").VerifySession(token); err != domain.ErrInvalidOrExpiredToken {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestTokenIssuer_VerifyRejectsExpired(t *testing.T) {
	now := time.Now()
	claims := ResetClaims{
		Action:   "reset",
		Username: "carol",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-45 * time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewTokenIssuer("secret").VerifyReset(token); err != domain.ErrInvalidOrExpiredToken {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestTokenIssuer_VerifyResetRejectsSessionToken(t *testing.T) {
	issuer := NewTokenIssuer("secret")
	token, err := issuer.IssueSession(&domain.User{ID: "u1", Username: "carol"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	// A session token parses as ResetClaims but has no action claim, so it
	// must not be accepted as a reset capability.
	if _, err := issuer.VerifyReset(token); err != domain.ErrInvalidResetToken {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}
}

func TestTokenIssuer_VerifyRejectsUnsignedAlg(t *testing.T) {
	claims := SessionClaims{
		Username:         "carol",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewTokenIssuer("secret").VerifySession(token); err != domain.ErrInvalidOrExpiredToken {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}
