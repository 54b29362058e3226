package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/satacare/sata-system/internal/core/domain"
)

const (
	SessionTokenTTL = 8 * time.Hour
	ResetTokenTTL   = 15 * time.Minute

	resetAction = "reset"
)

// SessionClaims is the signed claim set carried in the auth cookie.
type SessionClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ResetClaims is the signed claim set embedded in a password-reset link.
// Action must be exactly "reset" for the token to be accepted.
type ResetClaims struct {
	Action   string `json:"action"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session and reset tokens (HS256). Tokens
// are fixed-lifetime capabilities: there is no refresh or rotation.
type TokenIssuer struct {
	secret string
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: secret}
}

// IssueSession signs an 8-hour session token for the user. The role claim is
// normalized before it is embedded.
func (t *TokenIssuer) IssueSession(user *domain.User) (string, error) {
	if t.secret == "" {
		return "", domain.ErrConfigMissing
	}
	now := time.Now()
	claims := SessionClaims{
		Username: user.Username,
		Role:     domain.NormalizeRole(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.secret))
}

// IssueReset signs a 15-minute single-purpose reset token for the user.
func (t *TokenIssuer) IssueReset(user *domain.User) (string, error) {
	if t.secret == "" {
		return "", domain.ErrConfigMissing
	}
	now := time.Now()
	claims := ResetClaims{
		Action:   resetAction,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ResetTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.secret))
}

// VerifySession parses and validates a session token. Fails closed with
// ErrInvalidOrExpiredToken on bad signature, expiry or malformed structure.
func (t *TokenIssuer) VerifySession(token string) (*SessionClaims, error) {
	if t.secret == "" {
		return nil, domain.ErrConfigMissing
	}
	claims := &SessionClaims{}
	if err := t.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyReset parses and validates a reset token. A structurally valid token
// whose action claim is not "reset" is rejected with ErrInvalidResetToken.
func (t *TokenIssuer) VerifyReset(token string) (*ResetClaims, error) {
	if t.secret == "" {
		return nil, domain.ErrConfigMissing
	}
	claims := &ResetClaims{}
	if err := t.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.Action != resetAction || claims.Subject == "" {
		return nil, domain.ErrInvalidResetToken
	}
	return claims, nil
}

func (t *TokenIssuer) parse(token string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if tok.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(t.secret), nil
	})
	if err != nil || !parsed.Valid {
		return domain.ErrInvalidOrExpiredToken
	}
	return nil
}
