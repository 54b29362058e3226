package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/satacare/sata-system/internal/api/metrics"
	"github.com/satacare/sata-system/internal/core/domain"
	"github.com/satacare/sata-system/internal/core/ports"
)

// BootstrapAdmin is the configured fallback identity that guarantees one
// recoverable admin login on a fresh deployment. Credentials are matched
// against SHA-256 digests so the plaintext password never lives in config.
type BootstrapAdmin struct {
	Username       string
	UsernameSHA256 string
	PasswordSHA256 string
	Email          string
}

func (b BootstrapAdmin) configured() bool {
	return b.Username != "" && b.PasswordSHA256 != ""
}

// AuthService implements session establishment, registration and uniqueness
// checks against the user store.
type AuthService struct {
	repo      ports.UserRepository
	issuer    *TokenIssuer
	bootstrap BootstrapAdmin
	audit     ports.AuditLogger
	logger    zerolog.Logger
}

func NewAuthService(repo ports.UserRepository, issuer *TokenIssuer, bootstrap BootstrapAdmin, audit ports.AuditLogger, logger zerolog.Logger) *AuthService {
	return &AuthService{repo: repo, issuer: issuer, bootstrap: bootstrap, audit: audit, logger: logger}
}

// Login verifies credentials and issues a session token paired with a fresh
// CSRF value. Lookup and verification failures collapse into a single
// ErrInvalidCredentials so callers cannot distinguish a bad username from a
// bad password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrMissingFields
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	ok := false
	if user != nil {
		ok = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
	}

	if !ok {
		user, ok = s.bootstrapLogin(ctx, username, password)
	}

	if !ok || user == nil {
		metrics.LoginsTotal.WithLabelValues("denied").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.issuer.IssueSession(user)
	if err != nil {
		return nil, err
	}

	csrf, err := newCSRFToken()
	if err != nil {
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return &ports.LoginResult{Token: token, CSRF: csrf, User: user.Profile()}, nil
}

// bootstrapLogin compares the supplied credentials against the configured
// default-admin digests. On a match it creates the admin record if absent
// (hashing the supplied password like any other account) or reactivates it
// if inactive. Never bypasses hashing for the persisted credential.
func (s *AuthService) bootstrapLogin(ctx context.Context, username, password string) (*domain.User, bool) {
	if !s.bootstrap.configured() {
		return nil, false
	}

	userMatch := strings.TrimSpace(username) == s.bootstrap.Username ||
		digestEqual(username, s.bootstrap.UsernameSHA256)
	passMatch := digestEqual(password, s.bootstrap.PasswordSHA256)
	if !userMatch || !passMatch {
		return nil, false
	}

	existing, err := s.repo.FindByUsername(ctx, s.bootstrap.Username)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		s.logger.Error().Err(err).Msg("bootstrap admin lookup failed")
		return nil, false
	}

	if existing == nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, false
		}
		now := time.Now().UTC()
		created, err := s.repo.Create(ctx, &domain.User{
			Username:     s.bootstrap.Username,
			Email:        s.bootstrap.Email,
			PasswordHash: string(hash),
			Role:         domain.RoleAdmin,
			Status:       domain.StatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("bootstrap admin creation failed")
			return nil, false
		}
		s.audit.Security("bootstrap_admin_created", map[string]any{"username": s.bootstrap.Username})
		return created, true
	}

	if existing.Status != domain.StatusActive {
		if err := s.repo.SetStatus(ctx, existing.ID, domain.StatusActive); err != nil {
			s.logger.Warn().Err(err).Msg("bootstrap admin reactivation failed")
		} else {
			existing.Status = domain.StatusActive
			s.audit.Security("bootstrap_admin_reactivated", map[string]any{"id": existing.ID})
		}
	}
	return existing, true
}

// CurrentSession re-fetches the user behind a session so the response
// reflects live role and status instead of the claims frozen at issuance.
func (s *AuthService) CurrentSession(ctx context.Context, userID string) (domain.Profile, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Profile{}, domain.ErrInvalidSession
		}
		return domain.Profile{}, err
	}
	return user.Profile(), nil
}

// Register creates a new account after uniqueness and password-policy checks.
func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput, actor *ports.Actor) (*domain.User, error) {
	if input.Username == "" || input.Password == "" {
		return nil, domain.ErrMissingFields
	}
	if err := domain.CheckPassword(input.Password); err != nil {
		return nil, err
	}

	if existing, err := s.repo.FindByUsername(ctx, input.Username); err == nil && existing != nil {
		return nil, domain.ErrUsernameTaken
	} else if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if input.Email != "" {
		if existing, err := s.repo.FindByEmail(ctx, input.Email); err == nil && existing != nil {
			return nil, domain.ErrEmailTaken
		} else if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         domain.NormalizeRole(input.Role),
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Event("user.create", map[string]any{
		"id": created.ID, "username": created.Username, "role": created.Role, "actor": actorRef(actor),
	})
	return created, nil
}

// CheckUnique reports whether the given username and email are free. Empty
// arguments are reported as available.
func (s *AuthService) CheckUnique(ctx context.Context, username, email string) (bool, bool, error) {
	usernameAvailable, emailAvailable := true, true
	if username != "" {
		_, err := s.repo.FindByUsername(ctx, username)
		switch {
		case err == nil:
			usernameAvailable = false
		case !errors.Is(err, domain.ErrUserNotFound):
			return false, false, err
		}
	}
	if email != "" {
		_, err := s.repo.FindByEmail(ctx, email)
		switch {
		case err == nil:
			emailAvailable = false
		case !errors.Is(err, domain.ErrUserNotFound):
			return false, false, err
		}
	}
	return usernameAvailable, emailAvailable, nil
}

func newCSRFToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// digestEqual compares the SHA-256 hex digest of value against want in
// constant time. An empty want never matches.
func digestEqual(value, want string) bool {
	if want == "" {
		return false
	}
	sum := sha256.Sum256([]byte(value))
	got := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(want))) == 1
}

func actorRef(actor *ports.Actor) map[string]any {
	if actor == nil {
		return nil
	}
	return map[string]any{"id": actor.ID, "username": actor.Username, "role": actor.Role}
}
