package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/satacare/sata-system/internal/api/metrics"
	"github.com/satacare/sata-system/internal/core/domain"
	"github.com/satacare/sata-system/internal/core/ports"
)

const defaultFrontendURL = "http://localhost:5173"

// PasswordService orchestrates the forgot/reset/change password flows on top
// of the token issuer, the reset authorization policy and the mail
// dispatcher.
type PasswordService struct {
	repo        ports.UserRepository
	issuer      *TokenIssuer
	dispatcher  ports.MailDispatcher
	guard       ports.ResetTokenGuard // nil unless single-use tokens are enabled
	audit       ports.AuditLogger
	frontendURL string
	from        string
	fromName    string
	logger      zerolog.Logger
}

// PasswordServiceConfig bundles the constructor arguments that come straight
// from process configuration.
type PasswordServiceConfig struct {
	FrontendURL string
	From        string
	FromName    string
}

func NewPasswordService(repo ports.UserRepository, issuer *TokenIssuer, dispatcher ports.MailDispatcher, guard ports.ResetTokenGuard, audit ports.AuditLogger, cfg PasswordServiceConfig, logger zerolog.Logger) *PasswordService {
	frontend := strings.Trim(strings.TrimSpace(cfg.FrontendURL), `"`)
	if frontend == "" {
		frontend = defaultFrontendURL
	}
	return &PasswordService{
		repo:        repo,
		issuer:      issuer,
		dispatcher:  dispatcher,
		guard:       guard,
		audit:       audit,
		frontendURL: strings.TrimRight(frontend, "/"),
		from:        cfg.From,
		fromName:    cfg.FromName,
		logger:      logger,
	}
}

// ForgotPassword starts a reset for the account behind email. An unknown
// email returns the zero outcome with no side effects so the response is
// indistinguishable from a real send. When an authenticated actor is
// present the reset authorization policy is evaluated first; denials are
// recorded and returned as errors. Delivery failures never fail the request:
// the flow degrades to returning the raw token.
func (s *PasswordService) ForgotPassword(ctx context.Context, email string, actor *ports.Actor) (*ports.ResetOutcome, error) {
	if email == "" {
		return nil, domain.ErrMissingFields
	}

	target, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return &ports.ResetOutcome{}, nil
		}
		return nil, err
	}

	if err := s.authorizeReset(ctx, actor, target); err != nil {
		return nil, err
	}

	token, err := s.issuer.IssueReset(target)
	if err != nil {
		return nil, err
	}

	link := s.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
	msg := buildResetMessage(target.Username, firstNonEmpty(target.Email, email), link, s.from, s.fromName)

	via, err := s.dispatcher.Deliver(ctx, msg)
	if err != nil {
		s.logger.Warn().Err(err).Str("email", email).Msg("reset email delivery degraded to token response")
		s.audit.Security("password_reset_request", map[string]any{
			"target": target.ID, "via": "degraded", "actor": actorRef(actor),
		})
		metrics.PasswordResetRequestsTotal.WithLabelValues("degraded").Inc()
		return &ports.ResetOutcome{Token: token}, nil
	}

	s.audit.Security("password_reset_email", map[string]any{
		"target": target.ID, "via": via, "actor": actorRef(actor),
	})
	metrics.PasswordResetRequestsTotal.WithLabelValues("sent").Inc()
	return &ports.ResetOutcome{Delivered: true, Via: via}, nil
}

// authorizeReset applies the reset authorization policy for admin actors and
// records every decision. Audit failures are swallowed; policy denials are
// not.
func (s *PasswordService) authorizeReset(ctx context.Context, actor *ports.Actor, target *domain.User) error {
	if actor == nil {
		return nil
	}

	// Re-fetch the actor so the decision uses live role and privilege
	// flags, not the claims frozen into the session token.
	actorUser, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidSession
		}
		return err
	}

	decision := EvaluateReset(actorUser, target)
	if domain.NormalizeRole(actorUser.Role) == domain.RoleAdmin {
		if err := s.repo.RecordResetAudit(ctx, actorUser.ID, target.ID, decision.Allowed, decision.Reason); err != nil {
			s.logger.Warn().Err(err).Msg("reset audit record failed")
		}
	}
	if !decision.Allowed {
		metrics.PasswordResetRequestsTotal.WithLabelValues("denied").Inc()
		return decision.Err
	}
	return nil
}

// ResetPassword consumes a reset token and persists the new password through
// the stored routine that independently re-enforces the admin-to-admin
// restriction.
func (s *PasswordService) ResetPassword(ctx context.Context, token, newPassword string, actor *ports.Actor) error {
	if token == "" || newPassword == "" {
		return domain.ErrMissingFields
	}
	if err := domain.CheckPassword(newPassword); err != nil {
		return err
	}

	claims, err := s.issuer.VerifyReset(token)
	if err != nil {
		return err
	}

	if s.guard != nil {
		used, err := s.guard.IsUsed(ctx, claims.ID)
		if err != nil {
			s.logger.Warn().Err(err).Msg("reset token guard check failed")
		} else if used {
			return domain.ErrInvalidOrExpiredToken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	actorID := claims.Subject
	if actor != nil {
		actorID = actor.ID
	}
	if err := s.repo.ResetPasswordWithProcedure(ctx, actorID, claims.Subject, string(hash)); err != nil {
		return err
	}

	if s.guard != nil {
		if err := s.guard.MarkUsed(ctx, claims.ID, ResetTokenTTL); err != nil {
			s.logger.Warn().Err(err).Msg("reset token guard mark failed")
		}
	}

	s.audit.Security("password_reset", map[string]any{
		"target": claims.Subject, "username": claims.Username, "via": "token",
	})
	return nil
}

// ChangePassword is the authenticated self-service flow: it requires proof
// of the current password and bypasses the reset authorization policy.
func (s *PasswordService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return domain.ErrMissingFields
	}
	if err := domain.CheckPassword(newPassword); err != nil {
		return err
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidSession
		}
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return domain.ErrCurrentPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.ResetPasswordWithProcedure(ctx, user.ID, user.ID, string(hash)); err != nil {
		return err
	}

	s.audit.Security("password_change", map[string]any{
		"target": user.ID, "username": user.Username, "method": "self_service",
	})
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
