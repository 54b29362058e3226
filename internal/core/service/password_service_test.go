package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/satacare/sata-system/internal/core/domain"
	"github.com/satacare/sata-system/internal/core/ports"
	"github.com/satacare/sata-system/internal/infrastructure/audit"
)

type stubDispatcher struct {
	via  string
	err  error
	sent []ports.MailMessage
}

func (d *stubDispatcher) Deliver(_ context.Context, msg ports.MailMessage) (string, error) {
	d.sent = append(d.sent, msg)
	return d.via, d.err
}

type stubGuard struct {
	used map[string]bool
}

func (g *stubGuard) IsUsed(_ context.Context, tokenID string) (bool, error) {
	return g.used[tokenID], nil
}

func (g *stubGuard) MarkUsed(_ context.Context, tokenID string, _ time.Duration) error {
	if g.used == nil {
		g.used = make(map[string]bool)
	}
	g.used[tokenID] = true
	return nil
}

func newTestPasswordService(repo *stubUserRepo, dispatcher ports.MailDispatcher, guard ports.ResetTokenGuard) *PasswordService {
	return NewPasswordService(repo, NewTokenIssuer("secret"), dispatcher, guard, audit.Nop{},
		PasswordServiceConfig{FrontendURL: "https://app.example.com", From: "no-reply@example.com", FromName: "Sistema SATA"},
		zerolog.Nop())
}

func TestForgotPassword_SendsResetLink(t *testing.T) {
	repo := newStubUserRepo()
	repo.add(&domain.User{Username: "carol", Email: "carol@example.com", Role: domain.RoleStaff})
	dispatcher := &stubDispatcher{via: "resend"}
	svc := newTestPasswordService(repo, dispatcher, nil)

	outcome, err := svc.ForgotPassword(context.Background(), "carol@example.com", nil)
	if err != nil {
		t.Fatalf("forgot password failed: %v", err)
	}
	if !outcome.Delivered || outcome.Via != "resend" || outcome.Token != "" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	if len(dispatcher.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(dispatcher.sent))
	}
	msg := dispatcher.sent[0]
	if msg.To != "carol@example.com" {
		t.Fatalf("unexpected recipient %q", msg.To)
	}
	if !strings.Contains(msg.HTML, "https://app.example.com/reset-password?token=") {
		t.Fatalf("reset link missing from html body:\n%s", msg.HTML)
	}
	if !strings.Contains(msg.Text, "/reset-password?token=") {
		t.Fatalf("reset link missing from text body")
	}
}

func TestForgotPassword_UnknownEmailIndistinguishable(t *testing.T) {
	dispatcher := &stubDispatcher{via: "resend"}
	svc := newTestPasswordService(newStubUserRepo(), dispatcher, nil)

	outcome, err := svc.ForgotPassword(context.Background(), "ghost@example.com", nil)
	if err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if *outcome != (ports.ResetOutcome{}) {
		t.Fatalf("expected zero outcome, got %+v", outcome)
	}
	if len(dispatcher.sent) != 0 {
		t.Fatalf("no mail may be dispatched for unknown email")
	}
}

func TestForgotPassword_DegradesToToken(t *testing.T) {
	repo := newStubUserRepo()
	target := repo.add(&domain.User{Username: "carol", Email: "carol@example.com", Role: domain.RoleStaff})
	dispatcher := &stubDispatcher{err: errors.New("all transports down")}
	svc := newTestPasswordService(repo, dispatcher, nil)

	outcome, err := svc.ForgotPassword(context.Background(), "carol@example.com", nil)
	if err != nil {
		t.Fatalf("delivery failure must not fail the request: %v", err)
	}
	if outcome.Delivered || outcome.Token == "" {
		t.Fatalf("expected degraded outcome with raw token, got %+v", outcome)
	}

	claims, err := NewTokenIssuer("secret").VerifyReset(outcome.Token)
	if err != nil {
		t.Fatalf("degraded token must be a valid reset token: %v", err)
	}
	if claims.Subject != target.ID {
		t.Fatalf("token subject = %q, want %q", claims.Subject, target.ID)
	}
}

func TestForgotPassword_AdminDenials(t *testing.T) {
	repo := newStubUserRepo()
	admin := repo.add(&domain.User{Username: "boss", Role: domain.RoleAdmin})
	otherAdmin := repo.add(&domain.User{Username: "boss2", Email: "boss2@example.com", Role: domain.RoleAdmin})
	staff := repo.add(&domain.User{Username: "nurse", Email: "nurse@example.com", Role: domain.RoleStaff})
	dispatcher := &stubDispatcher{via: "resend"}
	svc := newTestPasswordService(repo, dispatcher, nil)
	actor := &ports.Actor{ID: admin.ID, Username: admin.Username, Role: admin.Role}

	if _, err := svc.ForgotPassword(context.Background(), "boss2@example.com", actor); err != domain.ErrAdminResetForbidden {
		t.Fatalf("expected ErrAdminResetForbidden, got %v", err)
	}
	if _, err := svc.ForgotPassword(context.Background(), "nurse@example.com", actor); err != domain.ErrInsufficientPrivilege {
		t.Fatalf("expected ErrInsufficientPrivilege, got %v", err)
	}
	if len(dispatcher.sent) != 0 {
		t.Fatalf("denied requests must not dispatch mail")
	}

	// Both decisions leave an audit row.
	if len(repo.resetAudits) != 2 {
		t.Fatalf("expected 2 audit rows, got %d", len(repo.resetAudits))
	}
	for _, row := range repo.resetAudits {
		if row.allowed {
			t.Fatalf("denied decision recorded as allowed: %+v", row)
		}
	}
	if repo.resetAudits[0].targetID != otherAdmin.ID || repo.resetAudits[1].targetID != staff.ID {
		t.Fatalf("audit rows target wrong users: %+v", repo.resetAudits)
	}
}

func TestForgotPassword_PrivilegedAdminAllowed(t *testing.T) {
	repo := newStubUserRepo()
	admin := repo.add(&domain.User{Username: "boss", Role: domain.RoleAdmin, CanResetPasswords: true})
	repo.add(&domain.User{Username: "nurse", Email: "nurse@example.com", Role: domain.RoleStaff})
	dispatcher := &stubDispatcher{via: "smtp"}
	svc := newTestPasswordService(repo, dispatcher, nil)

	outcome, err := svc.ForgotPassword(context.Background(), "nurse@example.com", &ports.Actor{ID: admin.ID, Role: admin.Role})
	if err != nil {
		t.Fatalf("privileged admin reset failed: %v", err)
	}
	if !outcome.Delivered || outcome.Via != "smtp" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(repo.resetAudits) != 1 || !repo.resetAudits[0].allowed {
		t.Fatalf("allowed decision must be audited too: %+v", repo.resetAudits)
	}
}

func TestForgotPassword_StaleActorSession(t *testing.T) {
	repo := newStubUserRepo()
	repo.add(&domain.User{Username: "nurse", Email: "nurse@example.com", Role: domain.RoleStaff})
	svc := newTestPasswordService(repo, &stubDispatcher{via: "resend"}, nil)

	_, err := svc.ForgotPassword(context.Background(), "nurse@example.com", &ports.Actor{ID: "deleted-user"})
	if err != domain.ErrInvalidSession {
		t.Fatalf("expected ErrInvalidSession for vanished actor, got %v", err)
	}
}

func TestResetPassword_Success(t *testing.T) {
	repo := newStubUserRepo()
	target := repo.add(&domain.User{Username: "carol", Email: "carol@example.com", Role: domain.RoleStaff, PasswordHash: mustHash(t, "Old@12345")})
	svc := newTestPasswordService(repo, &stubDispatcher{via: "resend"}, nil)

	token, err := NewTokenIssuer("secret").IssueReset(target)
	if err != nil {
		t.Fatalf("issue reset: %v", err)
	}
	if err := svc.ResetPassword(context.Background(), token, "New@12345", nil); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	updated, _ := repo.FindByID(context.Background(), target.ID)
	if bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("New@12345")) != nil {
		t.Fatalf("new password not persisted")
	}
}

func TestResetPassword_Validation(t *testing.T) {
	repo := newStubUserRepo()
	target := repo.add(&domain.User{Username: "carol", Role: domain.RoleStaff})
	svc := newTestPasswordService(repo, &stubDispatcher{}, nil)

	if err := svc.ResetPassword(context.Background(), "", "New@12345", nil); err != domain.ErrMissingFields {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}

	token, _ := NewTokenIssuer("secret").IssueReset(target)
	if err := svc.ResetPassword(context.Background(), token, "weak", nil); !errors.Is(err, domain.ErrWeakPassword) {
		t.Fatalf("expected weak password rejection, got %v", err)
	}

	// A session token must not work as a reset capability.
	session, _ := NewTokenIssuer("secret").IssueSession(target)
	if err := svc.ResetPassword(context.Background(), session, "New@12345", nil); err != domain.ErrInvalidResetToken {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}

	if err := svc.ResetPassword(context.Background(), "not-a-jwt", "New@12345", nil); err != domain.ErrInvalidOrExpiredToken {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestResetPassword_ProcedureBlocksAdminToAdmin(t *testing.T) {
	repo := newStubUserRepo()
	repo.add(&domain.User{ID: "a1", Username: "boss", Role: domain.RoleAdmin, CanResetPasswords: true})
	otherAdmin := repo.add(&domain.User{ID: "a2", Username: "boss2", Role: domain.RoleAdmin})
	svc := newTestPasswordService(repo, &stubDispatcher{}, nil)

	token, _ := NewTokenIssuer("secret").IssueReset(otherAdmin)
	err := svc.ResetPassword(context.Background(), token, "New@12345", &ports.Actor{ID: "a1", Role: domain.RoleAdmin})
	if err != domain.ErrAdminResetForbidden {
		t.Fatalf("expected data-layer admin block, got %v", err)
	}
}

func TestResetPassword_SingleUseGuard(t *testing.T) {
	repo := newStubUserRepo()
	target := repo.add(&domain.User{Username: "carol", Role: domain.RoleStaff})
	guard := &stubGuard{}
	svc := newTestPasswordService(repo, &stubDispatcher{}, guard)

	token, _ := NewTokenIssuer("secret").IssueReset(target)
	if err := svc.ResetPassword(context.Background(), token, "New@12345", nil); err != nil {
		t.Fatalf("first use failed: %v", err)
	}
	if err := svc.ResetPassword(context.Background(), token, "Other@12345", nil); err != domain.ErrInvalidOrExpiredToken {
		t.Fatalf("expected replay rejection, got %v", err)
	}
}

func TestResetPassword_ReplayableWithoutGuard(t *testing.T) {
	repo := newStubUserRepo()
	target := repo.add(&domain.User{Username: "carol", Role: domain.RoleStaff})
	svc := newTestPasswordService(repo, &stubDispatcher{}, nil)

	token, _ := NewTokenIssuer("secret").IssueReset(target)
	if err := svc.ResetPassword(context.Background(), token, "New@12345", nil); err != nil {
		t.Fatalf("first use failed: %v", err)
	}
	// Without the guard a token stays valid until expiry.
	if err := svc.ResetPassword(context.Background(), token, "Other@12345", nil); err != nil {
		t.Fatalf("second use failed: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	repo := newStubUserRepo()
	user := repo.add(&domain.User{Username: "carol", Role: domain.RoleStaff, PasswordHash: mustHash(t, "Old@12345")})
	svc := newTestPasswordService(repo, &stubDispatcher{}, nil)

	if err := svc.ChangePassword(context.Background(), user.ID, "wrong", "New@12345"); err != domain.ErrCurrentPasswordMismatch {
		t.Fatalf("expected ErrCurrentPasswordMismatch, got %v", err)
	}
	unchanged, _ := repo.FindByID(context.Background(), user.ID)
	if bcrypt.CompareHashAndPassword([]byte(unchanged.PasswordHash), []byte("Old@12345")) != nil {
		t.Fatalf("failed change must leave the hash untouched")
	}

	if err := svc.ChangePassword(context.Background(), user.ID, "Old@12345", "New@12345"); err != nil {
		t.Fatalf("change failed: %v", err)
	}
	updated, _ := repo.FindByID(context.Background(), user.ID)
	if bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("New@12345")) != nil {
		t.Fatalf("new password not persisted")
	}

	if err := svc.ChangePassword(context.Background(), user.ID, "New@12345", "weak"); !errors.Is(err, domain.ErrWeakPassword) {
		t.Fatalf("expected weak password rejection, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), "ghost", "x", "New@12345"); err != domain.ErrInvalidSession {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}
