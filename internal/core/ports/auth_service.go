package ports

import (
	"context"

	"github.com/satacare/sata-system/internal/core/domain"
)

// Actor identifies the authenticated caller of a request, extracted from the
// session token by the auth middleware. Nil actor means anonymous.
type Actor struct {
	ID       string
	Username string
	Role     string
}

// LoginResult carries everything the login handler needs to establish a
// session: the signed token, the CSRF value paired with it, and the minimal
// user projection for the response body.
type LoginResult struct {
	Token string
	CSRF  string
	User  domain.Profile
}

// ResetOutcome describes how a forgot-password request ended. Delivered means
// an email transport accepted the message (Via names it). A non-empty Token
// means delivery degraded and the raw token is handed back to the caller.
// The zero value is the anti-enumeration outcome: nothing was issued.
type ResetOutcome struct {
	Delivered bool
	Via       string
	Token     string
}

// RegisterInput is the payload for account creation.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// AuthService implements session establishment and account registration.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	CurrentSession(ctx context.Context, userID string) (domain.Profile, error)
	Register(ctx context.Context, input RegisterInput, actor *Actor) (*domain.User, error)
	CheckUnique(ctx context.Context, username, email string) (usernameAvailable, emailAvailable bool, err error)
}

// PasswordService implements the reset and change flows.
type PasswordService interface {
	ForgotPassword(ctx context.Context, email string, actor *Actor) (*ResetOutcome, error)
	ResetPassword(ctx context.Context, token, newPassword string, actor *Actor) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// UserService implements admin-facing user management.
type UserService interface {
	List(ctx context.Context, filter ListUsersFilter) (*UserPage, error)
	Create(ctx context.Context, input RegisterInput, actor *Actor) (*domain.User, error)
	Update(ctx context.Context, id, username, email, role string, actor *Actor) error
	Delete(ctx context.Context, id string, actor *Actor) error
}
