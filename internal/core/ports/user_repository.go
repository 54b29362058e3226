package ports

import (
	"context"

	"github.com/satacare/sata-system/internal/core/domain"
)

// ListUsersFilter narrows and paginates user listings.
type ListUsersFilter struct {
	Status   string
	Role     string
	Search   string
	Page     int
	PageSize int
}

// UserPage is one page of a user listing.
type UserPage struct {
	Users    []domain.User `json:"users"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// UserRepository defines the persistence interface for user accounts.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, id string, username, email, role string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListUsersFilter) (*UserPage, error)
	SetStatus(ctx context.Context, id, status string) error

	// ResetPasswordWithProcedure persists a new password hash through the
	// stored routine that re-enforces the admin-to-admin restriction at the
	// data layer, independently of the policy layer.
	ResetPasswordWithProcedure(ctx context.Context, actorID, targetID, passwordHash string) error

	// RecordResetAudit stores one reset authorization decision. Best-effort:
	// callers ignore the returned error.
	RecordResetAudit(ctx context.Context, actorID, targetID string, allowed bool, reason string) error
}
