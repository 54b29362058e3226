package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/satacare/sata-system/internal/core/domain"
	"github.com/satacare/sata-system/internal/core/ports"
)

// UserService implements admin-facing user management. Creation shares the
// registration path of AuthService so the two stay consistent.
type UserService struct {
	repo   ports.UserRepository
	auth   *AuthService
	audit  ports.AuditLogger
	logger zerolog.Logger
}

func NewUserService(repo ports.UserRepository, auth *AuthService, audit ports.AuditLogger, logger zerolog.Logger) *UserService {
	return &UserService{repo: repo, auth: auth, audit: audit, logger: logger}
}

func (s *UserService) List(ctx context.Context, filter ports.ListUsersFilter) (*ports.UserPage, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 10
	}
	return s.repo.List(ctx, filter)
}

func (s *UserService) Create(ctx context.Context, input ports.RegisterInput, actor *ports.Actor) (*domain.User, error) {
	return s.auth.Register(ctx, input, actor)
}

// Update changes username, email and role of an existing user, enforcing
// uniqueness when either identifier moves to a new value.
func (s *UserService) Update(ctx context.Context, id, username, email, role string, actor *ports.Actor) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if username != current.Username {
		existing, err := s.repo.FindByUsername(ctx, username)
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		if existing != nil && existing.ID != id {
			return domain.ErrUsernameTaken
		}
	}
	if email != "" && email != current.Email {
		existing, err := s.repo.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		if existing != nil && existing.ID != id {
			return domain.ErrEmailTaken
		}
	}

	if err := s.repo.Update(ctx, id, username, email, domain.NormalizeRole(role)); err != nil {
		return err
	}
	s.audit.Event("user.update", map[string]any{"id": id, "username": username, "actor": actorRef(actor)})
	return nil
}

func (s *UserService) Delete(ctx context.Context, id string, actor *ports.Actor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Event("user.delete", map[string]any{"id": id, "actor": actorRef(actor)})
	return nil
}
