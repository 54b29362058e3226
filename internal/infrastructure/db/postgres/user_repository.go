package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/satacare/sata-system/internal/core/domain"
	"github.com/satacare/sata-system/internal/core/ports"
)

const userColumns = "id, username, coalesce(email, ''), password_hash, role, status, can_reset_passwords, created_at, updated_at"

// UserRepository is the PostgreSQL implementation of ports.UserRepository.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username = $1", username)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = $1", email)
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE %s", userColumns, where)
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `INSERT INTO users (username, email, password_hash, role, status, can_reset_passwords)
	          VALUES ($1, nullif($2, ''), $3, $4, $5, $6)
	          RETURNING id, created_at, updated_at`

	created := *user
	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.Role, user.Status, user.CanResetPasswords,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return &created, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, username, email, role string) error {
	query := `UPDATE users
	          SET username = $2, email = nullif($3, ''), role = $4, updated_at = now()
	          WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, username, email, role)
	if err != nil {
		return mapConstraintError(err)
	}
	return requireRow(res)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res)
}

func (r *UserRepository) SetStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET status = $2, updated_at = now() WHERE id = $1", id, status)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return requireRow(res)
}

func (r *UserRepository) List(ctx context.Context, filter ports.ListUsersFilter) (*ports.UserPage, error) {
	where := []string{"true"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if filter.Role != "" {
		where = append(where, "role = "+arg(filter.Role))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(username ILIKE %s OR email ILIKE %s)", p, p))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM users WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	limit := arg(filter.PageSize)
	offset := arg((filter.Page - 1) * filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM users WHERE %s ORDER BY username LIMIT %s OFFSET %s",
		userColumns, cond, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	page := &ports.UserPage{Total: total, Page: filter.Page, PageSize: filter.PageSize}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		page.Users = append(page.Users, *user)
	}
	return page, rows.Err()
}

// ResetPasswordWithProcedure delegates to the reset_password SQL function so
// the admin-to-admin restriction is enforced server-side even for call sites
// that bypass the policy layer.
func (r *UserRepository) ResetPasswordWithProcedure(ctx context.Context, actorID, targetID, passwordHash string) error {
	var updated int
	err := r.db.QueryRowContext(ctx,
		"SELECT reset_password($1, $2, $3)", actorID, targetID, passwordHash,
	).Scan(&updated)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "P0001" {
			return domain.ErrAdminResetForbidden
		}
		return fmt.Errorf("reset password procedure: %w", err)
	}
	if updated == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) RecordResetAudit(ctx context.Context, actorID, targetID string, allowed bool, reason string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO audit_password_resets (actor_id, target_id, allowed, reason) VALUES ($1, $2, $3, $4)",
		actorID, targetID, allowed, reason)
	if err != nil {
		return fmt.Errorf("record reset audit: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Status,
		&u.CanResetPasswords, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// mapConstraintError converts unique-constraint violations into the domain
// sentinels the services branch on.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return domain.ErrEmailTaken
		}
		return domain.ErrUsernameTaken
	}
	return fmt.Errorf("db error: %w", err)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
