package domain

import (
	"strings"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User models an authenticated actor in the system.
type User struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email,omitempty"`
	PasswordHash      string    `json:"-"`
	Role              string    `json:"role"`
	Status            string    `json:"status"`
	CanResetPasswords bool      `json:"can_reset_passwords,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Profile is the minimal user projection returned to clients after
// authentication. It never carries the password hash or privilege flags.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Profile returns the client-facing projection of the user with its role
// normalized.
func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Username: u.Username, Role: NormalizeRole(u.Role)}
}

// NormalizeRole maps free-form role values onto the two roles the system
// recognizes. Anything containing "admin" is an admin; everything else,
// including the empty string, is staff.
func NormalizeRole(role string) string {
	if strings.Contains(strings.ToLower(role), "admin") {
		return RoleAdmin
	}
	return RoleStaff
}
