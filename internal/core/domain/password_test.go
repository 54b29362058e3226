package domain

import (
	"errors"
	"testing"
)

func TestCheckPassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		ok       bool
	}{
		{"acceptable", "Secur3@pass", true},
		{"too short", "S3@a", false},
		{"no upper", "secur3@pass", false},
		{"no lower", "SECUR3@PASS", false},
		{"no digit", "Secure@pass", false},
		{"no symbol", "Secur3pass", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPassword(tc.password)
			if tc.ok && err != nil {
				t.Fatalf("expected acceptance, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrWeakPassword) {
				t.Fatalf("expected ErrWeakPassword, got %v", err)
			}
		})
	}
}

func TestNormalizeRole(t *testing.T) {
	cases := map[string]string{
		"admin":         RoleAdmin,
		"Administrator": RoleAdmin,
		"ADMIN":         RoleAdmin,
		"staff":         RoleStaff,
		"nurse":         RoleStaff,
		"":              RoleStaff,
	}
	for in, want := range cases {
		if got := NormalizeRole(in); got != want {
			t.Errorf("NormalizeRole(%q) = %q, want %q", in, got, want)
		}
	}
}
