package service

import (
	"github.com/satacare/sata-system/internal/core/domain"
)

// ResetDecision is the outcome of evaluating the reset authorization policy
// for one (actor, target) pair.
type ResetDecision struct {
	Allowed bool
	Reason  string
	Err     error
}

// EvaluateReset decides whether actor may trigger a password reset for
// target. A nil actor is the anonymous forgot-password flow and is always
// allowed at this layer. Non-admin actors are not arbitrated here either:
// the only rules concern admins.
//
//  1. Admin → other admin: denied, regardless of privilege.
//  2. Admin → staff without the can_reset_passwords flag: denied.
//  3. Everything else: allowed.
func EvaluateReset(actor, target *domain.User) ResetDecision {
	if actor == nil || domain.NormalizeRole(actor.Role) != domain.RoleAdmin {
		return ResetDecision{Allowed: true, Reason: "anonymous or non-admin actor"}
	}

	if domain.NormalizeRole(target.Role) == domain.RoleAdmin && actor.ID != target.ID {
		return ResetDecision{
			Reason: "blocked: admin->admin reset",
			Err:    domain.ErrAdminResetForbidden,
		}
	}

	if domain.NormalizeRole(target.Role) != domain.RoleAdmin && !actor.CanResetPasswords {
		return ResetDecision{
			Reason: "blocked: admin lacks reset privilege",
			Err:    domain.ErrInsufficientPrivilege,
		}
	}

	return ResetDecision{Allowed: true, Reason: "allowed: privileged admin reset"}
}
