package ports

// AuditLogger records security-relevant events. Implementations must never
// fail the calling request: errors are swallowed, delivery is best-effort.
type AuditLogger interface {
	// Event records a generic audit event with structured details.
	Event(event string, details map[string]any)
	// Security records a security event (password resets, degraded email
	// delivery, privileged actions).
	Security(event string, details map[string]any)
}
