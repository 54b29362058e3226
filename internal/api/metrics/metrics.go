// Package metrics defines and registers all custom Prometheus metrics for
// the SATA backend. It is the single source of truth for metric names,
// labels, and help strings. Metrics register with the default registry at
// package init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sata"

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok" or "denied"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// PasswordResetRequestsTotal counts forgot-password requests that reached an
// existing account.
// Label:
//   - outcome: "sent", "degraded" (token returned directly) or "denied"
var PasswordResetRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_reset_requests_total",
		Help:      "Total number of password reset requests, by outcome.",
	},
	[]string{"outcome"},
)

// ResetEmailAttemptsTotal counts individual transport attempts inside the
// mail dispatcher.
// Labels:
//   - transport: transport name (e.g. "resend", "sendgrid", "brevo", "smtp")
//   - result: "ok" or "error"
var ResetEmailAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reset_email_attempts_total",
		Help:      "Total number of reset email transport attempts, by transport and result.",
	},
	[]string{"transport", "result"},
)

// EmailDeliveryDuration measures how long one transport attempt takes.
// Label:
//   - transport: transport name
var EmailDeliveryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "email_delivery_duration_seconds",
		Help:      "Duration of individual email transport attempts.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"transport"},
)
