// Package audit provides the best-effort audit sink. Recording never fails
// the calling request; anything that goes wrong is dropped silently.
package audit

import (
	"github.com/rs/zerolog"
)

// Logger writes audit events as structured log lines.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log.With().Str("component", "audit").Logger()}
}

func (l *Logger) Event(event string, details map[string]any) {
	l.log.Info().Str("event", event).Fields(details).Msg("audit")
}

func (l *Logger) Security(event string, details map[string]any) {
	l.log.Info().Str("event", event).Bool("security", true).Fields(details).Msg("audit")
}

// Nop discards every event. Used in tests.
type Nop struct{}

func (Nop) Event(string, map[string]any)    {}
func (Nop) Security(string, map[string]any) {}
