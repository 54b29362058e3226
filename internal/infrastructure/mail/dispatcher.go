// Package mail delivers transactional email through an ordered list of
// interchangeable transports: HTTP provider APIs first, SMTP second. Every
// attempt is independently time-boxed and failures fall through to the next
// transport; the caller decides what a fully failed delivery means.
package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/satacare/sata-system/internal/api/metrics"
	"github.com/satacare/sata-system/internal/core/ports"
)

// ErrNoTransport is returned when no transport is configured at all.
var ErrNoTransport = errors.New("no mail transport configured")

// Transport is one way of pushing a message out. Send must honor ctx, but
// the dispatcher additionally races every attempt against the transport's
// timeout so a hung attempt cannot block the request.
type Transport interface {
	Name() string
	Timeout() time.Duration
	Send(ctx context.Context, msg ports.MailMessage) error
}

// Dispatcher tries transports in priority order and stops at the first
// success.
type Dispatcher struct {
	transports []Transport
	logger     zerolog.Logger
}

func NewDispatcher(logger zerolog.Logger, transports ...Transport) *Dispatcher {
	return &Dispatcher{transports: transports, logger: logger}
}

// Deliver sends msg through the first transport that accepts it and returns
// that transport's name. An error means every attempt failed or nothing is
// configured.
func (d *Dispatcher) Deliver(ctx context.Context, msg ports.MailMessage) (string, error) {
	if len(d.transports) == 0 {
		return "", ErrNoTransport
	}

	var errs []error
	for _, tr := range d.transports {
		start := time.Now()
		err := d.attempt(ctx, tr, msg)
		metrics.EmailDeliveryDuration.WithLabelValues(tr.Name()).Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.ResetEmailAttemptsTotal.WithLabelValues(tr.Name(), "ok").Inc()
			d.logger.Info().Str("transport", tr.Name()).Str("to", msg.To).Msg("email delivered")
			return tr.Name(), nil
		}
		metrics.ResetEmailAttemptsTotal.WithLabelValues(tr.Name(), "error").Inc()
		d.logger.Warn().Err(err).Str("transport", tr.Name()).Msg("email transport failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", tr.Name(), err))
	}
	return "", errors.Join(errs...)
}

// attempt races one Send against the transport timeout. The goroutine result
// is drained through a buffered channel so a late completion never leaks.
func (d *Dispatcher) attempt(ctx context.Context, tr Transport, msg ports.MailMessage) error {
	attemptCtx, cancel := context.WithTimeout(ctx, tr.Timeout())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- tr.Send(attemptCtx, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		return fmt.Errorf("attempt timed out after %s: %w", tr.Timeout(), attemptCtx.Err())
	}
}
