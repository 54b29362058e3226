package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satacare/sata-system/internal/core/ports"
)

type fakeTransport struct {
	name    string
	timeout time.Duration
	err     error
	block   bool
	calls   int
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Timeout() time.Duration {
	if f.timeout == 0 {
		return time.Second
	}
	return f.timeout
}

func (f *fakeTransport) Send(ctx context.Context, _ ports.MailMessage) error {
	f.calls++
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func testMessage() ports.MailMessage {
	return ports.MailMessage{
		To:       "carol@example.com",
		Subject:  "Password recovery",
		Text:     "plain body",
		HTML:     "<p>html body</p>",
		From:     "no-reply@example.com",
		FromName: "Sistema SATA",
	}
}

func TestDispatcher_FirstTransportWins(t *testing.T) {
	first := &fakeTransport{name: "resend"}
	second := &fakeTransport{name: "smtp"}
	d := NewDispatcher(zerolog.Nop(), first, second)

	via, err := d.Deliver(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "resend", via)
	assert.Equal(t, 1, first.calls)
	assert.Zero(t, second.calls, "second transport must not be tried after success")
}

func TestDispatcher_FallsThroughOnFailure(t *testing.T) {
	first := &fakeTransport{name: "resend", err: errors.New("quota exceeded")}
	second := &fakeTransport{name: "smtp"}
	d := NewDispatcher(zerolog.Nop(), first, second)

	via, err := d.Deliver(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "smtp", via)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestDispatcher_AllFailedJoinsErrors(t *testing.T) {
	first := &fakeTransport{name: "resend", err: errors.New("quota exceeded")}
	second := &fakeTransport{name: "smtp", err: errors.New("connection refused")}
	d := NewDispatcher(zerolog.Nop(), first, second)

	via, err := d.Deliver(context.Background(), testMessage())
	require.Error(t, err)
	assert.Empty(t, via)
	assert.Contains(t, err.Error(), "resend")
	assert.Contains(t, err.Error(), "smtp")
}

func TestDispatcher_NoTransport(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	_, err := d.Deliver(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrNoTransport)
}

func TestDispatcher_HungTransportTimesOut(t *testing.T) {
	hung := &fakeTransport{name: "resend", timeout: 20 * time.Millisecond, block: true}
	healthy := &fakeTransport{name: "smtp"}
	d := NewDispatcher(zerolog.Nop(), hung, healthy)

	start := time.Now()
	via, err := d.Deliver(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "smtp", via)
	assert.Less(t, time.Since(start), time.Second, "hung transport must not block delivery")
}

func TestDispatcher_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hung := &fakeTransport{name: "resend", block: true}
	d := NewDispatcher(zerolog.Nop(), hung)

	_, err := d.Deliver(ctx, testMessage())
	assert.Error(t, err)
}
