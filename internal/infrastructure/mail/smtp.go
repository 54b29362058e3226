package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/satacare/sata-system/internal/core/ports"
)

const (
	smtpProbeTimeout = 5 * time.Second
	smtpAttemptTotal = 30 * time.Second

	portSubmission = 587
	portImplicit   = 465

	gmailHost = "smtp.gmail.com"
	maxConns  = 2
)

// SMTPConfig holds the SMTP transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Service  string // "gmail" forces the gmail submission host
	Username string
	Password string
	// Secure selects implicit TLS (port 465). When false the transport
	// dials the submission port and upgrades with STARTTLS.
	Secure             bool
	RequireTLS         bool
	InsecureSkipVerify bool
}

// SMTPTransport sends mail over SMTP with a plain-TCP reachability probe to
// choose between the submission and implicit-TLS ports, and one fallback
// retry against the gmail relay on port 465. Concurrent connections are
// bounded to maxConns.
type SMTPTransport struct {
	cfg    SMTPConfig
	sem    chan struct{}
	logger zerolog.Logger
}

func NewSMTPTransport(cfg SMTPConfig, logger zerolog.Logger) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, sem: make(chan struct{}, maxConns), logger: logger}
}

func (t *SMTPTransport) Name() string { return "smtp" }

// Timeout covers probe, first attempt and the fallback retry together.
func (t *SMTPTransport) Timeout() time.Duration { return smtpAttemptTotal }

func (t *SMTPTransport) Send(ctx context.Context, msg ports.MailMessage) error {
	select {
	case t.sem <- struct{}{}:
		defer func() { <-t.sem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	host := t.resolveHost()
	port := t.cfg.Port
	if port == 0 {
		port = portSubmission
		if t.cfg.Secure {
			port = portImplicit
		}
	}

	// The probe only decides between the two candidate ports; it never
	// aborts the attempt on its own.
	if port == portSubmission && !t.probe(host, port) {
		t.logger.Info().Str("host", host).Int("port", port).Msg("smtp probe failed, switching to implicit tls port")
		port = portImplicit
	}

	if err := t.send(ctx, host, port, msg); err != nil {
		t.logger.Warn().Err(err).Str("host", host).Int("port", port).Msg("smtp send failed, retrying fallback relay")
		if retryErr := t.send(ctx, gmailHost, portImplicit, msg); retryErr != nil {
			return fmt.Errorf("smtp send failed (%v); fallback failed: %w", err, retryErr)
		}
	}
	return nil
}

func (t *SMTPTransport) resolveHost() string {
	if strings.EqualFold(t.cfg.Service, "gmail") || strings.Contains(strings.ToLower(t.cfg.Host), gmailHost) {
		return gmailHost
	}
	return t.cfg.Host
}

// probe checks plain TCP reachability of host:port within smtpProbeTimeout.
func (t *SMTPTransport) probe(host string, port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), smtpProbeTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// send performs one complete SMTP transaction. Port 465 uses implicit TLS;
// anything else dials plain and upgrades with STARTTLS. The connection
// deadline is derived from ctx so a stalled server cannot outlive the
// attempt budget.
func (t *SMTPTransport) send(ctx context.Context, host string, port int, msg ports.MailMessage) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	tlsCfg := &tls.Config{ServerName: host, InsecureSkipVerify: t.cfg.InsecureSkipVerify}

	dialer := &net.Dialer{Timeout: smtpProbeTimeout}
	var (
		conn net.Conn
		err  error
	)
	if port == portImplicit {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsCfg)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if port != portImplicit {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		} else if t.cfg.RequireTLS {
			return fmt.Errorf("server %s does not support STARTTLS", addr)
		}
	}

	if t.cfg.Username != "" {
		auth := smtp.PlainAuth("", t.cfg.Username, strings.ReplaceAll(t.cfg.Password, " ", ""), host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(msg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(buildMIME(msg)); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}

// buildMIME renders a multipart/alternative message with the plain-text part
// first so clients that do not render HTML fall back cleanly.
func buildMIME(msg ports.MailMessage) []byte {
	const boundary = "sata-mime-boundary"
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", msg.FromName), msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Reply-To: %s\r\n", msg.From)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("X-Auto-Response-Suppress: All\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, msg.Text)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", boundary, msg.HTML)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String())
}
