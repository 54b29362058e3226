package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/satacare/sata-system/internal/core/ports"
)

const httpProviderTimeout = 10 * time.Second

// Provider protocol identifiers accepted by NewHTTPProvider.
const (
	ProviderResend   = "resend"
	ProviderSendgrid = "sendgrid"
	ProviderBrevo    = "brevo"
)

var providerEndpoints = map[string]string{
	ProviderResend:   "https://api.resend.com/emails",
	ProviderSendgrid: "https://api.sendgrid.com/v3/mail/send",
	ProviderBrevo:    "https://api.brevo.com/v3/smtp/email",
}

// HTTPProvider sends mail through one of three interchangeable HTTP email
// APIs. Each send is a single POST with bearer or api-key auth; any 2xx
// response counts as accepted (SendGrid answers 202).
type HTTPProvider struct {
	kind    string
	apiKey  string
	baseURL string // overridable in tests
	client  *http.Client
}

// NewHTTPProvider returns a provider for kind, or an error when the kind is
// not one of the supported protocols.
func NewHTTPProvider(kind, apiKey string) (*HTTPProvider, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	endpoint, ok := providerEndpoints[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported email provider %q", kind)
	}
	return &HTTPProvider{
		kind:    kind,
		apiKey:  apiKey,
		baseURL: endpoint,
		client:  &http.Client{Timeout: httpProviderTimeout},
	}, nil
}

func (p *HTTPProvider) Name() string { return p.kind }

func (p *HTTPProvider) Timeout() time.Duration { return httpProviderTimeout }

func (p *HTTPProvider) Send(ctx context.Context, msg ports.MailMessage) error {
	body, err := p.payload(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.kind == ProviderBrevo {
		req.Header.Set("api-key", p.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", p.kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s responded %d: %s", p.kind, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// payload marshals the provider-specific request body.
func (p *HTTPProvider) payload(msg ports.MailMessage) ([]byte, error) {
	switch p.kind {
	case ProviderResend:
		return json.Marshal(map[string]any{
			"from":    fmt.Sprintf("%s <%s>", msg.FromName, msg.From),
			"to":      msg.To,
			"subject": msg.Subject,
			"html":    msg.HTML,
			"text":    msg.Text,
			"headers": map[string]string{"X-Auto-Response-Suppress": "All"},
		})
	case ProviderSendgrid:
		return json.Marshal(map[string]any{
			"personalizations": []map[string]any{
				{"to": []map[string]string{{"email": msg.To}}},
			},
			"from":    map[string]string{"email": msg.From, "name": msg.FromName},
			"subject": msg.Subject,
			"content": []map[string]string{
				{"type": "text/plain", "value": msg.Text},
				{"type": "text/html", "value": msg.HTML},
			},
		})
	case ProviderBrevo:
		return json.Marshal(map[string]any{
			"sender":      map[string]string{"email": msg.From, "name": msg.FromName},
			"to":          []map[string]string{{"email": msg.To}},
			"subject":     msg.Subject,
			"htmlContent": msg.HTML,
			"textContent": msg.Text,
			"headers":     map[string]string{"X-Auto-Response-Suppress": "All"},
		})
	}
	return nil, fmt.Errorf("unsupported email provider %q", p.kind)
}
