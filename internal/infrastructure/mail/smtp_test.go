package mail

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSMTPTransport_ResolveHost(t *testing.T) {
	cases := []struct {
		name string
		cfg  SMTPConfig
		want string
	}{
		{"explicit host kept", SMTPConfig{Host: "mail.example.com"}, "mail.example.com"},
		{"gmail service forces relay", SMTPConfig{Host: "mail.example.com", Service: "gmail"}, gmailHost},
		{"gmail host normalized", SMTPConfig{Host: "SMTP.GMAIL.COM"}, gmailHost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := NewSMTPTransport(tc.cfg, zerolog.Nop())
			assert.Equal(t, tc.want, tr.resolveHost())
		})
	}
}

func TestBuildMIME(t *testing.T) {
	raw := string(buildMIME(testMessage()))

	assert.Contains(t, raw, "To: carol@example.com\r\n")
	assert.Contains(t, raw, "no-reply@example.com")
	assert.Contains(t, raw, "MIME-Version: 1.0\r\n")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=utf-8\r\n\r\nplain body")
	assert.Contains(t, raw, "Content-Type: text/html; charset=utf-8\r\n\r\n<p>html body</p>")

	// Plain text part must precede the HTML part.
	assert.Less(t, strings.Index(raw, "text/plain"), strings.Index(raw, "text/html"))

	// Terminal boundary closes the message.
	assert.Contains(t, raw, "--sata-mime-boundary--\r\n")
}
