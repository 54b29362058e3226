package mail

import (
	"github.com/rs/zerolog"
)

// BuildDispatcher assembles the transport chain from configuration in
// priority order: HTTP provider first, SMTP second. Either may be absent; an
// empty chain makes every delivery degrade immediately.
func BuildDispatcher(provider, apiKey string, smtpCfg SMTPConfig, logger zerolog.Logger) *Dispatcher {
	var transports []Transport

	if provider != "" && apiKey != "" {
		p, err := NewHTTPProvider(provider, apiKey)
		if err != nil {
			logger.Warn().Err(err).Str("provider", provider).Msg("ignoring unknown email provider")
		} else {
			transports = append(transports, p)
		}
	}

	if (smtpCfg.Host != "" || smtpCfg.Service != "") && smtpCfg.Username != "" && smtpCfg.Password != "" {
		transports = append(transports, NewSMTPTransport(smtpCfg, logger))
	}

	if len(transports) == 0 {
		logger.Warn().Msg("no email transport configured; password resets will return tokens directly")
	}
	return NewDispatcher(logger, transports...)
}
