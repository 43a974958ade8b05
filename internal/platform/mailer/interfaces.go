package mailer

import "github.com/lawlink/lawlink-api/pkg/config"

// Transport delivers a single email. Implementations must be safe for
// concurrent use; the dispatcher fans out sends in parallel.
type Transport interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
}

// FromConfig resolves the transport once from configuration. Explicit debug
// transports win over a live transport; a nil transport means the dispatcher
// runs inert and every send is skipped.
func FromConfig(cfg config.EmailConfig) Transport {
	if cfg.DevMode {
		return NewDevTransport()
	}
	if cfg.MailerSendKey != "" {
		return NewMailerSendTransport(cfg.MailerSendKey, "", cfg.SMTPFrom)
	}
	if cfg.SMTPHost != "" {
		return NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
	}
	return nil
}
