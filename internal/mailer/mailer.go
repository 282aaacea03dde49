package mailer

import (
	"github.com/diagnosis/checkin-kiosk/pkg/config"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

// New picks the mailer for cfg: dev logging, then MailerSend when an API key
// is set, then SMTP.
func New(cfg config.EmailConfig) Service {
	if cfg.DevMode {
		return NewDevMailer()
	}
	if cfg.MailerSendKey != "" {
		ms, err := NewMailerSend(cfg.MailerSendKey, cfg.FromName, cfg.SMTPFrom)
		if err == nil {
			return ms
		}
		logger.Warn("MailerSend unusable, falling back to SMTP", "error", err)
	}
	return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
}
