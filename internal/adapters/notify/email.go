package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/minhleeee123/MantleFlow-sub001/internal/adapters/config"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
)

// EmailSender delivers settlement notices over SMTP
type EmailSender struct {
	host string
	port int
	from string
	auth smtp.Auth
}

// NewEmailSender creates a new SMTP sender
func NewEmailSender(cfg config.NotifyConfig) *EmailSender {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}

	return &EmailSender{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		from: cfg.FromAddress,
		auth: auth,
	}
}

// Send delivers one message to a single recipient
func (s *EmailSender) Send(to, subject, body string) error {
	if s.host == "" {
		return errors.Wrap(errors.ErrUnavailable, "smtp host not configured")
	}

	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := smtp.SendMail(addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return errors.Wrap(err, "smtp send failed")
	}
	return nil
}
