// Package notify sends outbound email. The mailer silently no-ops when
// the provider is unconfigured or the recipient list is empty.
package notify

import (
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// Config holds SMTP provider settings.
type Config struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

// Mailer delivers plain-text notifications over SMTP.
type Mailer struct {
	cfg Config
}

// NewMailer creates a mailer from provider settings.
func NewMailer(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send delivers one message to all recipients. Delivery problems are
// logged, never surfaced to the request that triggered them.
func (m *Mailer) Send(subject, body string, recipients []string) {
	if len(recipients) == 0 {
		return
	}
	if !m.cfg.Enabled || m.cfg.Host == "" || m.cfg.Sender == "" {
		slog.Info("email skipped, provider not configured", "subject", subject)
		return
	}

	if err := m.deliver(subject, body, recipients); err != nil {
		slog.Error("sending email", "error", err, "subject", subject)
		return
	}
	slog.Info("email sent", "subject", subject, "recipients", len(recipients))
}

func (m *Mailer) deliver(subject, body string, recipients []string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.Sender); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(recipients...); err != nil {
		return fmt.Errorf("setting recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{mail.WithPort(m.cfg.Port)}
	if m.cfg.Username != "" && m.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	return client.DialAndSend(msg)
}
