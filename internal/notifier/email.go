package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/Houeta/bookwatch/internal/models"
	"github.com/jordan-wright/email"
)

// SMTPConfig holds the credentials for the email sink.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
	To       string
}

// EmailSink mails the cycle's change summary to the configured recipient.
// An empty batch is not delivered.
type EmailSink struct {
	log *slog.Logger
	cfg SMTPConfig
}

func NewEmailSink(log *slog.Logger, cfg SMTPConfig) *EmailSink {
	return &EmailSink{log: log, cfg: cfg}
}

// Deliver sends the batch as one HTML email.
func (s *EmailSink) Deliver(ctx context.Context, changes []models.ChangeRecord) error {
	const opn = "notifier.EmailSink.Deliver"

	if len(changes) == 0 {
		return nil
	}

	msg := email.NewEmail()
	msg.From = s.cfg.From
	msg.To = []string{s.cfg.To}
	msg.Subject = fmt.Sprintf("bookwatch: %d change(s) detected", len(changes))
	msg.HTML = []byte(renderHTML(changes))

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.From, s.cfg.Password, s.cfg.Host)

	if err := msg.Send(addr, auth); err != nil {
		return fmt.Errorf("%s: failed to send alert email: %w", opn, err)
	}

	s.log.InfoContext(ctx, "Alert email sent", "recipient", s.cfg.To, "changes", len(changes))

	return nil
}
