package mail

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"

	"labgate/internal/bootstrap/config"
	"labgate/internal/bootstrap/logging"
	"labgate/internal/errs"
	"labgate/internal/ports"
)

// SMTPMailer delivers escalation mail over plain SMTP via gomail.
type SMTPMailer struct {
	cfg config.MailConfig
}

var _ ports.Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, msg ports.Message) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	if strings.TrimSpace(m.cfg.Host) == "" {
		return errors.New("mail.host is not configured")
	}
	if strings.TrimSpace(m.cfg.From) == "" {
		return errors.New("mail.from is not configured")
	}
	if len(msg.To) == 0 {
		return errors.New("message has no recipients")
	}

	message := gomail.NewMessage()
	message.SetHeader("From", m.cfg.From)
	message.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		message.SetHeader("Cc", msg.Cc...)
	}
	message.SetHeader("Subject", msg.Subject)
	message.SetBody("text/html", msg.HTML)

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := dialer.DialAndSend(message); err != nil {
		return errs.Wrapf(err, "send mail to %s", strings.Join(msg.To, ","))
	}

	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "mail.smtp")),
		"mail sent",
		slog.String("to", strings.Join(msg.To, ",")),
		slog.String("subject", msg.Subject),
	)
	return nil
}
