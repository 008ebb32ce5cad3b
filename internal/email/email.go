package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"regexp"
	"strconv"

	"github.com/jordan-wright/email"
	"github.com/resend/resend-go/v2"
	"github.com/samber/oops"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Options selects and configures a Sender.
type Options struct {
	Provider     string // log, resend or smtp
	From         string
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
}

// NewSender returns the Sender for opts.Provider.
func NewSender(opts Options, logger *slog.Logger) (Sender, error) {
	switch opts.Provider {
	case "log":
		return &LogSender{logger: logger.With("component", "email")}, nil
	case "resend":
		return &ResendSender{client: resend.NewClient(opts.ResendAPIKey), from: opts.From}, nil
	case "smtp":
		return &SMTPSender{
			addr: opts.SMTPHost + ":" + strconv.Itoa(opts.SMTPPort),
			from: opts.From,
			auth: smtp.PlainAuth("", opts.SMTPUsername, opts.SMTPPassword, opts.SMTPHost),
		}, nil
	default:
		return nil, oops.Code("EMAIL_PROVIDER_UNKNOWN").With("provider", opts.Provider).Errorf("unknown email provider %q", opts.Provider)
	}
}

var secretParam = regexp.MustCompile(`token=[^&"'<\s]+`)

// LogSender logs emails instead of sending them. Used in ENV=local.
// Token query parameters are redacted before the body hits the log.
type LogSender struct {
	logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "email (local dev)",
		"to", to,
		"subject", subject,
		"body", secretParam.ReplaceAllString(body, "token=REDACTED"),
	)
	return nil
}

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send email via resend: %w", err)
	}
	return nil
}

// SMTPSender sends emails through a plain-auth SMTP relay.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	// net/smtp has no context support; bail out early if the caller is gone.
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = s.from
	e.To = []string{to}
	e.Subject = subject
	e.HTML = []byte(body)

	if err := e.Send(s.addr, s.auth); err != nil {
		return fmt.Errorf("send email via smtp: %w", err)
	}
	return nil
}
