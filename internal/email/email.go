package email

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Message is a rendered email ready to send.
type Message struct {
	Subject string
	HTML    string
}

// Welcome is sent once after a successful registration.
func Welcome(name string) Message {
	return Message{
		Subject: "Welcome aboard",
		HTML:    fmt.Sprintf("<p>Hi %s,</p><p>your account is ready. Sign in with your email and password.</p>", html.EscapeString(name)),
	}
}

type Sender interface {
	Send(ctx context.Context, to string, msg Message) error
}

// LogSender writes the message to the log instead of delivering it (ENV=local).
type LogSender struct {
	logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, to string, msg Message) error {
	s.logger.InfoContext(ctx, "email not sent (local dev)", "to", to, "subject", msg.Subject)
	return nil
}

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, to string, msg Message) error {
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("send email to resend: %w", err)
	}
	return nil
}

func NewSender(env, apiKey, from string, logger *slog.Logger) Sender {
	if env == "local" {
		return &LogSender{logger: logger.With("component", "email")}
	}
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}
