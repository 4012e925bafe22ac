package otp

import (
	"context"
	"fmt"

	"dineflow/internal/config"
	"dineflow/internal/logger"

	"gopkg.in/gomail.v2"
)

// Notifier delivers a code to a person.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailNotifier sends through SMTP.
type EmailNotifier struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewEmailNotifier(cfg config.EmailConfig, log *logger.Logger) *EmailNotifier {
	return &EmailNotifier{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.From,
		logger: log,
	}
}

func (n *EmailNotifier) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(msg); err != nil {
		n.logger.Error("EMAIL", fmt.Sprintf("Failed to send %q to %s: %v", subject, to, err))
		return err
	}
	n.logger.Info("EMAIL", fmt.Sprintf("Sent %q to %s", subject, to))
	return nil
}

// LogNotifier only logs. SMS has no delivery channel yet, and local
// development runs without SMTP.
type LogNotifier struct {
	Logger *logger.Logger
}

func (n *LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.Logger.Info("NOTIFY", fmt.Sprintf("to=%s subject=%q body=%q", to, subject, body))
	return nil
}

// CodeMessage renders the text sent with a code.
func CodeMessage(purpose, code string, ttlMinutes int) (string, string) {
	subject := fmt.Sprintf("Your %s code", purpose)
	body := fmt.Sprintf("Your %s code is %s. It expires in %d minutes.", purpose, code, ttlMinutes)
	return subject, body
}
