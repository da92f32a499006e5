package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

type EmailConfig struct {
	Host string
	Port string
	User string
	Pass string
	To   string
}

// Email delivers submissions through an authenticated SMTP relay.
type Email struct {
	cfg    EmailConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger *slog.Logger
}

func NewEmail(cfg EmailConfig, logger *slog.Logger) *Email {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Email{cfg: cfg, send: smtp.SendMail, logger: logger}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Notify(_ context.Context, c Contact) error {
	if e.cfg.User == "" || e.cfg.Pass == "" {
		return errors.New("SMTP credentials not configured")
	}
	if e.cfg.To == "" {
		return errors.New("SMTP recipient not configured")
	}

	auth := smtp.PlainAuth("", e.cfg.User, e.cfg.Pass, e.cfg.Host)
	msg := BuildMessage(e.cfg.User, e.cfg.To, c)
	if err := e.send(e.cfg.Host+":"+e.cfg.Port, auth, e.cfg.User, []string{e.cfg.To}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	e.logger.Info("contact email sent", "from_name", c.Name)
	return nil
}

// BuildMessage renders the notification mail. Visitor input is kept out of the
// headers except for a single-line Subject and Reply-To.
func BuildMessage(from, to string, c Contact) []byte {
	subject := fmt.Sprintf("Portfolio Contact: %s", headerValue(c.Name))
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, c.Name, c.Email, c.Message)

	return []byte("To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"Reply-To: " + headerValue(c.Email) + "\r\n" +
		"\r\n" +
		body + "\r\n")
}

func headerValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
