// Package email delivers outbound mail. The SMTP provider is used in
// production; when no SMTP host is configured the no-op provider logs
// and drops, which keeps local development quiet.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/tabshare/tabshare/internal/config"
	"go.uber.org/zap"
)

// Message is one outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Provider sends email.
type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// NewFromConfig picks the provider based on configuration.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.Email.SMTPHost == "" {
		return &NoOpProvider{log: log.Named("email.noop")}
	}
	return &SMTPProvider{cfg: cfg.Email, log: log.Named("email.smtp")}
}

// SMTPProvider sends over plain SMTP with optional auth.
type SMTPProvider struct {
	cfg config.EmailConfig
	log *zap.Logger
}

func (p *SMTPProvider) Send(_ context.Context, msg Message) error {
	addr := fmt.Sprintf("%s:%d", p.cfg.SMTPHost, p.cfg.SMTPPort)

	var auth smtp.Auth
	if p.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", p.cfg.SMTPUsername, p.cfg.SMTPPassword, p.cfg.SMTPHost)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", p.cfg.SMTPFrom)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTMLBody)

	if err := smtp.SendMail(addr, auth, p.cfg.SMTPFrom, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	p.log.Debug("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// NoOpProvider drops mail on the floor, loudly.
type NoOpProvider struct {
	log *zap.Logger
}

func (p *NoOpProvider) Send(_ context.Context, msg Message) error {
	p.log.Info("email suppressed (no smtp host configured)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
