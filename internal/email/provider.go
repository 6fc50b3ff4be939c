// Package email delivers transactional mail through a pluggable Provider.
package email

import (
	"context"

	"launchpad_backend/internal/config"

	"go.uber.org/zap"
)

// Provider delivers a rendered HTML message.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
}

// NoOpProvider drops every message. It is used when SMTP is not configured.
type NoOpProvider struct {
	logger *zap.Logger
}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	if p.logger != nil {
		p.logger.Debug("Email dropped, no provider configured", zap.Strings("to", to), zap.String("subject", subject))
	}
	return nil
}

// NewProvider picks SMTP when a host is configured and the no-op provider otherwise.
func NewProvider(cfg *config.Config, logger *zap.Logger) Provider {
	if cfg.SMTPHost == "" {
		logger.Info("SMTP_HOST not set, outgoing email disabled")
		return &NoOpProvider{logger: logger}
	}
	return NewSMTP(SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}
