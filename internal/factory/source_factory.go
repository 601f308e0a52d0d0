package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/adapters/gmail"
	"github.com/mailsift/mailsift/internal/adapters/mockmail"
	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/rate"
)

// SourceFactory creates mail sources based on configuration
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailSource creates a mail source based on the configuration.
// The Gmail path performs OAuth before returning, which may block on
// a browser round-trip the first time it runs.
func (f *SourceFactory) CreateMailSource(ctx context.Context) (core.MailSource, error) {
	sourceType := f.cfg.GetString("source.type")

	switch sourceType {
	case "gmail":
		gmailCfg := f.cfg.GetGmail()
		svc, err := gmail.NewService(ctx, gmailCfg.CredentialsFile, gmailCfg.TokenFile, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build Gmail service: %w", err)
		}
		limiter := rate.Unlimited()
		if gmailCfg.RateLimit > 0 {
			limiter = rate.NewTokenBucket(gmailCfg.RateLimit)
		}
		return gmail.NewClient(svc, limiter, f.logger), nil
	case "mock":
		return mockmail.NewSource(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail source type: %s", sourceType)
	}
}
