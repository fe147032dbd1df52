package provider

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	KindOpenRouter = "openrouter"
	KindGemini     = "gemini"
)

// Options selects and configures a gateway.
type Options struct {
	Kind    string
	APIKey  string
	BaseURL string
	Referer string
	Title   string
	Client  HTTPDoer
	Retry   RetryPolicy
	Logger  *zap.Logger
}

// New builds the configured gateway wrapped in the retry policy.
func New(ctx context.Context, opts Options) (Gateway, error) {
	kind := strings.ToLower(strings.TrimSpace(opts.Kind))
	if kind == "" {
		kind = KindOpenRouter
	}
	var next Gateway
	switch kind {
	case KindOpenRouter:
		openRouter, err := NewOpenRouter(opts.APIKey, opts.BaseURL, opts.Client)
		if err != nil {
			return nil, err
		}
		openRouter.Referer = opts.Referer
		openRouter.Title = opts.Title
		next = openRouter
	case KindGemini:
		gemini, err := NewGemini(ctx, opts.APIKey)
		if err != nil {
			return nil, err
		}
		next = gemini
	default:
		return nil, fmt.Errorf("unsupported provider %q", opts.Kind)
	}
	return WithRetry(next, opts.Retry, opts.Logger), nil
}
