package provider

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"hermitbench/internal/bench"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMaxElapsed  = 30 * time.Second
	defaultCallTimeout = 60 * time.Second
)

// RetryPolicy bounds how often and how long a request is retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxElapsed  time.Duration
	CallTimeout time.Duration

	// Sleep and Now are overridden in tests.
	Sleep  func(ctx context.Context, d time.Duration) error
	Now    func() time.Time
	Jitter func(max time.Duration) time.Duration
}

// DefaultRetryPolicy returns three attempts with exponential backoff inside a 30s budget.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{}.withDefaults()
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxElapsed <= 0 {
		p.MaxElapsed = defaultMaxElapsed
	}
	if p.CallTimeout <= 0 {
		p.CallTimeout = defaultCallTimeout
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Jitter == nil {
		p.Jitter = fullJitter
	}
	return p
}

// Do runs op until it succeeds, fails permanently, or the policy is exhausted.
// Every attempt gets its own CallTimeout-bounded context.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	p = p.withDefaults()
	start := p.Now()
	attempt := 0
	for {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, p.CallTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return &GatewayError{Op: op, Attempts: attempt, Err: err}
		}
		if !IsTransient(err) {
			return &GatewayError{Op: op, Attempts: attempt, Permanent: true, Err: err}
		}
		if attempt >= p.MaxAttempts {
			return &GatewayError{Op: op, Attempts: attempt, Err: err}
		}
		remaining := p.MaxElapsed - p.Now().Sub(start)
		if remaining <= 0 {
			return &GatewayError{Op: op, Attempts: attempt, Err: err}
		}
		delay := p.Jitter(p.BaseDelay << (attempt - 1))
		if delay > remaining {
			delay = remaining
		}
		if sleepErr := p.Sleep(ctx, delay); sleepErr != nil {
			return &GatewayError{Op: op, Attempts: attempt, Err: err}
		}
	}
}

func fullJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max) + 1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retrying wraps a gateway with a retry policy.
type Retrying struct {
	next   Gateway
	policy RetryPolicy
	logger *zap.Logger
}

// WithRetry decorates next so every call follows policy.
func WithRetry(next Gateway, policy RetryPolicy, logger *zap.Logger) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{next: next, policy: policy.withDefaults(), logger: logger}
}

func (r *Retrying) Complete(ctx context.Context, model string, messages []bench.Message, params Params) (string, error) {
	var reply string
	attempt := 0
	err := r.policy.Do(ctx, "complete "+model, func(callCtx context.Context) error {
		attempt++
		text, err := r.next.Complete(callCtx, model, messages, params)
		if err != nil {
			r.logger.Debug("completion attempt failed",
				zap.String("model", model),
				zap.Int("attempt", attempt),
				zap.Bool("transient", IsTransient(err)),
				zap.Error(err))
			return err
		}
		reply = text
		return nil
	})
	if err != nil {
		r.logger.Warn("completion failed", zap.String("model", model), zap.Error(err))
		return "", err
	}
	return reply, nil
}

func (r *Retrying) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	err := r.policy.Do(ctx, "list models", func(callCtx context.Context) error {
		list, err := r.next.ListModels(callCtx)
		if err != nil {
			return err
		}
		models = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	return models, nil
}
