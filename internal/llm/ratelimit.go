package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures request throttling for LLM providers.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate across Complete and Embed
	// calls (0 = unlimited).
	RequestsPerSecond float64
	// BurstSize allows short bursts above the sustained rate.
	BurstSize int
}

// DefaultRateLimitConfig is conservative enough for free-tier cloud APIs.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{RequestsPerSecond: 0.5, BurstSize: 3}
}

// RateLimitProvider throttles an inner provider with a token bucket.
type RateLimitProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithRateLimit wraps a provider with rate limiting. A nil provider or a
// zero rate passes through unchanged.
func WithRateLimit(inner Provider, config *RateLimitConfig) Provider {
	if inner == nil {
		return nil
	}
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if config.RequestsPerSecond <= 0 {
		return inner
	}
	burst := config.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst),
	}
}

func (r *RateLimitProvider) Name() string { return r.inner.Name() }

func (r *RateLimitProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Complete(ctx, prompt, opts)
}

func (r *RateLimitProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, texts)
}
