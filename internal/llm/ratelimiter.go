package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider with a token bucket limiter so
// summaries generated in a burst (one per detected cluster) stay under the
// provider's request quota.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider allows at most rpm requests per minute, with a burst
// of rpm. rpm <= 0 disables limiting.
func NewRateLimitedProvider(provider Provider, rpm int) *RateLimitedProvider {
	limit := rate.Inf
	burst := 1
	if rpm > 0 {
		limit = rate.Every(time.Minute / time.Duration(rpm))
		burst = rpm
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}
