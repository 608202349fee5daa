// Package ratelimit throttles calls to registry APIs.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bnema/zerowrap"
	"golang.org/x/time/rate"

	"github.com/jupyter/overviews/internal/boundaries/out"
	"github.com/jupyter/overviews/internal/domain"
)

// Ensure Publisher implements out.OverviewPublisher.
var _ out.OverviewPublisher = (*Publisher)(nil)

// Publisher wraps an OverviewPublisher and waits for a token before each
// publish. Each registry host gets its own independent limiter.
type Publisher struct {
	next     out.OverviewPublisher
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rps      float64
	burst    int
	log      zerowrap.Logger
}

// NewPublisher creates a throttled publisher. A non-positive rps disables throttling.
func NewPublisher(next out.OverviewPublisher, rps float64, burst int, log zerowrap.Logger) *Publisher {
	if burst < 1 {
		burst = 1
	}
	return &Publisher{
		next:     next,
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
		log:      log,
	}
}

// Provider returns the wrapped provider tag.
func (p *Publisher) Provider() string {
	return p.next.Provider()
}

// Publish waits for the destination registry's limiter, then publishes.
func (p *Publisher) Publish(ctx context.Context, req domain.PublishRequest) error {
	if p.rps > 0 {
		key := registryKey(req.Destination)
		if err := p.wait(ctx, key); err != nil {
			return err
		}
		p.log.Trace().
			Str(zerowrap.FieldLayer, "adapter").
			Str(zerowrap.FieldAdapter, "ratelimit").
			Str("registry", key).
			Msg("rate limit token acquired")
	}
	return p.next.Publish(ctx, req)
}

// wait blocks until the registry's limiter grants a token or ctx is done.
// A delay past the deadline still waits for the deadline, so a throttled
// publish ends with ctx.Err() like any other publish cut off by the batch.
func (p *Publisher) wait(ctx context.Context, key string) error {
	r := p.getLimiter(key).Reserve()
	if !r.OK() {
		return fmt.Errorf("rate limit for %s: burst too small", key)
	}

	delay := r.Delay()
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return fmt.Errorf("rate limit wait for %s: %w", key, ctx.Err())
	}
}

// getLimiter returns the rate limiter for the given key, creating one if it doesn't exist.
func (p *Publisher) getLimiter(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	limiter, exists := p.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(p.rps), p.burst)
		p.limiters[key] = limiter
	}
	return limiter
}

func registryKey(destination string) string {
	host, _, _ := strings.Cut(destination, "/")
	return host
}
