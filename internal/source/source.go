// Package source models each external data source as a capability the
// validation and enrichment agents depend on. Adapters wrap the concrete
// API clients and carry the per-source timeout, retry, and rate limit, so
// agents only ever see the Capability interface.
package source

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/caretide/provdir/internal/config"
	"github.com/caretide/provdir/internal/model"
	"github.com/caretide/provdir/internal/resilience"
)

// Capability is one external source of field observations. Lookup returns
// nil observations when the source has nothing on the provider; an error
// means the source itself was unreachable. Either way the caller records
// "no corroboration", never a fatal failure.
type Capability interface {
	Name() string
	Lookup(ctx context.Context, p model.Provider) ([]model.FieldObservation, error)
}

// guard bounds a single Lookup call: rate limit, deadline, retry.
type guard struct {
	limiter *rate.Limiter
	timeout time.Duration
	retry   resilience.RetryConfig
}

func newGuard(cfg config.SourcesConfig) guard {
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return guard{
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst),
		timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		retry: resilience.RetryConfig{
			MaxAttempts: cfg.RetryMax + 1,
		},
	}
}

// do runs fn under the guard's rate limit, deadline, and retry policy.
func do[T any](ctx context.Context, g guard, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := g.limiter.Wait(ctx); err != nil {
		return zero, err
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return resilience.Lookup(ctx, g.retry, name, fn)
}

// obs builds an observation stamped with the current time, skipping empty
// values.
func obs(field, source, value string, out []model.FieldObservation) []model.FieldObservation {
	if value == "" {
		return out
	}
	return append(out, model.FieldObservation{
		Field:      field,
		Source:     source,
		Value:      value,
		ObservedAt: time.Now().UTC(),
	})
}
