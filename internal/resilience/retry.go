// Package resilience retries transient store operations, such as the first
// ping against a database that is still starting.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

const (
	backoffFactor = 2
	jitterSpread  = 0.25
)

// Policy bounds how often and how patiently a store call is retried.
type Policy struct {
	// Attempts counts the first call.
	Attempts int
	Base     time.Duration
	Cap      time.Duration

	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy suits a local or containerized database.
func DefaultPolicy() Policy {
	return Policy{Attempts: 5, Base: 250 * time.Millisecond, Cap: 5 * time.Second}
}

// Do calls fn until it succeeds. It gives up on the first non-transient
// error, after the last attempt, or when ctx is done, returning the last
// error seen.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	p = p.withDefaults()

	err := fn(ctx)
	for attempt := 1; err != nil && attempt < p.Attempts; attempt++ {
		if ctx.Err() != nil || !IsTransient(err) {
			return err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if !sleep(ctx, p.wait(attempt, rand.Float64()*2-1)) {
			return err
		}
		err = fn(ctx)
	}
	return err
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = def.Attempts
	}
	if p.Base <= 0 {
		p.Base = def.Base
	}
	if p.Cap <= 0 {
		p.Cap = def.Cap
	}
	return p
}

// wait is the pause before retry n (1-based). jitter in [-1, 1] scales the
// spread around the capped doubling delay.
func (p Policy) wait(n int, jitter float64) time.Duration {
	d := p.Base
	for i := 1; i < n && d < p.Cap; i++ {
		d *= backoffFactor
	}
	d = min(d, p.Cap)
	return d + time.Duration(float64(d)*jitterSpread*jitter)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// LogRetry returns an OnRetry callback that logs each retry of op.
func LogRetry(op string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("store: retrying", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
	}
}
