// Package retry wraps model invocations in exponential backoff with jitter,
// retrying only failures classified as transient.
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 1000 * time.Millisecond
	DefaultMaxDelay     = 10000 * time.Millisecond
	DefaultJitter       = 200 * time.Millisecond
)

// jitterN returns a value in [0, n). Replaced in tests.
var jitterN = rand.Int64N

// Policy bounds the attempts made for one operation.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Jitter is the exclusive upper bound of the random delay added to each
	// backoff step. Zero selects DefaultJitter; a negative value disables it.
	Jitter time.Duration
}

// DefaultPolicy returns 3 attempts, 1s initial delay, 10s cap and 200ms jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		Jitter:       DefaultJitter,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	switch {
	case p.Jitter == 0:
		p.Jitter = DefaultJitter
	case p.Jitter < 0:
		p.Jitter = 0
	}
	return p
}

// Do runs op until it succeeds, fails permanently, or MaxAttempts is reached.
// The last error is returned unwrapped. The backoff sleep is aborted when ctx
// is done.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	return goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			return goretry.RetryableError(err)
		}
		return err
	})
}

// backoff yields min(initial*2^(n-1) + jitter, max) for retry n and stops
// after MaxAttempts-1 retries.
func (p Policy) backoff() goretry.Backoff {
	p = p.normalized()
	var b goretry.Backoff = goretry.NewExponential(p.InitialDelay)
	if p.Jitter > 0 {
		b = withJitter(p.Jitter, b)
	}
	b = goretry.WithCappedDuration(p.MaxDelay, b)
	return goretry.WithMaxRetries(uint64(p.MaxAttempts-1), b) // #nosec G115 -- normalized to >= 1
}

// withJitter adds a uniform [0, j) delay. goretry.WithJitter spreads in both
// directions, which could undercut the exponential floor.
func withJitter(j time.Duration, next goretry.Backoff) goretry.Backoff {
	return goretry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := next.Next()
		if stop {
			return 0, true
		}
		return d + time.Duration(jitterN(int64(j))), false
	})
}
