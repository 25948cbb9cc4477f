// Package retry runs a remote operation a bounded number of times with
// exponential backoff and no jitter.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 10 * time.Second

	backoffMultiplier = 2
)

// ErrInvalidPolicy is returned by Validate.
var ErrInvalidPolicy = errors.New("invalid retry policy")

// Policy configures Do. The delay before attempt k (k >= 2) is
// min(BaseDelay * 2^(k-1), MaxDelay).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Retryable decides whether an error is worth another attempt.
	// Nil retries every error.
	Retryable func(error) bool
}

// DefaultPolicy returns 3 attempts, 1s base, 10s cap, retrying everything.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// WithClassifier returns a copy of p that consults fn.
func (p Policy) WithClassifier(fn func(error) bool) Policy {
	p.Retryable = fn
	return p
}

// Validate checks the policy bounds.
func (p Policy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return errors.Join(ErrInvalidPolicy, errors.New("max attempts must be >= 1"))
	case p.BaseDelay < 0 || p.MaxDelay < 0:
		return errors.Join(ErrInvalidPolicy, errors.New("delays cannot be negative"))
	case p.MaxDelay < p.BaseDelay:
		return errors.Join(ErrInvalidPolicy, errors.New("max delay must be >= base delay"))
	}
	return nil
}

// Delay returns the wait before the given 1-based attempt. Attempt 1 has no
// delay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= backoffMultiplier
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return d
}

// Notify is called after a failed attempt that will be retried.
type Notify func(attempt int, err error, next time.Duration)

// Do runs op until it succeeds, returns a non-retryable error, or the
// attempts run out, and returns the last error from op. If ctx is cancelled
// while waiting between attempts, ctx's error is returned instead.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error, notify Notify) error {
	if err := p.Validate(); err != nil {
		return err
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(err)
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, next time.Duration) {
			notify(attempt, err, next)
		}
	}

	return backoff.RetryNotify(operation, p.backOff(ctx), onRetry)
}

// backOff builds the backoff/v4 schedule matching Delay.
func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = min(p.BaseDelay*backoffMultiplier, p.MaxDelay)
	exp.Multiplier = backoffMultiplier
	exp.RandomizationFactor = 0
	exp.MaxInterval = p.MaxDelay
	exp.MaxElapsedTime = 0
	exp.Reset()

	var b backoff.BackOff = backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1)) //nolint:gosec // validated >= 1
	return backoff.WithContext(b, ctx)
}
