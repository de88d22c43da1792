package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/lestrrat-go/backoff/v2"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// RetryPolicy bounds how often a failed delivery is attempted again.
// MaxRetries of zero means a single attempt.
type RetryPolicy struct {
	MaxRetries  int
	MinInterval time.Duration
	MaxInterval time.Duration
}

func (p RetryPolicy) backoff() backoff.Policy {
	if p.MaxRetries <= 0 {
		return backoff.Null()
	}
	minInterval := p.MinInterval
	if minInterval <= 0 {
		minInterval = 250 * time.Millisecond
	}
	maxInterval := p.MaxInterval
	if maxInterval < minInterval {
		maxInterval = 4 * minInterval
	}
	return backoff.Exponential(
		backoff.WithMinInterval(minInterval),
		backoff.WithMaxInterval(maxInterval),
		backoff.WithJitterFactor(0.1),
		backoff.WithMaxRetries(p.MaxRetries),
	)
}

// retry runs fn until it succeeds, returns a permanent error, the policy is
// exhausted or ctx is done. The last error is returned.
func retry(ctx context.Context, p RetryPolicy, fn func(context.Context) error) error {
	var err error
	b := p.backoff().Start(ctx)
	for backoff.Continue(b) {
		if err = fn(ctx); err == nil {
			return nil
		}
		if isPermanent(err) {
			return err
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	return err
}
