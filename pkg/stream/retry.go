package stream

import (
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

// RetryPolicy decides the delay before each reconnect. It is reset whenever
// a connection opens. Returning backoff.Stop ends reconnection.
type RetryPolicy = backoff.BackOff

// FixedRetry waits the same delay before every reconnect. A non-positive
// delay selects constants.DefaultRetryDelay.
func FixedRetry(delay time.Duration) RetryPolicy {
	if delay <= 0 {
		delay = constants.DefaultRetryDelay
	}
	return backoff.NewConstantBackOff(delay)
}

// ExponentialRetry doubles the delay from initial up to max with jitter and
// never gives up.
func ExponentialRetry(initial, max time.Duration) RetryPolicy {
	if initial <= 0 {
		initial = constants.DefaultRetryDelay
	}
	if max < initial {
		max = constants.MaxRetryDelay
		if max < initial {
			max = initial
		}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.Reset()
	return b
}

// LimitRetries stops reconnecting after n consecutive failures.
func LimitRetries(p RetryPolicy, n uint64) RetryPolicy {
	return backoff.WithMaxRetries(p, n)
}

// ParseRetryPolicy builds a policy from configuration values.
func ParseRetryPolicy(strategy string, delay, max time.Duration) (RetryPolicy, error) {
	switch strategy {
	case "", "fixed", "constant":
		return FixedRetry(delay), nil
	case "exponential", "backoff":
		return ExponentialRetry(delay, max), nil
	default:
		return nil, errors.NewValidationError("retry.strategy", strategy, "expected fixed or exponential")
	}
}
