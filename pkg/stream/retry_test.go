package stream_test

import (
	"testing"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	pkgerrors "github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	"github.com/reddy-bhavesh/sarral-scan/pkg/stream"
)

func TestFixedRetry(t *testing.T) {
	p := stream.FixedRetry(0)
	for i := 0; i < 3; i++ {
		assert.Equal(t, constants.DefaultRetryDelay, p.NextBackOff())
	}
	assert.Equal(t, 2*time.Second, stream.FixedRetry(2*time.Second).NextBackOff())
}

func TestExponentialRetry(t *testing.T) {
	p := stream.ExponentialRetry(time.Second, 4*time.Second)
	var last time.Duration
	for i := 0; i < 10; i++ {
		last = p.NextBackOff()
		require.NotEqual(t, backoff.Stop, last)
		assert.LessOrEqual(t, last, 6*time.Second) // max plus jitter
	}

	p.Reset()
	first := p.NextBackOff()
	assert.GreaterOrEqual(t, first, 500*time.Millisecond)
	assert.LessOrEqual(t, first, 1500*time.Millisecond)
}

func TestLimitRetries(t *testing.T) {
	p := stream.LimitRetries(stream.FixedRetry(time.Second), 2)
	assert.Equal(t, time.Second, p.NextBackOff())
	assert.Equal(t, time.Second, p.NextBackOff())
	assert.Equal(t, backoff.Stop, p.NextBackOff())

	p.Reset()
	assert.Equal(t, time.Second, p.NextBackOff())
}

func TestParseRetryPolicy(t *testing.T) {
	p, err := stream.ParseRetryPolicy("", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultRetryDelay, p.NextBackOff())

	p, err = stream.ParseRetryPolicy("exponential", time.Second, 10*time.Second)
	require.NoError(t, err)
	assert.NotEqual(t, backoff.Stop, p.NextBackOff())

	_, err = stream.ParseRetryPolicy("linear", 0, 0)
	assert.True(t, pkgerrors.IsValidationError(err))
}
