package relay

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testlog "service-dispatch/internal/testutil"
)

type counterStub struct{ n int }

func (c *counterStub) Inc() { c.n++ }

type flakySink struct {
	calls int
	errs  []error
}

func (s *flakySink) Name() string { return "flaky" }
func (s *flakySink) Close() error { return nil }

func (s *flakySink) Publish(context.Context, Message) error {
	s.calls++
	if s.calls <= len(s.errs) {
		return s.errs[s.calls-1]
	}
	return nil
}

func TestRetryingSink_RetriesTransientErrors(t *testing.T) {
	next := &flakySink{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	retries := &counterStub{}
	rec := testlog.New()

	s := NewRetryingSink(next, rec.Logger(), retries, RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
	require.NoError(t, s.Publish(context.Background(), Message{Topic: "t"}))

	assert.Equal(t, 3, next.calls)
	assert.Equal(t, 2, retries.n)
	assert.Equal(t, 2, rec.Count("relay retry"))
}

func TestRetryingSink_GivesUpAfterMaxAttempts(t *testing.T) {
	boom := errors.New("boom")
	next := &flakySink{errs: []error{boom, boom, boom, boom}}
	retries := &counterStub{}

	s := NewRetryingSink(next, nil, retries, RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
	err := s.Publish(context.Background(), Message{})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, 1, retries.n)
}

func TestRetryingSink_PermanentErrorNotRetried(t *testing.T) {
	next := &flakySink{errs: []error{fmt.Errorf("%w: too large", ErrPermanent)}}
	retries := &counterStub{}

	s := NewRetryingSink(next, nil, retries, RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
	err := s.Publish(context.Background(), Message{})

	assert.ErrorIs(t, err, ErrPermanent)
	assert.Equal(t, 1, next.calls)
	assert.Zero(t, retries.n)
}

func TestRetryingSink_StopsOnContextCancel(t *testing.T) {
	boom := errors.New("boom")
	next := &flakySink{errs: []error{boom, boom, boom}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	s := NewRetryingSink(next, nil, nil, RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Second})
	start := time.Now()
	err := s.Publish(ctx, Message{})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, next.calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestNewRetryingSink_Nil(t *testing.T) {
	assert.Nil(t, NewRetryingSink(nil, nil, nil, RetryConfig{}))
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoff(100*time.Millisecond, time.Second, 1))
	assert.Equal(t, 200*time.Millisecond, backoff(100*time.Millisecond, time.Second, 2))
	assert.Equal(t, 400*time.Millisecond, backoff(100*time.Millisecond, time.Second, 3))
	assert.Equal(t, time.Second, backoff(100*time.Millisecond, time.Second, 10))
	assert.Equal(t, time.Second, backoff(100*time.Millisecond, time.Second, 80))
}
