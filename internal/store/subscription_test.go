package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type item struct {
	ID string
}

type fakeFeed struct {
	mu      sync.Mutex
	pending []item
	pollErr error
	polls   int
	wake    chan struct{}
	closed  int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{wake: make(chan struct{}, 1)}
}

func (f *fakeFeed) push(items ...item) {
	f.mu.Lock()
	f.pending = append(f.pending, items...)
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *fakeFeed) Poll(context.Context) ([]item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	out := f.pending
	f.pending = nil
	return out, nil
}

func (f *fakeFeed) Wake() <-chan struct{} { return f.wake }

func (f *fakeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func itemID(i item) string { return i.ID }

func newTestSub(feed *fakeFeed) *Subscription[item] {
	return NewSubscription[item](feed, itemID, SubscriptionOptions{PollInterval: 10 * time.Millisecond})
}

func TestSubscription_TryNext_ZeroWaitDrainsOnly(t *testing.T) {
	t.Parallel()

	feed := newFakeFeed()
	sub := newTestSub(feed)

	start := time.Now()
	_, ok, err := sub.TryNext(context.Background(), 0)
	require.NoError(t, err)
	require.False(t, ok)
	require.Less(t, time.Since(start), 50*time.Millisecond)

	feed.push(item{ID: "a"}, item{ID: "b"})
	got, ok, err := sub.TryNext(context.Background(), 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", got.ID)

	got, ok, err = sub.TryNext(context.Background(), 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b", got.ID)
}

func TestSubscription_TryNext_WaitsUpToMaxWait(t *testing.T) {
	t.Parallel()

	feed := newFakeFeed()
	sub := newTestSub(feed)

	start := time.Now()
	_, ok, err := sub.TryNext(context.Background(), 80*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.False(t, ok)
	require.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
	require.Less(t, elapsed, 500*time.Millisecond)
}

func TestSubscription_TryNext_WakesOnArrival(t *testing.T) {
	t.Parallel()

	feed := newFakeFeed()
	sub := NewSubscription[item](feed, itemID, SubscriptionOptions{PollInterval: time.Second})

	go func() {
		time.Sleep(30 * time.Millisecond)
		feed.push(item{ID: "late"})
	}()

	start := time.Now()
	got, ok, err := sub.TryNext(context.Background(), 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "late", got.ID)
	require.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestSubscription_DropsRedeliveredIDs(t *testing.T) {
	t.Parallel()

	feed := newFakeFeed()
	sub := newTestSub(feed)

	feed.push(item{ID: "a"}, item{ID: "a"}, item{ID: "b"})
	feed.push(item{ID: "b"})

	var got []string
	for {
		v, ok, err := sub.TryNext(context.Background(), 0)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v.ID)
	}
	require.Equal(t, []string{"a", "b"}, got)
}

func TestSubscription_DedupWindowIsBounded(t *testing.T) {
	t.Parallel()

	feed := newFakeFeed()
	sub := NewSubscription[item](feed, itemID, SubscriptionOptions{PollInterval: 10 * time.Millisecond, DedupWindow: 2})

	feed.push(item{ID: "a"}, item{ID: "b"}, item{ID: "c"}, item{ID: "a"})

	var got []string
	for {
		v, ok, err := sub.TryNext(context.Background(), 0)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v.ID)
	}
	require.Equal(t, []string{"a", "b", "c", "a"}, got)
}

func TestSubscription_PollErrorIsReturned(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	feed := newFakeFeed()
	feed.pollErr = boom
	sub := newTestSub(feed)

	_, ok, err := sub.TryNext(context.Background(), time.Second)
	require.ErrorIs(t, err, boom)
	require.False(t, ok)
}

func TestSubscription_ContextCancel(t *testing.T) {
	t.Parallel()

	feed := newFakeFeed()
	sub := newTestSub(feed)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	_, err := sub.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubscription_CloseIsIdempotentAndUnblocks(t *testing.T) {
	t.Parallel()

	feed := newFakeFeed()
	sub := NewSubscription[item](feed, itemID, SubscriptionOptions{PollInterval: time.Second})

	errCh := make(chan error, 1)
	go func() {
		_, err := sub.Next(context.Background())
		errCh <- err
	}()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after Close")
	}
	require.Equal(t, 1, feed.closed)
}

func TestNotifier_CoalescesAndFansOut(t *testing.T) {
	t.Parallel()

	n := NewNotifier()
	a := n.Subscribe(Selections)
	b := n.Subscribe(Selections)
	other := n.Subscribe(Notifications)

	n.Notify(Selections)
	n.Notify(Selections)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	require.Len(t, other, 0)

	n.Unsubscribe(Selections, a)
	<-a
	n.Notify(Selections)
	require.Len(t, a, 0)

	n.Close()
	<-b
	n.Notify(Selections)
	require.Len(t, b, 0)
}

func TestIsDuplicateAssignment(t *testing.T) {
	t.Parallel()

	require.True(t, IsDuplicateAssignment(DuplicateAssignment("a1")))
	require.False(t, IsDuplicateAssignment(errors.New("other")))
	require.False(t, IsDuplicateAssignment(nil))
	require.Nil(t, Unavailable(nil))
}
