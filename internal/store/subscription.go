package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by a subscription after Close.
var ErrClosed = errors.New("subscription closed")

// Defaults applied by NewSubscription.
const (
	DefaultPollInterval = 200 * time.Millisecond
	DefaultDedupWindow  = 4096
)

// Feed is the backend side of a subscription: a source of newly appended
// documents in append order.
type Feed[T any] interface {
	// Poll returns the documents that became visible since the previous call.
	// An empty result is not an error.
	Poll(ctx context.Context) ([]T, error)
	// Wake is signalled when new documents may be available. A nil channel
	// means the feed is polled on the interval only.
	Wake() <-chan struct{}
	Close() error
}

// SubscriptionOptions tunes a subscription.
type SubscriptionOptions struct {
	PollInterval time.Duration
	DedupWindow  int
}

// Subscription turns a Feed into "try next with max wait" semantics and drops
// redeliveries of an id already handed out. It must be consumed by a single
// goroutine; Close may be called from any goroutine.
type Subscription[T any] struct {
	feed         Feed[T]
	key          func(T) string
	pollInterval time.Duration
	buf          []T
	seen         *idWindow

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// NewSubscription wraps feed. key extracts the document id used for dedup.
func NewSubscription[T any](feed Feed[T], key func(T) string, opts SubscriptionOptions) *Subscription[T] {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = DefaultDedupWindow
	}
	return &Subscription[T]{
		feed:         feed,
		key:          key,
		pollInterval: opts.PollInterval,
		seen:         newIDWindow(opts.DedupWindow),
		closed:       make(chan struct{}),
	}
}

// TryNext returns the next document, waiting at most maxWait for one to
// arrive. With maxWait <= 0 it only drains what is ready. ok is false when
// nothing arrived in time.
func (s *Subscription[T]) TryNext(ctx context.Context, maxWait time.Duration) (doc T, ok bool, err error) {
	var zero T
	deadline := time.Now().Add(maxWait)
	for {
		if v, found := s.pop(); found {
			return v, true, nil
		}
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}
		if s.isClosed() {
			return zero, false, ErrClosed
		}

		batch, err := s.feed.Poll(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, false, ctxErr
			}
			return zero, false, err
		}
		s.buf = append(s.buf, batch...)
		if v, found := s.pop(); found {
			return v, true, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, false, nil
		}
		if err := s.wait(ctx, min(remaining, s.pollInterval)); err != nil {
			return zero, false, err
		}
	}
}

// Next blocks until a document arrives, ctx is done or the subscription is closed.
func (s *Subscription[T]) Next(ctx context.Context) (T, error) {
	for {
		doc, ok, err := s.TryNext(ctx, s.pollInterval)
		if err != nil {
			return doc, err
		}
		if ok {
			return doc, nil
		}
	}
}

// Close releases the feed. It is safe to call more than once.
func (s *Subscription[T]) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.closeErr = s.feed.Close()
	})
	return s.closeErr
}

func (s *Subscription[T]) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Subscription[T]) pop() (T, bool) {
	for len(s.buf) > 0 {
		v := s.buf[0]
		var zero T
		s.buf[0] = zero
		s.buf = s.buf[1:]
		if s.seen.add(s.key(v)) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func (s *Subscription[T]) wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
		return ErrClosed
	case <-s.feed.Wake():
		return nil
	case <-t.C:
		return nil
	}
}

// idWindow remembers the last limit ids handed out.
type idWindow struct {
	limit int
	order []string
	set   map[string]struct{}
}

func newIDWindow(limit int) *idWindow {
	return &idWindow{limit: limit, set: make(map[string]struct{}, limit)}
}

// add records id and reports whether it was new.
func (w *idWindow) add(id string) bool {
	if _, dup := w.set[id]; dup {
		return false
	}
	w.set[id] = struct{}{}
	w.order = append(w.order, id)
	if len(w.order) > w.limit {
		delete(w.set, w.order[0])
		w.order = w.order[1:]
	}
	return true
}
