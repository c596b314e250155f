package mongostore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/store"
)

// changeEvent is the part of a change stream event we read.
type changeEvent[D any] struct {
	FullDocument D `bson:"fullDocument"`
}

// streamFeed reads a change stream in the background and buffers the
// inserted documents until the subscription polls them.
type streamFeed[T any] struct {
	mu   sync.Mutex
	buf  []T
	err  error
	wake chan struct{}

	// keep optionally re-filters a polled batch against current state.
	keep func(ctx context.Context, batch []T) ([]T, error)

	cancel context.CancelFunc
	done   chan struct{}
}

func (f *streamFeed[T]) Poll(ctx context.Context) ([]T, error) {
	f.mu.Lock()
	batch, err := f.buf, f.err
	f.buf = nil
	f.mu.Unlock()

	if len(batch) > 0 && f.keep != nil {
		kept, kerr := f.keep(ctx, batch)
		if kerr != nil {
			f.requeue(batch)
			return nil, kerr
		}
		batch = kept
	}
	if len(batch) > 0 {
		return batch, nil
	}
	return nil, err
}

func (f *streamFeed[T]) requeue(batch []T) {
	f.mu.Lock()
	f.buf = append(batch, f.buf...)
	f.mu.Unlock()
}

func (f *streamFeed[T]) Wake() <-chan struct{} { return f.wake }

func (f *streamFeed[T]) Close() error {
	f.cancel()
	<-f.done
	return nil
}

func (f *streamFeed[T]) push(doc T) {
	f.mu.Lock()
	f.buf = append(f.buf, doc)
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *streamFeed[T]) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// watch opens a change stream on inserts into collection matching filter.
// The stream is open when watch returns, so later inserts are never missed.
func watch[D, T any](ctx context.Context, s *Store, collection string, filter bson.D, convert func(D) T) (*streamFeed[T], error) {
	match := bson.D{{Key: "operationType", Value: "insert"}}
	match = append(match, filter...)
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: match}}}

	stream, err := s.coll(collection).Watch(ctx, pipeline, options.ChangeStream().SetMaxAwaitTime(s.maxAwait))
	if err != nil {
		return nil, mapErr(fmt.Errorf("watch %s: %w", collection, err))
	}

	runCtx, cancel := context.WithCancel(context.Background())
	f := &streamFeed[T]{
		wake:   make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	log := s.log.With(logx.String("collection", collection))

	go func() {
		defer close(f.done)
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
			defer closeCancel()
			_ = stream.Close(closeCtx)
		}()

		for stream.Next(runCtx) {
			var ev changeEvent[D]
			if err := stream.Decode(&ev); err != nil {
				log.Warn("skip undecodable change event", logx.Err(err))
				continue
			}
			f.push(convert(ev.FullDocument))
		}
		if runCtx.Err() != nil {
			return
		}
		err := stream.Err()
		if err == nil {
			err = fmt.Errorf("change stream on %s ended", collection)
		}
		log.Error("change stream failed", logx.Err(err))
		f.fail(mapErr(err))
	}()
	return f, nil
}

func (s *Store) subscriptionOptions() store.SubscriptionOptions {
	return store.SubscriptionOptions{PollInterval: s.pollInterval}
}

// WatchAnnouncements delivers new announcements that are still open when read.
func (s *Store) WatchAnnouncements(ctx context.Context) (*store.Subscription[domain.Announcement], error) {
	f, err := watch(ctx, s, store.Announcements, nil, announcementDoc.domain)
	if err != nil {
		return nil, err
	}
	f.keep = s.keepOpen
	return store.NewSubscription[domain.Announcement](f, func(a domain.Announcement) string { return a.ID }, s.subscriptionOptions()), nil
}

// keepOpen drops announcements that were assigned before they were read.
func (s *Store) keepOpen(ctx context.Context, batch []domain.Announcement) ([]domain.Announcement, error) {
	ids := make([]string, 0, len(batch))
	for _, a := range batch {
		ids = append(ids, a.ID)
	}
	docs, err := findAll[announcementDoc](ctx, s.coll(store.Announcements), bson.D{
		{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}},
		{Key: "status", Value: string(domain.AnnouncementOpen)},
	}, options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	open := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		open[d.ID] = struct{}{}
	}
	out := batch[:0]
	for _, a := range batch {
		if _, ok := open[a.ID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// WatchCandidatures delivers new bids on announcementID.
func (s *Store) WatchCandidatures(ctx context.Context, announcementID string) (*store.Subscription[domain.Candidature], error) {
	filter := bson.D{{Key: "fullDocument.announcement_id", Value: announcementID}}
	f, err := watch(ctx, s, store.Candidatures, filter, candidatureDoc.domain)
	if err != nil {
		return nil, err
	}
	return store.NewSubscription[domain.Candidature](f, func(c domain.Candidature) string { return c.ID }, s.subscriptionOptions()), nil
}

// WatchSelections delivers every new selection.
func (s *Store) WatchSelections(ctx context.Context) (*store.Subscription[domain.Selection], error) {
	f, err := watch(ctx, s, store.Selections, nil, selectionDoc.domain)
	if err != nil {
		return nil, err
	}
	return store.NewSubscription[domain.Selection](f, func(sel domain.Selection) string { return sel.ID }, s.subscriptionOptions()), nil
}

// WatchNotifications delivers new notifications for courierID, or all of
// them when courierID is empty.
func (s *Store) WatchNotifications(ctx context.Context, courierID string) (*store.Subscription[domain.Notification], error) {
	var filter bson.D
	if courierID != "" {
		filter = bson.D{{Key: "fullDocument.courier_id", Value: courierID}}
	}
	f, err := watch(ctx, s, store.Notifications, filter, notificationDoc.domain)
	if err != nil {
		return nil, err
	}
	return store.NewSubscription[domain.Notification](f, func(n domain.Notification) string { return n.ID }, s.subscriptionOptions()), nil
}
