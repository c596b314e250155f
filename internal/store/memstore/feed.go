package memstore

import (
	"context"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/store"
)

// feed walks the append log from a cursor, picking documents of one
// collection that match.
type feed[T any] struct {
	s          *Store
	collection string
	cursor     int
	wake       chan struct{}
	pick       func(id string) (T, bool)
}

func (f *feed[T]) Poll(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()

	var out []T
	for ; f.cursor < len(f.s.log); f.cursor++ {
		r := f.s.log[f.cursor]
		if r.collection != f.collection {
			continue
		}
		if doc, ok := f.pick(r.id); ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *feed[T]) Wake() <-chan struct{} { return f.wake }

func (f *feed[T]) Close() error {
	f.s.notifier.Unsubscribe(f.collection, f.wake)
	return nil
}

func openFeed[T any](ctx context.Context, s *Store, collection string, pick func(id string) (T, bool)) (*feed[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	return &feed[T]{
		s:          s,
		collection: collection,
		cursor:     len(s.log),
		wake:       s.notifier.Subscribe(collection),
		pick:       pick,
	}, nil
}

func (s *Store) subscriptionOptions() store.SubscriptionOptions {
	return store.SubscriptionOptions{PollInterval: s.pollInterval}
}

// WatchAnnouncements delivers new announcements that are still open when read.
func (s *Store) WatchAnnouncements(ctx context.Context) (*store.Subscription[domain.Announcement], error) {
	f, err := openFeed(ctx, s, store.Announcements, func(id string) (domain.Announcement, bool) {
		a := s.announcements[id]
		return *a, a.IsOpen()
	})
	if err != nil {
		return nil, err
	}
	return store.NewSubscription[domain.Announcement](f, func(a domain.Announcement) string { return a.ID }, s.subscriptionOptions()), nil
}

// WatchCandidatures delivers new bids on announcementID.
func (s *Store) WatchCandidatures(ctx context.Context, announcementID string) (*store.Subscription[domain.Candidature], error) {
	f, err := openFeed(ctx, s, store.Candidatures, func(id string) (domain.Candidature, bool) {
		c := s.candidatures[id]
		return c, c.AnnouncementID == announcementID
	})
	if err != nil {
		return nil, err
	}
	return store.NewSubscription[domain.Candidature](f, func(c domain.Candidature) string { return c.ID }, s.subscriptionOptions()), nil
}

// WatchSelections delivers every new selection.
func (s *Store) WatchSelections(ctx context.Context) (*store.Subscription[domain.Selection], error) {
	f, err := openFeed(ctx, s, store.Selections, func(id string) (domain.Selection, bool) {
		sel, ok := s.selectionByID[id]
		return sel, ok
	})
	if err != nil {
		return nil, err
	}
	return store.NewSubscription[domain.Selection](f, func(sel domain.Selection) string { return sel.ID }, s.subscriptionOptions()), nil
}

// WatchNotifications delivers new notifications for courierID, or all of
// them when courierID is empty.
func (s *Store) WatchNotifications(ctx context.Context, courierID string) (*store.Subscription[domain.Notification], error) {
	f, err := openFeed(ctx, s, store.Notifications, func(id string) (domain.Notification, bool) {
		n := s.notifications[id]
		return n, courierID == "" || n.CourierID == courierID
	})
	if err != nil {
		return nil, err
	}
	return store.NewSubscription[domain.Notification](f, func(n domain.Notification) string { return n.ID }, s.subscriptionOptions()), nil
}
