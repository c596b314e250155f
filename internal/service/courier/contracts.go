package courier

import (
	"context"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/store"
)

// EventStore is the part of the store a courier agent needs.
type EventStore interface {
	WatchAnnouncements(ctx context.Context) (*store.Subscription[domain.Announcement], error)
	WatchNotifications(ctx context.Context, courierID string) (*store.Subscription[domain.Notification], error)
	InsertCandidature(ctx context.Context, c domain.Candidature) error
}

// Policy decides whether the courier bids on an announcement and with which ETA.
type Policy interface {
	Decide(ctx context.Context, a domain.Announcement) (Decision, error)
}
