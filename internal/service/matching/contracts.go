//go:generate mockgen -source=contracts.go -destination=matching_mocks_test.go -package=matching

package matching

import (
	"context"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/store"
)

// EventStore is the part of the store the engine works with.
type EventStore interface {
	InsertAnnouncement(ctx context.Context, a domain.Announcement) error
	InsertSelection(ctx context.Context, s domain.Selection) error
	InsertNotification(ctx context.Context, n domain.Notification) error
	MarkAnnouncementAssigned(ctx context.Context, announcementID, courierID string) (bool, error)
	GetAnnouncement(ctx context.Context, id string) (*domain.Announcement, error)
	ListAnnouncements(ctx context.Context, f store.AnnouncementFilter) ([]domain.Announcement, error)
	ListCandidatures(ctx context.Context, announcementID string, limit int) ([]domain.Candidature, error)
	GetSelection(ctx context.Context, announcementID string) (*domain.Selection, error)
	ListNotifications(ctx context.Context, courierID string) ([]domain.Notification, error)
	WatchCandidatures(ctx context.Context, announcementID string) (*store.Subscription[domain.Candidature], error)
}
