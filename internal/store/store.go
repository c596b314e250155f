// Package store defines the event store contract shared by the matching engine,
// courier agents and relays, plus the subscription primitive every backend
// builds its change feeds on.
package store

import (
	"context"
	"errors"
	"fmt"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// Collection names. Backends use them as table/collection names and as
// wake-up payloads.
const (
	Announcements = "announcements"
	Candidatures  = "candidatures"
	Selections    = "selections"
	Notifications = "notifications"
)

// Index names, shared by every backend that declares indexes.
const (
	IndexUniqueSelection        = "uniq_announcement_selection"
	IndexCandidaturesByETA      = "by_announcement_eta"
	IndexAnnouncementsByStatus  = "by_status_created"
	IndexNotificationsByCourier = "by_courier_notifications"
)

// AnnouncementFilter narrows ListAnnouncements. Zero values mean "any".
type AnnouncementFilter struct {
	Status domain.AnnouncementStatus
	Limit  int
}

// Writer appends documents and applies the single allowed mutation.
type Writer interface {
	InsertAnnouncement(ctx context.Context, a domain.Announcement) error
	InsertCandidature(ctx context.Context, c domain.Candidature) error
	// InsertSelection fails with an error matching IsDuplicateAssignment when a
	// selection already exists for the announcement.
	InsertSelection(ctx context.Context, s domain.Selection) error
	InsertNotification(ctx context.Context, n domain.Notification) error
	// MarkAnnouncementAssigned moves an open announcement to assigned and reports
	// whether the document changed.
	MarkAnnouncementAssigned(ctx context.Context, announcementID, courierID string) (bool, error)
}

// Reader queries stored documents. Single-document getters return nil, nil
// when nothing matches.
type Reader interface {
	GetAnnouncement(ctx context.Context, id string) (*domain.Announcement, error)
	ListAnnouncements(ctx context.Context, f AnnouncementFilter) ([]domain.Announcement, error)
	// ListCandidatures returns the bids of an announcement ranked by eta,
	// created_at, id. limit <= 0 means no limit.
	ListCandidatures(ctx context.Context, announcementID string, limit int) ([]domain.Candidature, error)
	GetSelection(ctx context.Context, announcementID string) (*domain.Selection, error)
	ListNotifications(ctx context.Context, courierID string) ([]domain.Notification, error)
}

// Watcher opens change subscriptions. Every subscription only delivers
// documents appended after it was opened, in append order.
type Watcher interface {
	// WatchAnnouncements delivers inserted announcements that are still open.
	WatchAnnouncements(ctx context.Context) (*Subscription[domain.Announcement], error)
	WatchCandidatures(ctx context.Context, announcementID string) (*Subscription[domain.Candidature], error)
	WatchSelections(ctx context.Context) (*Subscription[domain.Selection], error)
	// WatchNotifications delivers notifications for courierID, or for everyone
	// when courierID is empty.
	WatchNotifications(ctx context.Context, courierID string) (*Subscription[domain.Notification], error)
}

// Store is the full event store.
type Store interface {
	Writer
	Reader
	Watcher
	EnsureIndexes(ctx context.Context) error
	Close() error
}

// IsDuplicateAssignment reports whether err is a rejected second selection.
func IsDuplicateAssignment(err error) bool {
	return errors.Is(err, apperr.ErrConflict)
}

// DuplicateAssignment wraps the conflict raised for announcementID.
func DuplicateAssignment(announcementID string) error {
	return fmt.Errorf("selection for announcement %s already exists: %w", announcementID, apperr.ErrConflict)
}

// Unavailable marks err as a connectivity failure.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", apperr.ErrUnavailable, err)
}
