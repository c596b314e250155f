// Package memstore is an in-process event store. It backs tests and the
// single-binary demo, and follows the same contract as the database backends.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/store"
)

// record is one entry of the append log.
type record struct {
	seq        int64
	collection string
	id         string
}

// Store keeps every collection in memory behind a single mutex.
type Store struct {
	mu  sync.RWMutex
	seq int64
	log []record

	announcements map[string]*domain.Announcement
	candidatures  map[string]domain.Candidature
	selections    map[string]domain.Selection // by announcement id
	selectionByID map[string]domain.Selection
	notifications map[string]domain.Notification

	notifier     *store.Notifier
	pollInterval time.Duration
	closed       bool
}

// Option configures a Store.
type Option func(*Store)

// WithPollInterval sets the fallback poll interval of subscriptions.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		announcements: make(map[string]*domain.Announcement),
		candidatures:  make(map[string]domain.Candidature),
		selections:    make(map[string]domain.Selection),
		selectionByID: make(map[string]domain.Selection),
		notifications: make(map[string]domain.Notification),
		notifier:      store.NewNotifier(),
		pollInterval:  store.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

// EnsureIndexes is a no-op: uniqueness is enforced by the selection map.
func (s *Store) EnsureIndexes(context.Context) error { return nil }

// Close stops wake-ups. Data stays readable.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.notifier.Close()
	return nil
}

func (s *Store) appendLocked(collection, id string) {
	s.seq++
	s.log = append(s.log, record{seq: s.seq, collection: collection, id: id})
}

func (s *Store) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return store.Unavailable(fmt.Errorf("memstore closed"))
	}
	return nil
}

func duplicateID(collection, id string) error {
	return fmt.Errorf("%s %s already exists: %w", collection, id, apperr.ErrConflict)
}

// InsertAnnouncement appends a.
func (s *Store) InsertAnnouncement(ctx context.Context, a domain.Announcement) error {
	s.mu.Lock()
	if err := s.checkOpen(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.announcements[a.ID]; ok {
		s.mu.Unlock()
		return duplicateID("announcement", a.ID)
	}
	cp := a
	s.announcements[a.ID] = &cp
	s.appendLocked(store.Announcements, a.ID)
	s.mu.Unlock()

	s.notifier.Notify(store.Announcements)
	return nil
}

// InsertCandidature appends c.
func (s *Store) InsertCandidature(ctx context.Context, c domain.Candidature) error {
	s.mu.Lock()
	if err := s.checkOpen(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.candidatures[c.ID]; ok {
		s.mu.Unlock()
		return duplicateID("candidature", c.ID)
	}
	s.candidatures[c.ID] = c
	s.appendLocked(store.Candidatures, c.ID)
	s.mu.Unlock()

	s.notifier.Notify(store.Candidatures)
	return nil
}

// InsertSelection appends sel unless the announcement already has one.
func (s *Store) InsertSelection(ctx context.Context, sel domain.Selection) error {
	s.mu.Lock()
	if err := s.checkOpen(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.selections[sel.AnnouncementID]; ok {
		s.mu.Unlock()
		return store.DuplicateAssignment(sel.AnnouncementID)
	}
	if _, ok := s.selectionByID[sel.ID]; ok {
		s.mu.Unlock()
		return duplicateID("selection", sel.ID)
	}
	s.selections[sel.AnnouncementID] = sel
	s.selectionByID[sel.ID] = sel
	s.appendLocked(store.Selections, sel.ID)
	s.mu.Unlock()

	s.notifier.Notify(store.Selections)
	return nil
}

// InsertNotification appends n.
func (s *Store) InsertNotification(ctx context.Context, n domain.Notification) error {
	s.mu.Lock()
	if err := s.checkOpen(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.notifications[n.ID]; ok {
		s.mu.Unlock()
		return duplicateID("notification", n.ID)
	}
	s.notifications[n.ID] = n
	s.appendLocked(store.Notifications, n.ID)
	s.mu.Unlock()

	s.notifier.Notify(store.Notifications)
	return nil
}

// MarkAnnouncementAssigned flips an open announcement to assigned. It only
// applies when the selection for courierID is already stored.
func (s *Store) MarkAnnouncementAssigned(ctx context.Context, announcementID, courierID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return false, err
	}
	a, ok := s.announcements[announcementID]
	if !ok || a.Status != domain.AnnouncementOpen {
		return false, nil
	}
	sel, ok := s.selections[announcementID]
	if !ok || sel.CourierID != courierID {
		return false, nil
	}
	a.Status = domain.AnnouncementAssigned
	a.ChosenCourierID = courierID
	return true, nil
}

// GetAnnouncement returns the announcement or nil.
func (s *Store) GetAnnouncement(ctx context.Context, id string) (*domain.Announcement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.announcements[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// ListAnnouncements returns announcements newest first.
func (s *Store) ListAnnouncements(ctx context.Context, f store.AnnouncementFilter) ([]domain.Announcement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]domain.Announcement, 0, len(s.announcements))
	for i := len(s.log) - 1; i >= 0; i-- {
		r := s.log[i]
		if r.collection != store.Announcements {
			continue
		}
		a := s.announcements[r.id]
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, *a)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	s.mu.RUnlock()
	return out, nil
}

// ListCandidatures returns the ranked bids of announcementID.
func (s *Store) ListCandidatures(ctx context.Context, announcementID string, limit int) ([]domain.Candidature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []domain.Candidature
	for _, c := range s.candidatures {
		if c.AnnouncementID == announcementID {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetSelection returns the selection of announcementID or nil.
func (s *Store) GetSelection(ctx context.Context, announcementID string) (*domain.Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sel, ok := s.selections[announcementID]
	if !ok {
		return nil, nil
	}
	return &sel, nil
}

// ListNotifications returns the notifications of courierID in append order.
func (s *Store) ListNotifications(ctx context.Context, courierID string) ([]domain.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Notification
	for _, r := range s.log {
		if r.collection != store.Notifications {
			continue
		}
		if n := s.notifications[r.id]; courierID == "" || n.CourierID == courierID {
			out = append(out, n)
		}
	}
	return out, nil
}
