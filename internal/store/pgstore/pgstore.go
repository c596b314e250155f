// Package pgstore is the PostgreSQL event store. Change subscriptions are
// cursors over insert order, woken by LISTEN/NOTIFY.
package pgstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/store"
)

const defaultBatchSize = 256

// Store implements store.Store on top of a pgx pool. The store owns the pool.
type Store struct {
	pool         *pgxpool.Pool
	log          logx.Logger
	notifier     *store.Notifier
	pollInterval time.Duration
	batchSize    int

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger of the LISTEN loop.
func WithLogger(l logx.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPollInterval sets the fallback poll interval of subscriptions.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithBatchSize caps the rows read by a single feed poll.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// New wraps pool and starts listening for insert notifications.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:         pool,
		log:          logx.Nop(),
		notifier:     store.NewNotifier(),
		pollInterval: store.DefaultPollInterval,
		batchSize:    defaultBatchSize,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	l := &listener{
		connect:  func(ctx context.Context) (*pgx.Conn, error) { return pgx.ConnectConfig(ctx, pool.Config().ConnConfig) },
		notifier: s.notifier,
		log:      s.log.With(logx.String("component", "pg_listener")),
	}
	go func() {
		defer close(s.done)
		l.run(ctx)
	}()
	return s
}

var _ store.Store = (*Store)(nil)

// Close stops the listener and closes the pool.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		s.notifier.Close()
		s.pool.Close()
	})
	return nil
}

// InsertAnnouncement appends a.
func (s *Store) InsertAnnouncement(ctx context.Context, a domain.Announcement) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO announcements (id, pickup, dropoff, reward, status, chosen_courier_id, created_at)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
    `, a.ID, a.Pickup, a.Dropoff, a.Reward, string(a.Status), a.ChosenCourierID, a.CreatedAt)
	return mapInsertErr(err, "announcement", a.ID)
}

// InsertCandidature appends c.
func (s *Store) InsertCandidature(ctx context.Context, c domain.Candidature) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO candidatures (id, announcement_id, courier_id, courier_name, eta, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, c.ID, c.AnnouncementID, c.CourierID, c.CourierName, c.ETA, c.CreatedAt)
	return mapInsertErr(err, "candidature", c.ID)
}

// InsertSelection appends sel. The unique index on announcement_id makes the
// first committed selection the only one.
func (s *Store) InsertSelection(ctx context.Context, sel domain.Selection) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO selections (id, announcement_id, courier_id, status, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, sel.ID, sel.AnnouncementID, sel.CourierID, string(sel.Status), sel.CreatedAt)
	if pgerr, ok := asPgError(err); ok && pgerr.Code == uniqueViolation && pgerr.ConstraintName == store.IndexUniqueSelection {
		return store.DuplicateAssignment(sel.AnnouncementID)
	}
	return mapInsertErr(err, "selection", sel.ID)
}

// InsertNotification appends n.
func (s *Store) InsertNotification(ctx context.Context, n domain.Notification) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO notifications (id, courier_id, type, announcement_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, n.ID, n.CourierID, string(n.Type), n.AnnouncementID, n.CreatedAt)
	return mapInsertErr(err, "notification", n.ID)
}

// MarkAnnouncementAssigned flips an open announcement to assigned when the
// matching selection is stored, and reports whether a row changed.
func (s *Store) MarkAnnouncementAssigned(ctx context.Context, announcementID, courierID string) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
        UPDATE announcements a
        SET status = $3, chosen_courier_id = $2
        WHERE a.id = $1
          AND a.status = $4
          AND EXISTS (
              SELECT 1 FROM selections s
              WHERE s.announcement_id = $1 AND s.courier_id = $2
          )
    `, announcementID, courierID, string(domain.AnnouncementAssigned), string(domain.AnnouncementOpen))
	if err != nil {
		return false, fmt.Errorf("mark announcement %s assigned: %w", announcementID, err)
	}
	return ct.RowsAffected() > 0, nil
}

const announcementColumns = `id, pickup, dropoff, reward, status, COALESCE(chosen_courier_id, ''), created_at`

func scanAnnouncement(row pgx.Row, extra ...any) (domain.Announcement, error) {
	var a domain.Announcement
	dest := append(extra, &a.ID, &a.Pickup, &a.Dropoff, &a.Reward, &a.Status, &a.ChosenCourierID, &a.CreatedAt)
	err := row.Scan(dest...)
	return a, err
}

// GetAnnouncement returns the announcement or nil.
func (s *Store) GetAnnouncement(ctx context.Context, id string) (*domain.Announcement, error) {
	a, err := scanAnnouncement(s.pool.QueryRow(ctx,
		`SELECT `+announcementColumns+` FROM announcements WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get announcement %s: %w", id, err)
	}
	return &a, nil
}

// ListAnnouncements returns announcements newest first.
func (s *Store) ListAnnouncements(ctx context.Context, f store.AnnouncementFilter) ([]domain.Announcement, error) {
	q := `SELECT ` + announcementColumns + ` FROM announcements`
	args := make([]any, 0, 2)
	if f.Status != "" {
		args = append(args, string(f.Status))
		q += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	q += " ORDER BY created_at DESC, seq DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	defer rows.Close()
	out := make([]domain.Announcement, 0, max(f.Limit, 0))
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const candidatureColumns = `id, announcement_id, courier_id, courier_name, eta, created_at`

func scanCandidature(row pgx.Row, extra ...any) (domain.Candidature, error) {
	var c domain.Candidature
	dest := append(extra, &c.ID, &c.AnnouncementID, &c.CourierID, &c.CourierName, &c.ETA, &c.CreatedAt)
	err := row.Scan(dest...)
	return c, err
}

// ListCandidatures returns the ranked bids of announcementID.
func (s *Store) ListCandidatures(ctx context.Context, announcementID string, limit int) ([]domain.Candidature, error) {
	q := `SELECT ` + candidatureColumns + ` FROM candidatures
        WHERE announcement_id = $1
        ORDER BY eta, created_at, id`
	args := []any{announcementID}
	if limit > 0 {
		q += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidatures of %s: %w", announcementID, err)
	}
	defer rows.Close()
	var out []domain.Candidature
	for rows.Next() {
		c, err := scanCandidature(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const selectionColumns = `id, announcement_id, courier_id, status, created_at`

func scanSelection(row pgx.Row, extra ...any) (domain.Selection, error) {
	var sel domain.Selection
	dest := append(extra, &sel.ID, &sel.AnnouncementID, &sel.CourierID, &sel.Status, &sel.CreatedAt)
	err := row.Scan(dest...)
	return sel, err
}

// GetSelection returns the selection of announcementID or nil.
func (s *Store) GetSelection(ctx context.Context, announcementID string) (*domain.Selection, error) {
	sel, err := scanSelection(s.pool.QueryRow(ctx,
		`SELECT `+selectionColumns+` FROM selections WHERE announcement_id = $1`, announcementID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get selection of %s: %w", announcementID, err)
	}
	return &sel, nil
}

const notificationColumns = `id, courier_id, type, announcement_id, created_at`

func scanNotification(row pgx.Row, extra ...any) (domain.Notification, error) {
	var n domain.Notification
	dest := append(extra, &n.ID, &n.CourierID, &n.Type, &n.AnnouncementID, &n.CreatedAt)
	err := row.Scan(dest...)
	return n, err
}

// ListNotifications returns the notifications of courierID in append order,
// or every notification when courierID is empty.
func (s *Store) ListNotifications(ctx context.Context, courierID string) ([]domain.Notification, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+notificationColumns+` FROM notifications
        WHERE ($1 = '' OR courier_id = $1)
        ORDER BY tx_id, seq`, courierID)
	if err != nil {
		return nil, fmt.Errorf("list notifications of %s: %w", courierID, err)
	}
	defer rows.Close()
	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
