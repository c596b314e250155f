package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/store"
)

// visibleHorizon is the oldest transaction still in flight. Rows written by
// older transactions are all committed or rolled back.
const visibleHorizon = `pg_snapshot_xmin(pg_current_snapshot())::text::bigint`

// cursor is a position in (tx_id, seq) order.
type cursor struct {
	txID int64
	seq  int64
}

// feed polls one table past its cursor. The query receives the cursor as $1,
// $2 and the batch size as $3; extra args follow.
type feed[T any] struct {
	s          *Store
	collection string
	query      string
	args       []any
	scan       func(pgx.Rows, *cursor) (T, error)
	pos        cursor
	wake       chan struct{}
}

func (f *feed[T]) Poll(ctx context.Context) ([]T, error) {
	args := append([]any{f.pos.txID, f.pos.seq, f.s.batchSize}, f.args...)
	rows, err := f.s.pool.Query(ctx, f.query, args...)
	if err != nil {
		return nil, store.Unavailable(fmt.Errorf("poll %s: %w", f.collection, err))
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var pos cursor
		doc, err := f.scan(rows, &pos)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", f.collection, err)
		}
		out = append(out, doc)
		f.pos = pos
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable(fmt.Errorf("poll %s: %w", f.collection, err))
	}
	if len(out) == f.s.batchSize {
		f.selfWake()
	}
	return out, nil
}

// selfWake makes the subscription poll again right away when a batch was full.
func (f *feed[T]) selfWake() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *feed[T]) Wake() <-chan struct{} { return f.wake }

func (f *feed[T]) Close() error {
	f.s.notifier.Unsubscribe(f.collection, f.wake)
	return nil
}

func feedQuery(table, columns, filter string) string {
	q := `SELECT tx_id, seq, ` + columns + ` FROM ` + table + `
        WHERE (tx_id, seq) > ($1, $2)
          AND tx_id < ` + visibleHorizon
	if filter != "" {
		q += " AND " + filter
	}
	return q + " ORDER BY tx_id, seq LIMIT $3"
}

// openFeed positions a feed at the current horizon: everything committed
// before the call is skipped.
func openFeed[T any](ctx context.Context, s *Store, collection, query string, scan func(pgx.Rows, *cursor) (T, error), args ...any) (*feed[T], error) {
	var horizon int64
	if err := s.pool.QueryRow(ctx, `SELECT `+visibleHorizon).Scan(&horizon); err != nil {
		return nil, store.Unavailable(fmt.Errorf("open %s feed: %w", collection, err))
	}
	return &feed[T]{
		s:          s,
		collection: collection,
		query:      query,
		args:       args,
		scan:       scan,
		pos:        cursor{txID: horizon - 1, seq: 1<<63 - 1},
		wake:       s.notifier.Subscribe(collection),
	}, nil
}

func (s *Store) subscriptionOptions() store.SubscriptionOptions {
	return store.SubscriptionOptions{PollInterval: s.pollInterval}
}

var (
	announcementFeedQuery = feedQuery(store.Announcements, announcementColumns, "status = $4")
	candidatureFeedQuery  = feedQuery(store.Candidatures, candidatureColumns, "announcement_id = $4")
	selectionFeedQuery    = feedQuery(store.Selections, selectionColumns, "")
	notificationFeedQuery = feedQuery(store.Notifications, notificationColumns, "($4 = '' OR courier_id = $4)")
)

// WatchAnnouncements delivers new announcements that are still open when read.
func (s *Store) WatchAnnouncements(ctx context.Context) (*store.Subscription[domain.Announcement], error) {
	f, err := openFeed(ctx, s, store.Announcements, announcementFeedQuery,
		func(rows pgx.Rows, pos *cursor) (domain.Announcement, error) {
			return scanAnnouncement(rows, &pos.txID, &pos.seq)
		}, string(domain.AnnouncementOpen))
	if err != nil {
		return nil, err
	}
	return store.NewSubscription[domain.Announcement](f, func(a domain.Announcement) string { return a.ID }, s.subscriptionOptions()), nil
}

// WatchCandidatures delivers new bids on announcementID.
func (s *Store) WatchCandidatures(ctx context.Context, announcementID string) (*store.Subscription[domain.Candidature], error) {
	f, err := openFeed(ctx, s, store.Candidatures, candidatureFeedQuery,
		func(rows pgx.Rows, pos *cursor) (domain.Candidature, error) {
			return scanCandidature(rows, &pos.txID, &pos.seq)
		}, announcementID)
	if err != nil {
		return nil, err
	}
	return store.NewSubscription[domain.Candidature](f, func(c domain.Candidature) string { return c.ID }, s.subscriptionOptions()), nil
}

// WatchSelections delivers every new selection.
func (s *Store) WatchSelections(ctx context.Context) (*store.Subscription[domain.Selection], error) {
	f, err := openFeed(ctx, s, store.Selections, selectionFeedQuery,
		func(rows pgx.Rows, pos *cursor) (domain.Selection, error) {
			return scanSelection(rows, &pos.txID, &pos.seq)
		})
	if err != nil {
		return nil, err
	}
	return store.NewSubscription[domain.Selection](f, func(sel domain.Selection) string { return sel.ID }, s.subscriptionOptions()), nil
}

// WatchNotifications delivers new notifications for courierID, or all of
// them when courierID is empty.
func (s *Store) WatchNotifications(ctx context.Context, courierID string) (*store.Subscription[domain.Notification], error) {
	f, err := openFeed(ctx, s, store.Notifications, notificationFeedQuery,
		func(rows pgx.Rows, pos *cursor) (domain.Notification, error) {
			return scanNotification(rows, &pos.txID, &pos.seq)
		}, courierID)
	if err != nil {
		return nil, err
	}
	return store.NewSubscription[domain.Notification](f, func(n domain.Notification) string { return n.ID }, s.subscriptionOptions()), nil
}
