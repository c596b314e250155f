// Package mongostore is the MongoDB event store. Subscriptions are change
// streams, so the deployment must run as a replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/store"
)

// DefaultMaxAwait bounds how long the server holds a change stream getMore.
const DefaultMaxAwait = time.Second

// Store implements store.Store on a MongoDB database.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	log          logx.Logger
	pollInterval time.Duration
	maxAwait     time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by change stream readers.
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

// WithMaxAwait sets the change stream max await time.
func WithMaxAwait(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.maxAwait = d
		}
	}
}

// Open connects to uri, pings the primary and returns a store on database.
func Open(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, store.Unavailable(fmt.Errorf("connect mongo: %w", err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, store.Unavailable(fmt.Errorf("ping mongo: %w", err))
	}
	return New(client, database, opts...), nil
}

// New wraps an already connected client. The store owns the client.
func New(client *mongo.Client, database string, opts ...Option) *Store {
	s := &Store{
		client:       client,
		db:           client.Database(database),
		log:          logx.Nop(),
		pollInterval: store.DefaultPollInterval,
		maxAwait:     DefaultMaxAwait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

func (s *Store) coll(name string) *mongo.Collection { return s.db.Collection(name) }

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the named indexes. Re-running it is a no-op.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := map[string][]mongo.IndexModel{
		store.Selections: {{
			Keys:    bson.D{{Key: "announcement_id", Value: 1}},
			Options: options.Index().SetName(store.IndexUniqueSelection).SetUnique(true),
		}},
		store.Candidatures: {{
			Keys:    bson.D{{Key: "announcement_id", Value: 1}, {Key: "eta", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName(store.IndexCandidaturesByETA),
		}},
		store.Announcements: {{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName(store.IndexAnnouncementsByStatus),
		}},
		store.Notifications: {{
			Keys:    bson.D{{Key: "courier_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName(store.IndexNotificationsByCourier),
		}},
	}
	for name, idx := range models {
		if _, err := s.coll(name).Indexes().CreateMany(ctx, idx); err != nil {
			return mapErr(fmt.Errorf("create indexes on %s: %w", name, err))
		}
	}
	return nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return store.Unavailable(err)
	}
	return err
}

func (s *Store) insert(ctx context.Context, collection, id string, doc any) error {
	if _, err := s.coll(collection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s %s already exists: %w", collection, id, apperr.ErrConflict)
		}
		return mapErr(fmt.Errorf("insert into %s: %w", collection, err))
	}
	return nil
}

// InsertAnnouncement appends a.
func (s *Store) InsertAnnouncement(ctx context.Context, a domain.Announcement) error {
	return s.insert(ctx, store.Announcements, a.ID, toAnnouncementDoc(a))
}

// InsertCandidature appends c.
func (s *Store) InsertCandidature(ctx context.Context, c domain.Candidature) error {
	return s.insert(ctx, store.Candidatures, c.ID, toCandidatureDoc(c))
}

// InsertSelection appends sel. The unique index on announcement_id rejects
// every selection after the first.
func (s *Store) InsertSelection(ctx context.Context, sel domain.Selection) error {
	_, err := s.coll(store.Selections).InsertOne(ctx, toSelectionDoc(sel))
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), store.IndexUniqueSelection) {
			return store.DuplicateAssignment(sel.AnnouncementID)
		}
		return fmt.Errorf("selection %s already exists: %w", sel.ID, apperr.ErrConflict)
	}
	return mapErr(fmt.Errorf("insert into %s: %w", store.Selections, err))
}

// InsertNotification appends n.
func (s *Store) InsertNotification(ctx context.Context, n domain.Notification) error {
	return s.insert(ctx, store.Notifications, n.ID, toNotificationDoc(n))
}

// MarkAnnouncementAssigned flips an open announcement to assigned when the
// selection of courierID is stored. Selections never change once written, so
// checking before the conditional update is race free.
func (s *Store) MarkAnnouncementAssigned(ctx context.Context, announcementID, courierID string) (bool, error) {
	sel, err := s.GetSelection(ctx, announcementID)
	if err != nil {
		return false, err
	}
	if sel == nil || sel.CourierID != courierID {
		return false, nil
	}

	res, err := s.coll(store.Announcements).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: announcementID}, {Key: "status", Value: string(domain.AnnouncementOpen)}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: string(domain.AnnouncementAssigned)},
			{Key: "chosen_courier_id", Value: courierID},
		}}},
	)
	if err != nil {
		return false, mapErr(fmt.Errorf("mark announcement %s assigned: %w", announcementID, err))
	}
	return res.ModifiedCount > 0, nil
}

func findOne[D any](ctx context.Context, coll *mongo.Collection, filter bson.D) (*D, error) {
	var doc D
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, mapErr(fmt.Errorf("find in %s: %w", coll.Name(), err))
	}
	return &doc, nil
}

func findAll[D any](ctx context.Context, coll *mongo.Collection, filter bson.D, opts *options.FindOptions) ([]D, error) {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapErr(fmt.Errorf("find in %s: %w", coll.Name(), err))
	}
	var docs []D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapErr(fmt.Errorf("read %s: %w", coll.Name(), err))
	}
	return docs, nil
}

// GetAnnouncement returns the announcement or nil.
func (s *Store) GetAnnouncement(ctx context.Context, id string) (*domain.Announcement, error) {
	doc, err := findOne[announcementDoc](ctx, s.coll(store.Announcements), bson.D{{Key: "_id", Value: id}})
	if err != nil || doc == nil {
		return nil, err
	}
	a := doc.domain()
	return &a, nil
}

// ListAnnouncements returns announcements newest first.
func (s *Store) ListAnnouncements(ctx context.Context, f store.AnnouncementFilter) ([]domain.Announcement, error) {
	filter := bson.D{}
	if f.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: string(f.Status)})
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	docs, err := findAll[announcementDoc](ctx, s.coll(store.Announcements), filter, opts)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Announcement, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.domain())
	}
	return out, nil
}

// ListCandidatures returns the ranked bids of announcementID.
func (s *Store) ListCandidatures(ctx context.Context, announcementID string, limit int) ([]domain.Candidature, error) {
	opts := options.Find().SetSort(bson.D{{Key: "eta", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	docs, err := findAll[candidatureDoc](ctx, s.coll(store.Candidatures), bson.D{{Key: "announcement_id", Value: announcementID}}, opts)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Candidature, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.domain())
	}
	return out, nil
}

// GetSelection returns the selection of announcementID or nil.
func (s *Store) GetSelection(ctx context.Context, announcementID string) (*domain.Selection, error) {
	doc, err := findOne[selectionDoc](ctx, s.coll(store.Selections), bson.D{{Key: "announcement_id", Value: announcementID}})
	if err != nil || doc == nil {
		return nil, err
	}
	sel := doc.domain()
	return &sel, nil
}

// ListNotifications returns the notifications of courierID oldest first, or
// every notification when courierID is empty.
func (s *Store) ListNotifications(ctx context.Context, courierID string) ([]domain.Notification, error) {
	filter := bson.D{}
	if courierID != "" {
		filter = append(filter, bson.E{Key: "courier_id", Value: courierID})
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	docs, err := findAll[notificationDoc](ctx, s.coll(store.Notifications), filter, opts)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.domain())
	}
	return out, nil
}
