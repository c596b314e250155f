// Package relay forwards appended selections and notifications to external
// transports: selections to a Kafka topic, notifications to per-courier MQTT
// topics.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/store"
)

// Message is one outbound record.
type Message struct {
	Topic   string
	Key     string
	Payload []byte
}

// Sink delivers messages to a transport.
type Sink interface {
	Name() string
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Watcher opens the subscriptions the relay tails.
type Watcher interface {
	WatchSelections(ctx context.Context) (*store.Subscription[domain.Selection], error)
	WatchNotifications(ctx context.Context, courierID string) (*store.Subscription[domain.Notification], error)
}

// Config names the destinations. NotificationTopic may contain "{courier_id}".
type Config struct {
	SelectionTopic    string
	NotificationTopic string
}

// Defaults of Config.
const (
	DefaultSelectionTopic    = "dispatch.selections"
	DefaultNotificationTopic = "couriers/{courier_id}/notifications"
)

// Relay tails the store and publishes to its sinks. A nil sink disables that stream.
type Relay struct {
	store         Watcher
	selections    Sink
	notifications Sink
	cfg           Config
	logger        logx.Logger
	metrics       *metrics.Metrics
}

// New creates a Relay.
func New(st Watcher, selections, notifications Sink, cfg Config, logger logx.Logger, m *metrics.Metrics) *Relay {
	if cfg.SelectionTopic == "" {
		cfg.SelectionTopic = DefaultSelectionTopic
	}
	if cfg.NotificationTopic == "" {
		cfg.NotificationTopic = DefaultNotificationTopic
	}
	if logger == nil {
		logger = logx.Nop()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Relay{
		store:         st,
		selections:    selections,
		notifications: notifications,
		cfg:           cfg,
		logger:        logger.With(logx.String("component", "relay")),
		metrics:       m,
	}
}

type selectionPayload struct {
	ID             string    `json:"id"`
	AnnouncementID string    `json:"announcement_id"`
	CourierID      string    `json:"courier_id"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type notificationPayload struct {
	ID             string    `json:"id"`
	CourierID      string    `json:"courier_id"`
	Type           string    `json:"type"`
	AnnouncementID string    `json:"announcement_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// SelectionMessage encodes a selection for the selection topic.
func (r *Relay) SelectionMessage(s domain.Selection) (Message, error) {
	payload, err := json.Marshal(selectionPayload{
		ID:             s.ID,
		AnnouncementID: s.AnnouncementID,
		CourierID:      s.CourierID,
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: r.cfg.SelectionTopic, Key: s.AnnouncementID, Payload: payload}, nil
}

// NotificationMessage encodes a notification for its courier topic.
func (r *Relay) NotificationMessage(n domain.Notification) (Message, error) {
	payload, err := json.Marshal(notificationPayload{
		ID:             n.ID,
		CourierID:      n.CourierID,
		Type:           string(n.Type),
		AnnouncementID: n.AnnouncementID,
		CreatedAt:      n.CreatedAt,
	})
	if err != nil {
		return Message{}, err
	}
	topic := strings.ReplaceAll(r.cfg.NotificationTopic, "{courier_id}", n.CourierID)
	return Message{Topic: topic, Key: n.CourierID, Payload: payload}, nil
}

// Run forwards documents until ctx is done. Delivery failures are logged and
// counted; only a broken subscription stops the relay.
func (r *Relay) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if r.selections != nil {
		sub, err := r.store.WatchSelections(ctx)
		if err != nil {
			return fmt.Errorf("watch selections: %w", err)
		}
		defer sub.Close()
		g.Go(func() error { return forward(gctx, r, sub, r.selections, r.SelectionMessage) })
	}
	if r.notifications != nil {
		sub, err := r.store.WatchNotifications(ctx, "")
		if err != nil {
			return fmt.Errorf("watch notifications: %w", err)
		}
		defer sub.Close()
		g.Go(func() error { return forward(gctx, r, sub, r.notifications, r.NotificationMessage) })
	}

	r.logger.Info("relay started",
		logx.Bool("selections", r.selections != nil),
		logx.Bool("notifications", r.notifications != nil),
	)
	err := g.Wait()
	if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil
	}
	return err
}

// Close closes the configured sinks.
func (r *Relay) Close() error {
	var errs []error
	for _, s := range []Sink{r.selections, r.notifications} {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func forward[T any](ctx context.Context, r *Relay, sub *store.Subscription[T], sink Sink, encode func(T) (Message, error)) error {
	for {
		doc, err := sub.Next(ctx)
		if err != nil {
			return err
		}
		msg, err := encode(doc)
		if err != nil {
			r.logger.Error("encode relay message", logx.String("sink", sink.Name()), logx.Err(err))
			r.metrics.RelayDeliveries.WithLabelValues(sink.Name(), "failed").Inc()
			continue
		}
		if err := sink.Publish(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("relay delivery failed",
				logx.String("sink", sink.Name()),
				logx.String("topic", msg.Topic),
				logx.String("key", msg.Key),
				logx.Err(err),
			)
			r.metrics.RelayDeliveries.WithLabelValues(sink.Name(), "failed").Inc()
			continue
		}
		r.metrics.RelayDeliveries.WithLabelValues(sink.Name(), "delivered").Inc()
		r.logger.Debug("relayed", logx.String("sink", sink.Name()), logx.String("topic", msg.Topic))
	}
}
