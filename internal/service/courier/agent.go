// Package courier implements the courier agent: it listens for open
// announcements, bids on the ones its policy accepts and reacts to the
// assignment notifications addressed to it.
package courier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
)

// State is the agent's position in its listen/decide loop.
type State int32

// List of agent states
const (
	Listening State = iota
	Deciding
)

func (s State) String() string {
	switch s {
	case Listening:
		return "listening"
	case Deciding:
		return "deciding"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Agent is one courier. Run it in its own goroutine.
type Agent struct {
	profile    Profile
	store      EventStore
	policy     Policy
	logger     logx.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	onAssigned func(domain.Notification)

	state     atomic.Int32
	ready     chan struct{}
	readyOnce sync.Once
}

// Option configures an Agent.
type Option func(*Agent)

// WithPolicy replaces the default random policy.
func WithPolicy(p Policy) Option {
	return func(a *Agent) {
		if p != nil {
			a.policy = p
		}
	}
}

// WithLogger sets the agent logger.
func WithLogger(l logx.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics sets the metrics set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Agent) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithOnAssigned registers a hook called for every assignment received.
func WithOnAssigned(fn func(domain.Notification)) Option {
	return func(a *Agent) { a.onAssigned = fn }
}

// NewAgent validates the profile and builds an agent. Without WithPolicy the
// agent bids randomly with the profile's accept rate.
func NewAgent(p Profile, st EventStore, opts ...Option) (*Agent, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	a := &Agent{
		profile: p,
		store:   st,
		logger:  logx.Nop(),
		now:     func() time.Time { return time.Now().UTC() },
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.policy == nil {
		policy, err := NewRandomPolicy(p.AcceptRate, DefaultMinETA, DefaultMaxETA, time.Now().UnixNano())
		if err != nil {
			return nil, err
		}
		a.policy = policy
	}
	if a.metrics == nil {
		a.metrics = metrics.New(nil)
	}
	a.logger = a.logger.With(logx.String("courier_id", p.ID), logx.String("courier", p.DisplayName()))
	return a, nil
}

// Profile returns the agent's profile.
func (a *Agent) Profile() Profile { return a.profile }

// State returns the current state.
func (a *Agent) State() State { return State(a.state.Load()) }

// Ready is closed once both subscriptions are open.
func (a *Agent) Ready() <-chan struct{} { return a.ready }

// Run consumes announcements and notifications until ctx is done. It
// returns nil on cancellation and an error when a subscription fails.
func (a *Agent) Run(ctx context.Context) error {
	announcements, err := a.store.WatchAnnouncements(ctx)
	if err != nil {
		return fmt.Errorf("courier %s: watch announcements: %w", a.profile.ID, err)
	}
	defer announcements.Close()

	notifications, err := a.store.WatchNotifications(ctx, a.profile.ID)
	if err != nil {
		return fmt.Errorf("courier %s: watch notifications: %w", a.profile.ID, err)
	}
	defer notifications.Close()

	a.readyOnce.Do(func() { close(a.ready) })
	a.logger.Info("courier listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			ann, err := announcements.Next(gctx)
			if err != nil {
				return err
			}
			if err := a.OnAnnouncement(gctx, ann); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				a.logger.Error("handle announcement", logx.String("announcement_id", ann.ID), logx.Err(err))
			}
		}
	})
	g.Go(func() error {
		for {
			n, err := notifications.Next(gctx)
			if err != nil {
				return err
			}
			a.OnNotification(n)
		}
	})

	err = g.Wait()
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		a.logger.Info("courier stopped")
		return nil
	}
	return fmt.Errorf("courier %s: %w", a.profile.ID, err)
}

// OnAnnouncement asks the policy about an announcement and bids when it accepts.
func (a *Agent) OnAnnouncement(ctx context.Context, ann domain.Announcement) error {
	if !ann.IsOpen() {
		return nil
	}
	a.state.Store(int32(Deciding))
	defer a.state.Store(int32(Listening))

	d, err := a.policy.Decide(ctx, ann)
	if err != nil {
		return fmt.Errorf("decide: %w", err)
	}
	if !d.Accept {
		a.metrics.Candidatures.WithLabelValues("declined").Inc()
		a.logger.Debug("announcement declined", logx.String("announcement_id", ann.ID))
		return nil
	}

	c, err := domain.NewCandidature(ann.ID, a.profile.ID, a.profile.DisplayName(), d.ETA, a.now())
	if err != nil {
		return err
	}
	if err := a.store.InsertCandidature(ctx, c); err != nil {
		return fmt.Errorf("insert candidature: %w", err)
	}
	a.metrics.Candidatures.WithLabelValues("accepted").Inc()
	a.logger.Info("candidature sent",
		logx.String("event", "candidature_sent"),
		logx.String("announcement_id", ann.ID),
		logx.Int("eta", d.ETA),
	)
	return nil
}

// OnNotification handles a notification. Notifications for other couriers
// are ignored.
func (a *Agent) OnNotification(n domain.Notification) {
	if n.CourierID != a.profile.ID {
		return
	}
	if n.Type != domain.NotificationAssignment {
		a.logger.Debug("notification ignored", logx.String("type", string(n.Type)))
		return
	}
	a.logger.Info("assignment received",
		logx.String("event", "assignment_received"),
		logx.String("announcement_id", n.AnnouncementID),
	)
	if a.onAssigned != nil {
		a.onAssigned(n)
	}
}
