// Package matching runs the manager side of the marketplace: it publishes
// announcements, collects bids for a bounded window, picks the best one and
// records the single assignment.
package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/store"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultWindow           = 8 * time.Second
	DefaultPollInterval     = 200 * time.Millisecond
	DefaultBatchInterval    = 1500 * time.Millisecond
	DefaultOperationTimeout = 3 * time.Second
)

// Config tunes the engine.
type Config struct {
	Window           time.Duration
	PollInterval     time.Duration
	BatchInterval    time.Duration
	OperationTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.BatchInterval < 0 {
		c.BatchInterval = 0
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = DefaultOperationTimeout
	}
	return c
}

// Engine is the manager unit. It holds no state between calls; every
// decision goes through the store.
type Engine struct {
	store   EventStore
	cfg     Config
	logger  logx.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewEngine creates an Engine. A nil logger or metrics set is replaced by a no-op one.
func NewEngine(st EventStore, cfg Config, logger logx.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = logx.Nop()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Engine{
		store:   st,
		cfg:     cfg.withDefaults(),
		logger:  logger.With(logx.String("component", "matching")),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.OperationTimeout)
}

// Publish validates and appends a new open announcement.
func (e *Engine) Publish(ctx context.Context, pickup, dropoff string, reward float64) (domain.Announcement, error) {
	a, err := domain.NewAnnouncement(pickup, dropoff, reward, e.now())
	if err != nil {
		return domain.Announcement{}, err
	}
	if err := e.insertAnnouncement(ctx, a); err != nil {
		return domain.Announcement{}, err
	}
	return a, nil
}

func (e *Engine) insertAnnouncement(ctx context.Context, a domain.Announcement) error {
	opCtx, cancel := e.withTimeout(ctx)
	defer cancel()
	if err := e.store.InsertAnnouncement(opCtx, a); err != nil {
		return fmt.Errorf("publish announcement: %w", err)
	}
	e.metrics.AnnouncementsPublished.Inc()
	e.logger.Info("announcement published",
		logx.String("event", "announcement_published"),
		logx.String("announcement_id", a.ID),
		logx.String("pickup", a.Pickup),
		logx.String("dropoff", a.Dropoff),
		logx.Float64("reward", a.Reward),
	)
	return nil
}

// CollectCandidatures gathers the bids on announcementID that arrive within
// window, in arrival order. Only bids appended after the call are seen.
func (e *Engine) CollectCandidatures(ctx context.Context, announcementID string, window time.Duration) ([]domain.Candidature, error) {
	sub, err := e.store.WatchCandidatures(ctx, announcementID)
	if err != nil {
		return nil, fmt.Errorf("watch candidatures: %w", err)
	}
	defer sub.Close()
	return e.collect(ctx, sub, announcementID, window, time.Time{})
}

// collect reads sub until the window closes. Stored bids created between
// since (or the call, when since is zero) and the deadline are added at the end.
func (e *Engine) collect(ctx context.Context, sub *store.Subscription[domain.Candidature], announcementID string, window time.Duration, since time.Time) ([]domain.Candidature, error) {
	if window <= 0 {
		window = e.cfg.Window
	}
	opened := e.now()
	from := since
	if from.IsZero() {
		from = opened
	}
	deadline := time.Now().Add(window)
	var out []domain.Candidature

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		c, ok, err := sub.TryNext(ctx, min(remaining, e.cfg.PollInterval))
		if err != nil {
			return out, err
		}
		if ok && c.AnnouncementID == announcementID {
			out = append(out, c)
		}
	}

	// whatever already arrived when the window closed
	for {
		c, ok, err := sub.TryNext(ctx, 0)
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		if c.AnnouncementID == announcementID {
			out = append(out, c)
		}
	}

	return e.catchUp(ctx, announcementID, out, from, opened.Add(window)), nil
}

// catchUp adds the stored bids created inside [from, to] that the
// subscription has not handed out yet. A feed may hold rows back, e.g.
// behind a long-running transaction in Postgres; the query does not.
// Lookup failures keep what the subscription delivered.
func (e *Engine) catchUp(ctx context.Context, announcementID string, got []domain.Candidature, from, to time.Time) []domain.Candidature {
	opCtx, cancel := e.withTimeout(ctx)
	stored, err := e.store.ListCandidatures(opCtx, announcementID, 0)
	cancel()
	if err != nil {
		e.logger.Warn("list candidatures after window",
			logx.String("announcement_id", announcementID),
			logx.Err(err),
		)
		return got
	}

	seen := make(map[string]struct{}, len(got))
	for _, c := range got {
		seen[c.ID] = struct{}{}
	}
	recovered := 0
	for _, c := range stored {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		if c.CreatedAt.Before(from) || c.CreatedAt.After(to) {
			continue
		}
		seen[c.ID] = struct{}{}
		got = append(got, c)
		recovered++
	}
	if recovered > 0 {
		e.logger.Info("candidatures recovered after window",
			logx.String("announcement_id", announcementID),
			logx.Int("count", recovered),
		)
	}
	return got
}

// SelectWinner returns the bid with the lowest ETA, breaking ties by
// earliest creation and then by id. ok is false when there are no bids.
func SelectWinner(cands []domain.Candidature) (winner domain.Candidature, ok bool) {
	if len(cands) == 0 {
		return domain.Candidature{}, false
	}
	winner = cands[0]
	for _, c := range cands[1:] {
		if c.Less(winner) {
			winner = c
		}
	}
	return winner, true
}

// Assign records courierID as the winner of announcementID. The selection
// insert decides: a second attempt gets ResultAlreadyAssigned and writes
// nothing else. The announcement update and the courier notification follow
// the selection; their failures are logged and left to Reconcile. An
// unknown announcement is apperr.ErrNotFound and writes nothing.
func (e *Engine) Assign(ctx context.Context, announcementID, courierID string) (Result, error) {
	sel, err := domain.NewSelection(announcementID, courierID, e.now())
	if err != nil {
		return "", err
	}

	a, err := e.lookup(ctx, announcementID)
	if err != nil {
		return "", err
	}
	if a == nil {
		return "", fmt.Errorf("announcement %q: %w", announcementID, apperr.ErrNotFound)
	}

	opCtx, cancel := e.withTimeout(ctx)
	err = e.store.InsertSelection(opCtx, sel)
	cancel()
	if err != nil {
		if store.IsDuplicateAssignment(err) {
			e.metrics.Assignments.WithLabelValues(string(ResultAlreadyAssigned)).Inc()
			e.logger.Info("announcement already assigned",
				logx.String("event", "assignment_rejected"),
				logx.String("announcement_id", announcementID),
				logx.String("courier_id", courierID),
			)
			return ResultAlreadyAssigned, nil
		}
		return "", fmt.Errorf("insert selection: %w", err)
	}

	e.metrics.Assignments.WithLabelValues(string(ResultAssigned)).Inc()
	e.logger.Info("courier assigned",
		logx.String("event", "courier_assigned"),
		logx.String("announcement_id", announcementID),
		logx.String("courier_id", courierID),
		logx.String("selection_id", sel.ID),
	)

	e.markAssigned(ctx, announcementID, courierID)
	e.notify(ctx, announcementID, courierID)
	return ResultAssigned, nil
}

func (e *Engine) lookup(ctx context.Context, id string) (*domain.Announcement, error) {
	opCtx, cancel := e.withTimeout(ctx)
	defer cancel()
	a, err := e.store.GetAnnouncement(opCtx, id)
	if err != nil {
		return nil, fmt.Errorf("get announcement: %w", err)
	}
	return a, nil
}

func (e *Engine) markAssigned(ctx context.Context, announcementID, courierID string) {
	opCtx, cancel := e.withTimeout(ctx)
	defer cancel()
	changed, err := e.store.MarkAnnouncementAssigned(opCtx, announcementID, courierID)
	if err != nil {
		e.metrics.FollowUpErrors.WithLabelValues("projection").Inc()
		e.logger.Error("mark announcement assigned",
			logx.String("announcement_id", announcementID),
			logx.Err(err),
		)
		return
	}
	if !changed {
		e.logger.Warn("announcement was not open",
			logx.String("announcement_id", announcementID),
		)
	}
}

func (e *Engine) notify(ctx context.Context, announcementID, courierID string) {
	n, err := domain.NewAssignmentNotification(courierID, announcementID, e.now())
	if err == nil {
		opCtx, cancel := e.withTimeout(ctx)
		err = e.store.InsertNotification(opCtx, n)
		cancel()
	}
	if err != nil {
		e.metrics.FollowUpErrors.WithLabelValues("notification").Inc()
		e.logger.Error("notify assigned courier",
			logx.String("announcement_id", announcementID),
			logx.String("courier_id", courierID),
			logx.Err(err),
		)
	}
}

// RunCycle publishes job, collects bids for the window and assigns the
// winner. The bid subscription is opened before the announcement is
// appended, so no bid can slip in unseen. A keyed job whose announcement
// already exists is resumed: an open one gets a new window that also counts
// the bids of the earlier attempt, an assigned one is reported as is.
func (e *Engine) RunCycle(ctx context.Context, job Job) (Outcome, error) {
	start := time.Now()
	window := job.Window
	if window <= 0 {
		window = e.cfg.Window
	}

	a, err := domain.NewAnnouncement(job.Pickup, job.Dropoff, job.Reward, e.now())
	if err != nil {
		return Outcome{}, err
	}

	resumed := false
	if job.Key != "" {
		a.ID = domain.KeyedID(job.Key)
		prev, err := e.lookup(ctx, a.ID)
		if err != nil {
			return Outcome{}, err
		}
		if prev != nil {
			e.logger.Info("resuming announcement",
				logx.String("announcement_id", prev.ID),
				logx.String("job_key", job.Key),
				logx.String("status", string(prev.Status)),
			)
			if !prev.IsOpen() {
				return e.finish(Outcome{Announcement: *prev, Result: ResultAlreadyAssigned}, start), nil
			}
			a, resumed = *prev, true
		}
	}

	sub, err := e.store.WatchCandidatures(ctx, a.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("watch candidatures: %w", err)
	}
	defer sub.Close()

	var since time.Time
	if resumed {
		since = a.CreatedAt
	} else if err := e.insertAnnouncement(ctx, a); err != nil {
		return Outcome{}, err
	}
	out := Outcome{Announcement: a}

	cands, err := e.collect(ctx, sub, a.ID, window, since)
	out.Candidates = len(cands)
	if err != nil {
		out.Duration = time.Since(start)
		return out, err
	}
	e.metrics.CandidatesPerWindow.Observe(float64(len(cands)))

	winner, ok := SelectWinner(cands)
	if !ok {
		out.Result = ResultNoCandidates
		e.logger.Info("no candidates",
			logx.String("event", "no_candidates"),
			logx.String("announcement_id", a.ID),
			logx.Duration("window", window),
		)
		return e.finish(out, start), nil
	}

	res, err := e.Assign(ctx, a.ID, winner.CourierID)
	if err != nil {
		out.Duration = time.Since(start)
		return out, err
	}
	out.Result = res
	out.Winner = &winner
	if res == ResultAssigned {
		out.Announcement.Status = domain.AnnouncementAssigned
		out.Announcement.ChosenCourierID = winner.CourierID
	}
	return e.finish(out, start), nil
}

func (e *Engine) finish(out Outcome, start time.Time) Outcome {
	out.Duration = time.Since(start)
	e.metrics.Cycles.WithLabelValues(string(out.Result)).Inc()
	e.metrics.CycleDuration.Observe(out.Duration.Seconds())
	return out
}

// RunBatch runs jobs one after another, pausing interval between cycles. A
// failed job does not stop the batch; cancellation does.
func (e *Engine) RunBatch(ctx context.Context, jobs []Job, interval time.Duration) ([]Outcome, error) {
	if interval < 0 {
		interval = e.cfg.BatchInterval
	}
	outcomes := make([]Outcome, 0, len(jobs))
	var errs []error

	for i, job := range jobs {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return outcomes, errors.Join(append(errs, ctx.Err())...)
			case <-time.After(interval):
			}
		}

		out, err := e.RunCycle(ctx, job)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return outcomes, errors.Join(append(errs, ctxErr)...)
			}
			e.logger.Error("cycle failed", logx.Int("job", i), logx.Err(err))
			errs = append(errs, fmt.Errorf("job %d: %w", i, err))
			continue
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, errors.Join(errs...)
}

// Announcement returns the announcement with its selection and ranked bids.
func (e *Engine) Announcement(ctx context.Context, id string) (AnnouncementView, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	a, err := e.store.GetAnnouncement(ctx, id)
	if err != nil {
		return AnnouncementView{}, err
	}
	if a == nil {
		return AnnouncementView{}, apperr.ErrNotFound
	}
	sel, err := e.store.GetSelection(ctx, id)
	if err != nil {
		return AnnouncementView{}, err
	}
	cands, err := e.store.ListCandidatures(ctx, id, 0)
	if err != nil {
		return AnnouncementView{}, err
	}
	return AnnouncementView{Announcement: *a, Selection: sel, Candidatures: cands}, nil
}

// Announcements lists announcements newest first.
func (e *Engine) Announcements(ctx context.Context, status domain.AnnouncementStatus, limit int) ([]domain.Announcement, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalid, status)
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.store.ListAnnouncements(ctx, store.AnnouncementFilter{Status: status, Limit: limit})
}

// Notifications lists the notifications of courierID.
func (e *Engine) Notifications(ctx context.Context, courierID string) ([]domain.Notification, error) {
	if courierID == "" {
		return nil, fmt.Errorf("%w: courier id is required", apperr.ErrInvalid)
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.store.ListNotifications(ctx, courierID)
}
