// Package orchestrator runs a fleet of courier agents next to the manager
// unit in one process.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/service/courier"
	"service-dispatch/internal/service/matching"
)

// Manager is the manager unit.
type Manager interface {
	RunBatch(ctx context.Context, jobs []matching.Job, interval time.Duration) ([]matching.Outcome, error)
}

// Plan describes one run.
type Plan struct {
	Couriers []courier.Profile
	Jobs     []matching.Job
	// Interval is the pause between jobs; negative means the manager default.
	Interval time.Duration
	// StopWhenDone stops the couriers once every job ran. Otherwise they keep
	// listening until the context is cancelled.
	StopWhenDone bool
	// ReadyTimeout bounds the wait for every courier to subscribe.
	ReadyTimeout time.Duration
}

// Report is what a run produced.
type Report struct {
	Outcomes []matching.Outcome
}

// Orchestrator wires agents and the manager on a shared store.
type Orchestrator struct {
	store   courier.EventStore
	manager Manager
	logger  logx.Logger
	metrics *metrics.Metrics
	// agentOptions are applied to every agent.
	agentOptions []courier.Option
}

// New creates an Orchestrator.
func New(st courier.EventStore, manager Manager, logger logx.Logger, m *metrics.Metrics, opts ...courier.Option) *Orchestrator {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Orchestrator{
		store:        st,
		manager:      manager,
		logger:       logger.With(logx.String("component", "orchestrator")),
		metrics:      m,
		agentOptions: opts,
	}
}

const defaultReadyTimeout = 10 * time.Second

// Run starts one goroutine per courier, waits until all of them listen and
// then runs the jobs. It returns once every unit has stopped. A failing unit
// is reported in the joined error without stopping the others.
func (o *Orchestrator) Run(ctx context.Context, plan Plan) (Report, error) {
	agents := make([]*courier.Agent, 0, len(plan.Couriers))
	for _, p := range plan.Couriers {
		opts := append([]courier.Option{
			courier.WithLogger(o.logger),
			courier.WithMetrics(o.metrics),
		}, o.agentOptions...)
		a, err := courier.NewAgent(p, o.store, opts...)
		if err != nil {
			return Report{}, fmt.Errorf("courier %q: %w", p.ID, err)
		}
		agents = append(agents, a)
	}

	agentCtx, stopAgents := context.WithCancel(ctx)
	defer stopAgents()

	// plain Group: a failing unit does not cancel the others
	var g errgroup.Group
	unitErrs := make([]error, len(agents)+1)
	stopped := make([]chan struct{}, len(agents))
	for i, a := range agents {
		stopped[i] = make(chan struct{})
		g.Go(func() error {
			defer close(stopped[i])
			if err := a.Run(agentCtx); err != nil {
				o.logger.Error("courier unit failed", logx.String("courier_id", a.Profile().ID), logx.Err(err))
				unitErrs[i] = err
			}
			return nil
		})
	}

	var report Report
	if err := o.waitReady(ctx, agents, stopped, plan.ReadyTimeout); err != nil {
		stopAgents()
		_ = g.Wait()
		return report, errors.Join(append([]error{err}, unitErrs...)...)
	}
	o.logger.Info("fleet ready", logx.Int("couriers", len(agents)), logx.Int("jobs", len(plan.Jobs)))

	g.Go(func() error {
		outcomes, err := o.manager.RunBatch(ctx, plan.Jobs, plan.Interval)
		report.Outcomes = outcomes
		if err != nil && ctx.Err() == nil {
			o.logger.Error("manager unit failed", logx.Err(err))
			unitErrs[len(agents)] = err
		}
		if plan.StopWhenDone {
			stopAgents()
		}
		return nil
	})

	_ = g.Wait()
	o.logger.Info("fleet stopped", logx.Int("outcomes", len(report.Outcomes)))
	return report, errors.Join(unitErrs...)
}

// waitReady blocks until every agent subscribed or stopped. A stopped agent
// has already recorded its error.
func (o *Orchestrator) waitReady(ctx context.Context, agents []*courier.Agent, stopped []chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for i, a := range agents {
		select {
		case <-a.Ready():
		case <-stopped[i]:
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("courier %s not ready after %s", a.Profile().ID, timeout)
		}
	}
	return nil
}
