package app

import (
	"context"
	"errors"

	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"

	"service-dispatch/internal/config"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/relay"
	"service-dispatch/internal/service/matching"
	"service-dispatch/internal/store"
	"service-dispatch/internal/transport/kafka"
)

var errNothingToRun = errors.New("worker has neither a kafka consumer nor a relay sink configured")

// WorkerRunner runs the job consumer, the relay and the reconcile loop.
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun runs the worker using the provided DI container
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

type workerIn struct {
	dig.In

	Ctx      context.Context
	Cfg      *config.Config
	Logger   logx.Logger
	Store    store.Store
	Engine   *matching.Engine
	Consumer *kafka.Consumer
	Relay    *relay.Relay
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

func workerRun(in workerIn) error {
	if in.Consumer == nil && in.Relay == nil {
		closeStore(in.Store, in.Logger)
		return errNothingToRun
	}
	defer closeWorker(in)

	g, ctx := errgroup.WithContext(in.Ctx)
	if in.Consumer != nil {
		g.Go(func() error { return in.Consumer.Run(ctx) })
	}
	if in.Relay != nil {
		g.Go(func() error { return in.Relay.Run(ctx) })
	}
	g.Go(func() error {
		runReconcileLoop(ctx, in.Engine, in.Cfg.Matching.ReconcileInterval, in.Logger)
		return nil
	})

	in.Logger.Info("dispatch-worker started",
		logx.Bool("consumer", in.Consumer != nil),
		logx.Bool("relay", in.Relay != nil),
	)
	err := g.Wait()
	if in.Ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
		in.Logger.Info("dispatch-worker stopped")
		return nil
	}
	return err
}

func closeWorker(in workerIn) {
	if in.Consumer != nil {
		if err := in.Consumer.Close(); err != nil {
			in.Logger.Error("kafka close error", logx.Err(err))
		}
	}
	if in.Relay != nil {
		if err := in.Relay.Close(); err != nil {
			in.Logger.Error("relay close error", logx.Err(err))
		}
	}
	closeStore(in.Store, in.Logger)
	_ = in.Logger.Sync()
}
