package app

import (
	"context"
	"time"

	"service-dispatch/internal/logx"
)

type reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// runReconcileLoop calls r.Reconcile every interval until ctx is done.
// A non-positive interval disables the loop.
func runReconcileLoop(ctx context.Context, r reconciler, interval time.Duration, logger logx.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := r.Reconcile(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			logger.Error("reconcile failed", logx.Err(err), logx.Int("repaired", n))
		case n > 0:
			logger.Info("reconciled announcements", logx.Int("repaired", n))
		}
	}
}
