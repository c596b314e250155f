package handlers

import (
	"context"
	"sync"
)

// Background runs spawned work under a long-lived context and lets the
// server wait for it on shutdown.
type Background struct {
	ctx context.Context
	wg  sync.WaitGroup
}

// NewBackground binds spawned work to ctx.
func NewBackground(ctx context.Context) *Background {
	return &Background{ctx: ctx}
}

// Go runs fn in its own goroutine.
func (b *Background) Go(fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn(b.ctx)
	}()
}

// Wait blocks until every spawned function has returned.
func (b *Background) Wait() {
	b.wg.Wait()
}
