package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"service-dispatch/internal/logx"
	"service-dispatch/internal/store"
)

const (
	listenMinBackoff = 200 * time.Millisecond
	listenMaxBackoff = 5 * time.Second
)

// listener holds a dedicated connection on notifyChannel and forwards every
// payload to the notifier. Subscriptions keep polling on their interval while
// it reconnects.
type listener struct {
	connect  func(ctx context.Context) (*pgx.Conn, error)
	notifier *store.Notifier
	log      logx.Logger
}

func (l *listener) run(ctx context.Context) {
	backoff := listenMinBackoff
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.log.Warn("listen connection lost", logx.Err(err), logx.Duration("retry_in", backoff))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, listenMaxBackoff)
	}
}

func (l *listener) listen(ctx context.Context) error {
	conn, err := l.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}
	l.log.Debug("listening", logx.String("channel", notifyChannel))

	// inserts made while the connection was down
	for _, table := range notifiedTables {
		l.notifier.Notify(table)
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.notifier.Notify(n.Payload)
	}
}
