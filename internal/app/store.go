package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/config"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/store"
	"service-dispatch/internal/store/memstore"
	"service-dispatch/internal/store/mongostore"
	"service-dispatch/internal/store/pgstore"
)

// StoreOpener opens the event store selected by cfg.
type StoreOpener func(ctx context.Context, cfg *config.Config, logger logx.Logger) (store.Store, error)

var (
	newPool   = pgstore.NewPool
	openMongo = mongostore.Open
)

const attemptTimeout = 5 * time.Second

// OpenStore connects to the configured backend, retrying transient failures,
// and declares its indexes.
func OpenStore(ctx context.Context, cfg *config.Config, logger logx.Logger) (store.Store, error) {
	st, err := dialStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureIndexes(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return st, nil
}

func dialStore(ctx context.Context, cfg *config.Config, logger logx.Logger) (store.Store, error) {
	sc := cfg.Store
	poll := cfg.Matching.PollInterval

	switch sc.Backend {
	case config.BackendMemory:
		return memstore.New(memstore.WithPollInterval(poll)), nil

	case config.BackendPostgres:
		pool, err := connectWithRetry(ctx, logger, "postgres", sc.ConnectAttempts, sc.ConnectDelay,
			func(ctx context.Context) (*pgxpool.Pool, error) {
				return newPool(ctx, sc.DB.ConnString())
			})
		if err != nil {
			return nil, err
		}
		return pgstore.New(pool,
			pgstore.WithLogger(logger),
			pgstore.WithPollInterval(poll),
		), nil

	case config.BackendMongo:
		st, err := connectWithRetry(ctx, logger, "mongo", sc.ConnectAttempts, sc.ConnectDelay,
			func(ctx context.Context) (*mongostore.Store, error) {
				return openMongo(ctx, sc.Mongo.URI, sc.Mongo.Database,
					mongostore.WithLogger(logger),
					mongostore.WithPollInterval(poll),
					mongostore.WithMaxAwait(sc.Mongo.MaxAwait),
				)
			})
		if err != nil {
			return nil, err
		}
		return st, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

func connectWithRetry[T any](
	ctx context.Context,
	logger logx.Logger,
	name string,
	attempts int,
	delay time.Duration,
	connect func(context.Context) (T, error),
) (T, error) {
	var zero T
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		conn, err := connect(attemptCtx)
		cancel()
		if err == nil {
			logger.Info("store connected", logx.String("backend", name), logx.Int("attempt", i))
			return conn, nil
		}
		lastErr = err
		logger.Warn("store connect failed",
			logx.String("backend", name),
			logx.Int("attempt", i),
			logx.Int("attempts", attempts),
			logx.Err(err),
		)
		if i < attempts {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, fmt.Errorf("%s connect failed after %d attempts: %w", name, attempts, lastErr)
}
