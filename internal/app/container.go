package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	"service-dispatch/internal/config"
	"service-dispatch/internal/http/handlers"
	"service-dispatch/internal/http/middleware"
	"service-dispatch/internal/http/middleware/ratelimit"
	"service-dispatch/internal/http/pprofserver"
	"service-dispatch/internal/http/router"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/service/matching"
	"service-dispatch/internal/store"
)

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	loadConfig func() (*config.Config, error)
	openStore  StoreOpener
	logFatalf  func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		loadConfig: config.Load,
		openStore:  OpenStore,
		logFatalf:  log.Fatalf,
	}
}

// WithConfig makes the container use cfg instead of loading it.
func (b *ContainerBuilder) WithConfig(cfg *config.Config) *ContainerBuilder {
	if cfg != nil {
		b.loadConfig = func() (*config.Config, error) { return cfg, nil }
	}
	return b
}

// WithStoreOpener sets the event store factory
func (b *ContainerBuilder) WithStoreOpener(fn StoreOpener) *ContainerBuilder {
	if fn != nil {
		b.openStore = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds the API container.
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	return b.must(b.Build(ctx))
}

// MustBuildWorker builds the worker container.
func (b *ContainerBuilder) MustBuildWorker(ctx context.Context) *dig.Container {
	return b.must(b.BuildWorker(ctx))
}

func (b *ContainerBuilder) must(container *dig.Container, err error) *dig.Container {
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

// Build assembles the API container: store, engine and HTTP server.
func (b *ContainerBuilder) Build(ctx context.Context) (*dig.Container, error) {
	container, err := b.base(ctx)
	if err != nil {
		return nil, err
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

// BuildWorker assembles the worker container: store, engine, job consumer and relay.
func (b *ContainerBuilder) BuildWorker(ctx context.Context) (*dig.Container, error) {
	container, err := b.base(ctx)
	if err != nil {
		return nil, err
	}
	if err := registerWorker(container); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	return container, nil
}

func (b *ContainerBuilder) base(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx, b.loadConfig); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerStore(container, b.openStore); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if err := registerService(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds the API container from the environment.
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

// MustBuildWorkerContainer builds the worker container from the environment.
func MustBuildWorkerContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuildWorker(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func registerCore(container *dig.Container, ctx context.Context, loadConfig func() (*config.Config, error)) error {
	return provideAll(container,
		func() context.Context { return ctx },
		loadConfig,
		func(cfg *config.Config) (logx.Logger, error) { return NewLogger(cfg.Log, nil) },
		newRegistry,
		func(reg *prometheus.Registry) *metrics.Metrics { return metrics.New(reg) },
	)
}

func registerStore(container *dig.Container, open StoreOpener) error {
	return provideAll(container,
		func(ctx context.Context, cfg *config.Config, logger logx.Logger) (store.Store, error) {
			return open(ctx, cfg, logger)
		},
	)
}

func registerService(container *dig.Container) error {
	return provideAll(container,
		func(cfg *config.Config, st store.Store, logger logx.Logger, m *metrics.Metrics) *matching.Engine {
			mc := cfg.Matching
			return matching.NewEngine(st, matching.Config{
				Window:           mc.Window,
				PollInterval:     mc.PollInterval,
				BatchInterval:    mc.BatchInterval,
				OperationTimeout: mc.OperationTimeout,
			}, logger, m)
		},
	)
}

type routerIn struct {
	dig.In

	Cfg           *config.Config
	Logger        logx.Logger
	Metrics       *metrics.Metrics
	Registry      *prometheus.Registry
	Base          *handlers.Handlers
	Announcements *handlers.AnnouncementHandler
	Notifications *handlers.NotificationHandler
	RateLimit     *ratelimit.Middleware
}

func newRouter(in routerIn) http.Handler {
	return router.New(router.Config{
		RequestTimeout: in.Cfg.HTTP.RequestTimeout,
		Gatherer:       in.Registry,
	}, router.Deps{
		Base:          in.Base,
		Announcements: in.Announcements,
		Notifications: in.Notifications,
		Middlewares: []func(http.Handler) http.Handler{
			middleware.Observability(in.Logger, in.Metrics),
			in.RateLimit.Handler(),
		},
	})
}

func newServer(cfg *config.Config, mux http.Handler) *http.Server {
	// POST /announcements answers after a whole cycle; the handler caps the
	// window at MaxWindow so the cycle fits.
	write := cfg.Matching.CycleBudget() + writeMargin
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       60 * time.Second,
	}
}

// writeMargin covers encoding the response after the cycle.
const writeMargin = 5 * time.Second

func newAnnouncementHandler(cfg *config.Config, logger logx.Logger, d handlers.Dispatcher, s handlers.Spawner) *handlers.AnnouncementHandler {
	return handlers.NewAnnouncementHandler(logger, d, s, handlers.WithMaxWindow(cfg.Matching.MaxWindow))
}

type pprofOut struct {
	dig.Out

	Server *http.Server `name:"pprof_server"`
}

func newPprofServer(cfg *config.Config) pprofOut {
	return pprofOut{Server: pprofserver.NewServer(pprofserver.Config{
		Addr: cfg.Pprof.Addr,
		User: cfg.Pprof.User,
		Pass: cfg.Pprof.Pass,
	})}
}

func registerHTTP(container *dig.Container) error {
	return provideAll(container,
		handlers.New,
		handlers.NewBackground,
		func(e *matching.Engine) handlers.Dispatcher { return e },
		func(b *handlers.Background) handlers.Spawner { return b },
		newAnnouncementHandler,
		handlers.NewNotificationHandler,
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
		newRouter,
		newServer,
		newPprofServer,
	)
}
