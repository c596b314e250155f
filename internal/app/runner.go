package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"go.uber.org/dig"

	"service-dispatch/internal/config"
	"service-dispatch/internal/http/handlers"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/service/matching"
	"service-dispatch/internal/store"
)

// MustRun starts the HTTP API using the provided DI container
func MustRun(container *dig.Container) {
	if err := run(container); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			log.Println("shutdown requested, exiting")
			return
		case errors.Is(err, context.DeadlineExceeded):
			log.Println("startup aborted: startup timeout exceeded")
			return
		default:
			log.Fatalf("run error: %v", err)
		}
	}
}

type apiIn struct {
	dig.In

	Ctx        context.Context
	Cfg        *config.Config
	Logger     logx.Logger
	Server     *http.Server
	Pprof      *http.Server `name:"pprof_server" optional:"true"`
	Store      store.Store
	Engine     *matching.Engine
	Background *handlers.Background
}

func run(container *dig.Container) error {
	return container.Invoke(apiRun)
}

func apiRun(in apiIn) error {
	logger := in.Logger
	ctx, cancel := context.WithCancel(in.Ctx)
	defer cancel()

	serveErr := make(chan error, 2)
	startServer(in.Server, logger, "dispatch-api", serveErr)
	if in.Pprof != nil {
		startServer(in.Pprof, logger, "pprof", serveErr)
	}

	reconciled := make(chan struct{})
	go func() {
		defer close(reconciled)
		runReconcileLoop(ctx, in.Engine, in.Cfg.Matching.ReconcileInterval, logger)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down dispatch-api")
	case runErr = <-serveErr:
		logger.Error("listener failed, shutting down", logx.Err(runErr))
	}
	cancel()

	timeout := in.Cfg.HTTP.ShutdownTimeout
	gracefulShutdown(in.Server, logger, timeout)
	if in.Pprof != nil {
		gracefulShutdown(in.Pprof, logger, timeout)
	}
	<-reconciled
	in.Background.Wait()
	closeStore(in.Store, logger)
	_ = logger.Sync()
	return runErr
}

func startServer(server *http.Server, logger logx.Logger, name string, errc chan<- error) {
	go func() {
		logger.Info("listening", logx.String("server", name), logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error("graceful shutdown error", logx.String("addr", srv.Addr), logx.Err(err))
		if err := srv.Close(); err != nil {
			logger.Error("server close error", logx.Err(err))
		}
	}
}

func closeStore(st store.Store, logger logx.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("store close error", logx.Err(err))
	}
}
