package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"CoinPull/internal/scheduler"
	"CoinPull/pkg/config"
	xhttp "CoinPull/pkg/http"
	applogger "CoinPull/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	refresher  *scheduler.Refresher
	closers    []io.Closer
}

// New creates a new App instance with all dependencies. closers are closed
// in order during shutdown.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	httpServer *xhttp.Server,
	refresher *scheduler.Refresher,
	closers ...io.Closer,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		refresher:  refresher,
		closers:    closers,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done or the
// HTTP server fails.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.refresher != nil && a.cfg.Refresher.Enabled {
		if err := a.refresher.Register(a.cfg.Refresher.Schedule); err != nil {
			a.shutdown()
			return err
		}
		a.refresher.Start(ctx)
		if a.cfg.Refresher.RunOnStart {
			go a.refresher.RunNow(ctx)
		}
	}

	a.logger.Info("coinpull started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Duration("window_ms", a.cfg.Cache.Window),
		applogger.Int("capacity", a.cfg.Cache.Capacity),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-a.httpServer.Err():
	}

	a.shutdown()
	return runErr
}

// shutdown gracefully stops all services.
func (a *App) shutdown() {
	ctx := context.Background()

	if a.refresher != nil && a.cfg.Refresher.Enabled {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		a.refresher.Stop(stopCtx)
		cancel()
	}

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
}
