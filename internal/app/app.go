// Package app wires the configuration, logger, storage, service and router
// of the todo service and runs the HTTP server until a shutdown signal.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/patric-chuzhbe/todoplan/internal/config"
	"github.com/patric-chuzhbe/todoplan/internal/db/memorystorage"
	"github.com/patric-chuzhbe/todoplan/internal/db/storage"
	"github.com/patric-chuzhbe/todoplan/internal/ipchecker"
	"github.com/patric-chuzhbe/todoplan/internal/logger"
	"github.com/patric-chuzhbe/todoplan/internal/router"
	"github.com/patric-chuzhbe/todoplan/internal/service"
)

// App holds everything needed to serve the todo API.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	httpHandler http.Handler
}

// New loads the configuration, initializes the logger and builds the
// handler chain on top of an in-memory storage.
func New(options ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(options...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel, app.cfg.LogFile)
	if err != nil {
		return nil, err
	}

	app.db, err = memorystorage.New()
	if err != nil {
		return nil, err
	}

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	app.httpHandler = router.New(
		service.New(app.db, app.cfg.FreePlanTodoLimit),
		checker,
		app.cfg.CORSMaxAge,
	)

	return app, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run starts the HTTP server with graceful shutdown support.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.serve(ctx)
}

func (a *App) serve(ctx context.Context) error {
	logger.Log.Infow("server running",
		"RunAddr", a.cfg.RunAddr,
		"FreePlanTodoLimit", a.cfg.FreePlanTodoLimit,
	)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Close flushes the logger.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}
