package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/yanqian/cruise-planner/internal/infra/config"
)

// Task is a background loop that runs for the lifetime of the server.
type Task interface {
	Run(ctx context.Context) error
}

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	tasks  []Task
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, tasks []Task) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, tasks: tasks}
}

// Run starts the background tasks and the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	taskCtx, cancelTasks := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancelTasks()
		wg.Wait()
	}()
	for _, task := range a.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			if err := t.Run(taskCtx); err != nil {
				a.logger.Error("background task stopped", "error", err)
			}
		}(task)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
