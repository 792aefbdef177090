// Package bootstrap runs a process until it is signalled and then releases what it opened.
package bootstrap

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/at-ishikawa/wandrr/internal/logger"
)

const DefaultShutdownTimeout = 10 * time.Second

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

// App owns the shutdown hooks of a process.
type App struct {
	mu              sync.Mutex
	hooks           []hook
	log             *logger.Logger
	shutdownTimeout time.Duration
}

func New(log *logger.Logger) *App {
	if log == nil {
		log = logger.NewNop()
	}
	return &App{
		log:             log.With("component", "bootstrap"),
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// AddShutdownHook registers fn under name. Hooks run in reverse order of registration.
func (a *App) AddShutdownHook(name string, fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, hook{name: name, fn: fn})
}

// AddCloser registers a hook for a resource that only needs closing.
func (a *App) AddCloser(name string, fn func() error) {
	a.AddShutdownHook(name, func(context.Context) error {
		return fn()
	})
}

// Run calls run with a context that is cancelled on SIGINT or SIGTERM. Shutdown hooks run
// once run has returned or the signal arrived, whichever comes first.
func (a *App) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancelShutdown()
	return errors.Join(runErr, a.shutdown(shutdownCtx))
}

func (a *App) shutdown(ctx context.Context) error {
	a.mu.Lock()
	hooks := a.hooks
	a.hooks = nil
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i].fn(ctx); err != nil {
			a.log.Error("shutdown hook failed", "hook", hooks[i].name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
