package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Handler runs registered cleanup hooks when the process receives SIGINT or
// SIGTERM. Hooks run in reverse registration order under one shared
// deadline, so components registered early (storage) stop after the ones
// registered late (listeners) that feed them.
type Handler struct {
	timeout time.Duration

	mu    sync.Mutex
	hooks []func(context.Context) error

	trigger chan struct{}
	once    sync.Once
	done    chan struct{}
}

// NewHandler creates a shutdown handler. timeout bounds the combined
// runtime of all hooks.
func NewHandler(timeout time.Duration) *Handler {
	return &Handler{
		timeout: timeout,
		trigger: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers a cleanup hook. Safe for concurrent use.
func (h *Handler) OnShutdown(hook func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// Trigger starts the shutdown sequence without an operating system signal.
// Subsequent calls are no-ops.
func (h *Handler) Trigger() {
	h.once.Do(func() { close(h.trigger) })
}

// Wait blocks until SIGINT, SIGTERM, or Trigger, then runs every hook in
// reverse registration order. Hook failures do not stop the sequence; all
// errors are joined into the return value.
func (h *Handler) Wait() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case <-h.trigger:
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := append([]func(context.Context) error(nil), h.hooks...)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	close(h.done)
	return errors.Join(errs...)
}

// Done returns a channel that closes once every hook has run.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
