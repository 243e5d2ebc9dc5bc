// Package shutdown provides graceful shutdown for BloomGate.
//
// This package handles process termination signals:
//
//   - Signal handling (SIGINT, SIGTERM)
//   - Timeout-based forced shutdown
//   - Cleanup callback registration, executed in reverse order
//
// Usage:
//
//	h := shutdown.NewHandler(30 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return srv.Shutdown(ctx) })
//	err := h.Wait() // blocks until a signal (or Trigger), then runs hooks
package shutdown
