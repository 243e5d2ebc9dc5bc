package command

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/bloomgate-go/internal/registry"
	"github.com/yndnr/bloomgate-go/internal/server/lineserver"
)

func startServer(t *testing.T) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := lineserver.NewHandler(registry.New(), 0, logger, nil)
	cfg := lineserver.DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	srv := lineserver.New(cfg, handler, logger, nil)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv.Addr().String()
}

func runCLI(t *testing.T, addr string, args ...string) string {
	t.Helper()
	app := App()
	var out bytes.Buffer
	app.Writer = &out

	argv := append([]string{"bloomgate-cli", "--server", addr}, args...)
	if err := app.Run(argv); err != nil {
		t.Fatalf("Run(%v): %v", args, err)
	}
	return strings.TrimSpace(out.String())
}

func TestCLIWorkflow(t *testing.T) {
	addr := startServer(t)

	if got := runCLI(t, addr, "create", "users"); got != "OK" {
		t.Errorf("create = %q, want OK", got)
	}
	if got := runCLI(t, addr, "create", "users"); got != "ALREADY_EXISTS" {
		t.Errorf("duplicate create = %q, want ALREADY_EXISTS", got)
	}
	if got := runCLI(t, addr, "set", "users", "alice"); got != "OK" {
		t.Errorf("set = %q, want OK", got)
	}
	if got := runCLI(t, addr, "check", "users", "alice"); got != "TRUE" {
		t.Errorf("check = %q, want TRUE", got)
	}
	if got := runCLI(t, addr, "check", "users", "bob-unset"); got != "FALSE" {
		t.Errorf("check unset = %q, want FALSE", got)
	}
	if got := runCLI(t, addr, "info", "users"); !strings.Contains(got, "count=1") {
		t.Errorf("info = %q, want count=1", got)
	}
	if got := runCLI(t, addr, "clear", "users"); got != "OK" {
		t.Errorf("clear = %q, want OK", got)
	}
	if got := runCLI(t, addr, "check", "users", "alice"); got != "FALSE" {
		t.Errorf("check after clear = %q, want FALSE", got)
	}
}

func TestCLICreateWithParams(t *testing.T) {
	addr := startServer(t)

	if got := runCLI(t, addr, "create", "-n", "5000", "-p", "0.001", "tuned"); got != "OK" {
		t.Errorf("create with params = %q, want OK", got)
	}
	got := runCLI(t, addr, "info", "tuned")
	if !strings.Contains(got, "capacity=5000") || !strings.Contains(got, "fpp=0.001") {
		t.Errorf("info = %q, want capacity=5000 fpp=0.001", got)
	}
}

func TestCLIMissingArgs(t *testing.T) {
	addr := startServer(t)

	app := App()
	app.Writer = io.Discard
	err := app.Run([]string{"bloomgate-cli", "--server", addr, "set", "users"})
	if err == nil {
		t.Error("set with one arg did not error")
	}
}

func TestCLIUnreachableServer(t *testing.T) {
	app := App()
	app.Writer = io.Discard
	err := app.Run([]string{"bloomgate-cli", "--server", "127.0.0.1:1", "info", "users"})
	if err == nil {
		t.Error("unreachable server did not error")
	}
}
