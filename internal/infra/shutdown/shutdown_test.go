package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"
)

func waitFor(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return in time")
		return nil
	}
}

func TestHooksRunInReverseOrder(t *testing.T) {
	h := NewHandler(5 * time.Second)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}
	h.OnShutdown(record("storage"))
	h.OnShutdown(record("proto"))
	h.OnShutdown(record("http"))

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()
	h.Trigger()

	if err := waitFor(t, errCh); err != nil {
		t.Errorf("Wait: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"http", "proto", "storage"}
	if len(order) != len(want) {
		t.Fatalf("ran %d hooks, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done not closed after Wait returned")
	}
}

func TestHookErrorsAreJoined(t *testing.T) {
	h := NewHandler(5 * time.Second)

	errProto := errors.New("proto close failed")
	errStore := errors.New("store close failed")
	h.OnShutdown(func(context.Context) error { return errStore })
	h.OnShutdown(func(context.Context) error { return errProto })
	h.OnShutdown(func(context.Context) error { return nil })

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()
	h.Trigger()

	err := waitFor(t, errCh)
	if !errors.Is(err, errProto) || !errors.Is(err, errStore) {
		t.Errorf("Wait error = %v, want both hook errors", err)
	}
}

func TestWaitOnSignal(t *testing.T) {
	h := NewHandler(5 * time.Second)

	ran := make(chan struct{})
	h.OnShutdown(func(context.Context) error {
		close(ran)
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()

	// Give Wait time to install its signal handler.
	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	if err := waitFor(t, errCh); err != nil {
		t.Errorf("Wait: %v", err)
	}
	select {
	case <-ran:
	default:
		t.Error("hook did not run on SIGTERM")
	}
}

func TestTriggerIsIdempotent(t *testing.T) {
	h := NewHandler(time.Second)

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()

	h.Trigger()
	h.Trigger()

	if err := waitFor(t, errCh); err != nil {
		t.Errorf("Wait: %v", err)
	}
}

func TestConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(time.Second)

	const goroutines = 10
	var (
		wg  sync.WaitGroup
		ran sync.WaitGroup
	)
	ran.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown(func(context.Context) error {
				ran.Done()
				return nil
			})
		}()
	}
	wg.Wait()

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()
	h.Trigger()

	if err := waitFor(t, errCh); err != nil {
		t.Errorf("Wait: %v", err)
	}
	ran.Wait()
}
