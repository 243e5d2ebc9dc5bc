package domain

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestNewFilterInvalidParams(t *testing.T) {
	tests := []struct {
		name     string
		capacity uint64
		fpp      float64
	}{
		{"zero capacity", 0, 0.01},
		{"zero fpp", 1000, 0},
		{"fpp one", 1000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFilter("f", tt.capacity, tt.fpp)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("NewFilter error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestFilterSetCheckClear(t *testing.T) {
	f, err := NewFilter("users", 1000, 0.01)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	f.Set([]byte("alice"))
	if !f.Check([]byte("alice")) {
		t.Fatal("Check(alice) = false after Set")
	}

	f.Clear()
	info := f.Info()
	if info.Count != 0 || info.Hits != 0 || info.Misses != 0 {
		t.Errorf("counters after Clear = (%d, %d, %d), want zeros", info.Count, info.Hits, info.Misses)
	}

	// A post-Clear lookup misses and is counted as such.
	if f.Check([]byte("alice")) {
		t.Error("Check(alice) = true after Clear")
	}
	if got := f.Info().Misses; got != 1 {
		t.Errorf("Misses after post-Clear Check = %d, want 1", got)
	}
}

func TestFilterInfo(t *testing.T) {
	f, err := NewFilter("users", 10000, 0.01)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	f.Set([]byte("a"))
	f.Set([]byte("b"))
	f.Check([]byte("a")) // hit
	f.Check([]byte("z")) // miss (overwhelmingly likely at this fill level)

	info := f.Info()
	if info.Name != "users" {
		t.Errorf("Name = %q, want users", info.Name)
	}
	if info.Capacity != 10000 || info.FPP != 0.01 {
		t.Errorf("params = (%d, %v), want (10000, 0.01)", info.Capacity, info.FPP)
	}
	if info.Bits != 95851 || info.Hashes != 7 {
		t.Errorf("geometry = (%d, %d), want (95851, 7)", info.Bits, info.Hashes)
	}
	if info.Count != 2 {
		t.Errorf("Count = %d, want 2", info.Count)
	}
	if info.Hits != 1 || info.Misses != 1 {
		t.Errorf("hits/misses = (%d, %d), want (1, 1)", info.Hits, info.Misses)
	}
	if info.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

func TestFilterStateRoundTrip(t *testing.T) {
	f, err := NewFilter("events", 500, 0.02)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	for i := 0; i < 200; i++ {
		f.Set([]byte(fmt.Sprintf("ev-%d", i)))
	}
	f.Check([]byte("ev-0"))

	st, err := f.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}

	g, err := RestoreFilter(st)
	if err != nil {
		t.Fatalf("RestoreFilter: %v", err)
	}

	if got, want := g.Info(), f.Info(); got != want {
		t.Fatalf("restored Info = %+v, want %+v", got, want)
	}
	for i := 0; i < 400; i++ {
		key := []byte(fmt.Sprintf("ev-%d", i))
		if g.Check(key) != f.Check(key) {
			t.Fatalf("Check(%s) differs after restore", key)
		}
	}
}

func TestFilterRestoreRejectsCorruptData(t *testing.T) {
	f, err := NewFilter("x", 100, 0.01)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	st, err := f.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}

	st.FilterData = st.FilterData[:len(st.FilterData)-4]
	if _, err := RestoreFilter(st); err == nil {
		t.Error("RestoreFilter accepted truncated filter data")
	}
}

func TestFilterConcurrentSetCheck(t *testing.T) {
	f, err := NewFilter("conc", 20000, 0.01)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	const (
		writers = 8
		perW    = 1000
	)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perW; i++ {
				key := []byte(fmt.Sprintf("w%d-k%d", w, i))
				f.Set(key)
				if !f.Check(key) {
					t.Errorf("Check(%s) = false immediately after Set", key)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	// Every set key checks true once all writers are done.
	for w := 0; w < writers; w++ {
		for i := 0; i < perW; i++ {
			key := []byte(fmt.Sprintf("w%d-k%d", w, i))
			if !f.Check(key) {
				t.Fatalf("Check(%s) = false after all sets completed", key)
			}
		}
	}

	if got := f.Info().Count; got != writers*perW {
		t.Errorf("Count = %d, want %d", got, writers*perW)
	}
}
