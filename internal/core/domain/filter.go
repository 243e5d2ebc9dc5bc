package domain

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/bloomgate-go/pkg/bloom"
)

// Filter is a named bloom filter safe for concurrent use.
//
// The bit array is guarded by a reader/writer lock: Set serializes against
// other Sets and against Checks on the same filter, while Checks on the same
// filter proceed concurrently. Filters are independent of each other, so
// operations on different names never contend. Every lock hold is
// O(bit-array access); no lock is ever held across disk I/O.
//
// Hit and miss counters are atomics so Check can update them under the read
// lock.
type Filter struct {
	name      string
	capacity  uint64
	fpp       float64
	createdAt time.Time

	mu   sync.RWMutex
	bits *bloom.Filter

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Info is a point-in-time view of a filter's parameters and counters.
type Info struct {
	Name      string    `json:"name"`
	Capacity  uint64    `json:"capacity"`
	FPP       float64   `json:"fpp"`
	Bits      uint64    `json:"bits"`
	Hashes    uint32    `json:"hashes"`
	Count     uint64    `json:"count"`
	Hits      uint64    `json:"hits"`
	Misses    uint64    `json:"misses"`
	CreatedAt time.Time `json:"created_at"`
}

// State is a transferable copy of a filter's full state, taken under the
// filter lock and released before any slow work. FilterData is the bloom
// engine's binary encoding (bit array, geometry, set counter).
type State struct {
	Name       string
	Capacity   uint64
	FPP        float64
	CreatedAt  time.Time
	Hits       uint64
	Misses     uint64
	FilterData []byte
}

// NewFilter creates a filter sized for capacity and fpp.
// Returns ErrInvalidParameter when the sizing math rejects the inputs.
func NewFilter(name string, capacity uint64, fpp float64) (*Filter, error) {
	bits, err := bloom.New(capacity, fpp)
	if err != nil {
		return nil, ErrInvalidParameter.WithCause(err)
	}
	return &Filter{
		name:      name,
		capacity:  capacity,
		fpp:       fpp,
		createdAt: time.Now().UTC(),
		bits:      bits,
	}, nil
}

// RestoreFilter reconstructs a filter from snapshot state.
func RestoreFilter(st State) (*Filter, error) {
	bits, err := bloom.UnmarshalBinary(st.FilterData)
	if err != nil {
		return nil, err
	}
	f := &Filter{
		name:      st.Name,
		capacity:  st.Capacity,
		fpp:       st.FPP,
		createdAt: st.CreatedAt,
		bits:      bits,
	}
	f.hits.Store(st.Hits)
	f.misses.Store(st.Misses)
	return f, nil
}

// Name returns the filter's registry name.
func (f *Filter) Name() string { return f.name }

// Set marks the key as present. Never fails once the filter exists.
func (f *Filter) Set(key []byte) {
	f.mu.Lock()
	f.bits.Set(key)
	f.mu.Unlock()
}

// Check reports whether the key may have been set. A false result is
// authoritative; a true result may be a false positive.
func (f *Filter) Check(key []byte) bool {
	f.mu.RLock()
	ok := f.bits.Check(key)
	f.mu.RUnlock()

	if ok {
		f.hits.Add(1)
	} else {
		f.misses.Add(1)
	}
	return ok
}

// Clear zeroes the bit array and all counters. Geometry is unchanged; this
// is a content reset, not a resize.
func (f *Filter) Clear() {
	f.mu.Lock()
	f.bits.Clear()
	f.mu.Unlock()

	f.hits.Store(0)
	f.misses.Store(0)
}

// Info returns the filter's parameters and counters. No side effects.
func (f *Filter) Info() Info {
	f.mu.RLock()
	bits, hashes, count := f.bits.Bits(), f.bits.K(), f.bits.Count()
	f.mu.RUnlock()

	return Info{
		Name:      f.name,
		Capacity:  f.capacity,
		FPP:       f.fpp,
		Bits:      bits,
		Hashes:    hashes,
		Count:     count,
		Hits:      f.hits.Load(),
		Misses:    f.misses.Load(),
		CreatedAt: f.createdAt,
	}
}

// State copies the filter's full state into a transferable buffer. The lock
// is held only for the copy so that snapshotting never stalls commands for
// the duration of disk I/O.
func (f *Filter) State() (State, error) {
	f.mu.RLock()
	data, err := f.bits.MarshalBinary()
	f.mu.RUnlock()
	if err != nil {
		return State{}, err
	}

	return State{
		Name:       f.name,
		Capacity:   f.capacity,
		FPP:        f.fpp,
		CreatedAt:  f.createdAt,
		Hits:       f.hits.Load(),
		Misses:     f.misses.Load(),
		FilterData: data,
	}, nil
}
