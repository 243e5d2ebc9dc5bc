package bloom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

// Serialization format:
//
//	Version (1 byte)
//	M       (8 bytes, little-endian) bit-array size in bits
//	K       (4 bytes, little-endian) hash-round count
//	Count   (8 bytes, little-endian) set-call counter
//	Words   (ceil(M/64) * 8 bytes)   bit array, little-endian uint64s
const (
	serializeVersion byte = 1
	headerSize            = 1 + 8 + 4 + 8
)

var (
	// ErrInvalidData is returned when serialized filter data is malformed.
	ErrInvalidData = errors.New("bloom: invalid serialized data")

	// ErrUnsupportedVersion is returned for an unknown serialization version.
	ErrUnsupportedVersion = errors.New("bloom: unsupported serialization version")
)

// Filter is a fixed-size bloom filter. The bit-array size m and hash-round
// count k never change after creation; Clear resets content, not geometry.
type Filter struct {
	m     uint64   // bit-array size in bits
	k     uint32   // hash rounds per key
	words []uint64 // bit array, m bits packed into 64-bit words
	count uint64   // set-call counter
}

// New creates a filter sized for the given capacity and false-positive
// probability, with a zeroed bit array.
func New(capacity uint64, fpp float64) (*Filter, error) {
	m, k, err := OptimalParams(capacity, fpp)
	if err != nil {
		return nil, err
	}
	return newWithParams(m, k), nil
}

func newWithParams(m uint64, k uint32) *Filter {
	return &Filter{
		m:     m,
		k:     k,
		words: make([]uint64, wordCount(m)),
	}
}

func wordCount(m uint64) uint64 {
	return (m + 63) / 64
}

// Set marks all k positions for key and increments the set-call counter.
// Every call counts, including keys whose bits were all set already, so the
// counter is an upper bound on distinct insertions, not an exact count.
func (f *Filter) Set(key []byte) {
	h1, h2 := hashKey(key)
	for i := uint32(0); i < f.k; i++ {
		pos := (h1 + uint64(i)*h2) % f.m
		f.words[pos/64] |= 1 << (pos % 64)
	}
	f.count++
}

// Check reports whether all k positions for key are set. False means the key
// was never set; true may be a false positive at roughly the configured rate.
func (f *Filter) Check(key []byte) bool {
	h1, h2 := hashKey(key)
	for i := uint32(0); i < f.k; i++ {
		pos := (h1 + uint64(i)*h2) % f.m
		if f.words[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// Clear zeroes the bit array and the set-call counter. m and k are unchanged.
func (f *Filter) Clear() {
	clear(f.words)
	f.count = 0
}

// Bits returns the bit-array size m.
func (f *Filter) Bits() uint64 { return f.m }

// K returns the hash-round count.
func (f *Filter) K() uint32 { return f.k }

// Count returns the set-call counter.
func (f *Filter) Count() uint64 { return f.count }

// ByteSize returns the memory footprint of the bit array in bytes.
func (f *Filter) ByteSize() uint64 { return uint64(len(f.words)) * 8 }

// FillRatio returns the proportion of bits currently set.
func (f *Filter) FillRatio() float64 {
	var set uint64
	for _, w := range f.words {
		set += uint64(bits.OnesCount64(w))
	}
	return float64(set) / float64(f.m)
}

// EstimatedFalsePositiveRate estimates the current false-positive rate from
// the set-call counter.
func (f *Filter) EstimatedFalsePositiveRate() float64 {
	return EstimateFalsePositiveRate(f.m, f.k, f.count)
}

// MarshalBinary serializes the filter. The output is self-describing: the
// header carries m, k and the counter, and the payload length is derivable
// from m, so truncation is detectable on load.
func (f *Filter) MarshalBinary() ([]byte, error) {
	buf := make([]byte, headerSize+len(f.words)*8)
	buf[0] = serializeVersion
	binary.LittleEndian.PutUint64(buf[1:9], f.m)
	binary.LittleEndian.PutUint32(buf[9:13], f.k)
	binary.LittleEndian.PutUint64(buf[13:21], f.count)

	off := headerSize
	for _, w := range f.words {
		binary.LittleEndian.PutUint64(buf[off:off+8], w)
		off += 8
	}
	return buf, nil
}

// UnmarshalBinary reconstructs a filter from MarshalBinary output. It refuses
// truncated or inconsistent data rather than loading silently-wrong state.
func UnmarshalBinary(data []byte) (*Filter, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidData, len(data), headerSize)
	}
	if data[0] != serializeVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, data[0])
	}

	m := binary.LittleEndian.Uint64(data[1:9])
	k := binary.LittleEndian.Uint32(data[9:13])
	count := binary.LittleEndian.Uint64(data[13:21])

	if m == 0 || k == 0 {
		return nil, fmt.Errorf("%w: m=%d k=%d", ErrInvalidData, m, k)
	}
	// Cap m so wordCount(m)*8 cannot overflow and allocations stay sane.
	const maxBits = uint64(1) << 46 // 8 TiB of bit array
	if m > maxBits {
		return nil, fmt.Errorf("%w: bit-array size %d too large", ErrInvalidData, m)
	}

	want := headerSize + int(wordCount(m))*8
	if len(data) != want {
		return nil, fmt.Errorf("%w: %d bytes, expected %d", ErrInvalidData, len(data), want)
	}

	f := newWithParams(m, k)
	f.count = count
	off := headerSize
	for i := range f.words {
		f.words[i] = binary.LittleEndian.Uint64(data[off : off+8])
		off += 8
	}
	return f, nil
}
