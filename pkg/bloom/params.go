package bloom

import (
	"errors"
	"fmt"
	"math"
)

const (
	// ln2 is the natural logarithm of 2.
	ln2 = 0.6931471805599453
	// ln2Squared is ln(2)^2.
	ln2Squared = 0.4804530139182014
)

var (
	// ErrInvalidCapacity is returned when the requested capacity is below 1.
	ErrInvalidCapacity = errors.New("bloom: capacity must be at least 1")

	// ErrInvalidProbability is returned when the false-positive probability
	// is outside the open interval (0, 1).
	ErrInvalidProbability = errors.New("bloom: false-positive probability must be in (0, 1)")

	// ErrSizeOutOfRange is returned when the capacity/probability pair
	// derives a bit-array size the filter cannot represent.
	ErrSizeOutOfRange = errors.New("bloom: derived bit-array size out of range")
)

// OptimalParams derives the bit-array size m and hash-round count k for the
// given capacity and false-positive probability. The result is deterministic:
// the same inputs always produce the same (m, k).
func OptimalParams(capacity uint64, fpp float64) (m uint64, k uint32, err error) {
	if capacity < 1 {
		return 0, 0, ErrInvalidCapacity
	}
	if !(fpp > 0 && fpp < 1) || math.IsNaN(fpp) {
		return 0, 0, fmt.Errorf("%w: got %v", ErrInvalidProbability, fpp)
	}

	mf := math.Ceil(-float64(capacity) * math.Log(fpp) / ln2Squared)
	if mf < 1 || mf > math.MaxUint32*64 {
		return 0, 0, fmt.Errorf("%w: %v bits", ErrSizeOutOfRange, mf)
	}
	m = uint64(mf)

	kf := math.Round(float64(m) / float64(capacity) * ln2)
	if kf < 1 {
		kf = 1
	}
	k = uint32(kf)

	return m, k, nil
}

// EstimateFalsePositiveRate estimates the false-positive rate of a filter
// with m bits and k hash rounds after n insertions: (1 - e^(-kn/m))^k.
func EstimateFalsePositiveRate(m uint64, k uint32, n uint64) float64 {
	if m == 0 || n == 0 {
		return 0
	}
	kf := float64(k)
	return math.Pow(1-math.Exp(-kf*float64(n)/float64(m)), kf)
}
