// Package bloom implements the bloom filter math engine for BloomGate.
//
// A filter is sized once at creation from a target capacity n and a target
// false-positive probability p:
//
//	m = ceil(-n * ln(p) / ln(2)^2)   bits in the array
//	k = round((m / n) * ln(2))       hash rounds, at least 1
//
// Bit positions for a key are derived from a single 128-bit murmur3 hash
// split into halves h1 and h2, with position i = (h1 + i*h2) mod m (double
// hashing). Identical keys and parameters always yield identical positions,
// including across a snapshot/load cycle.
//
// Filter is not safe for concurrent use; callers synchronize access.
package bloom
