package bloom

import "github.com/spaolacci/murmur3"

// hashKey computes the 128-bit murmur3 hash of key and returns its two
// 64-bit halves. Double hashing derives position i as (h1 + i*h2) mod m;
// the linear combination wraps on uint64 overflow, which is deterministic
// and keeps the positions well distributed.
func hashKey(key []byte) (h1, h2 uint64) {
	return murmur3.Sum128(key)
}
