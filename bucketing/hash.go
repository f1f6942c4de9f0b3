// Package bucketing implements the bucket hasher (C1) and bucket-key builder (C2): the
// pure function that maps a context to a stable integer in [0, 100000).
package bucketing

import "github.com/spaolacci/murmur3"

// hashSeed is fixed at 1 so the hash is wire-compatible across client implementations;
// changing it would silently reassign every user, per spec §4.1.
const hashSeed uint32 = 1

// maxBucket is the exclusive upper bound of the bucket range.
const maxBucket = 100000

// Hash maps a bucket-key string to an integer in [0, 100000) using MurmurHash v3 (32-bit,
// seed=1) of the UTF-8 bytes of key, then (hash_unsigned * 100000) / 2^32 using unsigned
// 64-bit arithmetic, truncating to integer.
func Hash(key string) int {
	h := murmur3.Sum32WithSeed([]byte(key), hashSeed)
	scaled := (uint64(h) * maxBucket) / (uint64(1) << 32)
	return int(scaled)
}
