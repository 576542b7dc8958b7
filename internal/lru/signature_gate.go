package lru

import (
	"encoding/binary"

	"github.com/willf/bloom"
)

// SignatureGate fronts a fixed-capacity recent-signature Cache with a
// Bloom filter, taking the "pure bloom-like membership check" the
// signature fold key is described as in the reputation model's design
// notes and making it literal: a burst of signatures that have never
// been seen is rejected by the filter alone, without ever touching the
// LRU's map or linked list.
//
// The filter is sized for capacity entries at a 0.1% false-positive
// rate and is never reset; as a result its false-positive rate rises
// slowly over the process lifetime as the LRU cycles through more
// distinct signatures than it was sized for. That's an accepted
// tradeoff, not a bug: a false positive here only costs an extra
// Cache.Contains lookup, it never causes an incorrect admit.
type SignatureGate struct {
	cache  *Cache[uint64, struct{}]
	filter *bloom.BloomFilter
}

// NewSignatureGate builds a gate over a Cache[uint64, struct{}] of the
// given capacity.
func NewSignatureGate(capacity int) *SignatureGate {
	return &SignatureGate{
		cache:  New[uint64, struct{}](capacity),
		filter: bloom.NewWithEstimates(uint(capacity), 0.001),
	}
}

// Contains reports whether key was recently inserted. A filter miss
// short-circuits without promoting anything in the LRU; a filter hit
// still has to confirm against the LRU, since the filter alone can
// false-positive.
func (g *SignatureGate) Contains(key uint64) bool {
	if !g.filter.Test(keyBytes(key)) {
		return false
	}
	return g.cache.Contains(key)
}

// Insert records key as recently seen, evicting the oldest entry if
// the underlying cache is at capacity.
func (g *SignatureGate) Insert(key uint64) {
	g.filter.Add(keyBytes(key))
	g.cache.Put(key, struct{}{})
}

// Len reports the number of signatures currently tracked by the
// underlying LRU (not an estimate — this reads the exact cache size).
func (g *SignatureGate) Len() int { return g.cache.Len() }

func keyBytes(key uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], key)
	return b[:]
}
