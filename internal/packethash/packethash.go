// Package packethash computes the seeded 64-bit packet hash used for
// dedup-LRU keys, and the unseeded signature fold key used for
// recent-signature filtering.
package packethash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Hasher wraps a seeded xxhash digest. A producer and consumer process
// must agree on the seed out of band (the ring's header padding
// carries it) for their packet hashes to line up.
type Hasher struct {
	seed uint64
}

// New builds a Hasher for the given seed.
func New(seed uint64) *Hasher {
	return &Hasher{seed: seed}
}

// Seed returns the seed this hasher was built with.
func (h *Hasher) Seed() uint64 { return h.seed }

// PacketHash hashes payload[:size] concatenated with size as 8
// little-endian bytes and the raw 4-byte ipv4 address. Port and flags
// never enter the hash, so two packets differing only in those fields
// collide by design.
func (h *Hasher) PacketHash(payload []byte, size uint32, ipv4 [4]byte) uint64 {
	d := xxhash.NewWithSeed(h.seed)
	d.Write(payload[:size])

	var sizeBuf [8]byte
	binary.LittleEndian.PutUint64(sizeBuf[:], uint64(size))
	d.Write(sizeBuf[:])

	d.Write(ipv4[:])

	return d.Sum64()
}

// SigKey XOR-folds a 64-byte signature into a 64-bit key: eight 8-byte
// lanes XORed together. This is explicitly collision-tolerant, not
// injective — a bloom-like membership check for recent-signature
// filtering, not a cryptographic digest.
func SigKey(signature [64]byte) uint64 {
	var key uint64
	for lane := 0; lane < 8; lane++ {
		key ^= binary.LittleEndian.Uint64(signature[lane*8 : lane*8+8])
	}
	return key
}
