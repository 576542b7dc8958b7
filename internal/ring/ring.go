// Package ring implements a fixed-capacity single-producer/single-consumer
// transport backed by a named, mmap'd segment shared between two OS
// processes. Capacity N is a power of two; indices are masked rather
// than modulo'd.
package ring

import (
	"fmt"

	"go.uber.org/atomic"
)

// cacheLine is the padding unit used to keep the header's hot counters
// on separate cache lines, avoiding false sharing between producer and
// consumer.
const cacheLine = 64

// Header is the fixed, page-resident control block at the front of
// every segment. Each counter occupies its own cache line. padding
// reserves a user-defined region after the beat counters; the
// scheduler ring stores its hash seed in the first 8 bytes of it.
//
// Go doesn't offer repr(C)-style layout control, so the interstitial
// byte arrays below are a best-effort false-sharing guard rather than
// a guaranteed offset — correct regardless, since what matters for
// correctness is that the fields are independent atomics.
type Header struct {
	head         atomic.Uint64
	_            [cacheLine - 8]byte
	tail         atomic.Uint64
	_            [cacheLine - 8]byte
	producerBeat atomic.Uint64
	_            [cacheLine - 8]byte
	consumerBeat atomic.Uint64
	_            [cacheLine - 8]byte
	padding      [128]byte
}

// HeaderSize is the byte size of Header as laid out in a segment.
const HeaderSize = cacheLine*4 + 128

// PaddingSeed reads the scheduler ring's hash seed from the first 8
// bytes of the header's user-padding region.
func (h *Header) PaddingSeed() uint64 {
	return leUint64(h.padding[:8])
}

// SetPaddingSeed writes the hash seed into the first 8 bytes of the
// header's user-padding region. Called once by the producer at
// startup so consumers agree on the seed without out-of-band config.
func (h *Header) SetPaddingSeed(seed uint64) {
	putLEUint64(h.padding[:8], seed)
}

func leUint64(b []byte) uint64 {
	_ = b[7]
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}

func putLEUint64(b []byte, v uint64) {
	_ = b[7]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}

// Ring is the shared view of a segment: a Header plus a contiguous,
// power-of-two-sized slot array of T. It is never used directly by
// callers — Producer and Consumer each hold the half of the API their
// role is allowed to call, so a single process can't accidentally push
// and pop the same ring (spec §4.1: SPSC is the only safe
// configuration, and the design doesn't try to detect violations).
type Ring[T any] struct {
	header *Header
	slots  []T
	mask   uint64
}

func newRing[T any](header *Header, slots []T) (*Ring[T], error) {
	n := uint64(len(slots))
	if n == 0 || n&(n-1) != 0 {
		return nil, fmt.Errorf("ring: capacity %d is not a power of two", n)
	}
	return &Ring[T]{header: header, slots: slots, mask: n - 1}, nil
}

func (r *Ring[T]) capacity() uint64 { return r.mask + 1 }

// Producer owns the write side of a Ring: push, sync, and the beat
// counters. Only one goroutine in one process may hold a Producer for
// a given ring.
type Producer[T any] struct {
	ring       *Ring[T]
	headShadow uint64
}

// NewProducer wraps ring for the producer role. headShadow is
// initialized from the currently-published head so a re-attaching
// producer (e.g. after a restart joining an existing segment) resumes
// at the right position.
func NewProducer[T any](r *Ring[T]) *Producer[T] {
	return &Producer[T]{ring: r, headShadow: r.header.head.Load()}
}

// Push writes value into the next slot, busy-spinning while the ring
// is full. It does not publish the write — call Sync for that. This
// matches spec §4.1: "blocks (busy-spin) while head - tail == N".
func (p *Producer[T]) Push(value T) {
	for p.headShadow-p.ring.header.tail.Load() == p.ring.capacity() {
		// busy-spin: consumer hasn't advanced tail yet.
	}
	p.ring.slots[p.headShadow&p.ring.mask] = value
	p.headShadow++
}

// TryPush is the non-blocking variant: it returns false instead of
// spinning when the ring is full.
func (p *Producer[T]) TryPush(value T) bool {
	if p.headShadow-p.ring.header.tail.Load() == p.ring.capacity() {
		return false
	}
	p.ring.slots[p.headShadow&p.ring.mask] = value
	p.headShadow++
	return true
}

// Sync publishes the local head shadow to the shared header, making
// prior Push calls visible to the consumer.
func (p *Producer[T]) Sync() {
	p.ring.header.head.Store(p.headShadow)
}

// Beat increments the producer's heartbeat counter. Callers should
// sample this on a coarse cadence (spec §4.1: "≥ 1s"), not per packet.
func (p *Producer[T]) Beat() {
	p.ring.header.producerBeat.Inc()
}

// ConsumerHeartbeat reports whether the consumer side has ever beaten,
// i.e. whether a consumer process is plausibly alive. Returns false
// until the first consumer beat is observed.
func (p *Producer[T]) ConsumerHeartbeat() bool {
	return p.ring.header.consumerBeat.Load() > 0
}

// SetSeed stores seed in the header's user-padding region (the
// scheduler ring's convention for sharing the hasher's seed between
// producer and consumer processes without out-of-band configuration).
func (p *Producer[T]) SetSeed(seed uint64) {
	p.ring.header.SetPaddingSeed(seed)
}

// Consumer owns the read side of a Ring: pop and the beat/tail
// publication counters.
type Consumer[T any] struct {
	ring       *Ring[T]
	tailShadow uint64
}

// NewConsumer wraps ring for the consumer role.
func NewConsumer[T any](r *Ring[T]) *Consumer[T] {
	return &Consumer[T]{ring: r, tailShadow: r.header.tail.Load()}
}

// Pop returns the next published value, or false if the ring is
// currently empty (head == local tail shadow).
func (c *Consumer[T]) Pop() (T, bool) {
	var zero T
	head := c.ring.header.head.Load()
	if head == c.tailShadow {
		return zero, false
	}
	v := c.ring.slots[c.tailShadow&c.ring.mask]
	c.tailShadow++
	return v, true
}

// Sync publishes the local tail shadow to the shared header. Callers
// should do this periodically (e.g. once per poll batch), not after
// every Pop, to keep cache-line traffic down.
func (c *Consumer[T]) Sync() {
	c.ring.header.tail.Store(c.tailShadow)
}

// Beat increments the consumer's heartbeat counter.
func (c *Consumer[T]) Beat() {
	c.ring.header.consumerBeat.Inc()
}

// ProducerHeartbeat reports whether a producer has ever beaten.
func (c *Consumer[T]) ProducerHeartbeat() bool {
	return c.ring.header.producerBeat.Load() > 0
}

// Seed reads the hash seed from the header's user-padding region.
func (c *Consumer[T]) Seed() uint64 {
	return c.ring.header.PaddingSeed()
}

// Len reports the number of unconsumed elements visible to this
// consumer as of the last observed head.
func (c *Consumer[T]) Len() uint64 {
	return c.ring.header.head.Load() - c.tailShadow
}
