package pipeline

import (
	"github.com/temporalxyz/solana-qos/internal/lru"
	"github.com/temporalxyz/solana-qos/internal/minmaxheap"
	"github.com/temporalxyz/solana-qos/internal/packet"
)

// AdmissionBuffer is the priority queue sitting between per-packet
// scoring and the outbound ring to sigverify: a bounded min-max heap
// that sheds its lowest-scoring occupant under sustained overload, and
// drains its highest scorers on a fixed cadence.
type AdmissionBuffer struct {
	heap    *minmaxheap.Heap[packet.ScoredTransaction]
	maxSend int
	stats   *Stats
}

// NewAdmissionBuffer builds a buffer of the given capacity. maxSend
// bounds how many transactions a single DrainMax call will yield,
// independent of how many the heap currently holds.
func NewAdmissionBuffer(capacity, maxSend int, stats *Stats) *AdmissionBuffer {
	return &AdmissionBuffer{
		heap:    minmaxheap.New[packet.ScoredTransaction](capacity, packet.Less),
		maxSend: maxSend,
		stats:   stats,
	}
}

// Push admits a scored transaction. If this push fills the heap to its
// capacity, the lowest-scoring occupant (possibly this one) is
// evicted and leaked_priority is incremented.
func (a *AdmissionBuffer) Push(tx packet.ScoredTransaction) {
	if _, evicted := a.heap.Push(tx); evicted {
		a.stats.LeakedPriority.Inc()
	}
}

// DrainMax yields up to maxSend transactions in descending score
// order, skipping any whose signature is now present in
// recentSignatures (it was admitted before the scheduler confirmed it,
// then showed up in the tx-status-cache feed before this drain tick).
func (a *AdmissionBuffer) DrainMax(recentSignatures *lru.SignatureGate) []packet.ScoredTransaction {
	out := make([]packet.ScoredTransaction, 0, a.maxSend)
	for len(out) < a.maxSend {
		tx, ok := a.heap.PopMax()
		if !ok {
			break
		}
		if recentSignatures.Contains(tx.SigKey) {
			a.stats.RecentlyProcessedQueued.Inc()
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Len reports how many transactions are currently buffered.
func (a *AdmissionBuffer) Len() int { return a.heap.Len() }
