package packet

// PartialMeta is the subset of a transaction's metadata known before
// sigverify and execution: who sent it, who pays for it, and what it
// costs. It's staged in the partial-meta LRU keyed by PacketHash until
// a matching RemainingMeta arrives.
type PartialMeta struct {
	IP           uint32
	Signer       [32]byte
	TotalFee     uint64
	RequestedCUs uint32
}

// NewPartialMeta builds a PartialMeta from an ingress-time fee
// calculation.
func NewPartialMeta(ip uint32, signer [32]byte, totalFee uint64, requestedCUs uint32) PartialMeta {
	return PartialMeta{IP: ip, Signer: signer, TotalFee: totalFee, RequestedCUs: requestedCUs}
}

// RemainingMeta is produced by the scheduler once a transaction has
// executed (or been dropped): the hash that ties it back to its
// PartialMeta, how long it ran, and any additional caller-defined
// metadata. ExecutionNanos == 0 means the transaction was never
// scheduled.
type RemainingMeta[A any] struct {
	PacketHash     uint64
	ExecutionNanos uint64
	Additional     A
}

// unscheduledExecutionNanos is the nominal execution time imputed for
// a transaction the scheduler never ran, so value = fee/nanos stays
// finite and comparable to real executions.
const unscheduledExecutionNanos = 100_000

// TransactionMeta is the merged, complete view of a transaction's
// metadata once its RemainingMeta has arrived: who sent it, who pays,
// and the fee-per-nanosecond value the model trains on.
type TransactionMeta[A any] struct {
	IP         uint32
	Signer     [32]byte
	Value      float64
	Additional A
}

// Merge combines a staged PartialMeta with its matching RemainingMeta.
// An ExecutionNanos of zero (never scheduled) is substituted with
// unscheduledExecutionNanos so Value stays finite.
func (p PartialMeta) Merge(remaining RemainingMeta[struct{}]) TransactionMeta[struct{}] {
	nanos := remaining.ExecutionNanos
	if nanos == 0 {
		nanos = unscheduledExecutionNanos
	}
	return TransactionMeta[struct{}]{
		IP:         p.IP,
		Signer:     p.Signer,
		Value:      float64(p.TotalFee) / float64(nanos),
		Additional: remaining.Additional,
	}
}

// ScoredTransaction is the pipeline's admission-buffer element: a
// packet tagged with its computed score. The heap orders purely on
// Score; SigKey, Packet and IPv4 ride along for drain-time filtering
// and forwarding but never participate in comparisons.
type ScoredTransaction struct {
	Score  float64
	SigKey uint64
	Packet Packet
	IPv4   uint32
}

// Less orders two ScoredTransactions by Score alone, for use as the
// minmaxheap comparator.
func Less(a, b ScoredTransaction) bool {
	return a.Score < b.Score
}
