package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stats counts every outcome the pipeline's per-packet routine and
// feedback consumers can produce. It replaces the spinlock-guarded
// export the source code itself flags as non-robust: Prometheus
// counters are lock-free to increment and already double-buffered by
// the scrape/collect boundary.
type Stats struct {
	TotalPackets             prometheus.Counter
	NonIPv4                  prometheus.Counter
	NonTransactionPacket     prometheus.Counter
	RecentlyProcessed        prometheus.Counter
	RecentlyProcessedQueued  prometheus.Counter
	RecentSignaturesReceived prometheus.Counter
	InvalidMetaSize          prometheus.Counter
	FailedSanitize           prometheus.Counter
	FailedView               prometheus.Counter
	InvalidPacketData        prometheus.Counter
	LeakedPriority           prometheus.Counter
	DuplicatePackets         prometheus.Counter
	BankingTransmissions     prometheus.Counter
	ZeroScore                prometheus.Counter
	Completed                prometheus.Counter
}

// NewStats registers one counter per outcome under the "qos" namespace
// and the "pipeline" subsystem.
func NewStats(reg prometheus.Registerer) *Stats {
	factory := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: "qos",
			Subsystem: "pipeline",
			Name:      name,
			Help:      help,
		})
	}

	return &Stats{
		TotalPackets:             counter("total_packets_total", "Total packets observed across all ingress rings."),
		NonIPv4:                  counter("non_ipv4_total", "Packets rejected for a non-IPv4 source address."),
		NonTransactionPacket:     counter("non_transaction_packet_total", "Packets with no transaction payload."),
		RecentlyProcessed:        counter("recently_processed_total", "Packets rejected because their signature was recently processed."),
		RecentlyProcessedQueued:  counter("recently_processed_queued_total", "Admitted transactions filtered out at drain time as recently processed."),
		RecentSignaturesReceived: counter("recent_signatures_received_total", "Signatures folded into the recent-signatures cache."),
		InvalidMetaSize:          counter("invalid_meta_size_total", "Packets rejected for an oversized meta.size."),
		FailedSanitize:           counter("failed_sanitize_total", "Transaction views that failed sanitize checks."),
		FailedView:               counter("failed_view_total", "Packets that failed to parse as a transaction view."),
		InvalidPacketData:        counter("invalid_packet_data_total", "Packets with no usable payload or metadata."),
		LeakedPriority:           counter("leaked_priority_total", "Admitted transactions evicted from the priority heap while full."),
		DuplicatePackets:         counter("duplicate_packets_total", "Packets rejected as duplicates of an in-flight packet hash."),
		BankingTransmissions:     counter("banking_transmissions_total", "Transactions forwarded to sigverify."),
		ZeroScore:                counter("zero_score_total", "Admitted transactions scored at exactly zero."),
		Completed:                counter("completed_total", "Transactions merged with execution feedback."),
	}
}
