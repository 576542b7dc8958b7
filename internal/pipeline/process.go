package pipeline

import (
	"github.com/go-kit/log"

	"github.com/temporalxyz/solana-qos/internal/lru"
	"github.com/temporalxyz/solana-qos/internal/model"
	"github.com/temporalxyz/solana-qos/internal/packet"
	"github.com/temporalxyz/solana-qos/internal/packethash"
)

// Processor bundles the shared state TryProcessPacket needs: the
// reputation model, the partial-meta dedup cache, the recent-signature
// gate, and the packet hasher. One Processor is built per pipeline and
// reused across every ingress ring. Logger is expected to already be
// rate-limited (internal/ratelimited) since the eviction log line it
// backs can fire once per packet under a hostile burst.
type Processor struct {
	Model        *model.Model
	PartialMetas *lru.Cache[uint64, packet.PartialMeta]
	RecentSigs   *lru.SignatureGate
	Hasher       *packethash.Hasher
	Stats        *Stats
	Logger       log.Logger
}

// TryProcessPacket runs one packet through validation, parsing,
// recent-signature rejection, fee/score computation, and partial-meta
// staging, producing a ScoredTransaction ready for the admission
// buffer. Every rejection path increments its matching Stats counter
// before returning.
func (p *Processor) TryProcessPacket(pkt packet.Packet) (packet.ScoredTransaction, error) {
	p.Stats.TotalPackets.Inc()

	meta := pkt.Meta
	if !meta.IsIPv4 {
		p.Stats.NonIPv4.Inc()
		return packet.ScoredTransaction{}, ErrAddrNotIPv4
	}
	if meta.Size > packet.MaxPayloadSize {
		p.Stats.InvalidMetaSize.Inc()
		return packet.ScoredTransaction{}, ErrInvalidMetadata
	}

	payload := pkt.Payload[:meta.Size]
	if len(payload) == 0 {
		p.Stats.InvalidPacketData.Inc()
		return packet.ScoredTransaction{}, ErrNonTransactionPacket
	}

	view, err := packet.ParseTransactionView(payload)
	if err != nil {
		p.Model.IPFeedback(meta.IPv4Uint32())
		p.Stats.FailedView.Inc()
		return packet.ScoredTransaction{}, ErrFailedTransactionView
	}
	if err := view.Sanitize(); err != nil {
		p.Stats.FailedSanitize.Inc()
		return packet.ScoredTransaction{}, ErrFailedSanitize
	}

	signature := view.Signatures()[0]
	sigKey := packethash.SigKey(signature)
	if p.RecentSigs.Contains(sigKey) {
		p.Stats.RecentlyProcessed.Inc()
		return packet.ScoredTransaction{}, ErrRecentlyProcessed
	}

	feePayer, ok := packet.FeePayer(view)
	if !ok {
		p.Stats.InvalidPacketData.Inc()
		return packet.ScoredTransaction{}, ErrInvalidMetadata
	}
	fee := packet.TotalFee(view)

	ip := meta.IPv4Uint32()
	partial := packet.NewPartialMeta(ip, feePayer, fee.TotalFee, fee.RequestedCUs)

	cus := fee.RequestedCUs
	if cus == 0 {
		cus = 1
	}
	score := p.Model.Forward(ip, feePayer) * (float64(fee.TotalFee) / float64(cus))

	packetHash := p.Hasher.PacketHash(payload, meta.Size, meta.Addr)
	evicted, evictedOK, wasDuplicate := p.PartialMetas.Put(packetHash, partial)
	switch {
	case wasDuplicate:
		p.Stats.DuplicatePackets.Inc()
		return packet.ScoredTransaction{}, ErrDuplicatePacket
	case evictedOK:
		_ = p.Logger.Log("msg", "partial meta lru evicted a victim", "ip", evicted.IP)
	}

	return packet.ScoredTransaction{
		Score:  score,
		SigKey: sigKey,
		Packet: pkt,
		IPv4:   ip,
	}, nil
}
