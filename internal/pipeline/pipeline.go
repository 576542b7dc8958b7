// Package pipeline orchestrates the ingress rings, dedup/recent-
// signature caches, admission heap, reputation model, and outbound
// ring into the single-threaded per-tick loop described by the QoS
// packet-processing pipeline.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/atomic"

	"github.com/temporalxyz/solana-qos/internal/lru"
	"github.com/temporalxyz/solana-qos/internal/model"
	"github.com/temporalxyz/solana-qos/internal/packet"
	"github.com/temporalxyz/solana-qos/internal/packethash"
	"github.com/temporalxyz/solana-qos/internal/ring"
)

// Config collects the pipeline's tunables. None are hard-coded
// constants: spec §9 calls out the drain cadence and update-model
// trigger specifically as values that belong in configuration.
type Config struct {
	TargetPPS        int
	MaxIPs           int
	MaxSigners       int
	BatchCapPerRing  int
	DrainInterval    time.Duration
	UpdateModelEvery int
	HeapCapacity     int
	IPScoresPath     string
}

// DefaultConfig matches the source's CLI defaults and the tunables
// named in spec §9's design notes.
func DefaultConfig() Config {
	return Config{
		TargetPPS:        1_000_000,
		MaxIPs:           10_000,
		MaxSigners:       10_000,
		BatchCapPerRing:  1_000,
		DrainInterval:    100 * time.Millisecond,
		UpdateModelEvery: 400,
		HeapCapacity:     16_384,
		IPScoresPath:     "ip_scores",
	}
}

// maxSend returns how many transactions a single drain tick forwards,
// spec §4.5: target_pps * drain_interval.
func (c Config) maxSend() int {
	return int(float64(c.TargetPPS) * c.DrainInterval.Seconds())
}

// Pipeline owns every ring, cache, and the model for one QoS process.
// Run executes its single-threaded cooperative loop until Stop is
// called or the context is cancelled.
type Pipeline struct {
	cfg Config

	processor *Processor
	admission *AdmissionBuffer
	model     *model.Model
	stats     *Stats

	ingress            []*ring.Consumer[packet.Packet]
	sigverifyFailures  *ring.Consumer[packet.Packet]
	schedulerRemaining *ring.Consumer[packet.RemainingMeta[struct{}]]
	recentSigIngress   *ring.Consumer[[64]byte]
	outbound           *ring.Producer[packet.Packet]

	recentSigs   *lru.SignatureGate
	partialMetas *lru.Cache[uint64, packet.PartialMeta]
	completed    []model.Observation

	lastDrain time.Time
	exit      atomic.Bool
}

// Deps bundles the rings and shared state New needs to assemble a
// Pipeline. Constructing these (joining/creating the named segments)
// is the caller's responsibility — typically cmd/qos's startup code.
type Deps struct {
	Ingress            []*ring.Consumer[packet.Packet]
	SigverifyFailures  *ring.Consumer[packet.Packet]
	SchedulerRemaining *ring.Consumer[packet.RemainingMeta[struct{}]]
	RecentSignatures   *ring.Consumer[[64]byte]
	Outbound           *ring.Producer[packet.Packet]

	Model        *model.Model
	Hasher       *packethash.Hasher
	RecentSigs   *lru.SignatureGate
	PartialMetas *lru.Cache[uint64, packet.PartialMeta]
	Stats        *Stats
	Logger       interface {
		Log(keyvals ...interface{}) error
	}
}

// New assembles a Pipeline from cfg and deps.
func New(cfg Config, deps Deps) *Pipeline {
	p := &Pipeline{
		cfg: cfg,
		processor: &Processor{
			Model:        deps.Model,
			PartialMetas: deps.PartialMetas,
			RecentSigs:   deps.RecentSigs,
			Hasher:       deps.Hasher,
			Stats:        deps.Stats,
			Logger:       deps.Logger,
		},
		model:              deps.Model,
		stats:              deps.Stats,
		ingress:            deps.Ingress,
		sigverifyFailures:  deps.SigverifyFailures,
		schedulerRemaining: deps.SchedulerRemaining,
		recentSigIngress:   deps.RecentSignatures,
		outbound:           deps.Outbound,
		recentSigs:         deps.RecentSigs,
		partialMetas:       deps.PartialMetas,
		lastDrain:          time.Time{},
	}
	p.admission = NewAdmissionBuffer(cfg.HeapCapacity, cfg.maxSend(), deps.Stats)
	return p
}

// Stop requests a clean shutdown; Run returns after finishing its
// current tick.
func (p *Pipeline) Stop() { p.exit.Store(true) }

// IPTableLen and SignerTableLen expose the model's current table
// sizes, used by the shutdown report.
func (p *Pipeline) IPTableLen() int     { return p.model.IPTableLen() }
func (p *Pipeline) SignerTableLen() int { return p.model.SignerTableLen() }

// Run executes ticks until Stop is called or ctx is cancelled, then
// persists ip scores and returns.
func (p *Pipeline) Run(ctx context.Context) error {
	p.lastDrain = time.Now()
	for !p.exit.Load() {
		select {
		case <-ctx.Done():
			p.exit.Store(true)
		default:
		}

		p.consumeIngress()
		p.consumeRecentSignatures()
		p.maybeDrain()
		p.consumeSchedulerRemainingMeta()
		p.consumeSigverifyFailures()
	}
	return p.persistIPScores()
}

// consumeIngress polls every ingress ring up to BatchCapPerRing times,
// scoring and admitting whatever parses cleanly.
func (p *Pipeline) consumeIngress() {
	for _, consumer := range p.ingress {
		for i := 0; i < p.cfg.BatchCapPerRing; i++ {
			pkt, ok := consumer.Pop()
			if !ok {
				break
			}
			scored, err := p.processor.TryProcessPacket(pkt)
			if err != nil {
				continue
			}
			if scored.Score == 0 {
				p.stats.ZeroScore.Inc()
			}
			p.admission.Push(scored)
		}
		consumer.Sync()
		consumer.Beat()
	}
}

// consumeRecentSignatures drains the tx-status-cache feed, folding
// each signature into the recent-signatures gate.
func (p *Pipeline) consumeRecentSignatures() {
	for {
		sig, ok := p.recentSigIngress.Pop()
		if !ok {
			break
		}
		p.recentSigs.Insert(packethash.SigKey(sig))
		p.stats.RecentSignaturesReceived.Inc()
	}
	p.recentSigIngress.Sync()
	p.recentSigIngress.Beat()
}

// maybeDrain forwards the heap's highest scorers to sigverify once
// per DrainInterval.
func (p *Pipeline) maybeDrain() {
	if time.Since(p.lastDrain) < p.cfg.DrainInterval {
		return
	}
	p.lastDrain = time.Now()

	batch := p.admission.DrainMax(p.recentSigs)
	if len(batch) == 0 {
		return
	}
	for _, tx := range batch {
		p.outbound.Push(tx.Packet)
	}
	p.outbound.Sync()
	p.stats.BankingTransmissions.Add(float64(len(batch)))
}

// consumeSchedulerRemainingMeta merges execution feedback into
// completed observations and triggers a model update every
// UpdateModelEvery completions.
func (p *Pipeline) consumeSchedulerRemainingMeta() {
	for {
		remaining, ok := p.schedulerRemaining.Pop()
		if !ok {
			break
		}
		partial, found := p.partialMetas.Pop(remaining.PacketHash)
		if !found {
			continue
		}

		wasScheduled := remaining.ExecutionNanos > 0
		merged := partial.Merge(remaining)
		if wasScheduled {
			merged.Value *= 10
		}
		p.completed = append(p.completed, model.Observation{
			IP:     merged.IP,
			Signer: merged.Signer,
			Value:  merged.Value,
		})
		p.stats.Completed.Inc()

		if len(p.completed) >= p.cfg.UpdateModelEvery {
			p.model.UpdateModel(p.completed, p.cfg.MaxIPs, p.cfg.MaxSigners)
			p.completed = p.completed[:0]
			_ = p.persistIPScores()
			break
		}
	}
	p.schedulerRemaining.Sync()
	p.schedulerRemaining.Beat()
}

// consumeSigverifyFailures applies an ip_feedback penalty for every
// packet sigverify reports as failed.
func (p *Pipeline) consumeSigverifyFailures() {
	for {
		pkt, ok := p.sigverifyFailures.Pop()
		if !ok {
			break
		}
		p.model.IPFeedback(pkt.Meta.IPv4Uint32())
	}
	p.sigverifyFailures.Sync()
	p.sigverifyFailures.Beat()
}

func (p *Pipeline) persistIPScores() error {
	if p.cfg.IPScoresPath == "" {
		return nil
	}
	f, err := os.Create(p.cfg.IPScoresPath)
	if err != nil {
		return fmt.Errorf("pipeline: persist ip scores: %w", err)
	}
	defer f.Close()
	if err := p.model.SaveIPScores(f); err != nil {
		return fmt.Errorf("pipeline: persist ip scores: %w", err)
	}
	return nil
}
