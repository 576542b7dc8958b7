// Package model implements the online reputation model: two keyed
// score tables (by source IP and by fee-payer signer), each paired
// with an AVL-tree inverse view for O(1) median approximation and
// middle-pruning.
package model

import (
	"fmt"
	"io"
	"net"

	"github.com/temporalxyz/solana-qos/internal/avltree"
)

// Config holds the model's tunables. None of these are constants in
// this implementation — the spec calls them out explicitly as values
// that should be configurable rather than hard-coded.
type Config struct {
	// Alpha is the EMA smoothing factor applied when blending a
	// table entry's old score with its newly observed target.
	Alpha float64
	// MinSupport is the minimum observation count a batch of
	// execution feedback needs before it's trusted as a score target;
	// below this, the entry regresses toward the table's median.
	MinSupport int
	// IPFeedbackPenalty is the multiplier applied to an IP's score
	// when sigverify reports a failed transaction from it.
	IPFeedbackPenalty float64
}

// DefaultConfig matches the values called out in the reputation
// model's own tunables list.
func DefaultConfig() Config {
	return Config{Alpha: 0.05, MinSupport: 5, IPFeedbackPenalty: 0.01}
}

// Observation is one data point feeding UpdateModel: an (ip, signer)
// pair and the execution-derived value assigned to the transaction
// that carried them. The model's own update semantics don't care about
// anything else a transaction carries, so the pipeline flattens its
// richer metadata down to this before calling UpdateModel.
type Observation struct {
	IP     uint32
	Signer [32]byte
	Value  float64
}

// Model is the reputation model over (ip, signer) pairs.
type Model struct {
	cfg          Config
	ipScores     *scoreTable[uint32]
	signerScores *scoreTable[[32]byte]
}

// New builds a Model seeded with initial per-id scores. Either map may
// be nil for an empty table; the ip-scores file SaveIPScores writes is
// not loaded here.
func New(cfg Config, initialIPScores map[uint32]float64, initialSignerScores map[[32]byte]float64) *Model {
	m := &Model{
		cfg:          cfg,
		ipScores:     newScoreTable[uint32](),
		signerScores: newScoreTable[[32]byte](),
	}
	for ip, score := range initialIPScores {
		m.ipScores.set(ip, score)
	}
	for signer, score := range initialSignerScores {
		m.signerScores.set(signer, score)
	}
	return m
}

// Forward returns the combined score for an (ip, signer) pair. An id
// absent from its table imputes that table's approximate median — the
// most neutral score available, since pruning has already removed the
// entries closest to it, leaving the most discriminating tails.
func (m *Model) Forward(ip uint32, signer [32]byte) float64 {
	ipScore, ok := m.ipScores.get(ip)
	if !ok {
		ipScore = m.ipScores.approximateMedian()
	}
	signerScore, ok := m.signerScores.get(signer)
	if !ok {
		signerScore = m.signerScores.approximateMedian()
	}
	return ipScore * signerScore
}

// IPFeedback multiplies ip's score by the configured penalty factor,
// in both the main table and its inverse view. A no-op if ip has no
// score on record.
func (m *Model) IPFeedback(ip uint32) {
	score, ok := m.ipScores.get(ip)
	if !ok {
		return
	}
	m.ipScores.set(ip, score*m.cfg.IPFeedbackPenalty)
}

// UpdateModel folds a batch of observations into both tables via EMA,
// admits new ids that cleared the minimum-support bar, and prunes each
// table back to its bound by repeatedly dropping the inverse view's
// root — the entries nearest the median, leaving the most- and
// least-trusted ids behind.
func (m *Model) UpdateModel(observations []Observation, maxIPs, maxSigners int) {
	ipCandidates := make(map[uint32]*candidate)
	signerCandidates := make(map[[32]byte]*candidate)

	for _, o := range observations {
		accumulate(ipCandidates, o.IP, o.Value)
		accumulate(signerCandidates, o.Signer, o.Value)
	}

	updateTable(m.cfg, m.ipScores, ipCandidates)
	updateTable(m.cfg, m.signerScores, signerCandidates)

	m.ipScores.pruneToBound(maxIPs)
	m.signerScores.pruneToBound(maxSigners)
}

// SaveIPScores writes one "<ipv4> <score>" line per tracked IP to w,
// for operator inspection. The file is never read back by this
// process.
func (m *Model) SaveIPScores(w io.Writer) error {
	for ip, score := range m.ipScores.scores {
		addr := net.IPv4(byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip))
		if _, err := fmt.Fprintf(w, "%s %g\n", addr.String(), score); err != nil {
			return fmt.Errorf("model: write ip score: %w", err)
		}
	}
	return nil
}

// IPTableLen and SignerTableLen expose the current table sizes, used
// by pipeline stats and tests to assert the post-update bound.
func (m *Model) IPTableLen() int     { return m.ipScores.len() }
func (m *Model) SignerTableLen() int { return m.signerScores.len() }

type candidate struct {
	sum   float64
	count int
}

func accumulate[K comparable](candidates map[K]*candidate, id K, value float64) {
	c, ok := candidates[id]
	if !ok {
		c = &candidate{}
		candidates[id] = c
	}
	c.sum += value
	c.count++
}

// updateTable applies one EMA pass over an existing table's entries,
// consuming matching candidates as it goes, then admits any candidate
// ids the table didn't already have, provided they cleared min
// support. This mirrors the reputation model's own two-phase update:
// existing ids always move (toward their candidate mean or the
// median), new ids only appear if they earned it.
func updateTable[K comparable](cfg Config, table *scoreTable[K], candidates map[K]*candidate) {
	median := table.approximateMedian()

	for id, oldScore := range table.scores {
		target := median
		if c, ok := candidates[id]; ok {
			delete(candidates, id)
			if c.count >= cfg.MinSupport {
				target = c.sum / float64(c.count)
			}
		}
		table.set(id, ema(oldScore, target, cfg.Alpha))
	}

	for id, c := range candidates {
		if c.count >= cfg.MinSupport {
			table.set(id, c.sum/float64(c.count))
		}
	}
}

func ema(old, target, alpha float64) float64 {
	return old*(1-alpha) + target*alpha
}

// scoreTable pairs a map-backed score lookup with an avltree.Tree
// inverse view, keeping the invariant that every id appears in exactly
// one main-table entry and one mirrored inverse entry.
type scoreTable[K comparable] struct {
	scores  map[K]float64
	inverse avltree.Tree[K]
	keys    map[K]avltree.Key
}

func newScoreTable[K comparable]() *scoreTable[K] {
	return &scoreTable[K]{
		scores: make(map[K]float64),
		keys:   make(map[K]avltree.Key),
	}
}

func (t *scoreTable[K]) len() int { return len(t.scores) }

func (t *scoreTable[K]) get(id K) (float64, bool) {
	score, ok := t.scores[id]
	return score, ok
}

// set inserts or replaces id's score, keeping the inverse view and the
// key bookkeeping in lockstep with the main map in the same call.
func (t *scoreTable[K]) set(id K, score float64) {
	if oldKey, ok := t.keys[id]; ok {
		t.inverse.Delete(oldKey)
	}
	t.keys[id] = t.inverse.Insert(score, id)
	t.scores[id] = score
}

// approximateMedian reads the inverse view's current root score, or
// 1.0 if the table is empty.
func (t *scoreTable[K]) approximateMedian() float64 {
	key, _, ok := t.inverse.Root()
	if !ok {
		return 1.0
	}
	return key.Score
}

func (t *scoreTable[K]) pruneToBound(bound int) {
	for t.inverse.Len() > bound {
		_, id, ok := t.inverse.DeleteRoot()
		if !ok {
			return
		}
		delete(t.scores, id)
		delete(t.keys, id)
	}
}
