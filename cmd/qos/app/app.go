package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/temporalxyz/solana-qos/internal/lru"
	"github.com/temporalxyz/solana-qos/internal/model"
	"github.com/temporalxyz/solana-qos/internal/packet"
	"github.com/temporalxyz/solana-qos/internal/packethash"
	"github.com/temporalxyz/solana-qos/internal/pipeline"
	"github.com/temporalxyz/solana-qos/internal/ratelimited"
	"github.com/temporalxyz/solana-qos/internal/ring"
)

// Segment names are fixed by spec §6 and shared with the validator's
// other processes; a typo here is a wire-compatibility break, not a
// local bug.
const (
	segTPU       = "tpu_to_qos"
	segFwd       = "fwd_to_qos"
	segRelay1    = "re1_to_qos"
	segRelay2    = "re2_to_qos"
	segToSig     = "qos_to_sig"
	segSigFail   = "sig_to_qos"
	segScheduler = "sch_to_qos"
	segTxStatus  = "tx_status_cache"

	packetRingCapacity = 32768
	schedulerCapacity  = 32768
	txStatusCapacity   = 1_048_576
)

// App owns every long-lived resource the QoS process holds: the eight
// mmap'd segments, the assembled Pipeline, and the debug HTTP server.
// Run blocks until a signal or context cancellation triggers shutdown.
type App struct {
	cfg    Config
	logger log.Logger

	segments []*ring.Segment
	pipeline *pipeline.Pipeline

	httpServer *http.Server
}

// New creates or joins every named segment, builds the reputation
// model and dedup caches, and assembles the Pipeline. Segment
// bootstrap runs concurrently via errgroup, matching spec §7's
// "fatal at startup" handling: the first error (such as a segment-size
// mismatch) is returned once every bootstrap goroutine has finished;
// the others are not cancelled. A failed huge-page mapping is not an
// error, since ring.CreateOrJoin falls back to standard pages.
func New(cfg Config, logger log.Logger) (*App, error) {
	if cfg.XXHashSeed == 0 {
		return nil, fmt.Errorf("app: -xxhash-seed is required")
	}

	var (
		tpuRing, fwdRing, relay1Ring, relay2Ring *ring.Segment
		toSigRing, sigFailRing                   *ring.Segment
		schedulerRing, txStatusRing              *ring.Segment
	)

	g := new(errgroup.Group)
	joinPacketRing := func(dst **ring.Segment, name string) {
		g.Go(func() error {
			seg, err := ring.CreateOrJoin(cfg.ShmDir, name, packetRingCapacity, packet.Size, cfg.UseHugePages)
			if err != nil {
				return fmt.Errorf("app: segment %s: %w", name, err)
			}
			*dst = seg
			return nil
		})
	}
	joinPacketRing(&tpuRing, segTPU)
	joinPacketRing(&fwdRing, segFwd)
	joinPacketRing(&relay1Ring, segRelay1)
	joinPacketRing(&relay2Ring, segRelay2)
	joinPacketRing(&toSigRing, segToSig)
	joinPacketRing(&sigFailRing, segSigFail)
	g.Go(func() error {
		seg, err := ring.CreateOrJoin(cfg.ShmDir, segScheduler, schedulerCapacity, int(unsafe.Sizeof(packet.RemainingMeta[struct{}]{})), cfg.UseHugePages)
		if err != nil {
			return fmt.Errorf("app: segment %s: %w", segScheduler, err)
		}
		schedulerRing = seg
		return nil
	})
	g.Go(func() error {
		seg, err := ring.CreateOrJoin(cfg.ShmDir, segTxStatus, txStatusCapacity, 64, cfg.UseHugePages)
		if err != nil {
			return fmt.Errorf("app: segment %s: %w", segTxStatus, err)
		}
		txStatusRing = seg
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	segments := []*ring.Segment{tpuRing, fwdRing, relay1Ring, relay2Ring, toSigRing, sigFailRing, schedulerRing, txStatusRing}

	tpu, err := openConsumer[packet.Packet](tpuRing, packetRingCapacity)
	if err != nil {
		return nil, err
	}
	fwd, err := openConsumer[packet.Packet](fwdRing, packetRingCapacity)
	if err != nil {
		return nil, err
	}
	relay1, err := openConsumer[packet.Packet](relay1Ring, packetRingCapacity)
	if err != nil {
		return nil, err
	}
	relay2, err := openConsumer[packet.Packet](relay2Ring, packetRingCapacity)
	if err != nil {
		return nil, err
	}
	sigFail, err := openConsumer[packet.Packet](sigFailRing, packetRingCapacity)
	if err != nil {
		return nil, err
	}

	toSigR, err := ring.Open[packet.Packet](toSigRing, packetRingCapacity)
	if err != nil {
		return nil, err
	}
	outbound := ring.NewProducer(toSigR)
	outbound.SetSeed(cfg.XXHashSeed)

	schedR, err := ring.Open[packet.RemainingMeta[struct{}]](schedulerRing, schedulerCapacity)
	if err != nil {
		return nil, err
	}
	scheduler := ring.NewConsumer(schedR)

	txStatusR, err := ring.Open[[64]byte](txStatusRing, txStatusCapacity)
	if err != nil {
		return nil, err
	}
	txStatus := ring.NewConsumer(txStatusR)

	reg := prometheus.NewRegistry()
	stats := pipeline.NewStats(reg)
	hasher := packethash.New(cfg.XXHashSeed)
	reputationModel := model.New(cfg.Model, nil, nil)
	partialMetas := lru.New[uint64, packet.PartialMeta](1 << 20)
	recentSigs := lru.NewSignatureGate(1 << 20)

	limitedLogger := ratelimited.NewRateLimitedLogger(100, logger)

	p := pipeline.New(cfg.pipelineConfig(), pipeline.Deps{
		Ingress:            []*ring.Consumer[packet.Packet]{tpu, fwd, relay1, relay2},
		SigverifyFailures:  sigFail,
		SchedulerRemaining: scheduler,
		RecentSignatures:   txStatus,
		Outbound:           outbound,
		Model:              reputationModel,
		Hasher:             hasher,
		RecentSigs:         recentSigs,
		PartialMetas:       partialMetas,
		Stats:              stats,
		Logger:             limitedLogger,
	})

	app := &App{cfg: cfg, logger: logger, segments: segments, pipeline: p}
	if cfg.MetricsAddr != "" {
		app.httpServer = app.newDebugServer(reg)
	}
	return app, nil
}

func openConsumer[T any](seg *ring.Segment, n int) (*ring.Consumer[T], error) {
	r, err := ring.Open[T](seg, n)
	if err != nil {
		return nil, err
	}
	return ring.NewConsumer(r), nil
}

// newDebugServer builds the /metrics + /healthz HTTP server, routed
// with gorilla/mux per the teacher's own server package.
func (a *App) newDebugServer(reg *prometheus.Registry) *http.Server {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{Addr: a.cfg.MetricsAddr, Handler: r}
}

// Run starts the debug server (if configured), runs the pipeline until
// SIGINT/SIGTERM or ctx is cancelled, and prints a shutdown report.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.httpServer != nil {
		go func() {
			if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				level.Error(a.logger).Log("msg", "debug http server exited", "err", err)
			}
		}()
	}

	started := time.Now()
	runErr := a.pipeline.Run(ctx)

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.httpServer.Shutdown(shutdownCtx)
	}
	for _, seg := range a.segments {
		_ = seg.Close()
	}

	a.printShutdownReport(time.Since(started))
	return runErr
}

func (a *App) printShutdownReport(uptime time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"field", "value"})
	t.AppendRow(table.Row{"uptime", uptime.Round(time.Second)})
	t.AppendRow(table.Row{"ip table size", humanize.Comma(int64(a.pipeline.IPTableLen()))})
	t.AppendRow(table.Row{"signer table size", humanize.Comma(int64(a.pipeline.SignerTableLen()))})
	t.Render()
}
