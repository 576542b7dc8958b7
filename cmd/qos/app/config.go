package app

import (
	"flag"

	"github.com/temporalxyz/solana-qos/internal/model"
	"github.com/temporalxyz/solana-qos/internal/pipeline"
)

// Config is the root config for the QoS process: the CLI surface named
// by spec §6, plus the ambient flags an operator needs to run this
// outside of the validator's own process supervisor (metrics address,
// log level, a YAML overlay file).
type Config struct {
	UseHugePages bool   `yaml:"use_huge_pages,omitempty"`
	XXHashSeed   uint64 `yaml:"xxhash_seed"`
	TargetPPS    int    `yaml:"target_pps,omitempty"`
	MaxSigners   int    `yaml:"max_signers,omitempty"`
	MaxIPs       int    `yaml:"max_ips,omitempty"`

	ShmDir       string `yaml:"shm_dir,omitempty"`
	IPScoresPath string `yaml:"ip_scores_path,omitempty"`
	MetricsAddr  string `yaml:"metrics_addr,omitempty"`
	LogLevel     string `yaml:"log_level,omitempty"`

	Model model.Config `yaml:"model,omitempty"`
}

// NewDefaultConfig returns a Config with every default applied,
// without requiring a *flag.FlagSet from the caller — used by tests.
func NewDefaultConfig() *Config {
	c := &Config{}
	c.RegisterFlagsAndApplyDefaults("", flag.NewFlagSet("", flag.PanicOnError))
	return c
}

// RegisterFlagsAndApplyDefaults registers every flag spec §6 and §7
// name onto fs with prefix prepended, matching the teacher's
// Config.RegisterFlagsAndApplyDefaults shape (defaults applied as the
// flag is registered, not afterward).
func (c *Config) RegisterFlagsAndApplyDefaults(prefix string, fs *flag.FlagSet) {
	fs.BoolVar(&c.UseHugePages, prefix+"use-huge-pages", false, "Back every ring segment with huge pages instead of the default page size.")
	fs.Uint64Var(&c.XXHashSeed, prefix+"xxhash-seed", 0, "Seed shared with sigverify/scheduler for packet hashing (required).")
	fs.IntVar(&c.TargetPPS, prefix+"target-pps", 1_000_000, "Target transactions-per-second forwarded to sigverify.")
	fs.IntVar(&c.MaxSigners, prefix+"max-signers", 10_000, "Maximum number of fee-payer signers tracked by the reputation model.")
	fs.IntVar(&c.MaxIPs, prefix+"max-ips", 10_000, "Maximum number of source IPs tracked by the reputation model.")

	fs.StringVar(&c.ShmDir, prefix+"shm-dir", "/dev/shm", "Directory backing every named ring segment.")
	fs.StringVar(&c.IPScoresPath, prefix+"ip-scores-path", "ip_scores", "Path the model's per-IP scores are periodically saved to. Empty disables saving.")
	fs.StringVar(&c.MetricsAddr, prefix+"metrics-addr", "127.0.0.1:9465", "Listen address for the debug HTTP server (/metrics, /healthz). Empty disables it.")
	fs.StringVar(&c.LogLevel, prefix+"log-level", "info", "Minimum log level: debug, info, warn, or error.")

	c.Model = model.DefaultConfig()
}

// pipelineConfig derives the pipeline's Config from the CLI-level one,
// filling in the fixed cadence/batch tunables pipeline.DefaultConfig
// carries that spec.md treats as implementation constants rather than
// CLI surface.
func (c *Config) pipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.TargetPPS = c.TargetPPS
	cfg.MaxIPs = c.MaxIPs
	cfg.MaxSigners = c.MaxSigners
	cfg.IPScoresPath = c.IPScoresPath
	return cfg
}
