package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gopkg.in/yaml.v3"

	"github.com/temporalxyz/solana-qos/cmd/qos/app"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed parsing config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	a, err := app.New(*cfg, logger)
	if err != nil {
		level.Error(logger).Log("msg", "error initialising qos", "err", err)
		os.Exit(1)
	}

	level.Info(logger).Log("msg", "starting qos")
	if err := a.Run(context.Background()); err != nil {
		level.Error(logger).Log("msg", "error running qos", "err", err)
		os.Exit(1)
	}
}

// loadConfig mirrors the teacher's flag-then-YAML-overlay shape: find
// -config.file among the raw args first (ContinueOnError tolerates
// flags loadConfig itself doesn't know about yet), apply it over the
// flag defaults, then let the real flag.Parse apply CLI overrides on
// top of both.
func loadConfig() (*app.Config, error) {
	const configFileFlag = "config.file"

	var configFile string
	cfg := &app.Config{}

	pre := flag.NewFlagSet("", flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	pre.StringVar(&configFile, configFileFlag, "", "")

	args := os.Args[1:]
	for len(args) > 0 {
		_ = pre.Parse(args)
		args = args[1:]
	}

	cfg.RegisterFlagsAndApplyDefaults("", flag.CommandLine)

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read configFile %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configFile %s: %w", configFile, err)
		}
	}

	flag.CommandLine.String(configFileFlag, "", "Configuration file to load")
	flag.Parse()

	return cfg, nil
}

func newLogger(logLevel string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	lvl := level.AllowInfo()
	switch logLevel {
	case "debug":
		lvl = level.AllowDebug()
	case "warn":
		lvl = level.AllowWarn()
	case "error":
		lvl = level.AllowError()
	}
	return level.NewFilter(logger, lvl)
}
