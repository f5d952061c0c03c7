// provel-agent is the local HTTP service the slicer UI uses to slice meshes
// and reach the printer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/provelslice/internal/agent"
	"github.com/Faultbox/provelslice/internal/config"
	"github.com/Faultbox/provelslice/internal/logger"
	"github.com/Faultbox/provelslice/internal/store"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("provel-agent", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	listen := fs.String("listen", "", "Listen address (default from config)")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Agent.Listen = *listen
	}

	// The agent always logs JSON so it can run under a supervisor.
	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithOptions(logger.Options{
		Level:   cfg.Logging.Level,
		File:    fileCfg,
		Console: true,
		JSON:    true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Provel Agent ===", zap.String("version", version))

	path := cfg.StorePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logger.Fatal("store directory", zap.Error(err))
	}
	s, err := store.Open(path)
	if err != nil {
		logger.Fatal("failed to open settings store", zap.Error(err))
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Apply(ctx, cfg); err != nil {
		logger.Fatal("failed to apply stored settings", zap.Error(err))
	}
	if err := agent.Serve(ctx, cfg, s, version); err != nil {
		logger.Error("agent error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("agent stopped")
}
