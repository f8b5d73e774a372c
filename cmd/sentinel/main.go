package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shadow30812/sentinel/internal/broadcast"
	"github.com/shadow30812/sentinel/internal/bus"
	"github.com/shadow30812/sentinel/internal/collect"
	"github.com/shadow30812/sentinel/internal/config"
	"github.com/shadow30812/sentinel/internal/engine"
	"github.com/shadow30812/sentinel/internal/persist"
	"github.com/shadow30812/sentinel/internal/scheduler"
	"github.com/shadow30812/sentinel/internal/state"
	"github.com/shadow30812/sentinel/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config overriding the defaults")
	baseDir := flag.String("base-dir", "", "override the persistence base directory")
	listenAddr := flag.String("listen", "", "override the monitor feed listen address")
	trainSeconds := flag.Int("train", 0, "override the training duration in seconds")
	flag.Parse()

	// 1. Configuration
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *baseDir != "" {
		cfg.BaseDir = *baseDir
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *trainSeconds > 0 {
		cfg.TrainingSeconds = *trainSeconds
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// 2. Logging
	log, closeLog := setupLogger(cfg)
	defer closeLog()
	log.Info("==================================================")
	log.Info("starting sentinel", "base_dir", cfg.BaseDir, "features", len(cfg.FeatureKeys))
	log.Info("==================================================")

	// 3. Persistence
	store := persist.NewManager(cfg.BaseDir)

	// 4. Collector
	collector, err := collect.NewSystemCollector()
	if err != nil {
		log.Error("collector initialization failed", "err", err)
		os.Exit(1)
	}

	// 5. Observer channel + snapshot history
	eventBus := bus.New()
	history := state.NewRingBuffer(cfg.HistorySize)

	// 6. Telemetry
	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)

	// 7. Engine — single owner of all mutable state
	eng, err := engine.New(cfg, collector, store, eventBus, history, metrics, log)
	if err != nil {
		log.Error("engine initialization failed", "err", err)
		os.Exit(1)
	}

	// 8. Scheduler driving the engine at the sample rate
	sched := scheduler.New(eng.Tick, cfg.SampleRateHz, log)
	sched.Start()

	// 9. Monitor feed + control surface
	feed := broadcast.New(eventBus.Subscribe(64), history, eng.RequestRetrain, registry, log)
	go func() {
		if err := feed.Start(cfg.ListenAddr); err != nil {
			log.Error("broadcaster stopped", "err", err)
		}
	}()

	// 10. Shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	sched.Stop()
	eng.Shutdown()
	log.Info("sentinel terminated")
}

// setupLogger writes structured JSON to <base>/sentinel.log and
// mirrors it to stdout. If the log file cannot be opened the process
// still runs with stdout only.
func setupLogger(cfg config.Config) (*slog.Logger, func()) {
	var w io.Writer = os.Stdout
	closeFn := func() {}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile()), 0o755); err == nil {
		f, err := os.OpenFile(cfg.LogFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			w = io.MultiWriter(os.Stdout, f)
			closeFn = func() { f.Close() }
		}
	}

	return slog.New(slog.NewJSONHandler(w, nil)), closeFn
}
