package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"clipforge/internal/batch"
	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	cache := buildCache(cfg, logger)
	engine := pipeline.NewEngine(store, cache, buildExecutors(cfg), cfg.StageTimeouts, logger)
	runner := batch.NewRunner(ctx, store, engine, buildExporter(cfg), cfg.Workflow, logger)

	d, err := daemon.New(cfg, store, runner, cache, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close() //nolint:errcheck

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("clipforged shutting down")
}
