package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"contentstudio/internal/bootstrap"
	"contentstudio/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg).With().Str("component", "worker").Logger()

	// Both sides must share the broker and the record store.
	if cfg.QueueBackend == "memory" {
		logger.Fatal().Msg("worker: QUEUE_BACKEND=memory runs inside the api process; use redis or amqp")
	}
	if cfg.StoreBackend == "memory" {
		logger.Fatal().Msg("worker: STORE_BACKEND=memory cannot be shared with the api; use postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: bootstrap failed")
	}
	defer rt.Close()

	orch, err := rt.Orchestrator()
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: orchestrator setup failed")
	}

	if _, err := rt.Reaper().Start(ctx, cfg.ReaperSchedule); err != nil {
		logger.Fatal().Err(err).Msg("worker: reaper setup failed")
	}

	logger.Info().
		Str("queue", cfg.QueueBackend).
		Str("name", cfg.QueueName).
		Int("concurrency", cfg.WorkerConcurrency).
		Msg("worker started")

	if err := rt.RunWorkers(ctx, orch); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker: consume failed")
	}
	logger.Info().Msg("worker stopped")
}
