package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"contentstudio/internal/bootstrap"
	"contentstudio/internal/http/handlers"
	httpapi "contentstudio/internal/http/httpapi"
	"contentstudio/internal/infra"
	"contentstudio/internal/infra/geoip"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: bootstrap failed")
	}
	defer rt.Close()

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip database unavailable; country detection disabled")
	}
	defer resolver.Close()

	var workers sync.WaitGroup
	// With the in-process queue the API also runs the generation workers.
	if cfg.QueueBackend == "memory" {
		orch, err := rt.Orchestrator()
		if err != nil {
			logger.Fatal().Err(err).Msg("api: orchestrator setup failed")
		}
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := rt.RunWorkers(ctx, orch); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("api: workers stopped")
			}
		}()
		if _, err := rt.Reaper().Start(ctx, cfg.ReaperSchedule); err != nil {
			logger.Fatal().Err(err).Msg("api: reaper setup failed")
		}
	}

	checks := make(map[string]handlers.HealthCheck, len(rt.Checks))
	for name, check := range rt.Checks {
		checks[name] = check
	}
	app := &handlers.App{
		Store:         rt.Store,
		Queue:         rt.Queue,
		Files:         rt.Files,
		Logger:        logger,
		StaticBaseURL: cfg.StorageBaseURL,
		PushInterval:  cfg.ProgressPushInterval,
		Checks:        checks,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:             logger,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		DefaultLocale:      cfg.DefaultLocale,
		CountryLookup:      resolver.Lookup(),
		RateLimitPerMinute: cfg.RateLimitPerMin,
		Registry:           rt.Registry,
		StaticDir:          rt.Files.BasePath(),
	})

	server := infra.NewHTTPServer(cfg, router, logger)

	go func() {
		logger.Info().Str("addr", server.Addr()).
			Str("store", cfg.StoreBackend).
			Str("queue", cfg.QueueBackend).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	workers.Wait()
	logger.Info().Msg("server stopped")
}
