// Package bootstrap assembles the shared process dependencies from config.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"contentstudio/internal/adapter/repo"
	"contentstudio/internal/domain"
	"contentstudio/internal/infra"
	"contentstudio/internal/pipeline"
	"contentstudio/internal/providers/media"
	"contentstudio/internal/providers/script"
	"contentstudio/internal/queue"
	"contentstudio/internal/storage"
)

// Runtime holds the long-lived dependencies of the api and worker binaries.
type Runtime struct {
	Config   *infra.Config
	Logger   zerolog.Logger
	Registry *prometheus.Registry
	Metrics  *pipeline.Metrics
	Store    domain.ContentRepository
	Files    *storage.FileStore
	Queue    queue.Queue
	Checks   map[string]func(context.Context) error

	closers []func()
}

// New connects the store, file storage and queue selected by cfg.
func New(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Runtime, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Metrics:  pipeline.NewMetrics(reg),
		Checks:   make(map[string]func(context.Context) error),
	}
	if err := rt.openStore(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.openFiles(); err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.openQueue(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) openStore(ctx context.Context) error {
	cfg := rt.Config
	if cfg.StoreBackend == "memory" {
		rt.Logger.Warn().Msg("using in-memory content store; records are lost on restart")
		rt.Store = repo.NewContentRepositoryMemory()
		return nil
	}

	if cfg.MigrateOnStart {
		if err := infra.ApplyMigrations(ctx, cfg.DatabaseURL, rt.Logger); err != nil {
			return err
		}
	}
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, pool.Close)
	rt.Checks["database"] = pool.Ping
	rt.Store = repo.NewContentRepository(infra.NewSQLRunner(pool, rt.Logger))
	return nil
}

func (rt *Runtime) openFiles() error {
	path := rt.Config.StoragePath
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	files, err := storage.NewFileStore(path)
	if err != nil {
		return err
	}
	rt.Files = files
	return nil
}

func (rt *Runtime) openQueue(ctx context.Context) error {
	cfg := rt.Config
	switch cfg.QueueBackend {
	case "redis":
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		rt.Checks["queue"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		rt.Queue = queue.NewRedisQueue(client, cfg.QueueName, cfg.WorkerConcurrency, rt.Logger)
	case "amqp":
		conn, err := infra.DialAMQP(cfg)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, func() { _ = conn.Close() })
		rt.Checks["queue"] = func(context.Context) error {
			if conn.IsClosed() {
				return fmt.Errorf("amqp connection closed")
			}
			return nil
		}
		q, err := queue.NewAMQPQueue(conn, cfg.QueueName, cfg.WorkerConcurrency, rt.Logger)
		if err != nil {
			return err
		}
		rt.Queue = q
	default:
		rt.Queue = queue.NewMemoryQueue(cfg.QueueBuffer, cfg.WorkerConcurrency, rt.Logger)
	}
	rt.closers = append(rt.closers, func() { _ = rt.Queue.Close() })
	return nil
}

// Orchestrator builds the script and media generators and the pipeline
// that runs them.
func (rt *Runtime) Orchestrator() (*pipeline.Orchestrator, error) {
	cfg := rt.Config
	scripts, err := script.New(script.Config{
		Provider:          cfg.ScriptProvider,
		TemplatesPath:     cfg.ScriptTemplatesPath,
		OpenAIAPIKey:      cfg.OpenAIAPIKey,
		OpenAIModel:       cfg.OpenAIModel,
		OpenAIBaseURL:     cfg.OpenAIBaseURL,
		OpenAIOrg:         cfg.OpenAIOrg,
		CountPromptTokens: cfg.CountPromptTokens,
		OllamaBaseURL:     cfg.OllamaBaseURL,
		OllamaModel:       cfg.OllamaModel,
		HTTPClient:        &http.Client{Timeout: cfg.StepTimeout},
		OnUsage:           rt.Metrics.ObserveUsage,
		OnFallback: func(reason string, err error) {
			rt.Logger.Warn().Err(err).Str("reason", reason).Msg("script provider unavailable, using static scripts")
		},
		OnWarning: func(reason, detail string) {
			rt.Logger.Warn().Str("reason", reason).Str("detail", detail).Msg("script provider warning")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("configure script generator: %w", err)
	}
	rt.Logger.Info().Str("provider", scripts.Name()).Msg("script generator ready")

	registry := media.NewRegistry(media.NewSyntheticGenerator(rt.Files, cfg.StorageBaseURL, rt.Logger))
	for kind, endpoint := range map[media.Kind]string{
		media.KindImage: cfg.ImageServiceURL,
		media.KindVoice: cfg.VoiceServiceURL,
		media.KindMusic: cfg.MusicServiceURL,
		media.KindVideo: cfg.VideoServiceURL,
	} {
		gen := media.NewHTTPGenerator(media.HTTPOptions{
			Endpoint: endpoint,
			Token:    cfg.MediaServiceToken,
			Timeout:  cfg.MediaRequestTimeout,
		})
		if gen == nil {
			rt.Logger.Info().Str("kind", string(kind)).Msg("no media service configured, using synthetic assets")
			continue
		}
		registry.Register(kind, gen)
	}

	return pipeline.New(rt.Store, scripts, registry, pipeline.Options{
		StepTimeout: cfg.StepTimeout,
		Metrics:     rt.Metrics,
		Logger:      rt.Logger.With().Str("component", "orchestrator").Logger(),
	}), nil
}

// Reaper returns the stalled-run sweeper for the configured store.
func (rt *Runtime) Reaper() *pipeline.Reaper {
	return pipeline.NewReaper(rt.Store, rt.Config.MaxRunDuration, rt.Metrics,
		rt.Logger.With().Str("component", "reaper").Logger())
}

// RunWorkers consumes the queue with orch until ctx ends.
func (rt *Runtime) RunWorkers(ctx context.Context, orch *pipeline.Orchestrator) error {
	return rt.Queue.Consume(ctx, func(ctx context.Context, task queue.Task) error {
		return orch.Run(ctx, task.ContentID)
	})
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
