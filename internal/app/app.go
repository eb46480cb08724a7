// Package app assembles the pipeline from configuration for the server and
// the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nugget-pipeline/internal/config"
	"github.com/nugget-pipeline/internal/database"
	"github.com/nugget-pipeline/internal/events"
	"github.com/nugget-pipeline/internal/generator"
	"github.com/nugget-pipeline/internal/kv"
	"github.com/nugget-pipeline/internal/metrics"
	"github.com/nugget-pipeline/internal/publisher"
	"github.com/nugget-pipeline/internal/repository"
	"github.com/nugget-pipeline/internal/service"
	"github.com/nugget-pipeline/internal/telemetry"
	"github.com/rs/zerolog"
)

// Options selects which parts of the pipeline to build
type Options struct {
	// Upstreams builds the generation and publication clients. Commands
	// that only read or edit the queue leave it off.
	Upstreams bool
	// Migrate applies pending migrations when the backend is postgres
	Migrate bool
	// Durable refuses backends that keep entries in process memory
	Durable bool
}

// ErrEphemeralStore is returned when Durable is set and the configured
// backend keeps entries in process memory
var ErrEphemeralStore = errors.New("memory backend does not persist between runs, set KV_BACKEND=postgres or KV_BACKEND=redis")

// App holds the assembled pipeline
type App struct {
	Config   *config.Config
	Store    kv.Store
	DB       *database.DB
	Repos    *repository.Repositories
	Services *service.Services
	Metrics  *metrics.Metrics
	Emitter  events.Emitter

	shutdownTelemetry telemetry.ShutdownFunc
	log               zerolog.Logger
}

// New builds the App described by cfg
func New(ctx context.Context, cfg *config.Config, opts Options, log zerolog.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Metrics: metrics.NewMetrics(),
		Emitter: events.NopEmitter{},
		log:     log,
	}

	if opts.Durable && cfg.Store.Backend == config.BackendMemory {
		return nil, ErrEphemeralStore
	}

	store, db, err := OpenStore(ctx, cfg, opts.Migrate, log)
	if err != nil {
		return nil, err
	}
	a.Store, a.DB = store, db

	a.Repos = repository.New(store, repository.Options{
		Order: repository.QueueOrder(cfg.Pipeline.QueueOrder),
	}, log)

	deps := service.Dependencies{
		Repos:   a.Repos,
		Metrics: a.Metrics,
		Emitter: a.Emitter,
	}
	if purger, ok := store.(kv.Purger); ok && cfg.Store.Backend == config.BackendPostgres {
		deps.Purger = purger
	}

	if opts.Upstreams {
		if err := a.wireUpstreams(ctx, &deps); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Services, err = service.NewServices(deps, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// wireUpstreams builds the generator, publisher, event emitter and tracer
func (a *App) wireUpstreams(ctx context.Context, deps *service.Dependencies) error {
	cfg := a.Config
	if err := cfg.ValidatePipeline(); err != nil {
		return err
	}

	llm, err := generator.NewOpenAILLM(generator.LLMSettings{
		Model:       cfg.Generator.Model,
		APIKey:      cfg.Generator.APIKey,
		BaseURL:     cfg.Generator.BaseURL,
		Temperature: cfg.Generator.Temperature,
		MaxTokens:   cfg.Generator.MaxTokens,
	})
	if err != nil {
		return err
	}
	deps.Generator = generator.New(llm, time.Now, a.log)

	pub, err := publisher.NewGitHubPublisher(publisher.Settings{
		Token:        cfg.GitHub.Token,
		Repo:         cfg.GitHub.Repo,
		BaseBranch:   cfg.GitHub.BaseBranch,
		BranchPrefix: cfg.GitHub.BranchPrefix,
		ContentDir:   cfg.GitHub.ContentDir,
		APIURL:       cfg.GitHub.APIURL,
	}, a.log)
	if err != nil {
		return err
	}
	deps.Publisher = pub

	if cfg.Events.NATSURL != "" {
		emitter, err := events.NewNatsEmitter(events.NatsConfig{
			URL:           cfg.Events.NATSURL,
			SubjectPrefix: cfg.Events.SubjectPrefix,
		}, a.log)
		if err != nil {
			return err
		}
		a.Emitter = emitter
		deps.Emitter = emitter
	}

	shutdown, err := telemetry.InitTelemetry(ctx, cfg.Telemetry.OTLPEndpoint, a.log)
	if err != nil {
		return err
	}
	a.shutdownTelemetry = shutdown
	return nil
}

// OpenStore connects the configured key-value backend
func OpenStore(ctx context.Context, cfg *config.Config, migrate bool, log zerolog.Logger) (kv.Store, *database.DB, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory store, ideas are lost on restart")
		return kv.NewMemoryStore(), nil, nil

	case config.BackendRedis:
		store, err := kv.NewRedisStore(ctx, cfg.Store.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case config.BackendPostgres:
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return kv.NewPostgresStore(db.DB, log), db, nil

	default:
		return nil, nil, fmt.Errorf("unknown KV_BACKEND %q", cfg.Store.Backend)
	}
}

// Close releases every connection the App opened
func (a *App) Close() {
	if a.Emitter != nil {
		if err := a.Emitter.Close(); err != nil {
			a.log.Error().Err(err).Msg("Failed to close event emitter")
		}
	}
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(context.Background()); err != nil {
			a.log.Error().Err(err).Msg("Failed to flush traces")
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.log.Error().Err(err).Msg("Failed to close store")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.log.Error().Err(err).Msg("Failed to close database")
		}
	}
}

// Logger returns the logger the App was built with
func (a *App) Logger() zerolog.Logger {
	return a.log
}
