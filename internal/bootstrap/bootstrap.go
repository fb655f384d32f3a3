package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/legal-assistant/internal/config"
	"github.com/kirillkom/legal-assistant/internal/core/domain"
	"github.com/kirillkom/legal-assistant/internal/core/ports"
	"github.com/kirillkom/legal-assistant/internal/core/usecase"
	"github.com/kirillkom/legal-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/legal-assistant/internal/infrastructure/envdetect"
	"github.com/kirillkom/legal-assistant/internal/infrastructure/extractor/document"
	"github.com/kirillkom/legal-assistant/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/legal-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/legal-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/legal-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/legal-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/legal-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/legal-assistant/internal/infrastructure/vector/registry"
	"github.com/kirillkom/legal-assistant/internal/observability/interactionlog"
)

type Options struct {
	Logger *slog.Logger
	// Metrics is optional; processes without a /metrics endpoint leave it nil.
	Metrics ports.AssistantMetrics
	// RequireQueue fails startup when NATS is not configured.
	RequireQueue bool
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Assistant *usecase.AssistantService
	// Jobs is nil when no queue is configured.
	Jobs     *usecase.IngestJobUseCase
	Queue    *nats.Queue
	Executor *resilience.Executor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.BreakerOpenTimeout = cfg.ResilienceBreakerOpen
	executor := resilience.NewExecutor(resilienceCfg, logger.With("component", "resilience"))

	closers := make([]func(), 0, 2)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	recorder, db, err := newRecorder(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if db != nil {
		closers = append(closers, func() { _ = db.Close() })
	}

	var queue *nats.Queue
	if cfg.NATSURL != "" {
		queue, err = nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			EventsSubject:      cfg.NATSEventsSubject,
			ResilienceExecutor: executor,
			Logger:             logger.With("component", "nats"),
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		closers = append(closers, queue.Close)
	} else if opts.RequireQueue {
		closeAll()
		return nil, errors.New("init message queue: NATS_URL is required for asynchronous ingestion")
	}

	env := envdetect.New(cfg.Containerized)
	localFactory := func(host string) ports.GenerationBackend {
		return ollama.New(ollama.Config{BaseURL: host, Timeout: cfg.GenerationTimeout, Executor: executor})
	}
	resolver := usecase.NewBackendResolver(env, localFactory, cfg.OllamaCheckTimeout, logger.With("component", "resolver"))

	hosted := gemini.New(gemini.Config{
		BaseURL:      cfg.GeminiBaseURL,
		APIKey:       cfg.GoogleAPIKey,
		DefaultModel: cfg.GeminiDefaultModel,
		Models:       cfg.GeminiModels,
		EmbedModel:   cfg.GeminiEmbedModel,
		Timeout:      cfg.GenerationTimeout,
		Executor:     executor,
	})

	embedder, err := newEmbedder(cfg, hosted, resolver, executor)
	if err != nil {
		closeAll()
		return nil, err
	}
	if !embedder.Available() {
		logger.Warn("embedder_unavailable", "model", embedder.Model(), "hint", "set GOOGLE_API_KEY or EMBEDDING_PROVIDER=ollama")
	}

	indexes, err := registry.New(cfg.IndexRoot, embedder, logger.With("component", "registry"))
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init index registry: %w", err)
	}

	retriever := usecase.NewRetriever(embedder, indexes, cfg.RAGTopK, logger.With("component", "retriever"))
	if opts.Metrics != nil {
		retriever = retriever.WithMetrics(opts.Metrics)
	}
	dispatcher := usecase.NewDispatcher(hosted, resolver, localFactory, cfg.GenerationTimeout, logger.With("component", "dispatcher"))

	deps := usecase.AssistantDeps{
		Extractor:         document.NewExtractor(logger.With("component", "extractor")),
		Chunker:           chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		Registry:          indexes,
		Retriever:         retriever,
		Dispatcher:        dispatcher,
		Resolver:          resolver,
		Hosted:            hosted,
		Recorder:          recorder,
		Metrics:           opts.Metrics,
		IngestMode:        domain.ParseIngestMode(cfg.IngestMode),
		DefaultCategories: cfg.DefaultCategories,
		Logger:            logger,
	}
	if queue != nil {
		deps.Events = queue
	}
	assistant := usecase.NewAssistantService(deps)

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Assistant: assistant,
		Queue:     queue,
		Executor:  executor,
		closeFn:   closeAll,
	}

	if queue != nil {
		storage, err := localfs.New(cfg.StoragePath)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		app.Jobs = usecase.NewIngestJobUseCase(storage, queue, assistant, logger.With("component", "ingest_jobs"))
	}

	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newRecorder(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.InteractionRecorder, *sql.DB, error) {
	if cfg.PostgresDSN == "" {
		return interactionlog.New(logger.With("component", "interactions")), nil, nil
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewInteractionRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, db, nil
}

func newEmbedder(
	cfg config.Config,
	hosted *gemini.Client,
	resolver *usecase.BackendResolver,
	executor *resilience.Executor,
) (ports.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "", "gemini":
		return gemini.NewEmbedder(hosted), nil
	case "ollama":
		host := cfg.OllamaEmbedHost
		if host == "" {
			host, _ = resolver.Resolve("")
		}
		client := ollama.New(ollama.Config{BaseURL: host, Executor: executor})
		return ollama.NewEmbedder(client, cfg.OllamaEmbedModel), nil
	default:
		return nil, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", cfg.EmbeddingProvider)
	}
}
