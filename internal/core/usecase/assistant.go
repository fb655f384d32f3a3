package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
	"github.com/kirillkom/legal-assistant/internal/core/ports"
)

type AssistantDeps struct {
	Extractor  ports.TextExtractor
	Chunker    ports.Chunker
	Registry   ports.IndexRegistry
	Retriever  *Retriever
	Dispatcher *Dispatcher
	Resolver   *BackendResolver
	Hosted     ports.HostedBackend

	// Optional collaborators.
	Recorder ports.InteractionRecorder
	Events   ports.IndexEventPublisher
	Metrics  ports.AssistantMetrics

	IngestMode        domain.IngestMode
	DefaultCategories []string
	Logger            *slog.Logger
}

// AssistantService is the application facade used by every inbound adapter.
type AssistantService struct {
	deps AssistantDeps
	now  func() time.Time
}

func NewAssistantService(deps AssistantDeps) *AssistantService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if len(deps.DefaultCategories) == 0 {
		deps.DefaultCategories = domain.DefaultCategories
	}
	if deps.IngestMode == "" {
		deps.IngestMode = domain.IngestAppend
	}
	return &AssistantService{deps: deps, now: time.Now}
}

// Ingest extracts, splits and indexes docs into category. An unreadable
// file rejects the whole batch so a category never holds half an upload.
func (s *AssistantService) Ingest(ctx context.Context, category string, docs []domain.RawDocument) bool {
	logger := s.deps.Logger.With("category", category)
	if err := domain.ValidateCategory(category); err != nil {
		logger.Warn("ingest_rejected", "error", err)
		s.observeIngest(category, false, 0)
		return false
	}
	if len(docs) == 0 {
		logger.Warn("ingest_rejected", "reason", "no documents")
		s.observeIngest(category, false, 0)
		return false
	}

	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		text, err := s.deps.Extractor.Extract(ctx, doc)
		if err != nil {
			logger.Error("ingest_failed", "stage", "extract", "filename", doc.Filename, "error", err)
			s.observeIngest(category, false, 0)
			return false
		}
		texts = append(texts, text)
	}

	passages := s.deps.Chunker.Split(strings.Join(texts, "\n"))
	if len(passages) == 0 {
		logger.Warn("ingest_failed", "stage", "split", "reason", "no text extracted", "documents", len(docs))
		s.observeIngest(category, false, 0)
		return false
	}

	var ok bool
	if s.deps.IngestMode == domain.IngestReplace {
		ok = s.deps.Registry.Build(ctx, category, passages)
	} else {
		ok = s.deps.Registry.Append(ctx, category, passages)
	}
	s.observeIngest(category, ok, len(passages))
	if !ok {
		return false
	}

	logger.Info("ingest_completed",
		"documents", len(docs),
		"passages", len(passages),
		"mode", string(s.deps.IngestMode),
	)
	s.publish(ctx, domain.IndexEvent{
		Category: category,
		Action:   domain.IndexBuilt,
		Passages: len(passages),
		At:       s.now().UTC(),
	})
	return true
}

func (s *AssistantService) Answer(ctx context.Context, req domain.AnswerRequest) (domain.GenerationResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return domain.GenerationResult{}, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("question is required"))
	}

	family, ok := domain.ParseBackendFamily(req.Backend)
	if !ok {
		err := &domain.DispatchError{Kind: domain.DispatchInvalidBackend, Backend: req.Backend, Model: req.Model}
		s.observeDispatchError(err)
		return domain.GenerationResult{}, err
	}

	categories := req.Categories
	if len(categories) == 0 {
		categories = s.deps.DefaultCategories
	}
	for _, c := range categories {
		if err := domain.ValidateCategory(c); err != nil {
			return domain.GenerationResult{}, err
		}
	}

	retrieved := s.deps.Retriever.Retrieve(ctx, question, categories)
	result, err := s.deps.Dispatcher.Generate(ctx, domain.GenerationRequest{
		Question:     question,
		Family:       family,
		Model:        req.Model,
		HostOverride: req.HostOverride,
		Context:      retrieved,
	})
	if err != nil {
		s.observeDispatchError(err)
		return domain.GenerationResult{}, err
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveAnswer(family.String(), result.Grounded, result.Failed)
	}
	s.record(ctx, family, question, result)
	return result, nil
}

// Purge deletes the named categories. An empty list deletes nothing and
// succeeds.
func (s *AssistantService) Purge(ctx context.Context, categories []string) bool {
	if len(categories) == 0 {
		s.deps.Logger.Info("purge_skipped", "reason", "no categories")
		return true
	}
	ok := s.deps.Registry.Delete(ctx, categories)
	if !ok {
		return false
	}
	for _, c := range categories {
		s.publish(ctx, domain.IndexEvent{
			Category: c,
			Action:   domain.IndexDeleted,
			At:       s.now().UTC(),
		})
	}
	s.deps.Logger.Info("purge_completed", "categories", categories)
	return true
}

// PurgeAll deletes every category that currently has an index.
func (s *AssistantService) PurgeAll(ctx context.Context) bool {
	return s.Purge(ctx, s.deps.Registry.Categories())
}

func (s *AssistantService) ListModels(ctx context.Context, hostOverride string) domain.ModelCatalog {
	catalog := domain.ModelCatalog{
		Local:            s.deps.Resolver.Check(ctx, hostOverride),
		HostedConfigured: s.deps.Hosted.Configured(),
		HostedModels:     []string{},
	}
	if catalog.HostedConfigured {
		models, err := s.deps.Hosted.ListModels(ctx)
		if err != nil {
			s.deps.Logger.Warn("hosted_models_unavailable", "error", err)
		} else {
			catalog.HostedModels = models
		}
	}
	return catalog
}

func (s *AssistantService) record(
	ctx context.Context,
	family domain.BackendFamily,
	question string,
	result domain.GenerationResult,
) {
	if s.deps.Recorder == nil {
		return
	}
	err := s.deps.Recorder.Record(ctx, domain.Interaction{
		ID:            uuid.NewString(),
		Backend:       family.String(),
		Model:         result.Model,
		Question:      question,
		Answer:        result.Answer,
		Grounded:      result.Grounded,
		Failed:        result.Failed,
		Containerized: s.deps.Resolver.Containerized(),
		CreatedAt:     s.now().UTC(),
	})
	if err != nil {
		s.deps.Logger.Warn("interaction_record_failed", "error", err)
	}
}

func (s *AssistantService) publish(ctx context.Context, event domain.IndexEvent) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.PublishIndexEvent(ctx, event); err != nil {
		s.deps.Logger.Warn("index_event_publish_failed",
			"category", event.Category,
			"action", string(event.Action),
			"error", err,
		)
	}
}

func (s *AssistantService) observeIngest(category string, ok bool, passages int) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveIngest(category, ok, passages)
	}
}

func (s *AssistantService) observeDispatchError(err error) {
	if s.deps.Metrics == nil {
		return
	}
	if dispatchErr, ok := domain.AsDispatchError(err); ok {
		s.deps.Metrics.ObserveDispatchError(string(dispatchErr.Kind))
	}
}
