package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
	"github.com/kirillkom/legal-assistant/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTopK           = 4
	maxParallelCategories = 8
)

// Retriever searches several category indexes with one question embedding.
// Missing categories yield empty results; nothing here returns an error.
type Retriever struct {
	embedder ports.Embedder
	registry ports.IndexRegistry
	topK     int
	metrics  ports.AssistantMetrics
	logger   *slog.Logger
}

func NewRetriever(embedder ports.Embedder, registry ports.IndexRegistry, topK int, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = defaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder: embedder,
		registry: registry,
		topK:     topK,
		logger:   logger,
	}
}

func (r *Retriever) WithMetrics(metrics ports.AssistantMetrics) *Retriever {
	r.metrics = metrics
	return r
}

// Retrieve returns one entry per distinct category, in request order.
func (r *Retriever) Retrieve(ctx context.Context, question string, categories []string) domain.RetrievalResult {
	result := domain.NewRetrievalResult(uniqueCategories(categories))
	if len(result.Matches) == 0 {
		return result
	}

	if !r.embedder.Available() {
		r.logger.Warn("retrieval_skipped", "reason", "embedder unavailable")
		return result
	}
	query, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		r.logger.Error("retrieval_embed_failed", "error", err)
		return result
	}

	var g errgroup.Group
	g.SetLimit(maxParallelCategories)
	for i := range result.Matches {
		category := result.Matches[i].Category
		g.Go(func() error {
			ix, ok := r.registry.Load(ctx, category)
			if !ok {
				return nil
			}
			result.Matches[i].Passages = ix.Search(query, r.topK)
			return nil
		})
	}
	_ = g.Wait()

	for _, m := range result.Matches {
		r.logger.Info("retrieval_summary",
			"category", m.Category,
			"hits", len(m.Passages),
			"question_chars", len(question),
		)
		if r.metrics != nil {
			r.metrics.ObserveRetrieval(m.Category, len(m.Passages))
		}
	}
	return result
}

func uniqueCategories(categories []string) []string {
	seen := make(map[string]struct{}, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
