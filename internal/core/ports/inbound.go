package ports

import (
	"context"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
)

// Assistant is the inbound contract consumed by the HTTP, MCP and CLI layers.
type Assistant interface {
	Ingest(ctx context.Context, category string, docs []domain.RawDocument) bool
	Answer(ctx context.Context, req domain.AnswerRequest) (domain.GenerationResult, error)
	Purge(ctx context.Context, categories []string) bool
	PurgeAll(ctx context.Context) bool
	ListModels(ctx context.Context, hostOverride string) domain.ModelCatalog
}

// IngestScheduler parks uploads and hands them to the worker.
type IngestScheduler interface {
	Schedule(ctx context.Context, category string, docs []domain.RawDocument) (*domain.IngestJob, error)
}

// IngestJobProcessor runs a queued ingestion job.
type IngestJobProcessor interface {
	Process(ctx context.Context, job domain.IngestJob) error
}
