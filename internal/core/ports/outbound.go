package ports

import (
	"context"
	"io"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
)

// TextExtractor turns an uploaded file into plain text. Unreadable pages
// yield empty text rather than an error.
type TextExtractor interface {
	Extract(ctx context.Context, doc domain.RawDocument) (string, error)
}

// Chunker splits text into overlapping passages.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for passages and query text. Available reports
// whether the provider is configured; callers check it before use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Available() bool
	Model() string
}

// CategoryIndex is a loaded, read-only view of one category's vectors.
type CategoryIndex interface {
	Category() string
	Len() int
	Search(query []float32, k int) []domain.SearchHit
}

// IndexRegistry owns the per-category persisted indexes. Failures are
// reported as booleans or absence, never as errors.
type IndexRegistry interface {
	Build(ctx context.Context, category string, passages []string) bool
	Append(ctx context.Context, category string, passages []string) bool
	Load(ctx context.Context, category string) (CategoryIndex, bool)
	Delete(ctx context.Context, categories []string) bool
	Categories() []string
}

// GenerationBackend is the capability shared by every backend family.
type GenerationBackend interface {
	ListModels(ctx context.Context) ([]string, error)
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// HostedBackend is the hosted API family; it may be unconfigured.
type HostedBackend interface {
	GenerationBackend
	Configured() bool
	DefaultModel() string
}

// LocalBackendFactory builds a fresh local runtime client bound to host.
type LocalBackendFactory func(host string) GenerationBackend

// InteractionRecorder persists answered questions for later review.
type InteractionRecorder interface {
	Record(ctx context.Context, interaction domain.Interaction) error
}

// IndexEventPublisher announces index mutations.
type IndexEventPublisher interface {
	PublishIndexEvent(ctx context.Context, event domain.IndexEvent) error
}

// ObjectStorage parks uploaded files between the API and the worker.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// JobQueue publishes/consumes asynchronous ingestion jobs.
type JobQueue interface {
	PublishIngestJob(ctx context.Context, job domain.IngestJob) error
	SubscribeIngestJobs(ctx context.Context, handler func(context.Context, domain.IngestJob) error) error
}

// Environment exposes process-wide facts fixed at startup.
type Environment interface {
	Containerized() bool
}

// AssistantMetrics receives counters about ingestion and answering.
type AssistantMetrics interface {
	ObserveIngest(category string, ok bool, passages int)
	ObserveAnswer(family string, grounded, failed bool)
	ObserveDispatchError(kind string)
	ObserveRetrieval(category string, hits int)
}
