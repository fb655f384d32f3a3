package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
	"github.com/kirillkom/legal-assistant/internal/core/ports"
)

// IngestJobUseCase parks uploads in object storage and queues them for the
// worker, which later feeds them through Assistant.Ingest.
type IngestJobUseCase struct {
	storage   ports.ObjectStorage
	queue     ports.JobQueue
	assistant ports.Assistant
	logger    *slog.Logger
}

func NewIngestJobUseCase(
	storage ports.ObjectStorage,
	queue ports.JobQueue,
	assistant ports.Assistant,
	logger *slog.Logger,
) *IngestJobUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestJobUseCase{
		storage:   storage,
		queue:     queue,
		assistant: assistant,
		logger:    logger,
	}
}

func (uc *IngestJobUseCase) Schedule(ctx context.Context, category string, docs []domain.RawDocument) (*domain.IngestJob, error) {
	if err := domain.ValidateCategory(category); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "schedule ingest", errors.New("no documents"))
	}

	job := &domain.IngestJob{
		ID:        uuid.NewString(),
		Category:  category,
		Keys:      make([]string, 0, len(docs)),
		CreatedAt: time.Now().UTC(),
	}
	for i, doc := range docs {
		key := fmt.Sprintf("%s_%03d_%s", job.ID, i, sanitizeFilename(doc.Filename))
		if err := uc.storage.Save(ctx, key, bytes.NewReader(doc.Data)); err != nil {
			uc.discard(ctx, job.Keys)
			return nil, fmt.Errorf("save to object storage: %w", err)
		}
		job.Keys = append(job.Keys, key)
	}

	if err := uc.queue.PublishIngestJob(ctx, *job); err != nil {
		uc.discard(ctx, job.Keys)
		return nil, fmt.Errorf("publish ingest job: %w", err)
	}
	uc.logger.Info("ingest_job_scheduled", "job_id", job.ID, "category", category, "documents", len(job.Keys))
	return job, nil
}

// Process runs a queued job. Stored uploads are removed afterwards whether
// or not indexing succeeded.
func (uc *IngestJobUseCase) Process(ctx context.Context, job domain.IngestJob) error {
	defer uc.discard(context.WithoutCancel(ctx), job.Keys)

	docs := make([]domain.RawDocument, 0, len(job.Keys))
	for _, key := range job.Keys {
		data, err := uc.read(ctx, key)
		if err != nil {
			return fmt.Errorf("load upload %s: %w", key, err)
		}
		docs = append(docs, domain.RawDocument{
			Filename: originalName(job.ID, key),
			Data:     data,
		})
	}

	if !uc.assistant.Ingest(ctx, job.Category, docs) {
		return fmt.Errorf("ingest job %s: indexing category %s failed", job.ID, job.Category)
	}
	return nil
}

func (uc *IngestJobUseCase) read(ctx context.Context, key string) ([]byte, error) {
	reader, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (uc *IngestJobUseCase) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := uc.storage.Delete(ctx, key); err != nil {
			uc.logger.Warn("upload_cleanup_failed", "key", key, "error", err)
		}
	}
}

// originalName strips the "<job>_<nnn>_" prefix added by Schedule.
func originalName(jobID, key string) string {
	name := strings.TrimPrefix(key, jobID+"_")
	if i := strings.IndexByte(name, '_'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
