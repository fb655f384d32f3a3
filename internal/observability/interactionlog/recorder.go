// Package interactionlog records answered questions to the structured log
// when no database is configured.
package interactionlog

import (
	"context"
	"log/slog"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
)

type Recorder struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger}
}

func (r *Recorder) Record(ctx context.Context, in domain.Interaction) error {
	r.logger.LogAttrs(ctx, slog.LevelInfo, "interaction",
		slog.String("interaction_id", in.ID),
		slog.String("backend", in.Backend),
		slog.String("model", in.Model),
		slog.String("question", in.Question),
		slog.String("answer", in.Answer),
		slog.Bool("grounded", in.Grounded),
		slog.Bool("failed", in.Failed),
		slog.Bool("docker", in.Containerized),
		slog.Time("created_at", in.CreatedAt),
	)
	return nil
}
