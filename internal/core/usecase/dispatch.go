package usecase

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
	"github.com/kirillkom/legal-assistant/internal/core/ports"
)

const (
	hostedFailureMessage = "Failed to generate response from Gemini."
	localFailureMessage  = "Failed to generate response from Ollama."

	defaultGenerationTimeout = 120 * time.Second
)

// Dispatcher routes a grounded question to one backend family. Routing
// problems come back as *domain.DispatchError; provider failures come back as
// a result with Failed set.
type Dispatcher struct {
	hosted            ports.HostedBackend
	resolver          *BackendResolver
	localFactory      ports.LocalBackendFactory
	generationTimeout time.Duration
	logger            *slog.Logger
}

func NewDispatcher(
	hosted ports.HostedBackend,
	resolver *BackendResolver,
	localFactory ports.LocalBackendFactory,
	generationTimeout time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	if generationTimeout <= 0 {
		generationTimeout = defaultGenerationTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		hosted:            hosted,
		resolver:          resolver,
		localFactory:      localFactory,
		generationTimeout: generationTimeout,
		logger:            logger,
	}
}

func (d *Dispatcher) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	passages := req.Context.Flatten()

	switch req.Family {
	case domain.FamilyHosted:
		return d.generateHosted(ctx, req, passages), nil
	case domain.FamilyLocal:
		return d.generateLocal(ctx, req, passages)
	default:
		return domain.GenerationResult{}, &domain.DispatchError{
			Kind:    domain.DispatchInvalidBackend,
			Backend: req.Family.String(),
			Model:   req.Model,
		}
	}
}

func (d *Dispatcher) generateHosted(ctx context.Context, req domain.GenerationRequest, passages []string) domain.GenerationResult {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = d.hosted.DefaultModel()
	}
	result := domain.GenerationResult{
		Grounded: len(passages) > 0,
		Family:   domain.FamilyHosted,
		Model:    model,
	}

	if !d.hosted.Configured() {
		d.logger.Error("generation_failed", "backend", "gemini", "model", model, "reason", "not configured")
		result.Answer = hostedFailureMessage
		result.Failed = true
		return result
	}

	genCtx, cancel := context.WithTimeout(ctx, d.generationTimeout)
	defer cancel()

	answer, err := d.hosted.Complete(genCtx, buildHostedPrompt(req.Question, passages), model)
	if err != nil {
		d.logger.Error("generation_failed", "backend", "gemini", "model", model, "error", err)
		result.Answer = hostedFailureMessage
		result.Failed = true
		return result
	}
	result.Answer = answer
	return result
}

func (d *Dispatcher) generateLocal(
	ctx context.Context,
	req domain.GenerationRequest,
	passages []string,
) (domain.GenerationResult, error) {
	state := d.resolver.Check(ctx, req.HostOverride)
	if !state.Reachable {
		return domain.GenerationResult{}, &domain.DispatchError{
			Kind:    domain.DispatchBackendUnavailable,
			Backend: domain.FamilyLocal.String(),
			Model:   req.Model,
			Host:    state.Host,
		}
	}

	model := strings.TrimSpace(req.Model)
	if !modelAvailable(state.Models, model) {
		return domain.GenerationResult{}, &domain.DispatchError{
			Kind:    domain.DispatchModelNotFound,
			Backend: domain.FamilyLocal.String(),
			Model:   model,
			Host:    state.Host,
		}
	}

	result := domain.GenerationResult{
		Grounded: len(passages) > 0,
		Family:   domain.FamilyLocal,
		Model:    model,
	}

	genCtx, cancel := context.WithTimeout(ctx, d.generationTimeout)
	defer cancel()

	answer, err := d.localFactory(state.Host).Complete(genCtx, buildLocalPrompt(req.Question, passages), model)
	if err != nil {
		d.logger.Error("generation_failed", "backend", "ollama", "host", state.Host, "model", model, "error", err)
		result.Answer = localFailureMessage
		result.Failed = true
		return result, nil
	}
	result.Answer = answer
	return result, nil
}

// modelAvailable treats "name" and "name:latest" as the same model.
func modelAvailable(models []string, name string) bool {
	if name == "" {
		return false
	}
	base := strings.TrimSuffix(name, ":latest")
	return slices.ContainsFunc(models, func(m string) bool {
		return m == name || strings.TrimSuffix(m, ":latest") == base
	})
}
