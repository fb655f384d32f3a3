package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
	"github.com/kirillkom/legal-assistant/internal/core/ports"
)

const (
	LocalDefaultHost     = "http://localhost:11434"
	ContainerGatewayHost = "http://host.docker.internal:11434"

	defaultCheckTimeout = 3 * time.Second
)

// BackendResolver picks the local runtime host and checks it. Nothing is
// cached between calls: every Check builds a new client.
type BackendResolver struct {
	env          ports.Environment
	factory      ports.LocalBackendFactory
	checkTimeout time.Duration
	logger       *slog.Logger
}

func NewBackendResolver(
	env ports.Environment,
	factory ports.LocalBackendFactory,
	checkTimeout time.Duration,
	logger *slog.Logger,
) *BackendResolver {
	if checkTimeout <= 0 {
		checkTimeout = defaultCheckTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BackendResolver{
		env:          env,
		factory:      factory,
		checkTimeout: checkTimeout,
		logger:       logger,
	}
}

// Resolve applies, in order: explicit override, container gateway, loopback.
func (r *BackendResolver) Resolve(override string) (string, domain.ConnectionMode) {
	if host := normalizeHost(override); host != "" {
		return host, domain.ConnectionExternal
	}
	if r.env.Containerized() {
		return ContainerGatewayHost, domain.ConnectionContainerInternal
	}
	return LocalDefaultHost, domain.ConnectionLocal
}

func (r *BackendResolver) Containerized() bool { return r.env.Containerized() }

// Check resolves the host and lists its models. Failures of any kind are
// reported as an unreachable state.
func (r *BackendResolver) Check(ctx context.Context, override string) domain.ConnectionState {
	host, mode := r.Resolve(override)
	state := domain.ConnectionState{
		Host:          host,
		Mode:          mode,
		Containerized: r.Containerized(),
		Models:        []string{},
	}

	checkCtx, cancel := context.WithTimeout(ctx, r.checkTimeout)
	defer cancel()

	models, err := r.factory(host).ListModels(checkCtx)
	if err != nil {
		r.logger.Warn("local_backend_unreachable",
			"host", host,
			"connection_type", string(mode),
			"error", err,
		)
		return state
	}
	state.Reachable = true
	if models != nil {
		state.Models = models
	}
	return state
}

func normalizeHost(raw string) string {
	host := strings.TrimSpace(raw)
	if host == "" {
		return ""
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/")
}
