package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
	"github.com/kirillkom/legal-assistant/internal/core/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type embedderFake struct {
	available bool
	err       error
	queries   int
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, letterVector(text))
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	return letterVector(text), nil
}

func (f *embedderFake) Available() bool { return f.available }
func (f *embedderFake) Model() string   { return "fake" }

func letterVector(text string) []float32 {
	lower := strings.ToLower(text)
	return []float32{
		float32(strings.Count(lower, "a")),
		float32(strings.Count(lower, "e")),
		float32(strings.Count(lower, "i")),
		float32(strings.Count(lower, "o")),
	}
}

type categoryIndexFake struct {
	category string
	hits     []domain.SearchHit
	lastK    int
}

func (f *categoryIndexFake) Category() string { return f.category }
func (f *categoryIndexFake) Len() int         { return len(f.hits) }
func (f *categoryIndexFake) Search(_ []float32, k int) []domain.SearchHit {
	f.lastK = k
	if k < len(f.hits) {
		return f.hits[:k]
	}
	return f.hits
}

type registryFake struct {
	mu       sync.Mutex
	indexes  map[string]*categoryIndexFake
	built    map[string][]string
	appended map[string][]string
	deleted  []string
	fail     bool
}

func newRegistryFake() *registryFake {
	return &registryFake{
		indexes:  map[string]*categoryIndexFake{},
		built:    map[string][]string{},
		appended: map[string][]string{},
	}
}

func (f *registryFake) Build(_ context.Context, category string, passages []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail || len(passages) == 0 {
		return false
	}
	f.built[category] = passages
	return true
}

func (f *registryFake) Append(_ context.Context, category string, passages []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail || len(passages) == 0 {
		return false
	}
	f.appended[category] = append(f.appended[category], passages...)
	return true
}

func (f *registryFake) Load(_ context.Context, category string) (ports.CategoryIndex, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ix, ok := f.indexes[category]
	if !ok {
		return nil, false
	}
	return ix, true
}

func (f *registryFake) Delete(_ context.Context, categories []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false
	}
	for _, c := range categories {
		delete(f.indexes, c)
	}
	f.deleted = append(f.deleted, categories...)
	return true
}

func (f *registryFake) Categories() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.indexes))
	for c := range f.indexes {
		out = append(out, c)
	}
	return out
}

type envFake bool

func (p envFake) Containerized() bool { return bool(p) }

// backendFake serves both the hosted family and the local factory.
type backendFake struct {
	mu          sync.Mutex
	configured  bool
	models      []string
	listErr     error
	answer      string
	completeErr error
	prompts     []string
	usedModels  []string
	block       bool
}

func (f *backendFake) ListModels(ctx context.Context) ([]string, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.models, nil
}

func (f *backendFake) Complete(_ context.Context, prompt, model string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.usedModels = append(f.usedModels, model)
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.answer, nil
}

func (f *backendFake) Configured() bool     { return f.configured }
func (f *backendFake) DefaultModel() string { return "gemini-2.0-flash" }

func (f *backendFake) completions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type localFactoryFake struct {
	backend *backendFake
	hosts   []string
}

func (f *localFactoryFake) factory() ports.LocalBackendFactory {
	return func(host string) ports.GenerationBackend {
		f.hosts = append(f.hosts, host)
		return f.backend
	}
}

type extractorFake struct {
	failOn string
}

func (f *extractorFake) Extract(_ context.Context, doc domain.RawDocument) (string, error) {
	if f.failOn != "" && doc.Filename == f.failOn {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract", errors.New("broken file"))
	}
	return string(doc.Data), nil
}

type chunkerFake struct{}

func (chunkerFake) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

type recorderFake struct {
	interactions []domain.Interaction
	err          error
}

func (f *recorderFake) Record(_ context.Context, interaction domain.Interaction) error {
	f.interactions = append(f.interactions, interaction)
	return f.err
}

type eventsFake struct {
	events []domain.IndexEvent
	err    error
}

func (f *eventsFake) PublishIndexEvent(_ context.Context, event domain.IndexEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type metricsFake struct {
	mu             sync.Mutex
	ingests        []bool
	answers        []string
	dispatchErrors []string
	retrievals     map[string]int
}

func (f *metricsFake) ObserveIngest(_ string, ok bool, _ int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingests = append(f.ingests, ok)
}

func (f *metricsFake) ObserveAnswer(family string, _, _ bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, family)
}

func (f *metricsFake) ObserveDispatchError(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatchErrors = append(f.dispatchErrors, kind)
}

func (f *metricsFake) ObserveRetrieval(category string, hits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.retrievals == nil {
		f.retrievals = map[string]int{}
	}
	f.retrievals[category] = hits
}
