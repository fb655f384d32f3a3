package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
)

func TestRetrieveNeverBuiltCategories(t *testing.T) {
	r := NewRetriever(&embedderFake{available: true}, newRegistryFake(), 0, discardLogger())

	result := r.Retrieve(context.Background(), "what is a tort?", []string{"Laws", "Case"})
	if got := result.Categories(); len(got) != 2 || got[0] != "Laws" || got[1] != "Case" {
		t.Fatalf("unexpected categories: %v", got)
	}
	for _, m := range result.Matches {
		if m.Passages == nil || len(m.Passages) != 0 {
			t.Fatalf("expected empty non-nil passages for %s, got %#v", m.Category, m.Passages)
		}
	}
}

func TestRetrieveKeepsRequestOrderAndPartialResults(t *testing.T) {
	registry := newRegistryFake()
	caseIndex := &categoryIndexFake{category: "Case", hits: []domain.SearchHit{
		{Text: "ruling one", Distance: 0.1},
		{Text: "ruling two", Distance: 0.2},
	}}
	registry.indexes["Case"] = caseIndex
	metrics := &metricsFake{}

	r := NewRetriever(&embedderFake{available: true}, registry, 1, discardLogger()).WithMetrics(metrics)
	result := r.Retrieve(context.Background(), "q", []string{"Tax", "Case", "Laws", "Case"})

	if got := result.Categories(); len(got) != 3 || got[0] != "Tax" || got[1] != "Case" || got[2] != "Laws" {
		t.Fatalf("unexpected categories: %v", got)
	}
	hits, ok := result.Passages("Case")
	if !ok || len(hits) != 1 || hits[0].Text != "ruling one" {
		t.Fatalf("unexpected Case hits: %+v", hits)
	}
	if caseIndex.lastK != 1 {
		t.Fatalf("expected top-k 1, got %d", caseIndex.lastK)
	}
	if metrics.retrievals["Case"] != 1 || metrics.retrievals["Laws"] != 0 {
		t.Fatalf("unexpected retrieval metrics: %v", metrics.retrievals)
	}
}

func TestRetrieveDefaultTopK(t *testing.T) {
	registry := newRegistryFake()
	ix := &categoryIndexFake{category: "Laws"}
	registry.indexes["Laws"] = ix

	NewRetriever(&embedderFake{available: true}, registry, 0, discardLogger()).
		Retrieve(context.Background(), "q", []string{"Laws"})
	if ix.lastK != defaultTopK {
		t.Fatalf("expected default top-k %d, got %d", defaultTopK, ix.lastK)
	}
}

func TestRetrieveWithoutEmbedderReturnsEmptyEntries(t *testing.T) {
	registry := newRegistryFake()
	registry.indexes["Laws"] = &categoryIndexFake{category: "Laws", hits: []domain.SearchHit{{Text: "x"}}}

	for name, embedder := range map[string]*embedderFake{
		"unavailable": {available: false},
		"failing":     {available: true, err: errors.New("quota")},
	} {
		t.Run(name, func(t *testing.T) {
			result := NewRetriever(embedder, registry, 4, discardLogger()).
				Retrieve(context.Background(), "q", []string{"Laws"})
			if result.Total() != 0 || len(result.Matches) != 1 {
				t.Fatalf("expected one empty entry, got %+v", result)
			}
		})
	}
}

func TestRetrieveEmbedsQuestionOnce(t *testing.T) {
	embedder := &embedderFake{available: true}
	NewRetriever(embedder, newRegistryFake(), 4, discardLogger()).
		Retrieve(context.Background(), "q", []string{"Laws", "Case", "Tax"})
	if embedder.queries != 1 {
		t.Fatalf("expected one query embedding, got %d", embedder.queries)
	}
}
