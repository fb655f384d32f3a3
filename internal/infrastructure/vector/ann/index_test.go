package ann

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSearchOrdersNearestFirst(t *testing.T) {
	ix := New()
	err := ix.Add(
		[][]float32{{10, 10}, {1, 0}, {0, 0}, {1, 0}},
		[]string{"far", "near-a", "origin", "near-b"},
	)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	hits := ix.Search([]float32{1, 0}, 3)
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].Text != "near-a" || hits[1].Text != "near-b" || hits[2].Text != "origin" {
		t.Fatalf("unexpected order: %+v", hits)
	}
	if hits[0].Distance != 0 || hits[2].Distance != 1 {
		t.Fatalf("unexpected distances: %+v", hits)
	}
}

func TestSearchReportsSquaredDistance(t *testing.T) {
	ix := New()
	if err := ix.Add([][]float32{{3, 4}}, []string{"a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	hits := ix.Search([]float32{0, 0}, 1)
	if len(hits) != 1 || hits[0].Distance < 24.99 || hits[0].Distance > 25.01 {
		t.Fatalf("expected squared distance 25, got %+v", hits)
	}
}

func TestSearchEdgeCases(t *testing.T) {
	ix := New()
	if hits := ix.Search([]float32{1, 2, 3}, 4); len(hits) != 0 {
		t.Fatalf("expected no hits on empty index")
	}
	if err := ix.Add([][]float32{{1, 2, 3}}, []string{"a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if hits := ix.Search([]float32{1, 2}, 4); len(hits) != 0 {
		t.Fatalf("expected no hits for wrong query dimension")
	}
	if hits := ix.Search([]float32{1, 2, 3}, 0); len(hits) != 0 {
		t.Fatalf("expected no hits for k=0")
	}
	if hits := ix.Search([]float32{1, 2, 3}, 10); len(hits) != 1 {
		t.Fatalf("expected k clamped to size, got %d", len(hits))
	}
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	ix := New()
	err := ix.Add([][]float32{{1, 2}, {1, 2, 3}}, []string{"a", "b"})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
	if ix.Len() != 0 || ix.Dim() != 0 {
		t.Fatalf("failed add must not mutate the index")
	}

	if err := ix.Add([][]float32{{1, 2}}, []string{"a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ix.Add([][]float32{{1, 2, 3}}, []string{"b"}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch against stored rows, got %v", err)
	}
}

func TestAddContinuesRowNumbering(t *testing.T) {
	ix := New()
	if err := ix.Add([][]float32{{0, 0}}, []string{"first"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ix.Add([][]float32{{5, 5}}, []string{"second"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if ix.Len() != 2 || ix.Text(1) != "second" {
		t.Fatalf("unexpected rows: len=%d", ix.Len())
	}
	v, ok := ix.Vector(1)
	if !ok || v[0] != 5 || v[1] != 5 {
		t.Fatalf("unexpected vector for row 1: %v %v", v, ok)
	}
}

func TestPersistAndLoad(t *testing.T) {
	dir := t.TempDir()
	ix := New()
	if err := ix.Add([][]float32{{0.5, -1}, {2, 3}}, []string{"Статья 1", "Article 2"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ix.Persist(dir); err != nil {
		t.Fatalf("persist: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Dim() != 2 || loaded.Len() != 2 {
		t.Fatalf("unexpected shape: dim=%d len=%d", loaded.Dim(), loaded.Len())
	}
	if loaded.Text(0) != "Статья 1" {
		t.Fatalf("unexpected text: %q", loaded.Text(0))
	}
	if v, ok := loaded.Vector(1); !ok || v[0] != 2 || v[1] != 3 {
		t.Fatalf("unexpected vector: %v", v)
	}
	hits := loaded.Search([]float32{2, 3}, 1)
	if len(hits) != 1 || hits[0].Text != "Article 2" {
		t.Fatalf("unexpected hits after reload: %+v", hits)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing files")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, PassagesFile), []byte("definitely not passages"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected corrupt passages, got %v", err)
	}

	ix := New()
	if err := ix.Add([][]float32{{1, 1}}, []string{"a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ix.Persist(dir); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, GraphFile), []byte("junk"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected corrupt graph, got %v", err)
	}
}
