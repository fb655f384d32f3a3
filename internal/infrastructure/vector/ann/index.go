// Package ann keeps passage texts next to an HNSW graph of their embeddings.
package ann

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/coder/hnsw"
	"github.com/kirillkom/legal-assistant/internal/core/domain"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// efSearch widens the candidate list so small legal corpora search exactly.
const efSearch = 64

// Index maps graph keys to passage rows. It is not safe for concurrent
// mutation; readers may search concurrently once it is built.
type Index struct {
	graph *hnsw.Graph[int]
	dim   int
	texts []string
}

func New() *Index {
	return &Index{graph: newGraph()}
}

func newGraph() *hnsw.Graph[int] {
	g := hnsw.NewGraph[int]()
	g.Distance = hnsw.EuclideanDistance
	g.EfSearch = efSearch
	return g
}

func (ix *Index) Dim() int { return ix.dim }

func (ix *Index) Len() int { return len(ix.texts) }

// Add inserts rows in order. A batch with any malformed row is rejected whole.
func (ix *Index) Add(vectors [][]float32, texts []string) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("add: %d vectors for %d texts", len(vectors), len(texts))
	}
	dim := ix.dim
	for i, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim || dim == 0 {
			return fmt.Errorf("add row %d: %w: got %d, want %d", i, ErrDimensionMismatch, len(v), dim)
		}
	}

	nodes := make([]hnsw.Node[int], 0, len(vectors))
	for i, v := range vectors {
		nodes = append(nodes, hnsw.MakeNode(len(ix.texts)+i, slices.Clone(v)))
	}
	ix.graph.Add(nodes...)
	ix.dim = dim
	ix.texts = append(ix.texts, texts...)
	return nil
}

// Vector returns the stored embedding of row i.
func (ix *Index) Vector(i int) ([]float32, bool) {
	v, ok := ix.graph.Lookup(i)
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

func (ix *Index) Text(i int) string { return ix.texts[i] }

// Search returns up to k hits nearest-first with squared L2 distances. Equal
// distances keep insertion order.
func (ix *Index) Search(query []float32, k int) []domain.SearchHit {
	if k <= 0 || len(ix.texts) == 0 || len(query) != ix.dim {
		return []domain.SearchHit{}
	}
	k = min(k, len(ix.texts))

	type scored struct {
		row      int
		distance float32
	}
	nodes := ix.graph.Search(query, k)
	found := make([]scored, 0, len(nodes))
	for _, node := range nodes {
		d := ix.graph.Distance(query, node.Value)
		found = append(found, scored{row: node.Key, distance: d * d})
	}
	slices.SortFunc(found, func(a, b scored) int {
		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		return cmp.Compare(a.row, b.row)
	})

	out := make([]domain.SearchHit, 0, len(found))
	for _, s := range found {
		out = append(out, domain.SearchHit{Text: ix.texts[s.row], Distance: s.distance})
	}
	return out
}
