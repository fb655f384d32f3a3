package ann

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/coder/hnsw"
	"github.com/viant/bintly"
)

const (
	GraphFile    = "graph.hnsw"
	PassagesFile = "passages.bin"

	passagesMagic = "legal-passages/v1"
)

var ErrCorrupt = errors.New("corrupt index data")

func (ix *Index) encodePassages() []byte {
	writers := bintly.NewWriters()
	w := writers.Get()
	defer writers.Put(w)

	w.Int(ix.dim)
	w.Int(len(ix.texts))
	for _, text := range ix.texts {
		w.String(text)
	}
	return append([]byte(passagesMagic), w.Bytes()...)
}

func decodePassages(data []byte) (dim int, texts []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCorrupt, r)
		}
	}()

	if !bytes.HasPrefix(data, []byte(passagesMagic)) {
		return 0, nil, fmt.Errorf("%w: missing passages header", ErrCorrupt)
	}
	readers := bintly.NewReaders()
	r := readers.Get()
	defer readers.Put(r)
	payload := data[len(passagesMagic):]
	if err := r.FromBytes(payload); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var count int
	r.Int(&dim)
	r.Int(&count)
	if dim < 0 || count < 0 || (count > 0 && dim == 0) || count > len(payload) {
		return 0, nil, fmt.Errorf("%w: dim=%d passages=%d", ErrCorrupt, dim, count)
	}
	texts = make([]string, count)
	for i := range texts {
		r.String(&texts[i])
	}
	return dim, texts, nil
}

// Persist writes the graph and its passages into dir, which must exist.
func (ix *Index) Persist(dir string) error {
	f, err := os.Create(filepath.Join(dir, GraphFile))
	if err != nil {
		return fmt.Errorf("create graph file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := ix.graph.Export(w); err != nil {
		_ = f.Close()
		return fmt.Errorf("export graph: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush graph: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close graph file: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, PassagesFile), ix.encodePassages(), 0o644); err != nil {
		return fmt.Errorf("write passages: %w", err)
	}
	return nil
}

func Load(dir string) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(dir, PassagesFile))
	if err != nil {
		return nil, fmt.Errorf("read passages: %w", err)
	}
	dim, texts, err := decodePassages(data)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(dir, GraphFile))
	if err != nil {
		return nil, fmt.Errorf("open graph file: %w", err)
	}
	defer f.Close()

	graph := newGraph()
	if err := importGraph(graph, bufio.NewReader(f)); err != nil {
		return nil, err
	}
	graph.EfSearch = efSearch
	if graph.Len() != len(texts) {
		return nil, fmt.Errorf("%w: graph holds %d nodes for %d passages", ErrCorrupt, graph.Len(), len(texts))
	}
	return &Index{graph: graph, dim: dim, texts: texts}, nil
}

func importGraph(graph *hnsw.Graph[int], r io.Reader) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrCorrupt, p)
		}
	}()
	if err := graph.Import(r); err != nil {
		return fmt.Errorf("%w: import graph: %v", ErrCorrupt, err)
	}
	return nil
}
