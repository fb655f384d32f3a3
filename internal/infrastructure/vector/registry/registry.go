// Package registry persists one HNSW passage index per category.
//
// Layout under the root directory:
//
//	<category>/CURRENT               name of the live version
//	<category>/v-<nanos>-<uuid>/     graph.hnsw + passages.bin + manifest.yaml
//
// A version directory is fully written before CURRENT is swapped to it by
// rename, so readers see either the old or the new index. Deletion renames the
// whole category directory away before removing it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirillkom/legal-assistant/internal/core/domain"
	"github.com/kirillkom/legal-assistant/internal/core/ports"
	"github.com/kirillkom/legal-assistant/internal/infrastructure/vector/ann"
)

const (
	currentFile   = "CURRENT"
	versionPrefix = "v-"
	trashPrefix   = ".trash-"

	// readAttempts bounds how often a reader chases CURRENT while writers
	// keep publishing and pruning underneath it.
	readAttempts = 8
)

type Registry struct {
	root     string
	embedder ports.Embedder
	logger   *slog.Logger
	now      func() time.Time

	locks sync.Map
}

func New(root string, embedder ports.Embedder, logger *slog.Logger) (*Registry, error) {
	if root == "" {
		root = "./data/indexes"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create index root: %w", err)
	}
	r := &Registry{
		root:     root,
		embedder: embedder,
		logger:   logger,
		now:      time.Now,
	}
	r.sweepTrash()
	return r, nil
}

// Build replaces the category index with passages.
func (r *Registry) Build(ctx context.Context, category string, passages []string) bool {
	if !r.writable("build", category, passages) {
		return false
	}
	unlock := r.lock(category)
	defer unlock()

	ix, ok := r.embedAll(ctx, "build", category, passages)
	if !ok {
		return false
	}
	return r.publish(category, ix)
}

// Append publishes a new version holding the current passages plus the new
// ones. Stored vectors are reused when they came from the same embedding model.
func (r *Registry) Append(ctx context.Context, category string, passages []string) bool {
	if !r.writable("append", category, passages) {
		return false
	}
	unlock := r.lock(category)
	defer unlock()

	existing, manifest, err := r.readCurrent(category)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("index_append_reset", "category", category, "error", err)
		}
		ix, ok := r.embedAll(ctx, "append", category, passages)
		if !ok {
			return false
		}
		return r.publish(category, ix)
	}

	if manifest.EmbeddingModel == r.embedder.Model() {
		vectors, ok := r.embed(ctx, "append", category, passages)
		if !ok {
			return false
		}
		if err := existing.Add(vectors, passages); err == nil {
			return r.publish(category, existing)
		}
		r.logger.Warn("index_append_dimension_changed", "category", category, "dimensions", existing.Dim())
	}

	texts := make([]string, 0, existing.Len()+len(passages))
	for i := 0; i < existing.Len(); i++ {
		texts = append(texts, existing.Text(i))
	}
	texts = append(texts, passages...)
	r.logger.Info("index_reembed",
		"category", category,
		"previous_model", manifest.EmbeddingModel,
		"model", r.embedder.Model(),
		"passages", len(texts),
	)
	ix, ok := r.embedAll(ctx, "append", category, texts)
	if !ok {
		return false
	}
	return r.publish(category, ix)
}

// Load returns the live index of category. Absence is a normal state.
func (r *Registry) Load(_ context.Context, category string) (ports.CategoryIndex, bool) {
	if err := domain.ValidateCategory(category); err != nil {
		r.logger.Warn("index_load_rejected", "category", category, "error", err)
		return nil, false
	}
	if !r.embedder.Available() {
		r.logger.Warn("index_load_skipped", "category", category, "reason", "embedder unavailable")
		return nil, false
	}

	ix, manifest, err := r.readCurrent(category)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.logger.Debug("index_absent", "category", category)
		} else {
			r.logger.Warn("index_load_failed", "category", category, "error", err)
		}
		return nil, false
	}
	return &CategoryIndex{category: category, manifest: manifest, index: ix}, true
}

// Delete removes every listed category. Missing categories count as deleted.
func (r *Registry) Delete(_ context.Context, categories []string) bool {
	ok := true
	for _, category := range categories {
		if err := domain.ValidateCategory(category); err != nil {
			r.logger.Warn("index_delete_rejected", "category", category, "error", err)
			ok = false
			continue
		}
		if err := r.deleteCategory(category); err != nil {
			r.logger.Error("index_delete_failed", "category", category, "error", err)
			ok = false
			continue
		}
	}
	return ok
}

// Categories lists categories that currently have a published index.
func (r *Registry) Categories() []string {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		r.logger.Warn("index_list_failed", "error", err)
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.root, entry.Name(), currentFile)); err != nil {
			continue
		}
		out = append(out, entry.Name())
	}
	slices.Sort(out)
	return out
}

func (r *Registry) writable(op, category string, passages []string) bool {
	if err := domain.ValidateCategory(category); err != nil {
		r.logger.Warn("index_"+op+"_rejected", "category", category, "error", err)
		return false
	}
	if len(passages) == 0 {
		r.logger.Warn("index_"+op+"_rejected", "category", category, "reason", "no passages")
		return false
	}
	if !r.embedder.Available() {
		r.logger.Error("index_"+op+"_failed", "category", category, "reason", "embedder unavailable")
		return false
	}
	return true
}

func (r *Registry) embed(ctx context.Context, op, category string, texts []string) ([][]float32, bool) {
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		r.logger.Error("index_"+op+"_failed", "category", category, "stage", "embed", "error", err)
		return nil, false
	}
	if len(vectors) != len(texts) {
		r.logger.Error("index_"+op+"_failed",
			"category", category,
			"stage", "embed",
			"error", fmt.Sprintf("embedder returned %d vectors for %d passages", len(vectors), len(texts)),
		)
		return nil, false
	}
	return vectors, true
}

func (r *Registry) embedAll(ctx context.Context, op, category string, texts []string) (*ann.Index, bool) {
	vectors, ok := r.embed(ctx, op, category, texts)
	if !ok {
		return nil, false
	}
	ix := ann.New()
	if err := ix.Add(vectors, texts); err != nil {
		r.logger.Error("index_"+op+"_failed", "category", category, "stage", "index", "error", err)
		return nil, false
	}
	return ix, true
}

func (r *Registry) publish(category string, ix *ann.Index) bool {
	categoryDir := filepath.Join(r.root, category)
	builtAt := r.now().UTC()
	version := fmt.Sprintf("%s%d-%s", versionPrefix, builtAt.UnixNano(), uuid.NewString())
	versionDir := filepath.Join(categoryDir, version)

	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		r.logger.Error("index_publish_failed", "category", category, "error", err)
		return false
	}
	previous, _ := r.currentVersion(category)

	err := ix.Persist(versionDir)
	if err == nil {
		err = writeManifest(versionDir, Manifest{
			Category:       category,
			Version:        version,
			EmbeddingModel: r.embedder.Model(),
			Dimensions:     ix.Dim(),
			Passages:       ix.Len(),
			BuiltAt:        builtAt,
		})
	}
	if err == nil {
		err = r.swapCurrent(categoryDir, version)
	}
	if err != nil {
		_ = os.RemoveAll(versionDir)
		r.logger.Error("index_publish_failed", "category", category, "version", version, "error", err)
		return false
	}

	r.prune(categoryDir, version, previous)
	r.logger.Info("index_published",
		"category", category,
		"version", version,
		"passages", ix.Len(),
		"dimensions", ix.Dim(),
	)
	return true
}

func (r *Registry) swapCurrent(categoryDir, version string) error {
	tmp := filepath.Join(categoryDir, "."+currentFile+"-"+uuid.NewString())
	if err := os.WriteFile(tmp, []byte(version+"\n"), 0o644); err != nil {
		return fmt.Errorf("write current pointer: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(categoryDir, currentFile)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("swap current pointer: %w", err)
	}
	return nil
}

// prune keeps the live version and its predecessor; the predecessor may
// still be open by an in-flight reader.
func (r *Registry) prune(categoryDir, current, previous string) {
	entries, err := os.ReadDir(categoryDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, versionPrefix) || name == current || name == previous {
			continue
		}
		if err := os.RemoveAll(filepath.Join(categoryDir, name)); err != nil {
			r.logger.Warn("index_prune_failed", "dir", name, "error", err)
		}
	}
}

func (r *Registry) currentVersion(category string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(r.root, category, currentFile))
	if err != nil {
		return "", err
	}
	version := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(version, versionPrefix) || strings.ContainsAny(version, `/\`) {
		return "", fmt.Errorf("invalid current pointer %q", version)
	}
	return version, nil
}

// readCurrent loads the live version. A version pruned between resolving
// CURRENT and opening its files is retried against the new CURRENT.
func (r *Registry) readCurrent(category string) (*ann.Index, Manifest, error) {
	version, err := r.currentVersion(category)
	if err != nil {
		return nil, Manifest{}, err
	}
	for attempt := 1; ; attempt++ {
		ix, manifest, err := r.readVersion(category, version)
		if err == nil {
			return ix, manifest, nil
		}
		latest, currentErr := r.currentVersion(category)
		if currentErr != nil || latest == version || attempt >= readAttempts {
			return nil, Manifest{}, err
		}
		r.logger.Debug("index_load_retry", "category", category, "stale_version", version, "version", latest)
		version = latest
	}
}

func (r *Registry) readVersion(category, version string) (*ann.Index, Manifest, error) {
	dir := filepath.Join(r.root, category, version)
	manifest, err := readManifest(dir)
	if err != nil {
		return nil, Manifest{}, err
	}
	ix, err := ann.Load(dir)
	if err != nil {
		return nil, Manifest{}, err
	}
	return ix, manifest, nil
}

func (r *Registry) deleteCategory(category string) error {
	unlock := r.lock(category)
	defer unlock()

	trash := filepath.Join(r.root, trashPrefix+category+"-"+uuid.NewString())
	if err := os.Rename(filepath.Join(r.root, category), trash); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("detach category dir: %w", err)
	}
	if err := os.RemoveAll(trash); err != nil {
		r.logger.Warn("index_trash_left", "dir", trash, "error", err)
	}
	r.logger.Info("index_deleted", "category", category)
	return nil
}

// sweepTrash removes directories left behind by an interrupted delete.
func (r *Registry) sweepTrash() {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), trashPrefix) {
			_ = os.RemoveAll(filepath.Join(r.root, entry.Name()))
		}
	}
}

func (r *Registry) lock(category string) func() {
	value, _ := r.locks.LoadOrStore(category, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CategoryIndex is a loaded, read-only index version.
type CategoryIndex struct {
	category string
	manifest Manifest
	index    *ann.Index
}

func (c *CategoryIndex) Category() string { return c.category }

func (c *CategoryIndex) Len() int { return c.index.Len() }

func (c *CategoryIndex) Manifest() Manifest { return c.manifest }

func (c *CategoryIndex) Search(query []float32, k int) []domain.SearchHit {
	return c.index.Search(query, k)
}
