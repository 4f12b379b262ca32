// Package problemloader resolves a problem id to a parsed manifest and a
// local directory of its assets, caching the first successful resolution
// for the lifetime of the process.
package problemloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jjs-dev/judge/internal/domain"
	"github.com/jjs-dev/judge/internal/logging"
	"github.com/jjs-dev/judge/internal/metrics"
)

type cacheEntry struct {
	manifest  *domain.Manifest
	assetsDir string
}

// Loader resolves problems against an ordered list of registries, caching
// results behind a single mutex so the same problem is never fetched twice.
type Loader struct {
	registries []Registry
	cacheRoot  string

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// New constructs a Loader consulting registries in the given order.
func New(cacheRoot string, registries ...Registry) *Loader {
	return &Loader{
		registries: registries,
		cacheRoot:  cacheRoot,
		cache:      make(map[string]cacheEntry),
	}
}

// Find resolves problemName, returning (manifest, assetsDir) on success. A
// nil manifest with a nil error means no registry had the problem.
func (l *Loader) Find(ctx context.Context, problemName string) (*domain.Manifest, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.cache[problemName]; ok {
		logging.Op().Debug("problem cache hit", "problem", problemName)
		metrics.Global().RecordCacheHit()
		return entry.manifest, entry.assetsDir, nil
	}
	metrics.Global().RecordCacheMiss()

	assetsDir := filepath.Join(l.cacheRoot, problemName)
	if err := os.RemoveAll(assetsDir); err != nil {
		logging.Op().Warn("problemloader: clear assets dir failed, continuing", "dir", assetsDir, "error", err)
	}
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("problemloader: create assets dir %s: %w", assetsDir, err)
	}

	for _, reg := range l.registries {
		manifest, err := reg.GetProblem(ctx, problemName, assetsDir)
		if err != nil {
			return nil, "", fmt.Errorf("problemloader: registry %s: %w", reg.Name(), err)
		}
		if manifest != nil {
			l.cache[problemName] = cacheEntry{manifest: manifest, assetsDir: assetsDir}
			logging.Op().Info("resolved problem", "problem", problemName, "registry", reg.Name())
			return manifest, assetsDir, nil
		}
	}
	return nil, "", nil
}
