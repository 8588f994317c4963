package page

import (
	"errors"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/CTAG07/pageview/pkg/resource"
)

// ErrNoEntry means a page directory has neither a registered entry nor a
// manifest.
var ErrNoEntry = errors.New("page has no entry logic")

// Registry maps page directories to Go entry logic. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]Entry{}}
}

// Register sets the entry logic for dir, replacing any previous one.
func (r *Registry) Register(dir string, entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[cleanDir(dir)] = entry
}

// Lookup returns the entry registered for dir.
func (r *Registry) Lookup(dir string) (Entry, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[cleanDir(dir)]
	return e, ok
}

// Dirs returns the registered directories in sorted order.
func (r *Registry) Dirs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dirs := make([]string, 0, len(r.entries))
	for d := range r.entries {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Resolve finds the entry logic for dir: a registered entry first, then an
// index manifest in the store.
func (r *Registry) Resolve(store resource.Store, dir string) (Entry, bool) {
	if e, ok := r.Lookup(dir); ok {
		return e, true
	}
	p, ok := resource.NewResolver(store, nil).Path(cleanDir(dir), IndexName)
	if !ok || !IsManifestExt(resource.Ext(p)) {
		return nil, false
	}
	return ManifestEntry(p), true
}

func cleanDir(dir string) string {
	return path.Clean(filepath.ToSlash(dir))
}
