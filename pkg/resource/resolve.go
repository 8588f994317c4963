package resource

import (
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// Resolver maps a base name inside a directory to the extension of the one
// resource stored under that name.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

// NewResolver creates a Resolver over store. A nil logger discards.
func NewResolver(store Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{store: store, logger: logger}
}

// Store returns the store the resolver reads from.
func (r *Resolver) Store() Store { return r.store }

// Resolve returns the extension of the resource named base in dir, without
// the leading dot. A file matches when its name with the last extension
// removed equals base exactly, so "content.tmpl.html" is not a match for
// "content".
//
// Absence is not an error: ok is false when nothing matches, and store
// failures are logged and reported the same way. When several files match,
// the extensions are put in natural order and the first one wins.
func (r *Resolver) Resolve(dir, base string) (ext string, ok bool) {
	if base == "" {
		return "", false
	}
	prefix := base + "."
	candidates, err := r.store.ListMatching(path.Join(dir, prefix))
	if err != nil {
		r.logger.Debug("Could not list resources", "dir", dir, "name", base, "error", err)
		return "", false
	}

	var exts []string
	for _, c := range candidates {
		name := path.Base(c)
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := name[len(prefix):]
		if rest == "" || strings.Contains(rest, ".") {
			continue
		}
		exts = append(exts, rest)
	}

	switch len(exts) {
	case 0:
		return "", false
	case 1:
		return exts[0], true
	}

	sort.Slice(exts, func(i, j int) bool { return natural.Less(exts[i], exts[j]) })
	r.logger.Debug("Ambiguous resource name, using first match", "dir", dir, "name", base, "candidates", exts, "chosen", exts[0])
	return exts[0], true
}

// Path is Resolve returning the full path of the matching resource.
func (r *Resolver) Path(dir, base string) (string, bool) {
	ext, ok := r.Resolve(dir, base)
	if !ok {
		return "", false
	}
	return path.Join(dir, base+"."+ext), true
}

// Read resolves base in dir and returns the path and contents of the match.
// A resource that resolves but cannot be read is treated as missing.
func (r *Resolver) Read(dir, base string) (p string, data []byte, ok bool) {
	p, ok = r.Path(dir, base)
	if !ok {
		return "", nil, false
	}
	data, err := r.store.ReadAll(p)
	if err != nil {
		r.logger.Debug("Could not read resource", "path", p, "error", err)
		return "", nil, false
	}
	return p, data, true
}

// Ext returns the extension of p without the leading dot.
func Ext(p string) string {
	return strings.TrimPrefix(path.Ext(p), ".")
}
