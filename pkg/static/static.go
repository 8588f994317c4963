package static

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/CTAG07/pageview/pkg/output"
	"github.com/CTAG07/pageview/pkg/page"
	"github.com/CTAG07/pageview/pkg/resource"
	"github.com/CTAG07/pageview/pkg/view"
)

var (
	// ErrNotFound means the input resource does not exist. Nothing was run.
	ErrNotFound = errors.New("input not found")
	// ErrWriteFailure means the page rendered but could not be saved.
	ErrWriteFailure = errors.New("could not write output")
)

// Result describes one written page. A zero Bytes count is a successful
// write of an empty document.
type Result struct {
	Input string
	Path  string
	Bytes int
}

// Renderer renders pages from a store into files.
type Renderer struct {
	store    resource.Store
	registry *page.Registry
	config   view.Config
	logger   *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithConfig sets the view configuration pages are rendered with.
func WithConfig(cfg view.Config) Option {
	return func(r *Renderer) { r.config = cfg.Normalize() }
}

// WithLogger sets the logger. By default, all logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRenderer creates a Renderer. registry may be nil when every page is
// described by a manifest.
func NewRenderer(store resource.Store, registry *page.Registry, opts ...Option) *Renderer {
	r := &Renderer{
		store:    store,
		registry: registry,
		config:   view.DefaultConfig(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderToFile runs the entry logic at input and writes everything it
// produced to outputPath, creating parent directories as needed. input is
// the page's index unit; a Go entry registered for its directory takes
// precedence over the file's own contents.
func (r *Renderer) RenderToFile(ctx context.Context, input, outputPath string) (Result, error) {
	res := Result{Input: input, Path: outputPath}
	if !r.store.Exists(input) {
		return res, fmt.Errorf("%w: %s", ErrNotFound, input)
	}

	entry, err := r.entryFor(input)
	if err != nil {
		return res, err
	}

	sink := output.NewBufferSink()
	env := &page.Env{
		Store:  r.store,
		Sink:   sink,
		Config: r.config,
		Logger: r.logger,
		Dir:    path.Dir(input),
	}
	if err = entry(ctx, env); err != nil {
		return res, fmt.Errorf("render %s: %w", input, err)
	}

	data := sink.Bytes()
	if err = os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return res, fmt.Errorf("%w: %s: %w", ErrWriteFailure, outputPath, err)
	}
	if err = atomic.WriteFile(outputPath, bytes.NewReader(data)); err != nil {
		return res, fmt.Errorf("%w: %s: %w", ErrWriteFailure, outputPath, err)
	}

	res.Bytes = len(data)
	r.logger.Debug("Rendered page", "input", input, "output", outputPath, "bytes", res.Bytes)
	return res, nil
}

func (r *Renderer) entryFor(input string) (page.Entry, error) {
	if e, ok := r.registry.Lookup(path.Dir(input)); ok {
		return e, nil
	}
	if !page.IsManifestExt(resource.Ext(input)) {
		return nil, fmt.Errorf("%w: %s", page.ErrNoEntry, input)
	}
	return page.ManifestEntry(input), nil
}

// Build renders every page below root into outDir, mirroring the directory
// layout: root/blog/index.toml becomes outDir/blog/index.html. The store
// must implement resource.Walker. Pages that fail are logged and reported
// together after the rest are built.
func (r *Renderer) Build(ctx context.Context, root, outDir string) ([]Result, error) {
	walker, ok := r.store.(resource.Walker)
	if !ok {
		return nil, fmt.Errorf("store %T cannot be walked", r.store)
	}
	root = path.Clean(filepath.ToSlash(root))

	var inputs []string
	err := walker.Walk(root, func(p string) error {
		p = filepath.ToSlash(p)
		if r.isIndex(p) {
			inputs = append(inputs, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	var (
		results []Result
		errs    []error
	)
	for _, input := range inputs {
		if err = ctx.Err(); err != nil {
			return results, err
		}
		rel, relErr := filepath.Rel(filepath.FromSlash(root), filepath.FromSlash(path.Dir(input)))
		if relErr != nil {
			errs = append(errs, relErr)
			continue
		}
		out := filepath.Join(outDir, rel, "index.html")

		res, renderErr := r.RenderToFile(ctx, input, out)
		if renderErr != nil {
			r.logger.Error("Failed to build page", "input", input, "error", renderErr)
			errs = append(errs, renderErr)
			continue
		}
		results = append(results, res)
	}
	r.logger.Info("Build complete", "pages", len(results), "failed", len(errs), "out", outDir)
	return results, errors.Join(errs...)
}

// isIndex reports whether p is a page's entry unit.
func (r *Renderer) isIndex(p string) bool {
	name := path.Base(p)
	ext := resource.Ext(name)
	if strings.TrimSuffix(name, "."+ext) != page.IndexName {
		return false
	}
	if page.IsManifestExt(ext) {
		return true
	}
	_, ok := r.registry.Lookup(path.Dir(p))
	return ok
}
