package view

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/CTAG07/pageview/pkg/output"
	"github.com/CTAG07/pageview/pkg/resource"
	"github.com/CTAG07/pageview/pkg/scope"
	"github.com/CTAG07/pageview/pkg/script"
)

// ErrTooDeep is returned when resources include each other past maxDepth.
var ErrTooDeep = errors.New("resource nesting too deep")

const maxDepth = 32

// The fixed resource names the shell pulls from a page directory.
const (
	ResourceHead      = "head"
	ResourceContent   = "content"
	ResourceLibraries = "libraries"
	ResourceScripts   = "scripts"
)

// View renders one page for one response.
type View struct {
	title   string
	pageDir string
	config  Config

	store     resource.Store
	resolver  *resource.Resolver
	embedder  *script.Embedder
	stack     *output.Stack
	renderers map[string]Renderer
	funcs     template.FuncMap
	logger    *slog.Logger

	vars     *scope.Scope
	required map[string]struct{}
	depth    int

	// headerSent is never reset once set.
	headerSent    bool
	sendingHeader bool
	pending       *output.Level
}

// Option configures a View.
type Option func(*View)

// WithConfig replaces the default configuration. Empty fields are derived
// with Config.Normalize.
func WithConfig(cfg Config) Option {
	return func(v *View) { v.config = cfg.Normalize() }
}

// WithStore sets the resource store. The default is the OS filesystem.
func WithStore(store resource.Store) Option {
	return func(v *View) { v.store = store }
}

// WithSink sets where output goes. The default writes to standard output.
func WithSink(sink output.Sink) Option {
	return func(v *View) { v.stack = output.NewStack(sink) }
}

// WithLogger sets the logger. By default, all logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithRenderer registers r for resources with extension ext (without the dot),
// replacing any previous renderer for it.
func WithRenderer(ext string, r Renderer) Option {
	return func(v *View) { v.renderers[strings.TrimPrefix(ext, ".")] = r }
}

// New creates a View for the page stored in pageDir.
func New(title, pageDir string, opts ...Option) *View {
	v := &View{
		title:     title,
		pageDir:   pageDir,
		config:    DefaultConfig(),
		renderers: defaultRenderers(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		vars:      scope.New(),
		required:  map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.store == nil {
		v.store = resource.NewOsStore()
	}
	if v.stack == nil {
		v.stack = output.NewStack(output.NewWriterSink(os.Stdout))
	}
	v.logger = v.logger.With("page", pageDir)
	v.resolver = resource.NewResolver(v.store, v.logger)
	v.embedder = script.NewEmbedder(v.resolver, v.config.ScriptsDirectory, v.logger)
	v.funcs = v.makeFuncMap()
	return v
}

// Title returns the page title.
func (v *View) Title() string { return v.title }

// PageDir returns the directory page-local resources are resolved against.
func (v *View) PageDir() string { return v.pageDir }

// Config returns the normalized configuration the view renders with.
func (v *View) Config() Config { return v.config }

// HeaderSent reports whether the page header has been rendered.
func (v *View) HeaderSent() bool { return v.headerSent }

// Writer returns the writer page logic should use for any output of its own,
// so that it is ordered and buffered together with rendered resources.
func (v *View) Writer() io.Writer { return v.stack }

// Set binds name to value in the view's scope.
func (v *View) Set(name string, value scope.Value) {
	v.vars.Set(name, value)
}

// SetAny converts value with scope.Of and binds it to name.
func (v *View) SetAny(name string, value any) error {
	val, err := scope.Of(value)
	if err != nil {
		return fmt.Errorf("cannot set %q: %w", name, err)
	}
	v.vars.Set(name, val)
	return nil
}

// Get returns the value bound to name, or Null.
func (v *View) Get(name string) scope.Value {
	return v.vars.Get(name)
}

// Vars returns the view's live scope.
func (v *View) Vars() *scope.Scope { return v.vars }

// SetHeader sets a response header, joining multiple values with "; ".
// It does nothing once the sink has sent headers.
func (v *View) SetHeader(name string, values ...string) {
	sink := v.stack.Sink()
	if sink.HeadersSent() {
		v.logger.Debug("Headers already sent, ignoring header", "header", name)
		return
	}
	sink.SetHeader(name, strings.Join(values, "; "))
}

// Render executes the document shell. After RenderPageHeader it emits only
// the rest of the document and then flushes and closes the buffer the header
// left open, whether or not rendering succeeded.
func (v *View) Render() (err error) {
	if v.headerSent && v.pending != nil {
		defer func() {
			closeErr := v.pending.Close()
			v.pending = nil
			if err == nil {
				err = closeErr
			}
		}()
	}
	return v.renderShell()
}

// RenderPageHeader renders the top of the document, up to and including the
// header fragment, and flushes it to the client so the body can be computed
// afterwards. If rendering fails, nothing is sent.
//
// It must be called at most once, and before Render.
func (v *View) RenderPageHeader() error {
	level := v.stack.Push()
	v.sendingHeader = true
	err := v.renderShell()
	v.sendingHeader = false
	if err != nil {
		level.Discard()
		return err
	}
	v.headerSent = true

	size := level.Len()
	if pad := v.config.FlushThreshold - size; pad > 0 {
		_, _ = level.Write([]byte(strings.Repeat(" ", pad)))
		_, _ = level.Write([]byte(v.config.FlushMarker))
	}
	v.logger.Debug("Flushing page header", "bytes", size, "padded", level.Len())

	v.pending = level
	if err = level.Flush(); err != nil {
		return fmt.Errorf("failed to flush page header: %w", err)
	}
	return v.stack.Sink().FlushConnection()
}

func (v *View) renderShell() error {
	t, err := v.loadShell()
	if err != nil {
		return err
	}
	if err = t.Execute(v.stack, v.data("shell", v.vars)); err != nil {
		return fmt.Errorf("failed to render shell: %w", err)
	}
	return nil
}

// IncludeComponent renders the shared component called name with the view's
// scope overlaid by extra. The view's own scope is not modified. A missing
// component is skipped.
func (v *View) IncludeComponent(name string, extra *scope.Scope) error {
	p, src, ok := v.resolver.Read(v.config.ComponentsDirectory, name)
	if !ok {
		v.logger.Debug("Component not found, skipping", "component", name)
		return nil
	}
	return v.renderUnit(p, name, src, v.vars.Merge(extra))
}

// RequireResource renders the page resource called name, at most once per
// view. A missing resource is skipped and may be required again later.
func (v *View) RequireResource(name string) error {
	if _, done := v.required[name]; done {
		return nil
	}
	p, src, ok := v.resolver.Read(v.pageDir, name)
	if !ok {
		v.logger.Debug("Resource not found, skipping", "resource", name)
		return nil
	}
	v.required[name] = struct{}{}
	return v.renderUnit(p, name, src, v.vars.Clone())
}

// EmbedScript writes the script called name as an inline script element.
func (v *View) EmbedScript(name string, vars *scope.Scope, flags script.Flags) error {
	return v.embedder.Embed(v.stack, name, vars, flags)
}

// renderHeaderFragment renders the optional site header.
func (v *View) renderHeaderFragment() error {
	p := v.config.HeaderPath
	if !v.store.Exists(p) {
		v.logger.Debug("Header fragment not found, skipping", "path", p)
		return nil
	}
	src, err := v.store.ReadAll(p)
	if err != nil {
		v.logger.Debug("Could not read header fragment, skipping", "path", p, "error", err)
		return nil
	}
	return v.renderUnit(p, "header", src, v.vars.Clone())
}

func (v *View) renderUnit(p, name string, src []byte, vars *scope.Scope) error {
	if v.depth >= maxDepth {
		return fmt.Errorf("%w: %s", ErrTooDeep, p)
	}
	v.depth++
	defer func() { v.depth-- }()

	r, ok := v.renderers[resource.Ext(p)]
	if !ok {
		r = RawRenderer
	}
	return r.Render(v.stack, Unit{
		Path:   p,
		Source: src,
		Data:   v.data(name, vars),
		Funcs:  v.unitFuncs(vars),
	})
}

func (v *View) data(name string, vars *scope.Scope) Data {
	return Data{
		Title:         v.title,
		Name:          name,
		Vars:          vars.Data(),
		HeaderSent:    v.headerSent,
		SendingHeader: v.sendingHeader,
	}
}
