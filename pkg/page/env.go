package page

import (
	"context"
	"io"
	"log/slog"

	"github.com/CTAG07/pageview/pkg/output"
	"github.com/CTAG07/pageview/pkg/resource"
	"github.com/CTAG07/pageview/pkg/view"
)

// Entry is the entry logic of one page. It is expected to build a View with
// env.NewView and render it.
type Entry func(ctx context.Context, env *Env) error

// Env is what an Entry gets to work with for one response.
type Env struct {
	Store  resource.Store
	Sink   output.Sink
	Config view.Config
	Logger *slog.Logger

	// Dir is the page directory being rendered.
	Dir string
}

// NewView creates a View wired to the environment's store, sink, config and
// logger.
func (e *Env) NewView(title, dir string, opts ...view.Option) *view.View {
	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	base := []view.Option{
		view.WithConfig(e.Config),
		view.WithStore(e.Store),
		view.WithSink(e.Sink),
		view.WithLogger(logger),
	}
	return view.New(title, dir, append(base, opts...)...)
}
