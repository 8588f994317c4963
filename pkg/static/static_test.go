package static

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/CTAG07/pageview/pkg/output"
	"github.com/CTAG07/pageview/pkg/page"
	"github.com/CTAG07/pageview/pkg/resource"
	"github.com/CTAG07/pageview/pkg/scope"
	"github.com/CTAG07/pageview/pkg/view"
)

var siteFiles = map[string]string{
	"www/pages/index.toml":          `title = "Home"`,
	"www/pages/content.html":        "<p>home</p>",
	"www/pages/blog/index.yaml":     "title: Blog\nvars:\n  posts: 2\n",
	"www/pages/blog/content.html":   "<p>{{.Vars.posts}} posts</p>",
	"www/pages/app/index.go":        "registered in code",
	"www/pages/empty/index.go":      "registered in code",
	"www/pages/orphan/index.go":     "nobody registered this one",
	"www/pages/orphan/content.html": "never rendered",
}

func newStore(t *testing.T) *resource.FsStore {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range siteFiles {
		if err := afero.WriteFile(fs, name, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return resource.NewFsStore(fs)
}

func newRegistry() *page.Registry {
	r := page.NewRegistry()
	r.Register("www/pages/app", func(ctx context.Context, env *page.Env) error {
		v := env.NewView("App", env.Dir)
		v.Set("user", scope.String("ada"))
		if _, err := io.WriteString(v.Writer(), "<!-- generated -->\n"); err != nil {
			return err
		}
		return v.Render()
	})
	r.Register("www/pages/empty", func(ctx context.Context, env *page.Env) error {
		return nil
	})
	return r
}

func TestRenderToFile_NotFound(t *testing.T) {
	called := false
	reg := page.NewRegistry()
	reg.Register("www/pages/missing", func(ctx context.Context, env *page.Env) error {
		called = true
		return nil
	})
	r := NewRenderer(newStore(t), reg)
	out := filepath.Join(t.TempDir(), "out.html")

	_, err := r.RenderToFile(context.Background(), "www/pages/missing/index.go", out)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("RenderToFile() error = %v, want ErrNotFound", err)
	}
	if called {
		t.Error("entry logic ran for a missing input")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("output file exists after NotFound: %v", statErr)
	}
}

func TestRenderToFile_ExactBytes(t *testing.T) {
	store := newStore(t)
	r := NewRenderer(store, newRegistry())
	out := filepath.Join(t.TempDir(), "nested", "dir", "app.html")

	res, err := r.RenderToFile(context.Background(), "www/pages/app/index.go", out)
	if err != nil {
		t.Fatalf("RenderToFile() error = %v", err)
	}

	// The same page rendered straight into memory.
	sink := output.NewBufferSink()
	env := &page.Env{Store: store, Sink: sink, Config: view.DefaultConfig(), Dir: "www/pages/app"}
	entry, _ := newRegistry().Lookup("www/pages/app")
	if err = entry(context.Background(), env); err != nil {
		t.Fatalf("entry error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(data) != sink.String() {
		t.Errorf("file differs from direct render:\nfile: %q\nwant: %q", data, sink.String())
	}
	if res.Bytes != len(data) || res.Path != out {
		t.Errorf("Result = %+v, file has %d bytes", res, len(data))
	}
	if !strings.HasPrefix(string(data), "<!-- generated -->\n<!DOCTYPE html>") {
		t.Errorf("page logic output not captured in order: %q", data[:40])
	}
}

func TestRenderToFile_EmptyOutputSucceeds(t *testing.T) {
	r := NewRenderer(newStore(t), newRegistry())
	out := filepath.Join(t.TempDir(), "empty.html")

	res, err := r.RenderToFile(context.Background(), "www/pages/empty/index.go", out)
	if err != nil {
		t.Fatalf("RenderToFile() error = %v", err)
	}
	if res.Bytes != 0 {
		t.Errorf("Bytes = %d, want 0", res.Bytes)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("empty output was not written: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("file size = %d, want 0", info.Size())
	}
}

func TestRenderToFile_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	r := NewRenderer(newStore(t), nil)

	_, err := r.RenderToFile(context.Background(), "www/pages/index.toml", filepath.Join(blocker, "out.html"))
	if !errors.Is(err, ErrWriteFailure) {
		t.Errorf("RenderToFile() error = %v, want ErrWriteFailure", err)
	}
}

func TestRenderToFile_NoEntry(t *testing.T) {
	r := NewRenderer(newStore(t), nil)
	_, err := r.RenderToFile(context.Background(), "www/pages/orphan/index.go", filepath.Join(t.TempDir(), "x.html"))
	if !errors.Is(err, page.ErrNoEntry) {
		t.Errorf("RenderToFile() error = %v, want ErrNoEntry", err)
	}
}

func TestBuild(t *testing.T) {
	r := NewRenderer(newStore(t), newRegistry())
	outDir := t.TempDir()

	results, err := r.Build(context.Background(), "www/pages", outDir)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(results) != 4 {
		t.Errorf("Build() wrote %d pages, want 4: %+v", len(results), results)
	}

	checks := map[string]string{
		"index.html":       "<p>home</p>",
		"blog/index.html":  "<p>2 posts</p>",
		"app/index.html":   "<title>App</title>",
		"empty/index.html": "",
	}
	for rel, want := range checks {
		data, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(rel)))
		if err != nil {
			t.Errorf("%s: %v", rel, err)
			continue
		}
		if !strings.Contains(string(data), want) {
			t.Errorf("%s does not contain %q", rel, want)
		}
	}
	if _, err = os.Stat(filepath.Join(outDir, "orphan")); !os.IsNotExist(err) {
		t.Errorf("page without entry logic was built: %v", err)
	}
}

// flatStore is a Store without Walk.
type flatStore struct{ resource.Store }

func TestBuild_NeedsWalker(t *testing.T) {
	r := NewRenderer(flatStore{newStore(t)}, nil)
	if _, err := r.Build(context.Background(), "www/pages", t.TempDir()); err == nil {
		t.Error("Build() over a store without Walk returned no error")
	}
}
