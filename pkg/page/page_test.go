package page

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/spf13/afero"

	"github.com/CTAG07/pageview/pkg/output"
	"github.com/CTAG07/pageview/pkg/resource"
	"github.com/CTAG07/pageview/pkg/scope"
	"github.com/CTAG07/pageview/pkg/view"
)

const tomlManifest = `
title = "Docs"
early_flush = true

[vars]
version = 3
tags = ["a", "b"]

[vars.owner]
name = "ada"

[headers]
Cache-Control = ["no-cache", "no-store"]
`

const jsonManifest = `{
  "title": "Docs",
  "early_flush": true,
  "vars": {"version": 3, "tags": ["a", "b"], "owner": {"name": "ada"}},
  "headers": {"Cache-Control": ["no-cache", "no-store"]}
}`

const yamlManifest = `
title: Docs
early_flush: true
vars:
  version: 3
  tags: [a, b]
  owner:
    name: ada
headers:
  Cache-Control: [no-cache, no-store]
`

func TestParseManifest_Formats(t *testing.T) {
	wantVars := scope.Map(map[string]scope.Value{
		"version": scope.Int(3),
		"tags":    scope.List(scope.String("a"), scope.String("b")),
		"owner":   scope.Map(map[string]scope.Value{"name": scope.String("ada")}),
	})

	for ext, src := range map[string]string{"toml": tomlManifest, "json": jsonManifest, "yaml": yamlManifest, "yml": yamlManifest} {
		t.Run(ext, func(t *testing.T) {
			m, unknown, err := ParseManifest(ext, []byte(src))
			if err != nil {
				t.Fatalf("ParseManifest() error = %v", err)
			}
			if len(unknown) > 0 {
				t.Errorf("unexpected unknown keys %v", unknown)
			}
			if m.Title != "Docs" || !m.EarlyFlush {
				t.Errorf("ParseManifest() = %# v", pretty.Formatter(m))
			}
			if diff := pretty.Diff([]string{"no-cache", "no-store"}, m.Headers["Cache-Control"]); len(diff) > 0 {
				t.Errorf("headers differ: %v", diff)
			}

			vars, err := scope.Of(m.Vars)
			if err != nil {
				t.Fatalf("scope.Of(vars) error = %v", err)
			}
			if !vars.Equal(wantVars) {
				t.Errorf("vars = %s, want %s", vars, wantVars)
			}
		})
	}
}

func TestParseManifest_Errors(t *testing.T) {
	if _, _, err := ParseManifest("ini", []byte("x=1")); err == nil {
		t.Error("ParseManifest() accepted an unknown format")
	}
	if _, _, err := ParseManifest("toml", []byte("title = ")); err == nil {
		t.Error("ParseManifest() accepted broken toml")
	}
	_, unknown, err := ParseManifest("toml", []byte("title = \"x\"\nlayout = \"wide\"\n\n[vars.owner]\nname = \"ada\"\n\n[vars.owner.links]\nsite = \"x\"\n"))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}
	if diff := pretty.Diff([]string{"layout"}, unknown); len(diff) > 0 {
		t.Errorf("unknown keys differ: %v", diff)
	}
}

func newEnv(t *testing.T, sink output.Sink, files map[string]string) *Env {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(fs, name, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return &Env{
		Store:  resource.NewFsStore(fs),
		Sink:   sink,
		Config: view.Config{DocumentRoot: "www"}.Normalize(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestManifestEntry_Run(t *testing.T) {
	sink := output.NewBufferSink()
	env := newEnv(t, sink, map[string]string{
		"www/pages/docs/index.toml":   tomlManifest,
		"www/pages/docs/content.html": `<p>v{{.Vars.version}} by {{.Vars.owner.name}}</p>`,
	})

	if err := ManifestEntry("www/pages/docs/index.toml")(context.Background(), env); err != nil {
		t.Fatalf("entry error = %v", err)
	}
	out := sink.String()
	if !strings.Contains(out, "<title>Docs</title>") || !strings.Contains(out, "<p>v3 by ada</p>") {
		t.Errorf("unexpected page:\n%s", out)
	}
	if !strings.Contains(out, "<!-- flush -->") || sink.Flushes() != 1 {
		t.Errorf("early flush did not happen (%d flushes)", sink.Flushes())
	}
	if got := sink.Header().Get("Cache-Control"); got != "no-cache; no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestManifest_DefaultTitle(t *testing.T) {
	sink := output.NewBufferSink()
	env := newEnv(t, sink, nil)
	if err := (&Manifest{}).Run(context.Background(), env, "www/pages/about"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(sink.String(), "<title>about</title>") {
		t.Errorf("title not derived from the directory:\n%s", sink.String())
	}
}

func TestManifest_CancelledContext(t *testing.T) {
	sink := output.NewBufferSink()
	env := newEnv(t, sink, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (&Manifest{}).Run(ctx, env, "www/pages/about"); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if sink.Len() != 0 {
		t.Errorf("cancelled run wrote %d bytes", sink.Len())
	}
}

func TestRegistry_Resolve(t *testing.T) {
	env := newEnv(t, output.NewBufferSink(), map[string]string{
		"www/pages/docs/index.yaml": "title: Docs\n",
		"www/pages/code/index.go":   "package main",
	})

	called := false
	r := NewRegistry()
	r.Register("www/pages/app/", func(ctx context.Context, env *Env) error {
		called = true
		return nil
	})

	e, ok := r.Resolve(env.Store, "www/pages/app")
	if !ok {
		t.Fatal("registered entry not resolved")
	}
	_ = e(context.Background(), env)
	if !called {
		t.Error("Resolve() did not return the registered entry")
	}

	if _, ok = r.Resolve(env.Store, "www/pages/docs"); !ok {
		t.Error("manifest entry not resolved")
	}
	if _, ok = r.Resolve(env.Store, "www/pages/code"); ok {
		t.Error("an index that is not a manifest resolved")
	}
	if _, ok = r.Resolve(env.Store, "www/pages/none"); ok {
		t.Error("a page without an index resolved")
	}

	if diff := pretty.Diff([]string{"www/pages/app"}, r.Dirs()); len(diff) > 0 {
		t.Errorf("Dirs() differs: %v", diff)
	}
}

func TestRegistry_PrefersRegisteredEntry(t *testing.T) {
	sink := output.NewBufferSink()
	env := newEnv(t, sink, map[string]string{
		"www/pages/home/index.toml": `title = "From manifest"`,
	})
	r := NewRegistry()
	r.Register("www/pages/home", func(ctx context.Context, env *Env) error {
		_, err := io.WriteString(env.Sink, "from code")
		return err
	})

	e, ok := r.Resolve(env.Store, "www/pages/home")
	if !ok {
		t.Fatal("Resolve() found nothing")
	}
	if err := e(context.Background(), env); err != nil {
		t.Fatalf("entry error = %v", err)
	}
	if sink.String() != "from code" {
		t.Errorf("output = %q, want the registered entry's", sink.String())
	}
}

func TestLoadManifest(t *testing.T) {
	env := newEnv(t, output.NewBufferSink(), map[string]string{
		"www/pages/docs/index.json": jsonManifest,
	})
	m, err := LoadManifest(env.Store, "www/pages/docs/index.json")
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if m.Title != "Docs" {
		t.Errorf("Title = %q", m.Title)
	}
	if _, err = LoadManifest(env.Store, "www/pages/docs/missing.json"); err == nil {
		t.Error("LoadManifest() on a missing file returned no error")
	}
}
