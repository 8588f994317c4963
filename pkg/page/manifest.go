package page

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"

	"github.com/CTAG07/pageview/pkg/resource"
)

// Manifest describes a page that needs no Go code.
type Manifest struct {
	// Title defaults to the page directory's name.
	Title string `toml:"title" json:"title" yaml:"title"`

	Vars map[string]any `toml:"vars" json:"vars" yaml:"vars"`

	// Headers are set before anything is written. Several values for one
	// name are joined with "; ".
	Headers map[string][]string `toml:"headers" json:"headers" yaml:"headers"`

	// EarlyFlush sends the top of the document before rendering the body.
	EarlyFlush bool `toml:"early_flush" json:"early_flush" yaml:"early_flush"`
}

// IndexName is the base name of a page's entry unit.
const IndexName = "index"

// IsManifestExt reports whether ext (without the dot) is a manifest format.
func IsManifestExt(ext string) bool {
	switch ext {
	case "toml", "json", "yaml", "yml":
		return true
	}
	return false
}

// ParseManifest decodes a manifest in the format named by ext.
func ParseManifest(ext string, data []byte) (*Manifest, []string, error) {
	var m Manifest
	var unknown []string

	switch ext {
	case "toml":
		meta, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, nil, fmt.Errorf("parse toml manifest: %w", err)
		}
		for _, key := range meta.Undecoded() {
			// Tables under vars are free-form and decoded into the map.
			if len(key) > 0 && key[0] == "vars" {
				continue
			}
			unknown = append(unknown, key.String())
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&m); err != nil {
			return nil, nil, fmt.Errorf("parse json manifest: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, nil, fmt.Errorf("parse yaml manifest: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("unsupported manifest format %q", ext)
	}
	return &m, unknown, nil
}

// LoadManifest reads and decodes the manifest at p.
func LoadManifest(store resource.Store, p string) (*Manifest, error) {
	data, err := store.ReadAll(p)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", p, err)
	}
	m, _, err := ParseManifest(resource.Ext(p), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return m, nil
}

// ManifestEntry returns an Entry that renders the page described by the
// manifest at p. The manifest is read when the entry runs.
func ManifestEntry(p string) Entry {
	return func(ctx context.Context, env *Env) error {
		data, err := env.Store.ReadAll(p)
		if err != nil {
			return fmt.Errorf("read manifest %s: %w", p, err)
		}
		m, unknown, err := ParseManifest(resource.Ext(p), data)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		if len(unknown) > 0 && env.Logger != nil {
			env.Logger.Warn("Ignoring unknown manifest keys", "manifest", p, "keys", unknown)
		}
		return m.Run(ctx, env, path.Dir(p))
	}
}

// Run renders the page in dir as the manifest describes.
func (m *Manifest) Run(ctx context.Context, env *Env, dir string) error {
	title := m.Title
	if title == "" {
		title = path.Base(dir)
	}
	v := env.NewView(title, dir)

	names := make([]string, 0, len(m.Vars))
	for name := range m.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := v.SetAny(name, m.Vars[name]); err != nil {
			return err
		}
	}

	headers := make([]string, 0, len(m.Headers))
	for name := range m.Headers {
		headers = append(headers, name)
	}
	sort.Strings(headers)
	for _, name := range headers {
		v.SetHeader(name, m.Headers[name]...)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if m.EarlyFlush {
		if err := v.RenderPageHeader(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return v.Render()
}
