package view

import (
	"fmt"
	"html/template"
	"io"
)

// Data is the dot value every template receives.
type Data struct {
	Title string
	// Name is the base name of the resource being rendered.
	Name string
	// Vars is the scope visible to this resource, as plain Go data.
	Vars          map[string]any
	HeaderSent    bool
	SendingHeader bool
}

// Unit is one resource handed to a Renderer.
type Unit struct {
	Path   string
	Source []byte
	Data   Data
	Funcs  template.FuncMap
}

// Renderer turns a resource into output.
type Renderer interface {
	Render(w io.Writer, u Unit) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(w io.Writer, u Unit) error

func (f RendererFunc) Render(w io.Writer, u Unit) error { return f(w, u) }

// TemplateRenderer renders resources as html/template templates.
var TemplateRenderer Renderer = RendererFunc(renderTemplate)

// RawRenderer writes resources verbatim.
var RawRenderer Renderer = RendererFunc(renderRaw)

func renderTemplate(w io.Writer, u Unit) error {
	if len(u.Source) == 0 {
		return nil
	}
	t, err := template.New(u.Path).Funcs(u.Funcs).Parse(string(u.Source))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", u.Path, err)
	}
	if err = t.Execute(w, u.Data); err != nil {
		return fmt.Errorf("failed to render %s: %w", u.Path, err)
	}
	return nil
}

func renderRaw(w io.Writer, u Unit) error {
	if len(u.Source) == 0 {
		return nil
	}
	_, err := w.Write(u.Source)
	return err
}

func defaultRenderers() map[string]Renderer {
	return map[string]Renderer{
		"html":   TemplateRenderer,
		"gohtml": TemplateRenderer,
		"tmpl":   TemplateRenderer,
		"tpl":    TemplateRenderer,
	}
}
