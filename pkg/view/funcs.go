package view

import (
	"errors"
	"fmt"
	"html/template"

	"github.com/CTAG07/pageview/pkg/scope"
	"github.com/CTAG07/pageview/pkg/script"
)

var errOddDict = errors.New("dict needs an even number of arguments")

func (v *View) makeFuncMap() template.FuncMap {
	return template.FuncMap{
		// Composition
		"resource":   v.resourceFunc,
		"component":  v.componentFunc,
		"header":     v.headerFunc,
		"script":     v.scriptFunc,
		"scriptWith": v.scriptWithFunc,

		// Scope
		"set": v.setFunc,
		"get": v.getFunc,

		// Data
		"dict": dict,
		"list": list,
	}
}

// unitFuncs returns the view's functions with get and set bound to vars, the
// scope a single resource is rendered with. set still writes through to the
// view's scope as well.
func (v *View) unitFuncs(vars *scope.Scope) template.FuncMap {
	funcs := make(template.FuncMap, len(v.funcs))
	for name, fn := range v.funcs {
		funcs[name] = fn
	}
	funcs["get"] = func(name string) any {
		return vars.Get(name).Interface()
	}
	funcs["set"] = func(name string, value any) (string, error) {
		val, err := scope.Of(value)
		if err != nil {
			return "", fmt.Errorf("cannot set %q: %w", name, err)
		}
		vars.Set(name, val)
		v.vars.Set(name, val)
		return "", nil
	}
	return funcs
}

// capture runs fn and returns its output as HTML for the calling template, so
// that nested output lands where the call appears.
func (v *View) capture(fn func() error) (template.HTML, error) {
	out, err := v.stack.Capture(fn)
	return template.HTML(out), err
}

func (v *View) resourceFunc(name string) (template.HTML, error) {
	return v.capture(func() error { return v.RequireResource(name) })
}

// componentFunc takes an optional map of extra variables, usually from dict.
func (v *View) componentFunc(name string, extra ...map[string]any) (template.HTML, error) {
	var local *scope.Scope
	if len(extra) > 0 {
		merged := map[string]any{}
		for _, m := range extra {
			for k, x := range m {
				merged[k] = x
			}
		}
		var err error
		if local, err = scope.FromMap(merged); err != nil {
			return "", fmt.Errorf("component %q: %w", name, err)
		}
	}
	return v.capture(func() error { return v.IncludeComponent(name, local) })
}

func (v *View) headerFunc() (template.HTML, error) {
	return v.capture(v.renderHeaderFragment)
}

func (v *View) scriptFunc(name string, flags ...string) (template.HTML, error) {
	return v.scriptWithFunc(name, nil, flags...)
}

func (v *View) scriptWithFunc(name string, vars map[string]any, flags ...string) (template.HTML, error) {
	f, err := script.ParseFlags(flags...)
	if err != nil {
		return "", err
	}
	local, err := scope.FromMap(vars)
	if err != nil {
		return "", fmt.Errorf("script %q: %w", name, err)
	}
	return v.capture(func() error { return v.EmbedScript(name, local, f) })
}

// setFunc writes through to the view's scope and prints nothing.
func (v *View) setFunc(name string, value any) (string, error) {
	return "", v.SetAny(name, value)
}

func (v *View) getFunc(name string) any {
	return v.vars.Get(name).Interface()
}

// dict builds a map from alternating keys and values.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errOddDict
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

// list returns a slice containing all the arguments passed to it.
func list(args ...any) []any {
	return args
}
