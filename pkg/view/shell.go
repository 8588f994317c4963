package view

import (
	_ "embed"
	"fmt"
	"html/template"
)

// defaultShell is used when no shell resource exists at Config.ShellPath.
//
//go:embed shell.html
var defaultShell string

// DefaultShell returns the built-in document shell template.
func DefaultShell() string { return defaultShell }

// loadShell parses the configured shell, falling back to the built-in one.
func (v *View) loadShell() (*template.Template, error) {
	src, name := defaultShell, "shell"
	if v.store.Exists(v.config.ShellPath) {
		data, err := v.store.ReadAll(v.config.ShellPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read shell %s: %w", v.config.ShellPath, err)
		}
		src, name = string(data), v.config.ShellPath
	} else {
		v.logger.Debug("Using built-in shell", "path", v.config.ShellPath)
	}

	t, err := template.New(name).Funcs(v.funcs).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse shell %s: %w", name, err)
	}
	return t, nil
}
