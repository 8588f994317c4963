package view

import "path"

// Config holds the deployment-wide paths and streaming settings shared by
// every View.
type Config struct {
	// DocumentRoot is the directory the other paths default to living in.
	DocumentRoot string `json:"document_root"`

	// ShellPath is the document shell template. When no resource exists there,
	// the built-in shell is used.
	ShellPath string `json:"shell_path"`

	// HeaderPath is the optional fragment rendered at the top of <body>,
	// typically site navigation.
	HeaderPath string `json:"header_path"`

	// ComponentsDirectory holds components shared by all pages.
	ComponentsDirectory string `json:"components_directory"`

	// ScriptsDirectory holds scripts for EmbedScript.
	ScriptsDirectory string `json:"scripts_directory"`

	// FlushThreshold is the size an early-flushed header is padded up to, so
	// proxies that hold back small responses pass it on. Negative disables
	// padding.
	FlushThreshold int `json:"flush_threshold"`

	// FlushMarker is appended after the padding.
	FlushMarker string `json:"flush_marker"`
}

const (
	defaultDocumentRoot   = "www"
	defaultFlushThreshold = 4096
	defaultFlushMarker    = "<!-- flush -->"
)

// DefaultConfig returns a Config rooted at "www" with every path derived.
func DefaultConfig() Config {
	return Config{DocumentRoot: defaultDocumentRoot}.Normalize()
}

// Normalize fills every empty field from DocumentRoot and the defaults.
func (c Config) Normalize() Config {
	if c.DocumentRoot == "" {
		c.DocumentRoot = defaultDocumentRoot
	}
	if c.ShellPath == "" {
		c.ShellPath = path.Join(c.DocumentRoot, "templates", "shell.html")
	}
	if c.HeaderPath == "" {
		c.HeaderPath = path.Join(c.DocumentRoot, "templates", "header.html")
	}
	if c.ComponentsDirectory == "" {
		c.ComponentsDirectory = path.Join(c.DocumentRoot, "templates", "components")
	}
	if c.ScriptsDirectory == "" {
		c.ScriptsDirectory = path.Join(c.DocumentRoot, "scripts")
	}
	if c.FlushThreshold == 0 {
		c.FlushThreshold = defaultFlushThreshold
	}
	if c.FlushMarker == "" {
		c.FlushMarker = defaultFlushMarker
	}
	return c
}
