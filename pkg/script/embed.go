package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/CTAG07/pageview/pkg/resource"
	"github.com/CTAG07/pageview/pkg/scope"
)

// ErrUnknownFlag is returned by ParseFlags for an unrecognized flag name.
var ErrUnknownFlag = errors.New("unknown script flag")

// Flags controls how a script is located and emitted.
type Flags struct {
	// Path treats the script name as a full resource path instead of a base
	// name inside the scripts directory.
	Path bool
	// Anonymous wraps the script in an immediately invoked function.
	Anonymous bool
	// Compressed runs the body through Compress.
	Compressed bool
}

// ParseFlags builds Flags from names such as "path", "anonymous" and
// "compressed". It exists for template callers, which cannot build structs.
func ParseFlags(names ...string) (Flags, error) {
	var f Flags
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "path":
			f.Path = true
		case "anonymous", "anon":
			f.Anonymous = true
		case "compressed", "compress":
			f.Compressed = true
		case "":
		default:
			return Flags{}, fmt.Errorf("%w: %q", ErrUnknownFlag, name)
		}
	}
	return f, nil
}

// Embedder writes script resources as inline <script> elements.
type Embedder struct {
	resolver *resource.Resolver
	dir      string
	logger   *slog.Logger
}

// NewEmbedder creates an Embedder resolving script names inside scriptsDir.
// A nil logger discards.
func NewEmbedder(resolver *resource.Resolver, scriptsDir string, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Embedder{resolver: resolver, dir: scriptsDir, logger: logger}
}

// Embed writes the script called name to w, preceded by a var declaration for
// every binding in vars. Variable names are written verbatim and must be
// valid identifiers; values are JSON with "<", ">" and "&" escaped so they
// cannot close the surrounding element.
//
// A script that cannot be found is not an error: a comment naming it is
// written instead.
func (e *Embedder) Embed(w io.Writer, name string, vars *scope.Scope, flags Flags) error {
	body, ok := e.load(name, flags)
	if !ok {
		e.logger.Debug("Script not found", "name", name, "path_flag", flags.Path)
		_, err := fmt.Fprintf(w, "<!-- script %q not found -->", name)
		return err
	}
	if flags.Compressed {
		body = []byte(Compress(string(body)))
	}

	var sb strings.Builder
	sb.WriteString("<script>\n")
	if flags.Anonymous {
		sb.WriteString("(function () {\n")
	}
	for _, varName := range vars.Names() {
		literal, err := json.Marshal(vars.Get(varName))
		if err != nil {
			return fmt.Errorf("could not encode script variable %q: %w", varName, err)
		}
		sb.WriteString("var ")
		sb.WriteString(varName)
		sb.WriteString(" = ")
		sb.Write(literal)
		sb.WriteString(";\n")
	}
	sb.Write(body)
	if len(body) > 0 && body[len(body)-1] != '\n' {
		sb.WriteByte('\n')
	}
	if flags.Anonymous {
		sb.WriteString("})();\n")
	}
	sb.WriteString("</script>")

	_, err := io.WriteString(w, sb.String())
	return err
}

func (e *Embedder) load(name string, flags Flags) ([]byte, bool) {
	if flags.Path {
		store := e.resolver.Store()
		if !store.Exists(name) {
			return nil, false
		}
		data, err := store.ReadAll(name)
		if err != nil {
			e.logger.Debug("Could not read script", "path", name, "error", err)
			return nil, false
		}
		return data, true
	}
	_, data, ok := e.resolver.Read(e.dir, name)
	return data, ok
}
