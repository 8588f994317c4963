package resource

// Store is the read side of a resource backend. Paths use forward slashes.
type Store interface {
	// Exists reports whether path names an existing resource.
	Exists(path string) bool

	// ListMatching returns the full paths of the files in the directory of
	// prefix whose file names start with the last element of prefix, sorted
	// by name.
	ListMatching(prefix string) ([]string, error)

	// ReadAll returns the contents of the resource at path.
	ReadAll(path string) ([]byte, error)
}

// Walker is implemented by stores that can enumerate their contents.
type Walker interface {
	// Walk calls fn for every file below root in lexical order. Returning an
	// error from fn stops the walk.
	Walk(root string, fn func(path string) error) error
}
