package resource

import (
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// FsStore serves resources from an afero filesystem.
type FsStore struct {
	fs afero.Fs
}

// NewFsStore wraps an arbitrary afero filesystem.
func NewFsStore(fs afero.Fs) *FsStore {
	return &FsStore{fs: fs}
}

// NewOsStore serves resources from the operating system's filesystem.
func NewOsStore() *FsStore {
	return NewFsStore(afero.NewOsFs())
}

// NewDirStore serves resources from root only. Paths are interpreted relative
// to root and the store cannot be used to modify it.
func NewDirStore(root string) *FsStore {
	return NewFsStore(afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), root)))
}

// Exists reports whether p names a regular file.
func (s *FsStore) Exists(p string) bool {
	ok, err := afero.Exists(s.fs, p)
	return err == nil && ok
}

// ListMatching returns the sorted paths of files in the directory of prefix
// whose names start with its base.
func (s *FsStore) ListMatching(prefix string) ([]string, error) {
	dir, base := path.Split(prefix)
	if dir == "" {
		dir = "."
	}
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, info := range infos {
		if info.IsDir() || !strings.HasPrefix(info.Name(), base) {
			continue
		}
		matches = append(matches, path.Join(dir, info.Name()))
	}
	return matches, nil
}

// ReadAll returns the contents of the file at p.
func (s *FsStore) ReadAll(p string) ([]byte, error) {
	return afero.ReadFile(s.fs, p)
}

// Walk calls fn for every regular file below root in lexical order.
func (s *FsStore) Walk(root string, fn func(path string) error) error {
	return afero.Walk(s.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		return fn(p)
	})
}
