package resource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// SetupSchema creates the resource table and its index. It is idempotent and
// safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaResources = `
CREATE TABLE IF NOT EXISTS page_resources (
    resource_path TEXT PRIMARY KEY,
    resource_dir TEXT NOT NULL,
    resource_name TEXT NOT NULL,
    content BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);
`
		schemaDirIndex = `CREATE INDEX IF NOT EXISTS page_resources_dir ON page_resources (resource_dir, resource_name);`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// Commit wins over the deferred rollback; on any early return this cleans up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaResources); err != nil {
		return fmt.Errorf("could not create schema: %w", err)
	}

	if _, err = tx.Exec(schemaDirIndex); err != nil {
		return fmt.Errorf("could not create index: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// SQLStore serves resources from the page_resources table. Every statement is
// prepared once in NewSQLStore.
type SQLStore struct {
	db         *sql.DB
	stmtExists *sql.Stmt
	stmtList   *sql.Stmt
	stmtRead   *sql.Stmt
	stmtPut    *sql.Stmt
	stmtDelete *sql.Stmt
	stmtWalk   *sql.Stmt
	logger     *slog.Logger
}

// NewSQLStore prepares the store's statements against db. SetupSchema must
// have been run on db first.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	stmtExists, err := db.Prepare(`SELECT 1 FROM page_resources WHERE resource_path = ?;`)
	if err != nil {
		return nil, err
	}

	stmtList, err := db.Prepare(`SELECT resource_path, resource_name FROM page_resources WHERE resource_dir = ? ORDER BY resource_name;`)
	if err != nil {
		return nil, err
	}

	stmtRead, err := db.Prepare(`SELECT content FROM page_resources WHERE resource_path = ?;`)
	if err != nil {
		return nil, err
	}

	stmtPut, err := db.Prepare(`INSERT INTO page_resources (resource_path, resource_dir, resource_name, content, updated_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT(resource_path) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at;`)
	if err != nil {
		return nil, err
	}

	stmtDelete, err := db.Prepare(`DELETE FROM page_resources WHERE resource_path = ?;`)
	if err != nil {
		return nil, err
	}

	stmtWalk, err := db.Prepare(`SELECT resource_path FROM page_resources ORDER BY resource_path;`)
	if err != nil {
		return nil, err
	}

	return &SQLStore{
		db:         db,
		stmtExists: stmtExists,
		stmtList:   stmtList,
		stmtRead:   stmtRead,
		stmtPut:    stmtPut,
		stmtDelete: stmtDelete,
		stmtWalk:   stmtWalk,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases the prepared statements. The database itself stays open.
func (s *SQLStore) Close() {
	_ = s.stmtExists.Close()
	_ = s.stmtList.Close()
	_ = s.stmtRead.Close()
	_ = s.stmtPut.Close()
	_ = s.stmtDelete.Close()
	_ = s.stmtWalk.Close()
}

// SetLogger sets the logger for the store. By default, all logs are discarded.
func (s *SQLStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Exists reports whether a resource is stored at p. Database errors are
// logged and reported as absence.
func (s *SQLStore) Exists(p string) bool {
	var one int
	err := s.stmtExists.QueryRow(cleanPath(p)).Scan(&one)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("Could not check resource", "path", p, "error", err)
		}
		return false
	}
	return true
}

// ListMatching returns the sorted stored paths that start with prefix.
func (s *SQLStore) ListMatching(prefix string) ([]string, error) {
	prefix = filepath.ToSlash(prefix)
	dir, base := path.Split(prefix)
	dir = cleanPath(dir)

	rows, err := s.stmtList.Query(dir)
	if err != nil {
		return nil, fmt.Errorf("could not list %s: %w", dir, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var matches []string
	for rows.Next() {
		var p, name string
		if err = rows.Scan(&p, &name); err != nil {
			return nil, fmt.Errorf("could not scan resource row: %w", err)
		}
		if strings.HasPrefix(name, base) {
			matches = append(matches, p)
		}
	}
	return matches, rows.Err()
}

// ReadAll returns the stored contents of p.
func (s *SQLStore) ReadAll(p string) ([]byte, error) {
	var content []byte
	err := s.stmtRead.QueryRow(cleanPath(p)).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resource %s: %w", p, os.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read resource %s: %w", p, err)
	}
	if content == nil {
		content = []byte{}
	}
	return content, nil
}

// Walk calls fn for every stored path below root, in path order.
func (s *SQLStore) Walk(root string, fn func(path string) error) error {
	root = cleanPath(root)
	rows, err := s.stmtWalk.Query()
	if err != nil {
		return fmt.Errorf("could not walk resources: %w", err)
	}

	// Collect first so fn may query the store while we iterate.
	var paths []string
	for rows.Next() {
		var p string
		if err = rows.Scan(&p); err != nil {
			_ = rows.Close()
			return fmt.Errorf("could not scan resource row: %w", err)
		}
		if root == "." || p == root || strings.HasPrefix(p, root+"/") {
			paths = append(paths, p)
		}
	}
	if err = rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, p := range paths {
		if err = fn(p); err != nil {
			return err
		}
	}
	return nil
}

// Put stores data at p, replacing any previous content.
func (s *SQLStore) Put(ctx context.Context, p string, data []byte) error {
	return s.put(ctx, s.stmtPut, p, data)
}

func (s *SQLStore) put(ctx context.Context, stmt *sql.Stmt, p string, data []byte) error {
	p = cleanPath(p)
	if data == nil {
		data = []byte{}
	}
	_, err := stmt.ExecContext(ctx, p, path.Dir(p), path.Base(p), data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("could not store resource %s: %w", p, err)
	}
	return nil
}

// Delete removes the resource at p. Deleting a missing resource is not an error.
func (s *SQLStore) Delete(ctx context.Context, p string) error {
	if _, err := s.stmtDelete.ExecContext(ctx, cleanPath(p)); err != nil {
		return fmt.Errorf("could not delete resource %s: %w", p, err)
	}
	return nil
}

// Import copies every file below root in fsys into the store, keeping the
// paths as walked, in a single transaction. It returns the number of files
// stored.
func (s *SQLStore) Import(ctx context.Context, fsys afero.Fs, root string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmt := tx.StmtContext(ctx, s.stmtPut)
	count := 0
	err = afero.Walk(fsys, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if err = ctx.Err(); err != nil {
			return err
		}
		data, err := afero.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("could not read %s: %w", p, err)
		}
		if err = s.put(ctx, stmt, p, data); err != nil {
			return err
		}
		count++
		s.logger.Debug("Imported resource", "path", p, "bytes", len(data))
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("could not commit transaction: %w", err)
	}
	s.logger.Info("Import complete", "root", root, "resources", count)
	return count, nil
}

func cleanPath(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
