package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/pageview/pkg/resource"
)

// openStore returns the resource store the config selects, along with a
// function releasing whatever it holds open.
func openStore(cfg *StoreConfig, logger *slog.Logger) (resource.Store, func(), error) {
	switch strings.ToLower(cfg.Driver) {
	case driverSQLite:
		s, closeFn, err := openSQLStore(cfg.DataSource, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, closeFn, nil
	case driverDir:
		return resource.NewDirStore(cfg.DataSource), func() {}, nil
	default:
		return resource.NewOsStore(), func() {}, nil
	}
}

func openSQLStore(dataSource string, logger *slog.Logger) (*resource.SQLStore, func(), error) {
	if dir := dataSourceDir(dataSource); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := initDB(dataSource)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = resource.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to setup resource schema: %w", err)
	}
	s, err := resource.NewSQLStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create resource store: %w", err)
	}
	s.SetLogger(logger)
	return s, func() {
		s.Close()
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}, nil
}

// dataSourceDir returns the directory holding the database file, or "" for
// in-memory databases.
func dataSourceDir(dataSource string) string {
	file, _, _ := strings.Cut(strings.TrimPrefix(dataSource, "file:"), "?")
	if file == "" || file == ":memory:" {
		return ""
	}
	return filepath.Dir(file)
}
