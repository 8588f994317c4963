package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/CTAG07/pageview/pkg/view"
)

// ServerConfig holds the settings of the binary itself.
type ServerConfig struct {
	ServerAddr string       `json:"server_addr"`
	LogLevel   string       `json:"log_level"`
	PagesDir   string       `json:"pages_dir"`
	OutputDir  string       `json:"output_dir"`
	Store      *StoreConfig `json:"store"`
}

// StoreConfig selects where resources are read from.
type StoreConfig struct {
	// Driver is "fs" for the working directory, "dir" for a read-only jail
	// rooted at DataSource, or "sqlite" for a database seeded with the import
	// command. With "dir", pages_dir and document_root are relative to the jail.
	Driver     string `json:"driver"`
	DataSource string `json:"data_source"`
}

const (
	driverFs     = "fs"
	driverDir    = "dir"
	driverSQLite = "sqlite"
)

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server *ServerConfig `json:"server_config"`
	View   *view.Config  `json:"view_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ServerAddr: ":8080",
		LogLevel:   "info",
		PagesDir:   "www/pages",
		OutputDir:  "./public",
		Store: &StoreConfig{
			Driver:     driverFs,
			DataSource: "./data/pageview.db?_journal_mode=WAL&_busy_timeout=5000",
		},
	}
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	vc := view.DefaultConfig()
	return &Config{
		Server: DefaultServerConfig(),
		View:   &vc,
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable without a file on disk.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Path fields left out of the file are derived from its document root.
	config.View = &view.Config{}
	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// validate fills sections left out of the file and rejects unknown drivers.
func (c *Config) validate() error {
	if c.Server == nil {
		c.Server = DefaultServerConfig()
	}
	if c.Server.Store == nil {
		c.Server.Store = DefaultServerConfig().Store
	}
	if c.View == nil {
		vc := view.DefaultConfig()
		c.View = &vc
	}
	*c.View = c.View.Normalize()
	switch strings.ToLower(c.Server.Store.Driver) {
	case driverFs, driverSQLite:
	case driverDir:
		if c.Server.Store.DataSource == "" {
			return fmt.Errorf("store driver %q needs a data_source directory", driverDir)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Server.Store.Driver)
	}
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
