package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/CTAG07/pageview/pkg/page"
	"github.com/CTAG07/pageview/pkg/static"
)

const usage = `usage: pageview [-config file] [command] [flags]

commands:
  serve            serve pages over HTTP (default)
  build [-out dir] render every page to static files
  import [-src dir] copy a document root into the sqlite store
  version          print build information
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "pageview: %v\n", err)
		os.Exit(1)
	}
}

// run parses the global flags and dispatches to a command.
func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("pageview", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	configPath := fs.String("config", "./config.json", "path to the config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd, rest := "serve", fs.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}
	if cmd == "version" {
		v := currentVersion()
		_, err := fmt.Fprintf(stdout, "pageview %s (commit %s, built %s)\n", v.Version, v.Commit, v.BuildDate)
		return err
	}

	config, err := LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: parseLogLevel(config.Server.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		return runServe(ctx, config, logger)
	case "build":
		return runBuild(ctx, config, logger, rest)
	case "import":
		return runImport(ctx, config, logger, rest)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// runServe hosts the page server until ctx is cancelled.
func runServe(ctx context.Context, config *Config, logger *slog.Logger) error {
	store, closeStore, err := openStore(config.Server.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	server := NewServer(config, logger, store, page.NewRegistry())
	httpServer := &http.Server{Addr: config.Server.ServerAddr, Handler: server}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting page server", "address", httpServer.Addr, "pages_dir", config.Server.PagesDir, "store", config.Server.Store.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err = <-errChan:
		if err != nil {
			return fmt.Errorf("page server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("OS signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Page server shutdown failed", "error", err)
	}
	logger.Info("pageview has shut down.")
	return nil
}

// runBuild renders every page below the pages dir into static files.
func runBuild(ctx context.Context, config *Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	out := fs.String("out", config.Server.OutputDir, "directory to write the site to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, closeStore, err := openStore(config.Server.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	r := static.NewRenderer(store, page.NewRegistry(), static.WithConfig(*config.View), static.WithLogger(logger))
	results, err := r.Build(ctx, config.Server.PagesDir, *out)
	if err != nil {
		return fmt.Errorf("build failed after %d pages: %w", len(results), err)
	}
	return nil
}

// runImport seeds the sqlite store from a directory on disk.
func runImport(ctx context.Context, config *Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	src := fs.String("src", config.View.DocumentRoot, "directory to import")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !strings.EqualFold(config.Server.Store.Driver, driverSQLite) {
		return fmt.Errorf("import needs the %q store driver, config has %q", driverSQLite, config.Server.Store.Driver)
	}

	store, closeStore, err := openSQLStore(config.Server.Store.DataSource, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := store.Import(ctx, afero.NewOsFs(), *src)
	if err != nil {
		return fmt.Errorf("import %s: %w", *src, err)
	}
	logger.Info("Imported document root", "src", *src, "resources", n)
	return nil
}
