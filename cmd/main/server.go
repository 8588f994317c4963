package main

import (
	"log/slog"
	"net"
	"net/http"
	"path"
	"strings"

	"github.com/CTAG07/pageview/pkg/output"
	"github.com/CTAG07/pageview/pkg/page"
	"github.com/CTAG07/pageview/pkg/resource"
)

type Server struct {
	config   *Config
	store    resource.Store
	registry *page.Registry
	logger   *slog.Logger
	mux      *http.ServeMux
}

func NewServer(config *Config, logger *slog.Logger, store resource.Store, registry *page.Registry) *Server {
	server := &Server{
		config:   config,
		store:    store,
		registry: registry,
		logger:   logger,
		mux:      http.NewServeMux(),
	}

	server.mux.HandleFunc("/api/health", handleHealthCheck)
	server.mux.HandleFunc("/api/version", handleVersion)
	server.mux.HandleFunc("/favicon.ico", handleFavicon)
	server.mux.HandleFunc("/", server.handlePage)

	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// pageDir maps a request path onto a page directory below the pages dir.
func (s *Server) pageDir(urlPath string) (string, bool) {
	for _, seg := range strings.Split(urlPath, "/") {
		if seg == ".." {
			return "", false
		}
	}
	return path.Join(s.config.Server.PagesDir, path.Clean("/"+urlPath)), true
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	dir, ok := s.pageDir(r.URL.Path)
	if !ok {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	entry, ok := s.registry.Resolve(s.store, dir)
	if !ok {
		s.logger.Debug("No page at path", "path", r.URL.Path, "dir", dir)
		http.NotFound(w, r)
		return
	}

	logger := s.logger.With("path", r.URL.Path, "remote_addr", getClientIP(r))
	sink := output.NewHTTPSink(w, logger)
	sink.SetHeader("Content-Type", "text/html; charset=utf-8")
	sink.SetHeader("Cache-Control", "no-cache")

	env := &page.Env{
		Store:  s.store,
		Sink:   sink,
		Config: *s.config.View,
		Logger: logger,
		Dir:    dir,
	}
	if err := entry(r.Context(), env); err != nil {
		if !sink.HeadersSent() {
			logger.Error("Failed to render page", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		// The status line is gone; the client keeps what it already got.
		logger.Error("Page failed after output was committed", "error", err)
		return
	}
	logger.Info("Served page", "dir", dir)
}

func getClientIP(r *http.Request) string {
	// The X-Real-Ip header contains the forwarded IP in some cases (like from nginx)
	realIP := r.Header.Get("X-Real-Ip")
	if realIP != "" {
		return realIP
	}

	// The first entry of X-Forwarded-For is the original client.
	forwardedFor := r.Header.Get("X-Forwarded-For")
	if forwardedFor != "" {
		ips := strings.Split(forwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// handleFavicon answers favicon requests with no content instead of a page
// lookup.
func handleFavicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
