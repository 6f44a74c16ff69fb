package transport

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/optimistic"
	"github.com/rpggio/blueprint/internal/status"
)

// Snapshots is the read side of the project cache.
type Snapshots interface {
	Project(projectID string) (*project.Project, error)
	Subscribe(projectID string) (<-chan *project.Project, func())
}

// Server wires HTTP handlers.
type Server struct {
	snapshots Snapshots
	logger    *slog.Logger
	keepAlive time.Duration
}

// DefaultKeepAlive is how often an idle snapshot stream sends a comment.
const DefaultKeepAlive = 15 * time.Second

// NewServer creates the HTTP router: the MCP endpoint, a health check and a
// server-sent event stream of project snapshots.
func NewServer(mcpHandler http.Handler, snapshots Snapshots, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	srv := &Server{snapshots: snapshots, logger: logger, keepAlive: DefaultKeepAlive}

	if mcpHandler != nil {
		r.Handle("/mcp", mcpHandler)
		r.Handle("/mcp/*", mcpHandler)
	}
	r.Get("/health", srv.handleHealth)
	r.Get("/projects/{projectID}/stream", srv.handleStream)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleStream sends the cached snapshot, then every new one, until the
// client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	updates, cancel := s.snapshots.Subscribe(projectID)
	defer cancel()

	current, err := s.snapshots.Project(projectID)
	if err != nil && !errors.Is(err, optimistic.ErrNotCached) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if current != nil {
		if err := sse.WriteEvent("snapshot", current); err != nil {
			return
		}
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case p := <-updates:
			if err := sse.WriteEvent("snapshot", p); err != nil {
				s.logger.Debug("snapshot stream closed", "project_id", projectID, "error", err)
				return
			}
			if p.Status.Terminal() {
				_ = sse.WriteEvent("status", status.EventFrom(p))
			}
		case <-ticker.C:
			if err := sse.Ping(); err != nil {
				return
			}
		}
	}
}

// requestLogger logs each request at debug level with its MCP session id.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"session_id", r.Header.Get("Mcp-Session-Id"),
				"duration", time.Since(start),
			)
		})
	}
}
