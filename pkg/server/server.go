package server

import (
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/ynabsite/pkg/config"
)

// Server previews the generated site locally: a read-only file server
// over the output directory. Deployment itself happens elsewhere; this
// only shows what would be published.
type Server struct {
	config *config.Config
	logger *log.Logger
	mux    *http.ServeMux
}

// New creates a preview server for the configured output directory.
func New(config *config.Config, logger *log.Logger) *Server {
	return &Server{
		config: config,
		logger: logger,
		mux:    http.NewServeMux(),
	}
}

// Start serves until the listener fails.
func (s *Server) Start(addr string) error {
	s.setupRoutes()
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/healthz", s.withLogging(s.handleHealth))
	s.mux.Handle("/", s.withLogging(http.FileServer(http.Dir(s.config.OutputDir)).ServeHTTP))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.config.OutputDir); err != nil {
		http.Error(w, "site not built yet", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	}
}
