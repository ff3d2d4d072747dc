package server

import (
	"net/http"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/littlec/history"
	"github.com/chazu/littlec/vm"
)

// Server serves RunService over Connect (HTTP/JSON).
type Server struct {
	pool  *RunPool
	store *history.Store
	mux   *http.ServeMux
	log   commonlog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	store   *history.Store
	maxRuns int
	limits  vm.Limits
	timeout time.Duration
}

// WithHistory records every run in store. The server does not close it.
func WithHistory(store *history.Store) ServerOption {
	return func(c *serverConfig) { c.store = store }
}

// WithMaxRuns bounds how many programs run at once.
func WithMaxRuns(n int) ServerOption {
	return func(c *serverConfig) { c.maxRuns = n }
}

// WithLimits sets the interpreter limits applied to every run.
func WithLimits(l vm.Limits) ServerOption {
	return func(c *serverConfig) { c.limits = l }
}

// WithRunTimeout aborts runs that take longer than d. Zero disables it.
func WithRunTimeout(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.timeout = d }
}

// New creates a Server.
func New(opts ...ServerOption) *Server {
	cfg := &serverConfig{
		maxRuns: 4,
		limits:  vm.DefaultLimits(),
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		pool:  NewRunPool(cfg.maxRuns),
		store: cfg.store,
		mux:   http.NewServeMux(),
		log:   commonlog.GetLogger("littlec.server"),
	}

	runSvc := NewRunService(s.pool, cfg.store, cfg.limits, cfg.timeout)
	for path, h := range runSvc.Handlers() {
		s.mux.Handle(path, h)
	}
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on addr ("host:port" or ":port").
func (s *Server) ListenAndServe(addr string) error {
	s.log.Infof("Little C server listening on %s", addr)
	s.log.Infof("  Connect (HTTP/JSON): http://%s%s", addr, RunProcedure)
	return http.ListenAndServe(addr, s.mux)
}

// Stop shuts down the run pool.
func (s *Server) Stop() {
	s.pool.Stop()
}
