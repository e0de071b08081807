package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"backupmgr/internal/backup"
	"backupmgr/internal/executor"
)

const shutdownTimeout = 10 * time.Second

// LastRun summarizes the most recent finished run.
type LastRun struct {
	RunID      uuid.UUID `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	FailedJobs []string  `json:"failed_jobs,omitempty"`
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status    string    `json:"status"` // "ok" or "degraded"
	StartedAt time.Time `json:"started_at"`
	LastRun   *LastRun  `json:"last_run,omitempty"`
}

// Server exposes daemon health and metrics over HTTP. It also records the
// last run, so it can be handed to the executor as a Recorder.
type Server struct {
	addr      string
	metrics   http.Handler
	logger    zerolog.Logger
	startedAt time.Time

	mu      sync.RWMutex
	last    *LastRun
	server  *http.Server
	ln      net.Listener
	running bool
}

// New builds a server for addr. metrics may be nil, in which case /metrics
// is not mounted.
func New(addr string, metrics http.Handler, logger zerolog.Logger) *Server {
	return &Server{
		addr:      addr,
		metrics:   metrics,
		logger:    logger.With().Str("component", "status").Logger(),
		startedAt: time.Now(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth())
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

func (s *Server) Record(backup.Outcome) {}

func (s *Server) RunFinished(rep *executor.Report) {
	counts := rep.Counts()
	last := &LastRun{
		RunID:      rep.RunID,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Succeeded:  counts[backup.StatusSucceeded],
		Failed:     counts[backup.StatusFailed],
		Skipped:    counts[backup.StatusSkipped],
	}
	for _, o := range rep.Failed() {
		last.FailedJobs = append(last.FailedJobs, o.Name)
	}

	s.mu.Lock()
	s.last = last
	s.mu.Unlock()
}

// handleHealth returns 200 while the last run had no failed jobs, 503 otherwise.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.RLock()
		resp := HealthResponse{Status: "ok", StartedAt: s.startedAt, LastRun: s.last}
		s.mu.RUnlock()

		code := http.StatusOK
		if resp.LastRun != nil && resp.LastRun.Failed > 0 {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("status: server already running")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return errors.New("status: listen failed: " + err.Error())
	}

	s.ln = ln
	s.server = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.running = true

	go func(srv *http.Server) {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("status server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("status server error")
		}
	}(s.server)
	return nil
}

// Addr is the bound listener address, useful when configured with port 0.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server, s.running = nil, false
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.logger.Info().Msg("status server shutting down")
	return srv.Shutdown(shutdownCtx)
}
