// Package diagstatus exposes a loopback-only HTTP status surface for
// operators: /healthz and /stats. It is ambient observability, not part
// of either wire protocol (§1 Non-goals: no cross-host networking — the
// default address is 127.0.0.1; New binds whatever address it is given).
package diagstatus

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/surfbridge/surf/internal/obslog"
)

// Stats is a snapshot of daemon-level counters, owned by the bridge
// daemon and incremented as requests flow through it.
type Stats struct {
	RequestsTotal    atomic.Uint64
	RequestsFailed   atomic.Uint64
	UpstreamRestarts atomic.Uint64
	ActiveClients    atomic.Int64
	StartedAt        time.Time
}

func NewStats() *Stats {
	return &Stats{StartedAt: time.Now()}
}

type statsSnapshot struct {
	RequestsTotal    uint64 `json:"requestsTotal"`
	RequestsFailed   uint64 `json:"requestsFailed"`
	UpstreamRestarts uint64 `json:"upstreamRestarts"`
	ActiveClients    int64  `json:"activeClients"`
	UptimeSeconds    float64 `json:"uptimeSeconds"`
}

// Server is the loopback HTTP status surface.
type Server struct {
	stats *Stats
	log   *zap.Logger
	srv   *http.Server
	ln    net.Listener
}

// New builds a Server bound to addr (expected to be a 127.0.0.1 address;
// callers choosing to bind elsewhere do so at their own risk).
func New(addr string, stats *Stats) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{stats: stats, log: obslog.For("diagstatus"), ln: ln}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/stats", s.handleStats)

	s.srv = &http.Server{Handler: r}
	return s, nil
}

// Addr returns the bound address, useful when the configured port was 0.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Serve blocks, serving until ctx is cancelled or the listener errors.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.srv.Shutdown(context.Background())
	}()
	err := s.srv.Serve(s.ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := statsSnapshot{
		RequestsTotal:    s.stats.RequestsTotal.Load(),
		RequestsFailed:   s.stats.RequestsFailed.Load(),
		UpstreamRestarts: s.stats.UpstreamRestarts.Load(),
		ActiveClients:    s.stats.ActiveClients.Load(),
		UptimeSeconds:    time.Since(s.stats.StartedAt).Seconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.log.Warn("encode stats", zap.Error(err))
	}
}
