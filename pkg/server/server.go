// Package server exposes the scanner over HTTP: scan lifecycle endpoints,
// a live event stream per scan, and rendered reports. The API returns a
// uniform JSON envelope; reports and the event stream use their own media
// types.
package server

import (
	"log/slog"
	"net/http"

	"github.com/wvscan/wvscan/pkg/report"
	"github.com/wvscan/wvscan/pkg/server/api"
	"github.com/wvscan/wvscan/pkg/session"
)

// maxStartBody bounds the start request body. Scan requests are tiny; a
// larger body is a mistake or abuse.
const maxStartBody = 1 << 20

// Server serves the scanner API for one registry.
type Server struct {
	registry *session.Registry
	reports  *report.Writer // nil disables persistence
	metrics  *metrics
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server over registry. reports may be nil, in which case
// finished scans are not persisted to disk.
func New(registry *session.Registry, reports *report.Writer, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		reports:  reports,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(registry.Len)
	return s
}

// Routes builds the handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /scan/start", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxStartBody)
		api.Wrap(s.startScanAPI)(w, r)
	})

	mux.HandleFunc("GET /scan/{id}/status", api.Wrap(s.scanStatusAPI))
	mux.HandleFunc("GET /scan/{id}/links", api.Wrap(s.scanLinksAPI))
	mux.HandleFunc("GET /scan/{id}/events", s.handleEvents)
	mux.HandleFunc("GET /scan/{id}/report.json", s.handleReportJSON)
	mux.HandleFunc("GET /scan/{id}/report.html", s.handleReportHTML)

	mux.Handle("GET /metrics", s.metrics.handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}` + "\n"))
	})

	return mux
}

// observe waits for the session to end, records completion metrics, and
// persists its report.
func (s *Server) observe(sess *session.Session) {
	<-sess.Done()
	snap := sess.Snapshot()

	s.metrics.scansCompleted.WithLabelValues(string(snap.State)).Inc()
	s.metrics.probesTotal.Add(float64(snap.Counters.Probes))
	for _, f := range snap.Findings {
		s.metrics.findingsTotal.WithLabelValues(string(f.Severity), string(f.Category)).Inc()
	}

	if s.reports != nil {
		if _, err := s.reports.Write(report.Build(snap)); err != nil {
			// Persistence failure must not affect the scan outcome; the
			// report stays retrievable over HTTP from the live session.
			s.logger.Warn("report persistence failed", "scan_id", snap.ID, "error", err)
		}
	}
}

func (s *Server) lookup(r *http.Request) (*session.Session, *api.APIError) {
	sess, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		return nil, api.NotFound("unknown scan id")
	}
	return sess, nil
}
