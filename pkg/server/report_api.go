package server

import (
	"net/http"

	"github.com/wvscan/wvscan/pkg/report"
)

// Reports are built from the live snapshot on every request, so a running
// scan serves a partial report rather than a 404.

func (s *Server) handleReportJSON(w http.ResponseWriter, r *http.Request) {
	sess, apiErr := s.lookup(r)
	if apiErr != nil {
		http.Error(w, apiErr.Err.Message, apiErr.Status)
		return
	}

	raw, err := report.Build(sess.Snapshot()).JSON()
	if err != nil {
		s.logger.Error("json report render failed", "scan_id", sess.ID(), "error", err)
		http.Error(w, "report rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	sess, apiErr := s.lookup(r)
	if apiErr != nil {
		http.Error(w, apiErr.Err.Message, apiErr.Status)
		return
	}

	page, err := report.Build(sess.Snapshot()).HTML()
	if err != nil {
		s.logger.Error("html report render failed", "scan_id", sess.ID(), "error", err)
		http.Error(w, "report rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
