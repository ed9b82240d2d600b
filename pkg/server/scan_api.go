package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/wvscan/wvscan/pkg/server/api"
	"github.com/wvscan/wvscan/pkg/session"
)

type startRequest struct {
	TargetURL string            `json:"target_url"`
	Overrides session.Overrides `json:"overrides"`
}

type startResponse struct {
	ScanID    string `json:"scan_id"`
	TargetURL string `json:"target_url"`
	State     string `json:"state"`
}

// startScanAPI accepts a target, creates a session, and returns its id
// immediately. The scan runs in the background; everything else is observed
// through the status, events, and report endpoints.
func (s *Server) startScanAPI(r *http.Request) (any, *api.APIError) {
	var req startRequest
	if apiErr := api.ReadJSON(r, &req); apiErr != nil {
		return nil, apiErr
	}

	target, apiErr := normalizeTarget(req.TargetURL)
	if apiErr != nil {
		return nil, apiErr
	}

	sess := s.registry.Create(r.Context(), target, req.Overrides)
	s.metrics.scansStarted.Inc()
	go s.observe(sess)

	s.logger.Info("scan started", "scan_id", sess.ID(), "target", target)

	snap := sess.Snapshot()
	return startResponse{
		ScanID:    sess.ID(),
		TargetURL: snap.TargetURL,
		State:     string(snap.State),
	}, nil
}

// normalizeTarget validates the target URL and defaults a missing scheme to
// http, matching what people paste into scanners.
func normalizeTarget(raw string) (string, *api.APIError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", api.ValidationError(map[string]string{"target_url": "required"})
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", api.ValidationError(map[string]string{"target_url": "must be an http or https URL"})
	}
	return u.String(), nil
}

// scanStatusAPI returns the full snapshot minus the target list, which has
// its own endpoint.
func (s *Server) scanStatusAPI(r *http.Request) (any, *api.APIError) {
	sess, apiErr := s.lookup(r)
	if apiErr != nil {
		return nil, apiErr
	}
	snap := sess.Snapshot()
	snap.Targets = nil
	return snap, nil
}

// scanLinksAPI returns the injection targets discovery found, plus the
// report URLs for this scan.
func (s *Server) scanLinksAPI(r *http.Request) (any, *api.APIError) {
	sess, apiErr := s.lookup(r)
	if apiErr != nil {
		return nil, apiErr
	}
	snap := sess.Snapshot()
	return map[string]any{
		"scan_id":  snap.ID,
		"state":    snap.State,
		"targets":  snap.Targets,
		"json_url": "/scan/" + snap.ID + "/report.json",
		"html_url": "/scan/" + snap.ID + "/report.html",
	}, nil
}
