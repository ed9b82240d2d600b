// Package report turns a finished (or partial) scan snapshot into report
// documents. Building is a pure function of the snapshot; persistence writes
// the rendered documents to a directory keyed by scan id.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wvscan/wvscan/pkg/finding"
	"github.com/wvscan/wvscan/pkg/jsonutil"
	"github.com/wvscan/wvscan/pkg/session"
)

// Report is the JSON report document.
type Report struct {
	ScanID      string            `json:"scan_id"`
	TargetURL   string            `json:"target_url"`
	State       session.State     `json:"state"`
	GeneratedAt time.Time         `json:"generated_at"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at,omitzero"`
	Summary     Summary           `json:"summary"`
	Findings    []finding.Finding `json:"findings"`
}

// Summary aggregates finding counts.
type Summary struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"`
	ByCategory map[string]int `json:"by_category"`
}

// Build assembles a report from a snapshot. Findings are ordered by
// severity (critical first), then by URL for a stable document.
func Build(snap session.Snapshot) Report {
	findings := make([]finding.Finding, len(snap.Findings))
	copy(findings, snap.Findings)
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity.Score() != findings[j].Severity.Score() {
			return findings[i].Severity.Score() > findings[j].Severity.Score()
		}
		return findings[i].URL < findings[j].URL
	})

	summary := Summary{
		Total:      len(findings),
		BySeverity: make(map[string]int),
		ByCategory: make(map[string]int),
	}
	for _, f := range findings {
		summary.BySeverity[string(f.Severity)]++
		summary.ByCategory[string(f.Category)]++
	}

	return Report{
		ScanID:      snap.ID,
		TargetURL:   snap.TargetURL,
		State:       snap.State,
		GeneratedAt: time.Now().UTC(),
		StartedAt:   snap.CreatedAt,
		CompletedAt: snap.CompletedAt,
		Summary:     summary,
		Findings:    findings,
	}
}

// JSON renders the report as indented JSON.
func (r Report) JSON() ([]byte, error) {
	return jsonutil.MarshalIndent(r, "", "  ")
}

// Writer persists rendered reports under a base directory, one subdirectory
// per scan id.
type Writer struct {
	baseDir string
}

// NewWriter creates the base directory if needed.
func NewWriter(baseDir string) (*Writer, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("report: create base dir: %w", err)
	}
	return &Writer{baseDir: baseDir}, nil
}

// Write renders and stores both report formats for the scan, returning the
// scan's report directory.
func (w *Writer) Write(r Report) (string, error) {
	dir := filepath.Join(w.baseDir, r.ScanID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create scan dir: %w", err)
	}

	raw, err := r.JSON()
	if err != nil {
		return "", fmt.Errorf("report: render json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.json"), raw, 0o644); err != nil {
		return "", fmt.Errorf("report: write json: %w", err)
	}

	html, err := r.HTML()
	if err != nil {
		return "", fmt.Errorf("report: render html: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.html"), html, 0o644); err != nil {
		return "", fmt.Errorf("report: write html: %w", err)
	}
	return dir, nil
}
