package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/report.html
var templateFS embed.FS

var htmlTemplate = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"severityClass": func(s fmt.Stringer) string {
		return "sev-" + strings.ToLower(s.String())
	},
	"fmtTime": func(t time.Time) string {
		if t.IsZero() {
			return "–"
		}
		return t.Format("2006-01-02 15:04:05 MST")
	},
}).ParseFS(templateFS, "templates/report.html"))

// HTML renders the report as a standalone HTML page. All finding fields pass
// through html/template's contextual escaping, so payloads and evidence
// containing markup render inert.
func (r Report) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, r); err != nil {
		return nil, fmt.Errorf("report: execute template: %w", err)
	}
	return buf.Bytes(), nil
}
