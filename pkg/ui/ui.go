// Package ui holds terminal styling for the CLI: the banner, severity
// colors, and the request User-Agent.
package ui

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Version can be overridden at build time via ldflags:
// go build -ldflags "-X github.com/wvscan/wvscan/pkg/ui.Version=1.0.0"
var Version = "0.3.0"

// UserAgent returns the User-Agent string sent on every scan request.
func UserAgent() string {
	return fmt.Sprintf("wvscan/%s", Version)
}

// Severity colors follow OWASP/Nuclei conventions.
var (
	Primary  = lipgloss.Color("#7D56F4")
	Critical = lipgloss.Color("#FF0000")
	High     = lipgloss.Color("#FF6B6B")
	Medium   = lipgloss.Color("#FFD93D")
	Low      = lipgloss.Color("#6BCB77")
	Info     = lipgloss.Color("#4D96FF")
	Muted    = lipgloss.Color("#6B7280")
)

var (
	BannerStyle = lipgloss.NewStyle().Foreground(Primary).Bold(true)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	MutedStyle = lipgloss.NewStyle().Foreground(Muted)

	severityStyles = map[string]lipgloss.Style{
		"critical": lipgloss.NewStyle().Foreground(Critical).Bold(true),
		"high":     lipgloss.NewStyle().Foreground(High).Bold(true),
		"medium":   lipgloss.NewStyle().Foreground(Medium),
		"low":      lipgloss.NewStyle().Foreground(Low),
		"info":     lipgloss.NewStyle().Foreground(Info),
	}
)

var (
	noColorOnce sync.Once
)

// SetNoColor forces plain ASCII output.
func SetNoColor() {
	noColorOnce.Do(func() {
		lipgloss.SetColorProfile(termenv.Ascii)
	})
}

// SeverityBadge renders a severity label in its conventional color.
func SeverityBadge(severity string) string {
	if style, ok := severityStyles[severity]; ok {
		return style.Render(severity)
	}
	return MutedStyle.Render(severity)
}

// Banner renders the startup banner.
func Banner() string {
	return BannerStyle.Render("wvscan") + " " + MutedStyle.Render("v"+Version+" - web vulnerability scanner")
}
