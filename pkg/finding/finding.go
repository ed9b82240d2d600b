// Package finding defines the vulnerability record produced by the
// injection engine and consumed by sessions and reports.
package finding

import (
	"time"

	"github.com/google/uuid"
)

// Category groups findings and payloads by attack class.
type Category string

const (
	CategoryXSS    Category = "xss"
	CategorySQLi   Category = "sqli"
	CategoryHeader Category = "header"
)

// IsValid reports whether c is a recognized category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryXSS, CategorySQLi, CategoryHeader:
		return true
	}
	return false
}

// Finding is one confirmed (or heuristically confirmed) vulnerability.
// Immutable once created: sessions only append findings, never mutate them.
type Finding struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	Severity  Severity  `json:"severity"`
	URL       string    `json:"url"`
	Parameter string    `json:"parameter,omitempty"`
	Method    string    `json:"method,omitempty"`
	Payload   string    `json:"payload,omitempty"`
	Evidence  string    `json:"evidence,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a Finding with a fresh id and the current time.
func New(name string, category Category, severity Severity, url string) Finding {
	return Finding{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  category,
		Severity:  severity,
		URL:       url,
		Timestamp: time.Now().UTC(),
	}
}
