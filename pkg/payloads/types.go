// Package payloads loads and indexes attack payloads by category. Payloads
// come from JSON files on disk, from the built-in database, or from a
// generative provider; the injection engine only ever sees the merged,
// capped catalogue.
package payloads

import (
	"github.com/wvscan/wvscan/pkg/finding"
)

// Payload is a single attack string. Immutable after loading.
type Payload struct {
	ID       string           `json:"id,omitempty"`
	Payload  string           `json:"payload"`
	Category finding.Category `json:"category"`

	// Signal is an optional regex the response body is expected to match
	// when the payload fires. Empty means the category classifier decides
	// on its own evidence.
	Signal string `json:"signal,omitempty"`

	// SleepSeconds declares the delay a time-based SQLi payload asks the
	// database for. Zero for everything else.
	SleepSeconds int `json:"sleep_seconds,omitempty"`

	Notes string `json:"notes,omitempty"`
}

// LoadStats summarizes what a load produced.
type LoadStats struct {
	Total      int
	ByCategory map[finding.Category]int
}

// Catalogue is a read-only index of payloads by category. One catalogue is
// built per scan (or shared read-only between scans with identical config).
type Catalogue struct {
	byCategory map[finding.Category][]Payload
	total      int
}

// NewCatalogue indexes the given payloads. Entries with an unknown category
// are dropped.
func NewCatalogue(list []Payload) *Catalogue {
	c := &Catalogue{byCategory: make(map[finding.Category][]Payload)}
	for _, p := range list {
		if !p.Category.IsValid() || p.Payload == "" {
			continue
		}
		c.byCategory[p.Category] = append(c.byCategory[p.Category], p)
		c.total++
	}
	return c
}

// Select returns up to limit payloads for the category, in load order.
// limit <= 0 means no cap.
func (c *Catalogue) Select(category finding.Category, limit int) []Payload {
	list := c.byCategory[category]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

// Count returns the number of indexed payloads for the category.
func (c *Catalogue) Count(category finding.Category) int {
	return len(c.byCategory[category])
}

// Total returns the number of indexed payloads.
func (c *Catalogue) Total() int {
	return c.total
}

// Stats returns per-category load statistics.
func (c *Catalogue) Stats() LoadStats {
	s := LoadStats{Total: c.total, ByCategory: make(map[finding.Category]int)}
	for cat, list := range c.byCategory {
		s.ByCategory[cat] = len(list)
	}
	return s
}
