package payloads

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wvscan/wvscan/pkg/finding"
	"github.com/wvscan/wvscan/pkg/iohelper"
	"github.com/wvscan/wvscan/pkg/jsonutil"
)

// Provider supplies payloads for a category. The injection engine depends on
// this interface only, never on a concrete source, so static files and
// generative backends are interchangeable.
type Provider interface {
	// FetchPayloads returns up to limit payloads for the category.
	// limit <= 0 means no cap.
	FetchPayloads(ctx context.Context, category finding.Category, limit int) ([]Payload, error)
}

// StaticProvider serves payloads from the built-in set plus optional
// payload files.
type StaticProvider struct {
	catalogue *Catalogue
}

// NewStaticProvider builds a static provider. When dir is non-empty its
// payload files are loaded on top of the built-in set; a missing or broken
// directory is an error so misconfiguration is visible at scan start.
func NewStaticProvider(dir string) (*StaticProvider, error) {
	list := Builtin()
	if dir != "" {
		loaded, err := NewLoader(dir).LoadAll()
		if err != nil {
			return nil, fmt.Errorf("payload dir %s: %w", dir, err)
		}
		list = append(list, loaded...)
	}
	return &StaticProvider{catalogue: NewCatalogue(list)}, nil
}

// FetchPayloads implements Provider.
func (p *StaticProvider) FetchPayloads(_ context.Context, category finding.Category, limit int) ([]Payload, error) {
	return p.catalogue.Select(category, limit), nil
}

// RemoteProvider fetches generated payloads from an external HTTP endpoint.
// It is the generative half of the provider split: disabled (empty URL) it
// contributes nothing, so scans degrade to the static set.
//
// The endpoint contract is GET {url}?category={cat}&limit={n} returning a
// JSON array of Payload objects.
type RemoteProvider struct {
	endpoint string
	client   *http.Client
}

// NewRemoteProvider creates a provider for the given endpoint URL. An empty
// endpoint yields a provider that always returns no payloads.
func NewRemoteProvider(endpoint string, client *http.Client) *RemoteProvider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteProvider{endpoint: endpoint, client: client}
}

// FetchPayloads implements Provider.
func (p *RemoteProvider) FetchPayloads(ctx context.Context, category finding.Category, limit int) ([]Payload, error) {
	if p.endpoint == "" {
		return nil, nil
	}

	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("provider endpoint: %w", err)
	}
	q := u.Query()
	q.Set("category", string(category))
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching payloads: %w", err)
	}
	defer iohelper.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payload provider returned %s", resp.Status)
	}

	body, err := iohelper.ReadBodyDefault(resp.Body)
	if err != nil {
		return nil, err
	}

	var list []Payload
	if err := jsonutil.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parsing provider response: %w", err)
	}

	// Normalize: the remote side may omit the category.
	out := list[:0]
	for _, pl := range list {
		if pl.Category == "" {
			pl.Category = category
		}
		if pl.Category != category || strings.TrimSpace(pl.Payload) == "" {
			continue
		}
		out = append(out, pl)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Merge builds a catalogue from several providers, in order, capping each
// category at perCategoryCap. Provider errors are returned with the merged
// result so callers can log and continue with what loaded.
func Merge(ctx context.Context, perCategoryCap int, providers ...Provider) (*Catalogue, error) {
	categories := []finding.Category{
		finding.CategoryXSS,
		finding.CategorySQLi,
		finding.CategoryHeader,
	}

	var merged []Payload
	var firstErr error
	for _, cat := range categories {
		remaining := perCategoryCap
		for _, prov := range providers {
			if perCategoryCap > 0 && remaining <= 0 {
				break
			}
			list, err := prov.FetchPayloads(ctx, cat, remaining)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			merged = append(merged, list...)
			if perCategoryCap > 0 {
				remaining -= len(list)
			}
		}
	}
	return NewCatalogue(merged), firstErr
}
