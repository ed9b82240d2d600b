package crawler

import "strings"

// Location is where an injection target's parameter lives.
type Location string

const (
	LocationQuery  Location = "query"
	LocationBody   Location = "body"
	LocationHeader Location = "header"
)

// InjectionTarget is one (url, method, parameter, location) where an
// attacker-controlled value can be substituted. Produced by the crawler,
// consumed read-only by the injection engine.
type InjectionTarget struct {
	URL       string   `json:"url"`
	Method    string   `json:"method"`
	Parameter string   `json:"parameter"`
	Location  Location `json:"location"`

	// Hint carries discovery context, e.g. "form field of type password".
	Hint string `json:"hint,omitempty"`
}

// Key is the dedup identity: two targets with equal keys are the same
// injection point.
func (t InjectionTarget) Key() string {
	return strings.Join([]string{t.URL, t.Method, t.Parameter, string(t.Location)}, "\x00")
}

// injectableHeaders is the fixed set of request headers treated as implicit
// injection points on every discovered page. These are the headers
// applications commonly echo into pages or logs.
var injectableHeaders = []string{
	"User-Agent",
	"Referer",
	"X-Forwarded-For",
}
