package injection

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/wvscan/wvscan/pkg/crawler"
	"github.com/wvscan/wvscan/pkg/finding"
)

// securityHeaders is the checked header set. Severity reflects what the
// missing header actually exposes.
var securityHeaders = []struct {
	name     string
	severity finding.Severity
	desc     string
}{
	{"Content-Security-Policy", finding.Medium, "no CSP; injected script runs unrestricted"},
	{"X-Frame-Options", finding.Medium, "page can be framed (clickjacking)"},
	{"X-Content-Type-Options", finding.Low, "MIME sniffing not disabled"},
	{"Referrer-Policy", finding.Low, "full referrer leaks to third parties"},
}

// testHeaders runs the passive security-header check for the target's page.
// The check is per base URL, not per header target, so the three implicit
// header targets a page produces raise each issue once. Header payload
// injection (reflection through request headers) rides on the same probe.
func (e *Engine) testHeaders(ctx context.Context, target crawler.InjectionTarget) []finding.Finding {
	var found []finding.Finding

	// Reflection through the request header.
	for _, p := range e.selectPayloads(finding.CategoryHeader) {
		select {
		case <-ctx.Done():
			return found
		default:
		}

		resp, err := e.probe(ctx, target, p.Payload)
		if err != nil {
			e.logf("header probe failed for %s (%s): %v", target.URL, target.Parameter, err)
			continue
		}

		// Passive header audit runs once per URL, on the first response
		// we get back.
		e.mu.Lock()
		first := !e.headersChecked[target.URL]
		e.headersChecked[target.URL] = true
		e.mu.Unlock()
		if first {
			for _, f := range auditSecurityHeaders(target.URL, resp.Header) {
				e.report(f)
				found = append(found, f)
			}
		}

		if reflected, evidence := reflectedUnescaped(resp.BodyString(), p.Payload); reflected && scriptCapable(evidence) {
			f := finding.New(
				fmt.Sprintf("Header Reflection (%s)", target.Parameter),
				finding.CategoryHeader, finding.Medium, target.URL)
			f.Parameter = target.Parameter
			f.Method = target.Method
			f.Payload = p.Payload
			f.Evidence = fmt.Sprintf("request header echoed unescaped: %s", snippet(evidence, 120))
			e.report(f)
			found = append(found, f)
			break
		}
	}
	return found
}

// auditSecurityHeaders raises one finding per missing or misconfigured
// security header.
func auditSecurityHeaders(pageURL string, header http.Header) []finding.Finding {
	var found []finding.Finding

	for _, sh := range securityHeaders {
		if header.Get(sh.name) != "" {
			continue
		}
		f := finding.New(fmt.Sprintf("Missing %s", sh.name), finding.CategoryHeader, sh.severity, pageURL)
		f.Evidence = sh.desc
		found = append(found, f)
	}

	// HSTS only matters over TLS.
	if strings.HasPrefix(pageURL, "https://") && header.Get("Strict-Transport-Security") == "" {
		f := finding.New("Missing Strict-Transport-Security", finding.CategoryHeader, finding.Low, pageURL)
		f.Evidence = "HTTPS page served without HSTS"
		found = append(found, f)
	}

	// Present but weak configurations.
	if xfo := header.Get("X-Frame-Options"); xfo != "" {
		v := strings.ToUpper(strings.TrimSpace(xfo))
		if v != "DENY" && v != "SAMEORIGIN" {
			f := finding.New("Misconfigured X-Frame-Options", finding.CategoryHeader, finding.Low, pageURL)
			f.Evidence = fmt.Sprintf("unrecognized value %q", xfo)
			found = append(found, f)
		}
	}
	if csp := header.Get("Content-Security-Policy"); strings.Contains(csp, "unsafe-inline") {
		f := finding.New("Weak Content-Security-Policy", finding.CategoryHeader, finding.Low, pageURL)
		f.Evidence = "policy allows 'unsafe-inline'"
		found = append(found, f)
	}

	return found
}
