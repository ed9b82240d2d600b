package injection

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wvscan/wvscan/pkg/crawler"
	"github.com/wvscan/wvscan/pkg/finding"
	"github.com/wvscan/wvscan/pkg/regexcache"
)

// scriptCapablePatterns match reflections that can execute script. A
// reflection matching one of these is critical; any other verbatim,
// unescaped reflection is high.
var scriptCapablePatterns = []string{
	`<script[^>]*>`,
	`<img[^>]+onerror\s*=`,
	`<svg[^>]*onload\s*=`,
	`<[a-z]+[^>]+on\w+\s*=`,
	`javascript:\s*alert`,
	`<iframe[^>]+src\s*=\s*["']?javascript:`,
}

// testXSS probes the target with XSS payloads and raises at most one
// finding: the first payload reflected verbatim without neutralizing
// encoding.
func (e *Engine) testXSS(ctx context.Context, target crawler.InjectionTarget) *finding.Finding {
	for _, p := range e.selectPayloads(finding.CategoryXSS) {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		resp, err := e.probe(ctx, target, p.Payload)
		if err != nil {
			e.logf("xss probe failed for %s param %s: %v", target.URL, target.Parameter, err)
			continue
		}

		body := resp.BodyString()
		reflected, evidence := reflectedUnescaped(body, p.Payload)
		if !reflected {
			if evidence = signalMatch(body, p.Signal); evidence == "" {
				continue
			}
		}

		severity := finding.High
		if scriptCapable(evidence) {
			severity = finding.Critical
		}

		f := finding.New("Reflected Cross-Site Scripting", finding.CategoryXSS, severity, target.URL)
		f.Parameter = target.Parameter
		f.Method = target.Method
		f.Payload = p.Payload
		f.Evidence = fmt.Sprintf("payload reflected unescaped: %s", snippet(evidence, 120))
		e.report(f)
		return &f
	}
	return nil
}

// signalMatch evaluates a payload's declared signal regex against the body.
// Returns the matched text, or "" when the signal is absent or the pattern
// does not compile. Catalogue files are data, a bad pattern there must not
// take the scan down.
func signalMatch(body, signal string) string {
	if signal == "" {
		return ""
	}
	re, err := regexcache.Get(signal)
	if err != nil {
		return ""
	}
	return re.FindString(body)
}

// reflectedUnescaped reports whether payload appears in body without
// neutralizing encoding, returning the form it appeared in. A reflection of
// the URL-decoded payload counts too: the server decoded and echoed it.
// Payloads without markup-significant characters are skipped; echoing plain
// text back cannot break out of a text context.
func reflectedUnescaped(body, payload string) (bool, string) {
	if !strings.ContainsAny(payload, `<>"'`) {
		return false, ""
	}
	if strings.Contains(body, payload) {
		return true, payload
	}
	if decoded, err := url.QueryUnescape(payload); err == nil && decoded != payload {
		if strings.Contains(body, decoded) {
			return true, decoded
		}
	}
	return false, ""
}

func scriptCapable(evidence string) bool {
	for _, pattern := range scriptCapablePatterns {
		if regexcache.MustGet(`(?i)` + pattern).MatchString(evidence) {
			return true
		}
	}
	return false
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
