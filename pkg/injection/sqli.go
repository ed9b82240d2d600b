package injection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wvscan/wvscan/pkg/crawler"
	"github.com/wvscan/wvscan/pkg/finding"
)

// sqlErrorSignatures are database error fragments that leak through to the
// response body when a quote-based payload breaks a query.
var sqlErrorSignatures = []string{
	"you have an error in your sql syntax",
	"warning: mysql",
	"mysql_fetch_array()",
	"unclosed quotation mark",
	"quoted string not properly terminated",
	"pg_query():",
	"pg::syntaxerror",
	"sqlstate[",
	"sqlite_error",
	"sqlite3.operationalerror",
	"ora-00933",
	"ora-01756",
	"microsoft ole db provider for sql server",
	"odbc sql server driver",
}

// booleanPairs are true/false payload variants for the differential check.
// The true variant should leave the page intact; the false variant should
// visibly change it.
var booleanPairs = []struct {
	truthy, falsy string
}{
	{`' AND '1'='1`, `' AND '1'='2`},
	{`" AND "1"="1`, `" AND "1"="2`},
	{` AND 1=1`, ` AND 1=2`},
}

// boolDiffThreshold is the body length delta treated as a real page change
// in the boolean differential check.
const boolDiffThreshold = 500

// testSQLi probes the target with SQLi payloads and raises at most one
// finding, preferring the strongest signal: database error, then time-based
// confirmation, then boolean differential.
func (e *Engine) testSQLi(ctx context.Context, target crawler.InjectionTarget) *finding.Finding {
	// Baseline with a benign value; also feeds the time-based comparison.
	var baselineBody string
	var baselineTime time.Duration
	if resp, err := e.probe(ctx, target, "wvscan"); err == nil {
		baselineBody = resp.BodyString()
		baselineTime = resp.Duration
	} else {
		e.logf("sqli baseline failed for %s param %s: %v", target.URL, target.Parameter, err)
	}

	for _, p := range e.selectPayloads(finding.CategorySQLi) {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		resp, err := e.probe(ctx, target, p.Payload)
		if err != nil {
			e.logf("sqli probe failed for %s param %s: %v", target.URL, target.Parameter, err)
			continue
		}

		// Error-based: a database signature in the body is a confirmed
		// injection.
		if sig := matchSQLError(resp.BodyString()); sig != "" {
			f := finding.New("SQL Injection (error-based)", finding.CategorySQLi, finding.High, target.URL)
			f.Parameter = target.Parameter
			f.Method = target.Method
			f.Payload = p.Payload
			f.Evidence = fmt.Sprintf("database error signature: %q", sig)
			e.report(f)
			return &f
		}

		// Time-based: only meaningful for payloads that declare a sleep,
		// and only with a baseline to compare against.
		if p.SleepSeconds > 0 && baselineTime > 0 {
			expected := time.Duration(p.SleepSeconds) * time.Second
			if resp.Duration > baselineTime+expected-e.config.TimeBasedSlack {
				f := finding.New("SQL Injection (time-based blind)", finding.CategorySQLi, finding.High, target.URL)
				f.Parameter = target.Parameter
				f.Method = target.Method
				f.Payload = p.Payload
				f.Evidence = fmt.Sprintf("response delayed %v (baseline %v, payload sleeps %ds)",
					resp.Duration.Round(time.Millisecond), baselineTime.Round(time.Millisecond), p.SleepSeconds)
				e.report(f)
				return &f
			}
		}
	}

	// Boolean differential: true variant tracks the baseline, false
	// variant diverges.
	if baselineBody != "" {
		if f := e.testBooleanDiff(ctx, target, baselineBody); f != nil {
			return f
		}
	}
	return nil
}

func (e *Engine) testBooleanDiff(ctx context.Context, target crawler.InjectionTarget, baseline string) *finding.Finding {
	for _, pair := range booleanPairs {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		truthyResp, err := e.probe(ctx, target, "wvscan"+pair.truthy)
		if err != nil {
			continue
		}
		falsyResp, err := e.probe(ctx, target, "wvscan"+pair.falsy)
		if err != nil {
			continue
		}

		truthyDelta := lengthDelta(truthyResp.BodyString(), baseline)
		falsyDelta := lengthDelta(falsyResp.BodyString(), baseline)
		if truthyDelta < boolDiffThreshold && falsyDelta >= boolDiffThreshold {
			f := finding.New("SQL Injection (boolean-based blind)", finding.CategorySQLi, finding.Medium, target.URL)
			f.Parameter = target.Parameter
			f.Method = target.Method
			f.Payload = pair.truthy
			f.Evidence = fmt.Sprintf("true variant matches baseline (Δ%d), false variant diverges (Δ%d)",
				truthyDelta, falsyDelta)
			e.report(f)
			return &f
		}
	}
	return nil
}

func matchSQLError(body string) string {
	lower := strings.ToLower(body)
	for _, sig := range sqlErrorSignatures {
		if strings.Contains(lower, sig) {
			return sig
		}
	}
	return ""
}

func lengthDelta(a, b string) int {
	d := len(a) - len(b)
	if d < 0 {
		return -d
	}
	return d
}
