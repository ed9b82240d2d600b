package finding

// Severity represents the severity level of a security finding.
// Values are lowercase strings, matching the convention used in reports
// and in the API surface.
type Severity string

const (
	// Critical represents directly exploitable issues such as an
	// unescaped script-capable reflection.
	Critical Severity = "critical"

	// High represents confirmed injection signals (database errors,
	// time-based confirmation).
	High Severity = "high"

	// Medium represents probable issues and weaker signals
	// (boolean differentials, missing framing protection).
	Medium Severity = "medium"

	// Low represents hardening gaps with limited direct impact.
	Low Severity = "low"

	// Info represents observations with no direct security impact.
	Info Severity = "info"
)

// IsValid reports whether s is a recognized severity level.
func (s Severity) IsValid() bool {
	switch s {
	case Critical, High, Medium, Low, Info:
		return true
	}
	return false
}

// Score returns a numeric rank for sorting. Critical=5 … Info=1, unknown=0.
func (s Severity) Score() int {
	switch s {
	case Critical:
		return 5
	case High:
		return 4
	case Medium:
		return 3
	case Low:
		return 2
	case Info:
		return 1
	default:
		return 0
	}
}

// String returns the severity as a string.
func (s Severity) String() string {
	return string(s)
}
