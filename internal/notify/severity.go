package notify

import (
	"github.com/calleye/internal/models"
)

// Severity is a presentational label derived from how far past the
// threshold the triggered value landed. It never affects trigger or
// notify decisions.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityAlert    Severity = "ALERT"
)

// overshootSentinel stands in for the ratio when the divisor is zero.
const overshootSentinel = 2.0

// ClassifySeverity computes how far the actual value overshoots the
// threshold in the direction of the operator.
func ClassifySeverity(op models.Operator, actual, threshold float64) Severity {
	var ratio float64
	switch op {
	case models.OperatorGT, models.OperatorGTE:
		if threshold == 0 {
			ratio = overshootSentinel
		} else {
			ratio = actual / threshold
		}
	case models.OperatorLT, models.OperatorLTE:
		if actual == 0 {
			ratio = overshootSentinel
		} else {
			ratio = threshold / actual
		}
	default:
		ratio = 1.0
	}

	switch {
	case ratio >= 2.0:
		return SeverityCritical
	case ratio >= 1.5:
		return SeverityWarning
	default:
		return SeverityAlert
	}
}

func (s Severity) Color() string {
	switch s {
	case SeverityCritical:
		return "#FF0000"
	case SeverityWarning:
		return "#FFA500"
	default:
		return "#36A64F"
	}
}

func (s Severity) Emoji() string {
	switch s {
	case SeverityCritical:
		return ":red_circle:"
	case SeverityWarning:
		return ":warning:"
	default:
		return ":bell:"
	}
}
