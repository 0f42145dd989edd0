package notify

import (
	"testing"

	"github.com/calleye/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		name      string
		op        models.Operator
		actual    float64
		threshold float64
		want      Severity
	}{
		{"double overshoot above", models.OperatorGT, 40, 20, SeverityCritical},
		{"1.5x overshoot above", models.OperatorGTE, 30, 20, SeverityWarning},
		{"barely above", models.OperatorGT, 21, 20, SeverityAlert},
		{"double overshoot below", models.OperatorLT, 10, 20, SeverityCritical},
		{"1.5x overshoot below", models.OperatorLTE, 20, 30, SeverityWarning},
		{"barely below", models.OperatorLT, 19, 20, SeverityAlert},
		{"zero threshold uses sentinel", models.OperatorGT, 5, 0, SeverityCritical},
		{"zero actual uses sentinel", models.OperatorLT, 0, 20, SeverityCritical},
		{"equality operator is informational", models.OperatorEQ, 100, 100, SeverityAlert},
		{"not-equal operator is informational", models.OperatorNEQ, 5, 100, SeverityAlert},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySeverity(tt.op, tt.actual, tt.threshold))
		})
	}
}

func TestSeverityPresentation(t *testing.T) {
	assert.Equal(t, "#FF0000", SeverityCritical.Color())
	assert.Equal(t, ":warning:", SeverityWarning.Emoji())
	assert.Equal(t, ":bell:", SeverityAlert.Emoji())
}
