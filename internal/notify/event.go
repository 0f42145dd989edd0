package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/calleye/internal/models"
)

// Event is one triggered alert handed to the notification channels.
type Event struct {
	Alert          *models.Alert
	TriggeredValue float64
	TriggeredAt    time.Time
	AgentNames     []string
}

func (e *Event) Severity() Severity {
	return ClassifySeverity(e.Alert.Operator, e.TriggeredValue, e.Alert.ThresholdValue)
}

// AgentScope renders the agent restriction for message bodies.
func (e *Event) AgentScope() string {
	if len(e.AgentNames) == 0 {
		return "All Agents"
	}
	return strings.Join(e.AgentNames, ", ")
}

func (e *Event) Condition() string {
	return fmt.Sprintf("%s %s %.2f", e.Alert.MetricDisplayName(), e.Alert.Operator, e.Alert.ThresholdValue)
}

func (e *Event) Summary() string {
	return fmt.Sprintf("%s: %s is %.2f (threshold: %s %.2f) over the last %d minutes",
		e.Alert.Name,
		e.Alert.MetricDisplayName(),
		e.TriggeredValue,
		e.Alert.Operator,
		e.Alert.ThresholdValue,
		e.Alert.TimeWindowMinutes)
}
