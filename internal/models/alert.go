package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type MetricType string

const (
	MetricCallCount    MetricType = "call_count"
	MetricCallDuration MetricType = "call_duration"
	MetricErrorRate    MetricType = "error_rate"
	MetricSuccessRate  MetricType = "success_rate"
	MetricLatency      MetricType = "latency"
	MetricCustom       MetricType = "custom"
)

type Aggregation string

const (
	AggregationSum   Aggregation = "sum"
	AggregationAvg   Aggregation = "avg"
	AggregationCount Aggregation = "count"
	AggregationMin   Aggregation = "min"
	AggregationMax   Aggregation = "max"
)

type Operator string

const (
	OperatorGT  Operator = ">"
	OperatorLT  Operator = "<"
	OperatorGTE Operator = ">="
	OperatorLTE Operator = "<="
	OperatorEQ  Operator = "="
	OperatorNEQ Operator = "!="
)

type NotifyFrequency string

const (
	FrequencyImmediate NotifyFrequency = "immediate"
	FrequencyHourly    NotifyFrequency = "hourly"
	FrequencyDaily     NotifyFrequency = "daily"
	FrequencyWeekly    NotifyFrequency = "weekly"
)

// CooldownSeconds returns the minimum interval between successive
// notifications for this frequency. Unknown values behave as immediate.
func (f NotifyFrequency) CooldownSeconds() int {
	switch f {
	case FrequencyHourly:
		return 3600
	case FrequencyDaily:
		return 86400
	case FrequencyWeekly:
		return 604800
	default:
		return 0
	}
}

type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusInactive AlertStatus = "inactive"
)

// StringList is stored as a JSON text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, l)
}

// Alert is an organization-scoped rule comparing an aggregated call metric
// over a rolling time window against a threshold.
type Alert struct {
	gorm.Model
	OrganizationID    string          `json:"organization_id" gorm:"index;not null"`
	Name              string          `json:"name" gorm:"not null"`
	Description       string          `json:"description"`
	MetricType        MetricType      `json:"metric_type" gorm:"not null"`
	Aggregation       Aggregation     `json:"aggregation" gorm:"default:count"`
	Operator          Operator        `json:"operator" gorm:"not null"`
	ThresholdValue    float64         `json:"threshold_value" gorm:"not null"`
	TimeWindowMinutes int             `json:"time_window_minutes" gorm:"not null"`
	AgentIDs          StringList      `json:"agent_ids" gorm:"type:text"` // empty = all agents
	NotifyFrequency   NotifyFrequency `json:"notify_frequency" gorm:"default:immediate"`
	NotifyEmails      StringList      `json:"notify_emails" gorm:"type:text"`
	NotifyWebhooks    StringList      `json:"notify_webhooks" gorm:"type:text"`
	Status            AlertStatus     `json:"status" gorm:"default:active;index"`
	LastTriggered     *time.Time      `json:"last_triggered"`
	TriggerCount      int             `json:"trigger_count" gorm:"default:0"`
}

// MetricDisplayName returns a human readable metric name for notifications.
func (a *Alert) MetricDisplayName() string {
	switch a.MetricType {
	case MetricCallCount:
		return "Number of Calls"
	case MetricCallDuration:
		return "Call Duration (seconds)"
	case MetricErrorRate:
		return "Error Rate (%)"
	case MetricSuccessRate:
		return "Success Rate (%)"
	case MetricLatency:
		return "Latency (seconds)"
	case MetricCustom:
		return "Custom Metric"
	default:
		return string(a.MetricType)
	}
}
