package models

import (
	"time"

	"gorm.io/gorm"
)

type HistoryStatus string

const (
	HistoryStatusTriggered HistoryStatus = "triggered"
	HistoryStatusNotified  HistoryStatus = "notified"
)

// AlertHistory records one triggering event. A row is created when the
// alert fires and updated once afterwards with the notification outcome;
// acknowledgement and resolution fields are set out-of-band via the API.
type AlertHistory struct {
	gorm.Model
	AlertID             uint          `json:"alert_id" gorm:"index;not null"`
	Alert               Alert         `json:"-" gorm:"foreignKey:AlertID;constraint:OnDelete:CASCADE"`
	TriggeredAt         time.Time     `json:"triggered_at" gorm:"index;not null"`
	TriggeredValue      float64       `json:"triggered_value"`
	ThresholdValue      float64       `json:"threshold_value"`
	Status              HistoryStatus `json:"status" gorm:"default:triggered"`
	NotifiedAt          *time.Time    `json:"notified_at" gorm:"index"`
	NotificationDetails string        `json:"notification_details" gorm:"type:text"`
	ContextData         string        `json:"context_data" gorm:"type:text"` // alert config snapshot at trigger time
	AcknowledgedBy      string        `json:"acknowledged_by,omitempty"`
	AcknowledgedAt      *time.Time    `json:"acknowledged_at,omitempty"`
	ResolvedBy          string        `json:"resolved_by,omitempty"`
	ResolvedAt          *time.Time    `json:"resolved_at,omitempty"`
}
