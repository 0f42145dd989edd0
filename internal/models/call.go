package models

import (
	"gorm.io/gorm"
)

type CallStatus string

const (
	CallStatusQueued       CallStatus = "queued"
	CallStatusTranscribing CallStatus = "transcribing"
	CallStatusEvaluating   CallStatus = "evaluating"
	CallStatusCompleted    CallStatus = "completed"
	CallStatusFailed       CallStatus = "failed"
)

// Call is one evaluated voice call. The alert engine only ever reads
// these rows; they are written by the ingest pipeline.
type Call struct {
	gorm.Model
	OrganizationID  string     `json:"organization_id" gorm:"index;not null"`
	AgentID         string     `json:"agent_id" gorm:"index"`
	ExternalID      string     `json:"external_id" gorm:"index"`
	DurationSeconds *float64   `json:"duration_seconds"`
	Status          CallStatus `json:"status" gorm:"default:queued;index"`
}

// Agent is a voice agent belonging to an organization. Alerts may scope
// their metric to a subset of agents; display names are resolved at
// trigger time for notification text.
type Agent struct {
	gorm.Model
	OrganizationID string `json:"organization_id" gorm:"index;not null"`
	AgentID        string `json:"agent_id" gorm:"uniqueIndex;not null"`
	Name           string `json:"name" gorm:"not null"`
}
