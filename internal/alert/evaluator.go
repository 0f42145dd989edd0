package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/calleye/internal/models"
	"github.com/calleye/internal/notify"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
)

// Outcome is the terminal state of one alert evaluation.
type Outcome string

const (
	OutcomeTriggered       Outcome = "triggered"
	OutcomeNotTriggered    Outcome = "not_triggered"
	OutcomeSkippedCooldown Outcome = "skipped_cooldown"
	OutcomeError           Outcome = "error"
)

// Result describes how a single alert evaluation ended.
type Result struct {
	AlertID       uint                   `json:"alert_id"`
	AlertName     string                 `json:"alert_name"`
	Outcome       Outcome                `json:"outcome"`
	Reason        string                 `json:"reason,omitempty"`
	MetricValue   *float64               `json:"metric_value,omitempty"`
	Threshold     float64                `json:"threshold"`
	Operator      models.Operator        `json:"operator"`
	HistoryID     uint                   `json:"history_id,omitempty"`
	Notifications []notify.ChannelResult `json:"notifications,omitempty"`
}

// BatchResult aggregates one EvaluateAll run.
type BatchResult struct {
	Total           int      `json:"total"`
	Triggered       int      `json:"triggered"`
	NotTriggered    int      `json:"not_triggered"`
	SkippedCooldown int      `json:"skipped_cooldown"`
	Errors          int      `json:"errors"`
	Results         []Result `json:"results"`
}

// Dispatcher is the notification fan-out collaborator. Tests substitute
// a fake; production wires internal/notify.Dispatcher.
type Dispatcher interface {
	SendAll(alert *models.Alert, triggeredValue float64, triggeredAt time.Time, agentNames []string) []notify.ChannelResult
}

type Evaluator struct {
	db         *gorm.DB
	aggregator *MetricAggregator
	gate       *CooldownGate
	dispatcher Dispatcher
	workers    int64
}

func NewEvaluator(db *gorm.DB, dispatcher Dispatcher, workers int) *Evaluator {
	if workers < 1 {
		workers = 1
	}
	return &Evaluator{
		db:         db,
		aggregator: NewMetricAggregator(db),
		gate:       NewCooldownGate(db),
		dispatcher: dispatcher,
		workers:    int64(workers),
	}
}

var comparisons = map[models.Operator]func(value, threshold float64) bool{
	models.OperatorGT:  func(v, t float64) bool { return v > t },
	models.OperatorLT:  func(v, t float64) bool { return v < t },
	models.OperatorGTE: func(v, t float64) bool { return v >= t },
	models.OperatorLTE: func(v, t float64) bool { return v <= t },
	models.OperatorEQ:  func(v, t float64) bool { return v == t },
	models.OperatorNEQ: func(v, t float64) bool { return v != t },
}

// EvaluateAlert runs the cooldown check, metric computation, threshold
// comparison and, on a hit, the trigger pipeline for one alert.
func (e *Evaluator) EvaluateAlert(alert *models.Alert) *Result {
	result := &Result{
		AlertID:   alert.ID,
		AlertName: alert.Name,
		Threshold: alert.ThresholdValue,
		Operator:  alert.Operator,
	}

	allowed, err := e.gate.ShouldNotify(alert)
	if err != nil {
		result.Outcome = OutcomeError
		result.Reason = err.Error()
		return result
	}
	if !allowed {
		result.Outcome = OutcomeSkippedCooldown
		result.Reason = fmt.Sprintf("in %s cooldown", alert.NotifyFrequency)
		return result
	}

	windowStart := time.Now().Add(-time.Duration(alert.TimeWindowMinutes) * time.Minute)
	value, hasData, err := e.aggregator.Compute(alert.MetricType, alert.Aggregation, alert.OrganizationID, alert.AgentIDs, windowStart)
	if err != nil {
		result.Outcome = OutcomeError
		result.Reason = err.Error()
		return result
	}
	if !hasData {
		result.Outcome = OutcomeNotTriggered
		result.Reason = "no data"
		return result
	}
	result.MetricValue = &value

	compare, ok := comparisons[alert.Operator]
	if !ok {
		result.Outcome = OutcomeError
		result.Reason = fmt.Sprintf("unsupported operator %q", alert.Operator)
		return result
	}

	if !compare(value, alert.ThresholdValue) {
		result.Outcome = OutcomeNotTriggered
		return result
	}

	history, notifications, err := e.trigger(alert, value)
	if err != nil {
		result.Outcome = OutcomeError
		result.Reason = err.Error()
		return result
	}

	result.Outcome = OutcomeTriggered
	result.HistoryID = history.ID
	result.Notifications = notifications
	return result
}

// trigger writes the history row, dispatches notifications and records
// their outcome. The history insert commits before any delivery attempt
// so a dispatcher crash never loses record of the trigger.
func (e *Evaluator) trigger(alert *models.Alert, value float64) (*models.AlertHistory, []notify.ChannelResult, error) {
	now := time.Now()

	contextData, err := json.Marshal(alert)
	if err != nil {
		contextData = []byte("{}")
	}

	history := &models.AlertHistory{
		AlertID:        alert.ID,
		TriggeredAt:    now,
		TriggeredValue: value,
		ThresholdValue: alert.ThresholdValue,
		Status:         models.HistoryStatusTriggered,
		ContextData:    string(contextData),
	}
	if err := e.db.Create(history).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to record trigger: %v", err)
	}

	updates := map[string]interface{}{
		"last_triggered": now,
		"trigger_count":  gorm.Expr("trigger_count + 1"),
	}
	if err := e.db.Model(&models.Alert{}).Where("id = ?", alert.ID).Updates(updates).Error; err != nil {
		log.Printf("Warning: failed to update trigger stats for alert %d: %v", alert.ID, err)
	}

	notifications := e.dispatcher.SendAll(alert, value, now, e.resolveAgentNames(alert))

	successes := 0
	for _, n := range notifications {
		if n.Success {
			successes++
		}
	}

	details, err := json.Marshal(map[string]interface{}{
		"results":       notifications,
		"success_count": successes,
		"failure_count": len(notifications) - successes,
	})
	if err != nil {
		details = []byte("{}")
	}

	history.NotificationDetails = string(details)
	if successes > 0 {
		notifiedAt := time.Now()
		history.NotifiedAt = &notifiedAt
		history.Status = models.HistoryStatusNotified
	}
	if err := e.db.Save(history).Error; err != nil {
		log.Printf("Warning: failed to record notification outcome for history %d: %v", history.ID, err)
	}

	return history, notifications, nil
}

// resolveAgentNames maps the alert's agent IDs to display names. Lookups
// are best-effort: an unknown ID falls back to the raw identifier and
// never blocks the trigger.
func (e *Evaluator) resolveAgentNames(alert *models.Alert) []string {
	if len(alert.AgentIDs) == 0 {
		return nil
	}

	var agents []models.Agent
	if err := e.db.Where("organization_id = ? AND agent_id IN ?", alert.OrganizationID, []string(alert.AgentIDs)).Find(&agents).Error; err != nil {
		log.Printf("Warning: failed to resolve agent names for alert %d: %v", alert.ID, err)
		return alert.AgentIDs
	}

	byID := make(map[string]string, len(agents))
	for _, agent := range agents {
		byID[agent.AgentID] = agent.Name
	}

	names := make([]string, 0, len(alert.AgentIDs))
	for _, id := range alert.AgentIDs {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		} else {
			names = append(names, id)
		}
	}
	return names
}

// EvaluateAll evaluates every active alert across all organizations.
// Alerts are fanned out to a bounded worker pool; each alert still runs
// its own pipeline sequentially. Overlapping batch runs may double-fire
// the same alert, which is tolerated as at-least-once notification.
func (e *Evaluator) EvaluateAll() (*BatchResult, error) {
	var alerts []models.Alert
	if err := e.db.Where("status = ?", models.AlertStatusActive).Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch active alerts: %v", err)
	}

	batch := &BatchResult{
		Total:   len(alerts),
		Results: make([]Result, len(alerts)),
	}

	sem := semaphore.NewWeighted(e.workers)
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := range alerts {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			batch.Results[i] = e.evaluateSafely(&alerts[i])
		}(i)
	}
	wg.Wait()

	for i := range batch.Results {
		switch batch.Results[i].Outcome {
		case OutcomeTriggered:
			batch.Triggered++
		case OutcomeNotTriggered:
			batch.NotTriggered++
		case OutcomeSkippedCooldown:
			batch.SkippedCooldown++
		default:
			batch.Errors++
		}
	}

	return batch, nil
}

// evaluateSafely isolates one alert's evaluation so a panic cannot abort
// the rest of the batch.
func (e *Evaluator) evaluateSafely(alert *models.Alert) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic evaluating alert %d (%s): %v", alert.ID, alert.Name, r)
			result = Result{
				AlertID:   alert.ID,
				AlertName: alert.Name,
				Threshold: alert.ThresholdValue,
				Operator:  alert.Operator,
				Outcome:   OutcomeError,
				Reason:    fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	res := e.EvaluateAlert(alert)
	if res.Outcome == OutcomeError {
		log.Printf("Alert %d (%s) evaluation error: %s", alert.ID, alert.Name, res.Reason)
	}
	return *res
}

// ErrAlertNotFound is returned when the alert does not exist within the
// caller's organization. Alerts of other organizations are reported
// identically so their existence never leaks across tenants.
var ErrAlertNotFound = errors.New("alert not found")

// EvaluateAlertByID evaluates one alert on demand, scoped to orgID.
func (e *Evaluator) EvaluateAlertByID(id uint, orgID string) (*Result, error) {
	var alert models.Alert
	err := e.db.Where("id = ? AND organization_id = ?", id, orgID).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load alert: %v", err)
	}

	// Threshold comparisons are only meaningful while the alert is active.
	if alert.Status != models.AlertStatusActive {
		return &Result{
			AlertID:   alert.ID,
			AlertName: alert.Name,
			Threshold: alert.ThresholdValue,
			Operator:  alert.Operator,
			Outcome:   OutcomeError,
			Reason:    "alert is inactive",
		}, nil
	}

	return e.EvaluateAlert(&alert), nil
}
