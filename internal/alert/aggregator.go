package alert

import (
	"database/sql"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/calleye/internal/models"
	"gorm.io/gorm"
)

// MetricAggregator computes a single scalar value summarizing the call
// records inside one alert's scope and time window.
type MetricAggregator struct {
	db *gorm.DB
}

func NewMetricAggregator(db *gorm.DB) *MetricAggregator {
	return &MetricAggregator{db: db}
}

var aggregationSQL = map[models.Aggregation]string{
	models.AggregationSum: "SUM(duration_seconds)",
	models.AggregationAvg: "AVG(duration_seconds)",
	models.AggregationMin: "MIN(duration_seconds)",
	models.AggregationMax: "MAX(duration_seconds)",
}

// Compute returns the metric value for the given scope. The second return
// value is false when no data exists for the metric; that is not an error
// and the caller must not treat it as a zero value.
func (m *MetricAggregator) Compute(metricType models.MetricType, aggregation models.Aggregation, orgID string, agentIDs []string, windowStart time.Time) (float64, bool, error) {
	query := m.db.Model(&models.Call{}).
		Where("organization_id = ? AND created_at >= ?", orgID, windowStart)
	if len(agentIDs) > 0 {
		query = query.Where("agent_id IN ?", []string(agentIDs))
	}
	// New session so the scope conditions can back more than one query.
	query = query.Session(&gorm.Session{})

	switch metricType {
	case models.MetricCallCount:
		// Count is the metric regardless of the aggregation hint.
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return 0, false, fmt.Errorf("failed to count calls: %v", err)
		}
		return float64(count), true, nil

	case models.MetricCallDuration, models.MetricLatency:
		return m.aggregateDurations(query, aggregation)

	case models.MetricErrorRate:
		return m.statusRate(query, models.CallStatusFailed)

	case models.MetricSuccessRate:
		return m.statusRate(query, models.CallStatusCompleted)

	case models.MetricCustom:
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return 0, false, fmt.Errorf("failed to count calls: %v", err)
		}
		if count == 0 {
			return 0, false, nil
		}
		return float64(count), true, nil

	default:
		log.Printf("Warning: unknown metric type %q, treating as no data", metricType)
		return 0, false, nil
	}
}

func (m *MetricAggregator) aggregateDurations(query *gorm.DB, aggregation models.Aggregation) (float64, bool, error) {
	query = query.Where("duration_seconds IS NOT NULL")

	if aggregation == models.AggregationCount {
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return 0, false, fmt.Errorf("failed to count durations: %v", err)
		}
		return float64(count), true, nil
	}

	expr, ok := aggregationSQL[aggregation]
	if !ok {
		return 0, false, fmt.Errorf("unknown aggregation %q", aggregation)
	}

	var result sql.NullFloat64
	if err := query.Select(expr).Scan(&result).Error; err != nil {
		return 0, false, fmt.Errorf("failed to aggregate durations: %v", err)
	}
	if !result.Valid {
		return 0, false, nil
	}
	return result.Float64, true, nil
}

// statusRate returns 100 * matching/total rounded to two decimals, or no
// data when the scope holds no calls at all.
func (m *MetricAggregator) statusRate(query *gorm.DB, status models.CallStatus) (float64, bool, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, false, fmt.Errorf("failed to count calls: %v", err)
	}
	if total == 0 {
		return 0, false, nil
	}

	var matching int64
	if err := query.Where("status = ?", status).Count(&matching).Error; err != nil {
		return 0, false, fmt.Errorf("failed to count %s calls: %v", status, err)
	}

	return round2(100 * float64(matching) / float64(total)), true, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
