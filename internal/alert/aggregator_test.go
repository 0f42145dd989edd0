package alert

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/calleye/internal/database"
	"github.com/calleye/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedCall(t *testing.T, db *gorm.DB, orgID, agentID string, status models.CallStatus, duration *float64, createdAt time.Time) {
	t.Helper()
	call := models.Call{
		OrganizationID:  orgID,
		AgentID:         agentID,
		Status:          status,
		DurationSeconds: duration,
	}
	call.CreatedAt = createdAt
	require.NoError(t, db.Create(&call).Error)
}

func ptr(v float64) *float64 { return &v }

func TestComputeWindowBoundary(t *testing.T) {
	db := newTestDB(t)
	agg := NewMetricAggregator(db)

	now := time.Now()
	windowStart := now.Add(-60 * time.Minute)

	// One call inside the window, one just outside it.
	seedCall(t, db, "org-1", "a1", models.CallStatusCompleted, nil, now.Add(-30*time.Minute))
	seedCall(t, db, "org-1", "a1", models.CallStatusCompleted, nil, windowStart.Add(-time.Second))

	value, hasData, err := agg.Compute(models.MetricCallCount, models.AggregationCount, "org-1", nil, windowStart)
	require.NoError(t, err)
	assert.True(t, hasData)
	assert.Equal(t, 1.0, value)
}

func TestCallCountIgnoresAggregation(t *testing.T) {
	db := newTestDB(t)
	agg := NewMetricAggregator(db)

	now := time.Now()
	for i := 0; i < 3; i++ {
		seedCall(t, db, "org-1", "a1", models.CallStatusCompleted, ptr(10), now)
	}

	value, hasData, err := agg.Compute(models.MetricCallCount, models.AggregationAvg, "org-1", nil, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, hasData)
	assert.Equal(t, 3.0, value)
}

func TestCallCountZeroIsData(t *testing.T) {
	db := newTestDB(t)
	agg := NewMetricAggregator(db)

	value, hasData, err := agg.Compute(models.MetricCallCount, models.AggregationCount, "org-1", nil, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, hasData, "zero call count is still data")
	assert.Equal(t, 0.0, value)
}

func TestErrorRateRounding(t *testing.T) {
	db := newTestDB(t)
	agg := NewMetricAggregator(db)

	now := time.Now()
	for i := 0; i < 3; i++ {
		seedCall(t, db, "org-1", "a1", models.CallStatusFailed, nil, now)
	}
	for i := 0; i < 4; i++ {
		seedCall(t, db, "org-1", "a1", models.CallStatusCompleted, nil, now)
	}

	value, hasData, err := agg.Compute(models.MetricErrorRate, models.AggregationCount, "org-1", nil, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, hasData)
	assert.Equal(t, 42.86, value) // 3/7 rounded to 2 decimals
}

func TestSuccessRate(t *testing.T) {
	db := newTestDB(t)
	agg := NewMetricAggregator(db)

	now := time.Now()
	for i := 0; i < 7; i++ {
		seedCall(t, db, "org-1", "a1", models.CallStatusCompleted, nil, now)
	}
	for i := 0; i < 3; i++ {
		seedCall(t, db, "org-1", "a1", models.CallStatusFailed, nil, now)
	}

	value, hasData, err := agg.Compute(models.MetricSuccessRate, models.AggregationCount, "org-1", nil, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, hasData)
	assert.Equal(t, 70.0, value)
}

func TestRatesNoData(t *testing.T) {
	db := newTestDB(t)
	agg := NewMetricAggregator(db)

	windowStart := time.Now().Add(-time.Hour)
	for _, metric := range []models.MetricType{models.MetricErrorRate, models.MetricSuccessRate} {
		_, hasData, err := agg.Compute(metric, models.AggregationCount, "org-1", nil, windowStart)
		require.NoError(t, err)
		assert.False(t, hasData, "%s with no calls must be no data, not zero", metric)
	}
}

func TestDurationAggregations(t *testing.T) {
	db := newTestDB(t)
	agg := NewMetricAggregator(db)

	now := time.Now()
	seedCall(t, db, "org-1", "a1", models.CallStatusCompleted, ptr(10), now)
	seedCall(t, db, "org-1", "a1", models.CallStatusCompleted, ptr(20), now)
	seedCall(t, db, "org-1", "a1", models.CallStatusCompleted, ptr(30), now)
	seedCall(t, db, "org-1", "a1", models.CallStatusQueued, nil, now) // no duration yet

	windowStart := now.Add(-time.Hour)
	tests := []struct {
		aggregation models.Aggregation
		want        float64
	}{
		{models.AggregationSum, 60},
		{models.AggregationAvg, 20},
		{models.AggregationMin, 10},
		{models.AggregationMax, 30},
		{models.AggregationCount, 3}, // only calls with a duration
	}
	for _, tt := range tests {
		value, hasData, err := agg.Compute(models.MetricCallDuration, tt.aggregation, "org-1", nil, windowStart)
		require.NoError(t, err, "aggregation %s", tt.aggregation)
		assert.True(t, hasData)
		assert.Equal(t, tt.want, value, "aggregation %s", tt.aggregation)
	}
}

func TestDurationNoQualifyingRecords(t *testing.T) {
	db := newTestDB(t)
	agg := NewMetricAggregator(db)

	now := time.Now()
	seedCall(t, db, "org-1", "a1", models.CallStatusQueued, nil, now)

	_, hasData, err := agg.Compute(models.MetricCallDuration, models.AggregationAvg, "org-1", nil, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, hasData)

	// Count still reports zero as data.
	value, hasData, err := agg.Compute(models.MetricCallDuration, models.AggregationCount, "org-1", nil, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, hasData)
	assert.Equal(t, 0.0, value)
}

func TestAgentScoping(t *testing.T) {
	db := newTestDB(t)
	agg := NewMetricAggregator(db)

	now := time.Now()
	seedCall(t, db, "org-1", "a1", models.CallStatusCompleted, nil, now)
	seedCall(t, db, "org-1", "a2", models.CallStatusCompleted, nil, now)
	seedCall(t, db, "org-1", "a3", models.CallStatusCompleted, nil, now)
	seedCall(t, db, "org-2", "a1", models.CallStatusCompleted, nil, now)

	windowStart := now.Add(-time.Hour)

	value, _, err := agg.Compute(models.MetricCallCount, models.AggregationCount, "org-1", []string{"a1", "a2"}, windowStart)
	require.NoError(t, err)
	assert.Equal(t, 2.0, value)

	// Empty agent list means all agents of the organization.
	value, _, err = agg.Compute(models.MetricCallCount, models.AggregationCount, "org-1", nil, windowStart)
	require.NoError(t, err)
	assert.Equal(t, 3.0, value)
}

func TestCustomMetric(t *testing.T) {
	db := newTestDB(t)
	agg := NewMetricAggregator(db)

	now := time.Now()
	_, hasData, err := agg.Compute(models.MetricCustom, models.AggregationCount, "org-1", nil, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, hasData)

	seedCall(t, db, "org-1", "a1", models.CallStatusCompleted, nil, now)
	value, hasData, err := agg.Compute(models.MetricCustom, models.AggregationCount, "org-1", nil, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, hasData)
	assert.Equal(t, 1.0, value)
}

func TestUnknownMetricType(t *testing.T) {
	db := newTestDB(t)
	agg := NewMetricAggregator(db)

	_, hasData, err := agg.Compute("bogus", models.AggregationCount, "org-1", nil, time.Now().Add(-time.Hour))
	require.NoError(t, err, "unknown metric type is a warning, not an error")
	assert.False(t, hasData)
}

func TestUnknownAggregation(t *testing.T) {
	db := newTestDB(t)
	agg := NewMetricAggregator(db)

	now := time.Now()
	seedCall(t, db, "org-1", "a1", models.CallStatusCompleted, ptr(10), now)

	_, _, err := agg.Compute(models.MetricCallDuration, "median", "org-1", nil, now.Add(-time.Hour))
	assert.Error(t, err)
}
