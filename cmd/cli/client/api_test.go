package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calleye/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAlert(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/alerts", r.URL.Path)

		var a models.Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		assert.Equal(t, "High Error Rate", a.Name)
		assert.Equal(t, models.MetricErrorRate, a.MetricType)
		assert.Equal(t, models.StringList{"agent-1"}, a.AgentIDs)

		a.ID = 7
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(a)
	}))
	defer server.Close()

	c := NewAPIClient(server.URL)
	created, err := c.CreateAlert(&models.Alert{
		Name:           "High Error Rate",
		MetricType:     models.MetricErrorRate,
		Operator:       models.OperatorGT,
		ThresholdValue: 20,
		AgentIDs:       models.StringList{"agent-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), created.ID)
	assert.Equal(t, "High Error Rate", created.Name)
}

func TestCreateAlertServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid metric_type"})
	}))
	defer server.Close()

	c := NewAPIClient(server.URL)
	_, err := c.CreateAlert(&models.Alert{Name: "bad"})
	require.Error(t, err)
	assert.EqualError(t, err, "invalid metric_type")
}

func TestHistoryActions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)

		entry := models.AlertHistory{AlertID: 3}
		entry.ID = 42
		switch r.URL.Path {
		case "/api/v1/history/42/acknowledge":
			entry.AcknowledgedBy = "operator"
		case "/api/v1/history/42/resolve":
			entry.ResolvedBy = "operator"
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(entry)
	}))
	defer server.Close()

	c := NewAPIClient(server.URL)

	acked, err := c.AcknowledgeHistory(42)
	require.NoError(t, err)
	assert.Equal(t, "operator", acked.AcknowledgedBy)

	resolved, err := c.ResolveHistory(42)
	require.NoError(t, err)
	assert.Equal(t, "operator", resolved.ResolvedBy)
}
