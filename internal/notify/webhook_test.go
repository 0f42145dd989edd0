package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calleye/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(agentNames []string) *Event {
	return &Event{
		Alert: &models.Alert{
			Name:              "High Error Rate",
			Description:       "too many failed calls",
			MetricType:        models.MetricErrorRate,
			Aggregation:       models.AggregationCount,
			Operator:          models.OperatorGT,
			ThresholdValue:    20,
			TimeWindowMinutes: 60,
		},
		TriggeredValue: 45.5,
		TriggeredAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		AgentNames:     agentNames,
	}
}

func TestWebhookSendPayload(t *testing.T) {
	var received webhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(5 * time.Second)
	err := notifier.Send(server.URL, testEvent(nil))
	require.NoError(t, err)

	assert.Contains(t, received.Text, "High Error Rate")
	assert.Contains(t, received.Text, "CRITICAL") // 45.5/20 >= 2.0
	require.Len(t, received.Attachments, 1)

	att := received.Attachments[0]
	assert.Equal(t, "#FF0000", att.Color)
	assert.Equal(t, "too many failed calls", att.Text)

	fields := make(map[string]string)
	for _, f := range att.Fields {
		fields[f.Title] = f.Value
	}
	assert.Equal(t, "Error Rate (%)", fields["Metric"])
	assert.Equal(t, "> 20.00", fields["Condition"])
	assert.Equal(t, "45.50", fields["Triggered Value"])
	assert.Equal(t, "60 minutes", fields["Time Window"])
	assert.Equal(t, "All Agents", fields["Agents"])
}

func TestWebhookAgentScope(t *testing.T) {
	var received webhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(5 * time.Second)
	require.NoError(t, notifier.Send(server.URL, testEvent([]string{"Sales Bot", "Support Bot"})))

	fields := make(map[string]string)
	for _, f := range received.Attachments[0].Fields {
		fields[f.Title] = f.Value
	}
	assert.Equal(t, "Sales Bot, Support Bot", fields["Agents"])
}

func TestWebhookNon2xxCapturesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream unavailable")
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(5 * time.Second)
	err := notifier.Send(server.URL, testEvent(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestWebhookUnreachable(t *testing.T) {
	notifier := NewWebhookNotifier(time.Second)
	err := notifier.Send("http://127.0.0.1:1/hook", testEvent(nil))
	assert.Error(t, err)
}
