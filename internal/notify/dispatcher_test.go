package notify

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calleye/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(
		NewWebhookNotifier(time.Second),
		NewEmailNotifier(EmailConfig{}), // unconfigured on purpose
		NewSlackNotifier("", ""),
	)
}

func TestDispatcherChannelIsolation(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	alert := &models.Alert{
		Name:              "isolation",
		MetricType:        models.MetricCallCount,
		Operator:          models.OperatorGT,
		ThresholdValue:    1,
		TimeWindowMinutes: 60,
		NotifyWebhooks:    models.StringList{"http://127.0.0.1:1/dead", server.URL},
	}

	results := newTestDispatcher().SendAll(alert, 5, time.Now(), nil)
	require.Len(t, results, 2)

	assert.False(t, results[0].Success)
	assert.NotEmpty(t, results[0].Error)
	assert.True(t, results[1].Success, "reachable webhook must still be attempted after a failure")
	assert.Equal(t, server.URL, results[1].Destination)
	assert.Equal(t, 1, hits)
}

func TestDispatcherUnconfiguredEmailFailsDeterministically(t *testing.T) {
	alert := &models.Alert{
		Name:              "email only",
		MetricType:        models.MetricCallCount,
		Operator:          models.OperatorGT,
		ThresholdValue:    1,
		TimeWindowMinutes: 60,
		NotifyEmails:      models.StringList{"ops@example.com"},
	}

	results := newTestDispatcher().SendAll(alert, 5, time.Now(), nil)
	require.Len(t, results, 1)
	assert.Equal(t, "email", results[0].Channel)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "not configured")
}

func TestDispatcherSkipsBlankDestinations(t *testing.T) {
	alert := &models.Alert{
		Name:              "blanks",
		MetricType:        models.MetricCallCount,
		Operator:          models.OperatorGT,
		ThresholdValue:    1,
		TimeWindowMinutes: 60,
		NotifyWebhooks:    models.StringList{"", "   "},
		NotifyEmails:      models.StringList{""},
	}

	results := newTestDispatcher().SendAll(alert, 5, time.Now(), nil)
	assert.Empty(t, results)
}

func TestDispatcherNoChannels(t *testing.T) {
	alert := &models.Alert{
		Name:              "silent",
		MetricType:        models.MetricCallCount,
		Operator:          models.OperatorGT,
		ThresholdValue:    1,
		TimeWindowMinutes: 60,
	}

	results := newTestDispatcher().SendAll(alert, 5, time.Now(), nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestEmailNotifierUnconfigured(t *testing.T) {
	notifier := NewEmailNotifier(EmailConfig{})
	assert.False(t, notifier.Configured())

	err := notifier.Send("ops@example.com", testEvent(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestSlackNotifierUnconfigured(t *testing.T) {
	notifier := NewSlackNotifier("", "")
	assert.False(t, notifier.Configured())
}
