package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type WebhookNotifier struct {
	client *http.Client
}

type webhookMessage struct {
	Text        string       `json:"text"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	Attachments []attachment `json:"attachments"`
}

type attachment struct {
	Color  string  `json:"color"`
	Title  string  `json:"title"`
	Text   string  `json:"text"`
	Fields []field `json:"fields"`
	Footer string  `json:"footer"`
	Ts     int64   `json:"ts"`
}

type field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func NewWebhookNotifier(timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		client: &http.Client{Timeout: timeout},
	}
}

// Send posts the event to webhookURL. Any non-2xx response is a failure
// with the status code and body captured in the error.
func (w *WebhookNotifier) Send(webhookURL string, event *Event) error {
	severity := event.Severity()
	msg := &webhookMessage{
		Text:      fmt.Sprintf("%s %s: %s", severity.Emoji(), severity, event.Summary()),
		IconEmoji: severity.Emoji(),
		Attachments: []attachment{
			{
				Color: severity.Color(),
				Title: fmt.Sprintf("CallEye Alert: %s", event.Alert.Name),
				Text:  event.Alert.Description,
				Fields: []field{
					{Title: "Metric", Value: event.Alert.MetricDisplayName(), Short: true},
					{Title: "Aggregation", Value: string(event.Alert.Aggregation), Short: true},
					{Title: "Condition", Value: fmt.Sprintf("%s %.2f", event.Alert.Operator, event.Alert.ThresholdValue), Short: true},
					{Title: "Triggered Value", Value: fmt.Sprintf("%.2f", event.TriggeredValue), Short: true},
					{Title: "Time Window", Value: fmt.Sprintf("%d minutes", event.Alert.TimeWindowMinutes), Short: true},
					{Title: "Agents", Value: event.AgentScope(), Short: true},
				},
				Footer: "CallEye Alert System",
				Ts:     event.TriggeredAt.Unix(),
			},
		},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message: %v", err)
	}

	resp, err := w.client.Post(webhookURL, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to send webhook: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
