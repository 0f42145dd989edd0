package notify

import (
	"log"
	"strings"
	"time"

	"github.com/calleye/internal/models"
)

// ChannelResult is the outcome of one delivery attempt.
type ChannelResult struct {
	Channel     string `json:"channel"`
	Destination string `json:"destination"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// Dispatcher fans one triggered alert out to every configured channel.
// Channel attempts are independent; a failing destination never prevents
// the remaining ones from being tried.
type Dispatcher struct {
	webhook *WebhookNotifier
	email   *EmailNotifier
	slack   *SlackNotifier
}

func NewDispatcher(webhook *WebhookNotifier, email *EmailNotifier, slack *SlackNotifier) *Dispatcher {
	return &Dispatcher{
		webhook: webhook,
		email:   email,
		slack:   slack,
	}
}

// SendAll delivers the trigger to each non-blank webhook and email
// destination on the alert, plus the workspace slack channel when one is
// configured. It returns one result per attempted destination; an alert
// with no destinations yields an empty slice.
func (d *Dispatcher) SendAll(alert *models.Alert, triggeredValue float64, triggeredAt time.Time, agentNames []string) []ChannelResult {
	event := &Event{
		Alert:          alert,
		TriggeredValue: triggeredValue,
		TriggeredAt:    triggeredAt,
		AgentNames:     agentNames,
	}

	results := make([]ChannelResult, 0, len(alert.NotifyWebhooks)+len(alert.NotifyEmails))

	for _, url := range alert.NotifyWebhooks {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		results = append(results, d.attempt("webhook", url, d.webhook.Send(url, event)))
	}

	for _, addr := range alert.NotifyEmails {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		results = append(results, d.attempt("email", addr, d.email.Send(addr, event)))
	}

	if d.slack != nil && d.slack.Configured() {
		results = append(results, d.attempt("slack", d.slack.Channel(), d.slack.Send(event)))
	}

	return results
}

func (d *Dispatcher) attempt(channel, destination string, err error) ChannelResult {
	result := ChannelResult{Channel: channel, Destination: destination, Success: err == nil}
	if err != nil {
		result.Error = err.Error()
		log.Printf("Notification failed on %s channel to %s: %v", channel, destination, err)
	}
	return result
}
