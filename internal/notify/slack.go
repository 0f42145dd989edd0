package notify

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/slack-go/slack"
)

// SlackNotifier posts triggered alerts to a fixed workspace channel using
// a bot token. It is optional and applies to every alert in the install.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

func NewSlackNotifier(token, channel string) *SlackNotifier {
	if token == "" || channel == "" {
		return &SlackNotifier{}
	}
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
	}
}

func (s *SlackNotifier) Configured() bool {
	return s.client != nil
}

func (s *SlackNotifier) Channel() string {
	return s.channel
}

func (s *SlackNotifier) Send(event *Event) error {
	if !s.Configured() {
		return fmt.Errorf("slack channel not configured")
	}

	severity := event.Severity()
	att := slack.Attachment{
		Color: severity.Color(),
		Title: fmt.Sprintf("%s %s: %s", severity.Emoji(), severity, event.Alert.Name),
		Text:  event.Summary(),
		Fields: []slack.AttachmentField{
			{Title: "Metric", Value: event.Alert.MetricDisplayName(), Short: true},
			{Title: "Condition", Value: fmt.Sprintf("%s %.2f", event.Alert.Operator, event.Alert.ThresholdValue), Short: true},
			{Title: "Triggered Value", Value: fmt.Sprintf("%.2f", event.TriggeredValue), Short: true},
			{Title: "Agents", Value: event.AgentScope(), Short: true},
		},
		Footer: "CallEye Alert System",
		Ts:     json.Number(strconv.FormatInt(event.TriggeredAt.Unix(), 10)),
	}

	_, _, err := s.client.PostMessage(s.channel, slack.MsgOptionAttachments(att))
	if err != nil {
		return fmt.Errorf("failed to post slack message: %v", err)
	}
	return nil
}
