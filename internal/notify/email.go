package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"
)

type EmailConfig struct {
	SMTPHost string
	SMTPPort int
	From     string
	Username string
	Password string
}

type EmailNotifier struct {
	config EmailConfig
	dialer *gomail.Dialer
}

func NewEmailNotifier(config EmailConfig) *EmailNotifier {
	username := config.Username
	if username == "" {
		username = config.From
	}
	return &EmailNotifier{
		config: config,
		dialer: gomail.NewDialer(config.SMTPHost, config.SMTPPort, username, config.Password),
	}
}

// Configured reports whether SMTP settings are present. An unconfigured
// notifier fails deterministically instead of attempting a connection.
func (n *EmailNotifier) Configured() bool {
	return n.config.SMTPHost != "" && n.config.From != ""
}

var emailBodyTemplate = template.Must(template.New("alert").Parse(`
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2 style="color: {{.Color}};">{{.Severity}}: {{.AlertName}}</h2>
  {{if .Description}}<p>{{.Description}}</p>{{end}}
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td><b>Metric</b></td><td>{{.Metric}}</td></tr>
    <tr><td><b>Aggregation</b></td><td>{{.Aggregation}}</td></tr>
    <tr><td><b>Condition</b></td><td>{{.Condition}}</td></tr>
    <tr><td><b>Triggered Value</b></td><td>{{.Value}}</td></tr>
    <tr><td><b>Time Window</b></td><td>{{.Window}}</td></tr>
    <tr><td><b>Agents</b></td><td>{{.Agents}}</td></tr>
  </table>
  <p style="color: #888; font-size: 12px;">CallEye Alert System &middot; {{.Timestamp}}</p>
</body>
</html>
`))

// Send mails the event to a single recipient with a plain-text body and
// an HTML alternative.
func (n *EmailNotifier) Send(to string, event *Event) error {
	if !n.Configured() {
		return fmt.Errorf("email channel not configured: missing SMTP host or from address")
	}

	severity := event.Severity()

	m := gomail.NewMessage()
	m.SetHeader("From", n.config.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("[%s] CallEye Alert: %s", severity, event.Alert.Name))

	plain := fmt.Sprintf(`%s

Alert: %s
Metric: %s
Aggregation: %s
Condition: %s %.2f
Triggered Value: %.2f
Time Window: %d minutes
Agents: %s
Time: %s
`,
		event.Summary(),
		event.Alert.Name,
		event.Alert.MetricDisplayName(),
		event.Alert.Aggregation,
		event.Alert.Operator, event.Alert.ThresholdValue,
		event.TriggeredValue,
		event.Alert.TimeWindowMinutes,
		event.AgentScope(),
		event.TriggeredAt.Format(time.RFC3339))
	m.SetBody("text/plain", plain)

	var html bytes.Buffer
	err := emailBodyTemplate.Execute(&html, map[string]interface{}{
		"Color":       severity.Color(),
		"Severity":    severity,
		"AlertName":   event.Alert.Name,
		"Description": event.Alert.Description,
		"Metric":      event.Alert.MetricDisplayName(),
		"Aggregation": string(event.Alert.Aggregation),
		"Condition":   fmt.Sprintf("%s %.2f", event.Alert.Operator, event.Alert.ThresholdValue),
		"Value":       fmt.Sprintf("%.2f", event.TriggeredValue),
		"Window":      fmt.Sprintf("%d minutes", event.Alert.TimeWindowMinutes),
		"Agents":      event.AgentScope(),
		"Timestamp":   event.TriggeredAt.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to render email body: %v", err)
	}
	m.AddAlternative("text/html", html.String())

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}
