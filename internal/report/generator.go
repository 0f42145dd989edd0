package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/calleye/internal/models"
	"github.com/calleye/internal/notify"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

// Generator builds and mails periodic alert activity summaries.
type Generator struct {
	db         *gorm.DB
	dialer     *gomail.Dialer
	from       string
	recipients []string
	interval   time.Duration
	stopChan   chan struct{}
}

type Summary struct {
	Start         time.Time
	End           time.Time
	TotalTriggers int
	Notified      int
	Unnotified    int
	BySeverity    SeverityCount
	TopAlerts     []AlertCount
}

// SeverityCount breaks period triggers down by how far past the
// threshold they landed.
type SeverityCount struct {
	Critical int
	Warning  int
	Alert    int
}

type AlertCount struct {
	AlertID uint
	Name    string
	Count   int
}

func NewGenerator(db *gorm.DB, dialer *gomail.Dialer, from string, recipients []string, interval time.Duration) *Generator {
	return &Generator{
		db:         db,
		dialer:     dialer,
		from:       from,
		recipients: recipients,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

// Generate summarizes trigger activity since start.
func (g *Generator) Generate(start, end time.Time) (*Summary, error) {
	summary := &Summary{Start: start, End: end}

	var total int64
	if err := g.db.Model(&models.AlertHistory{}).
		Where("triggered_at BETWEEN ? AND ?", start, end).
		Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count triggers: %v", err)
	}
	summary.TotalTriggers = int(total)

	var notified int64
	if err := g.db.Model(&models.AlertHistory{}).
		Where("triggered_at BETWEEN ? AND ? AND notified_at IS NOT NULL", start, end).
		Count(&notified).Error; err != nil {
		return nil, fmt.Errorf("failed to count notifications: %v", err)
	}
	summary.Notified = int(notified)
	summary.Unnotified = summary.TotalTriggers - summary.Notified

	// The operator lives in the config snapshot taken at trigger time,
	// so edits to the alert afterwards do not reclassify old rows.
	var rows []struct {
		TriggeredValue float64
		ThresholdValue float64
		ContextData    string
	}
	if err := g.db.Model(&models.AlertHistory{}).
		Select("triggered_value, threshold_value, context_data").
		Where("triggered_at BETWEEN ? AND ?", start, end).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load triggers: %v", err)
	}
	for _, row := range rows {
		var snapshot struct {
			Operator models.Operator `json:"operator"`
		}
		if err := json.Unmarshal([]byte(row.ContextData), &snapshot); err != nil {
			log.Printf("Skipping severity for trigger with bad context data: %v", err)
		}
		switch notify.ClassifySeverity(snapshot.Operator, row.TriggeredValue, row.ThresholdValue) {
		case notify.SeverityCritical:
			summary.BySeverity.Critical++
		case notify.SeverityWarning:
			summary.BySeverity.Warning++
		default:
			summary.BySeverity.Alert++
		}
	}

	err := g.db.Table("alert_histories").
		Select("alert_histories.alert_id, alerts.name, COUNT(*) as count").
		Joins("JOIN alerts ON alerts.id = alert_histories.alert_id").
		Where("alert_histories.triggered_at BETWEEN ? AND ?", start, end).
		Group("alert_histories.alert_id, alerts.name").
		Order("count DESC").
		Limit(5).
		Scan(&summary.TopAlerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank alerts: %v", err)
	}

	return summary, nil
}

var reportTemplate = template.Must(template.New("report").Parse(`
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>CallEye Alert Summary</h2>
  <p>{{.Start.Format "2006-01-02 15:04"}} &mdash; {{.End.Format "2006-01-02 15:04"}}</p>
  <p>Triggers: <b>{{.TotalTriggers}}</b> &middot; Notified: <b>{{.Notified}}</b> &middot; Suppressed: <b>{{.Unnotified}}</b></p>
  <p>
    <span style="color: #FF0000;">Critical: <b>{{.BySeverity.Critical}}</b></span> &middot;
    <span style="color: #FFA500;">Warning: <b>{{.BySeverity.Warning}}</b></span> &middot;
    <span style="color: #36A64F;">Alert: <b>{{.BySeverity.Alert}}</b></span>
  </p>
  {{if .TopAlerts}}
  <h3>Most active alerts</h3>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><th align="left">Alert</th><th align="left">Triggers</th></tr>
    {{range .TopAlerts}}<tr><td>{{.Name}}</td><td>{{.Count}}</td></tr>{{end}}
  </table>
  {{end}}
</body>
</html>
`))

// SendSummary mails the summary to the configured recipients.
func (g *Generator) SendSummary(summary *Summary) error {
	if len(g.recipients) == 0 {
		return fmt.Errorf("no report recipients configured")
	}

	var body bytes.Buffer
	if err := reportTemplate.Execute(&body, summary); err != nil {
		return fmt.Errorf("failed to render report: %v", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", g.from)
	m.SetHeader("To", g.recipients...)
	m.SetHeader("Subject", fmt.Sprintf("CallEye Alert Summary: %d triggers", summary.TotalTriggers))
	m.SetBody("text/html", body.String())

	if err := g.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send report: %v", err)
	}
	return nil
}

// Start runs the report loop until Stop is called.
func (g *Generator) Start() {
	go func() {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				end := time.Now()
				summary, err := g.Generate(end.Add(-g.interval), end)
				if err != nil {
					log.Printf("Error generating report: %v", err)
					continue
				}
				if err := g.SendSummary(summary); err != nil {
					log.Printf("Error sending report: %v", err)
				}
			case <-g.stopChan:
				return
			}
		}
	}()
}

func (g *Generator) Stop() {
	close(g.stopChan)
}
