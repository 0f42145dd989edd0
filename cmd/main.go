package main

import (
	"log"
	"time"

	"github.com/calleye/internal/alert"
	"github.com/calleye/internal/api"
	"github.com/calleye/internal/config"
	"github.com/calleye/internal/database"
	"github.com/calleye/internal/notify"
	"github.com/calleye/internal/report"
	"github.com/calleye/internal/scheduler"

	"gopkg.in/gomail.v2"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close(db)

	emailConfig := notify.EmailConfig{
		SMTPHost: cfg.Alert.Email.SMTPHost,
		SMTPPort: cfg.Alert.Email.SMTPPort,
		From:     cfg.Alert.Email.From,
		Username: cfg.Alert.Email.Username,
		Password: cfg.Alert.Email.Password,
	}
	dispatcher := notify.NewDispatcher(
		notify.NewWebhookNotifier(time.Duration(cfg.Alert.Webhook.TimeoutSeconds)*time.Second),
		notify.NewEmailNotifier(emailConfig),
		notify.NewSlackNotifier(cfg.Alert.Slack.Token, cfg.Alert.Slack.Channel),
	)

	evaluator := alert.NewEvaluator(db, dispatcher, cfg.Evaluation.Workers)

	sched := scheduler.New(evaluator, time.Duration(cfg.Evaluation.IntervalSeconds)*time.Second)
	sched.Start()
	defer sched.Stop()

	if cfg.Report.Enabled {
		dialer := gomail.NewDialer(cfg.Alert.Email.SMTPHost, cfg.Alert.Email.SMTPPort, cfg.Alert.Email.Username, cfg.Alert.Email.Password)
		reporter := report.NewGenerator(db, dialer, cfg.Alert.Email.From, cfg.Report.Recipients,
			time.Duration(cfg.Report.IntervalHours)*time.Hour)
		reporter.Start()
		defer reporter.Stop()
	}

	server := api.NewServer(db, evaluator, cfg)
	if err := server.Start(cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
