package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/calleye/cmd/cli/client"
	"github.com/calleye/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var apiClient *client.APIClient

func newLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to CallEye and store the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")

			token, err := apiClient.Login(username, password)
			if err != nil {
				return fmt.Errorf("login failed: %v", err)
			}

			viper.Set("token", token)
			if err := viper.WriteConfig(); err != nil {
				if err := viper.SafeWriteConfig(); err != nil {
					return fmt.Errorf("failed to save token: %v", err)
				}
			}
			fmt.Println("Login successful")
			return nil
		},
	}
	cmd.Flags().StringP("username", "u", "", "Username")
	cmd.Flags().StringP("password", "p", "", "Password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newAlertsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Manage alerts",
	}
	cmd.AddCommand(newAlertsListCommand())
	cmd.AddCommand(newAlertsCreateCommand())
	return cmd
}

func newAlertsListCommand() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			alerts, err := apiClient.ListAlerts(status)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ID\tNAME\tMETRIC\tCONDITION\tWINDOW\tFREQUENCY\tSTATUS\t")
			for _, a := range alerts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s %.2f\t%dm\t%s\t%s\t\n",
					a.ID, a.Name, a.MetricType, a.Operator, a.ThresholdValue,
					a.TimeWindowMinutes, a.NotifyFrequency, a.Status)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (active/inactive)")
	return cmd
}

func newAlertsCreateCommand() *cobra.Command {
	var a models.Alert
	var agents, emails, webhooks []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new alert",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.AgentIDs = models.StringList(agents)
			a.NotifyEmails = models.StringList(emails)
			a.NotifyWebhooks = models.StringList(webhooks)

			created, err := apiClient.CreateAlert(&a)
			if err != nil {
				return err
			}

			fmt.Printf("Alert %d (%s) created\n", created.ID, created.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&a.Name, "name", "", "Alert name")
	cmd.Flags().StringVar(&a.Description, "description", "", "Alert description")
	cmd.Flags().StringVar((*string)(&a.MetricType), "metric", "", "Metric type (call_count/call_duration/error_rate/success_rate/latency/custom)")
	cmd.Flags().StringVar((*string)(&a.Aggregation), "aggregation", string(models.AggregationAvg), "Aggregation (sum/avg/min/max)")
	cmd.Flags().StringVar((*string)(&a.Operator), "operator", "", "Comparison operator (>, >=, <, <=, =)")
	cmd.Flags().Float64Var(&a.ThresholdValue, "threshold", 0, "Threshold value")
	cmd.Flags().IntVar(&a.TimeWindowMinutes, "window", 60, "Time window in minutes")
	cmd.Flags().StringSliceVar(&agents, "agents", nil, "Agent IDs the alert scopes to (empty for all)")
	cmd.Flags().StringVar((*string)(&a.NotifyFrequency), "frequency", string(models.FrequencyImmediate), "Notify frequency (immediate/hourly/daily/weekly)")
	cmd.Flags().StringSliceVar(&emails, "emails", nil, "Notification email addresses")
	cmd.Flags().StringSliceVar(&webhooks, "webhooks", nil, "Notification webhook URLs")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("metric")
	cmd.MarkFlagRequired("operator")
	cmd.MarkFlagRequired("threshold")
	return cmd
}

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage alert trigger history",
	}
	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryAcknowledgeCommand())
	cmd.AddCommand(newHistoryResolveCommand())
	return cmd
}

func newHistoryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recent alert triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := apiClient.ListHistory()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ID\tALERT\tTRIGGERED AT\tVALUE\tTHRESHOLD\tSTATUS\t")
			for _, h := range history {
				fmt.Fprintf(w, "%d\t%d\t%s\t%.2f\t%.2f\t%s\t\n",
					h.ID, h.AlertID, h.TriggeredAt.Format(time.RFC3339),
					h.TriggeredValue, h.ThresholdValue, h.Status)
			}
			return w.Flush()
		},
	}
}

func newHistoryAcknowledgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "acknowledge [id]",
		Short: "Acknowledge an alert trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid history ID: %v", err)
			}

			entry, err := apiClient.AcknowledgeHistory(uint(id))
			if err != nil {
				return err
			}

			fmt.Printf("Trigger %d acknowledged by %s\n", entry.ID, entry.AcknowledgedBy)
			return nil
		},
	}
}

func newHistoryResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [id]",
		Short: "Resolve an alert trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid history ID: %v", err)
			}

			entry, err := apiClient.ResolveHistory(uint(id))
			if err != nil {
				return err
			}

			fmt.Printf("Trigger %d resolved by %s\n", entry.ID, entry.ResolvedBy)
			return nil
		},
	}
}

func newEvaluateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate [alert-id]",
		Short: "Evaluate one alert, or all active alerts when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				batch, err := apiClient.EvaluateAll()
				if err != nil {
					return err
				}
				fmt.Printf("Evaluated %d alerts: %d triggered, %d not triggered, %d skipped (cooldown), %d errors\n",
					batch.Total, batch.Triggered, batch.NotTriggered, batch.SkippedCooldown, batch.Errors)
				return nil
			}

			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid alert id %q", args[0])
			}

			result, err := apiClient.EvaluateAlert(uint(id))
			if err != nil {
				return err
			}

			fmt.Printf("Alert %d (%s): %s", result.AlertID, result.AlertName, result.Outcome)
			if result.Reason != "" {
				fmt.Printf(" (%s)", result.Reason)
			}
			if result.MetricValue != nil {
				fmt.Printf(" value=%.2f threshold=%s %.2f", *result.MetricValue, result.Operator, result.Threshold)
			}
			fmt.Println()
			for _, n := range result.Notifications {
				status := "ok"
				if !n.Success {
					status = "failed: " + n.Error
				}
				fmt.Printf("  %s -> %s: %s\n", n.Channel, n.Destination, status)
			}
			return nil
		},
	}
}
