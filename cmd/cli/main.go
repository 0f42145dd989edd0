package main

import (
	"fmt"
	"os"

	"github.com/calleye/cmd/cli/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "calleye",
	Short: "CallEye CLI - voice call alerting for operators",
	Long: `CallEye CLI talks to a running CallEye server.
It lists alerts and trigger history and runs on-demand evaluations.`,
}

func init() {
	viper.SetConfigName(".calleye")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")
	viper.SetDefault("server", "http://localhost:8080")
	_ = viper.ReadInConfig()

	apiClient = client.NewAPIClient(viper.GetString("server"))

	rootCmd.AddCommand(newLoginCommand())
	rootCmd.AddCommand(newAlertsCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newEvaluateCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
