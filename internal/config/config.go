package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port int
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret  string
		TokenHours int
	}
	Evaluation struct {
		IntervalSeconds int
		Workers         int
	}
	Alert struct {
		Email struct {
			SMTPHost string
			SMTPPort int
			From     string
			Username string
			Password string
		}
		Slack struct {
			Token   string
			Channel string
		}
		Webhook struct {
			TimeoutSeconds int
		}
	}
	Report struct {
		Enabled       bool
		IntervalHours int
		Recipients    []string
	}
}

// LoadConfig loads configuration from config.yaml, writing a default
// file on first run.
func LoadConfig() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.path", "data/calleye.db")
	viper.SetDefault("auth.tokenhours", 24)
	viper.SetDefault("evaluation.intervalseconds", 60)
	viper.SetDefault("evaluation.workers", 4)
	viper.SetDefault("alert.webhook.timeoutseconds", 30)
	viper.SetDefault("report.intervalhours", 24)

	var config Config

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := os.MkdirAll("data", 0755); err != nil {
				fmt.Printf("Warning: Failed to create data directory: %v\n", err)
			}
			if err := viper.SafeWriteConfig(); err != nil {
				fmt.Printf("Warning: Failed to write default config: %v\n", err)
			}
		} else {
			fmt.Printf("Error reading config file: %v\n", err)
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		fmt.Printf("Error unmarshaling config: %v\n", err)
	}

	return &config
}
