package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port        string
	MetricsPort string

	// Database
	SQLiteDBPath string

	// AMQP (optional; empty URL disables the sync bridge)
	AMQPURL        string
	AMQPExchange   string
	AMQPSyncQueue  string
	AMQPAlertQueue string

	// Google Sheets export
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Spending limits
	LimitPollInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		MetricsPort:  getEnv("METRICS_PORT", "9091"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/tally.db"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "tally"),
		AMQPSyncQueue:  getEnv("AMQP_SYNC_QUEUE", "sync_transactions"),
		AMQPAlertQueue: getEnv("AMQP_ALERT_QUEUE", "limit_alerts"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", ""),

		LimitPollInterval: getEnvDuration("LIMIT_POLL_INTERVAL", 30*time.Second),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MetricsPort != "" {
		if port, err := strconv.Atoi(c.MetricsPort); err != nil {
			errors = append(errors, fmt.Sprintf("invalid metrics port '%s': must be a number", c.MetricsPort))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid metrics port %d: must be between 1 and 65535", port))
		}
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPSyncQueue == "" {
			errors = append(errors, "AMQP sync queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPAlertQueue == "" {
			errors = append(errors, "AMQP alert queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.LimitPollInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid limit poll interval %v: must be at least 1 second", c.LimitPollInterval))
	} else if c.LimitPollInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid limit poll interval %v: must be at most 24 hours", c.LimitPollInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
