package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the audit process
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogFile     string `mapstructure:"LOG_FILE"`

	// Platform API configuration
	APIKey     string `mapstructure:"API_KEY" validate:"required"`
	APIBaseURL string `mapstructure:"API_BASE_URL" validate:"required,url"`

	// Request behaviour
	HTTPTimeoutSec    int `mapstructure:"HTTP_TIMEOUT_SEC" validate:"min=1"`
	RetryMaxAttempts  int `mapstructure:"RETRY_MAX_ATTEMPTS" validate:"min=1"`
	RetryBaseDelaySec int `mapstructure:"RETRY_BASE_DELAY_SEC" validate:"min=0"`
	RequestDelayMs    int `mapstructure:"REQUEST_DELAY_MS" validate:"min=0"`

	// Pagination
	PageLimit int `mapstructure:"PAGE_LIMIT" validate:"min=1"`
	MaxOffset int `mapstructure:"MAX_OFFSET" validate:"min=1"`

	// Timeline fetching
	FetchConcurrency int `mapstructure:"FETCH_CONCURRENCY" validate:"min=1"`

	// Downgrade behaviour
	DowngradeRole       string `mapstructure:"DOWNGRADE_ROLE" validate:"required"`
	EnableRotationEdits bool   `mapstructure:"ENABLE_ROTATION_EDITS"`

	// Export of flattened timeline data
	ExportFile string `mapstructure:"EXPORT_FILE"`
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE", "output/execution.log")

	// Platform defaults; the key must come from the environment
	viper.SetDefault("API_KEY", "")
	viper.SetDefault("API_BASE_URL", "https://api.opsgenie.com/v2")

	// Request defaults; the retry cadence matches the platform's published
	// rate-limit reset window
	viper.SetDefault("HTTP_TIMEOUT_SEC", 30)
	viper.SetDefault("RETRY_MAX_ATTEMPTS", 5)
	viper.SetDefault("RETRY_BASE_DELAY_SEC", 16)
	viper.SetDefault("REQUEST_DELAY_MS", 250)

	// Pagination defaults; 100 is the maximum page size the platform accepts
	viper.SetDefault("PAGE_LIMIT", 100)
	viper.SetDefault("MAX_OFFSET", 100000)

	viper.SetDefault("FETCH_CONCURRENCY", 1)

	viper.SetDefault("DOWNGRADE_ROLE", "Stakeholder")
	viper.SetDefault("ENABLE_ROTATION_EDITS", false)

	viper.SetDefault("EXPORT_FILE", "output/raw_schedule_data.csv")
}

// HTTPTimeout returns the request timeout as a duration
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// RetryBaseDelay returns the backoff base as a duration
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelaySec) * time.Second
}

// RequestDelay returns the courtesy delay between successive requests
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
