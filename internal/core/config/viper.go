package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*AppraisalConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultAppraisalConfig
	v.SetDefault("appraisal.database_url", "sqlite://./appraisal.db")
	v.SetDefault("appraisal.workers", 4)
	v.SetDefault("appraisal.request_timeout", "30s")
	v.SetDefault("appraisal.max_batch_size", 1000)
	v.SetDefault("appraisal.log_level", "info")
	v.SetDefault("appraisal.log_format", "console")

	// Bind environment variables with AP_ prefix
	v.SetEnvPrefix("AP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Credentials belong in the environment, never in config files
	if err := validateNoCredentialsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &AppraisalConfig{
		DatabaseURL:    v.GetString("appraisal.database_url"),
		Workers:        v.GetInt("appraisal.workers"),
		RequestTimeout: v.GetDuration("appraisal.request_timeout"),
		MaxBatchSize:   v.GetInt("appraisal.max_batch_size"),
		LogLevel:       v.GetString("appraisal.log_level"),
		LogFormat:      v.GetString("appraisal.log_format"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks URL scheme, positive worker count, timeout, batch
// size, and known log settings.
func validateConfig(cfg *AppraisalConfig) error {
	if !strings.HasPrefix(cfg.DatabaseURL, "sqlite://") && !strings.HasPrefix(cfg.DatabaseURL, "postgres://") {
		return fmt.Errorf("database_url must use sqlite:// or postgres:// scheme, got %q", cfg.DatabaseURL)
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", cfg.MaxBatchSize)
	}
	switch cfg.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of trace, debug, info, warn, error, got %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", cfg.LogFormat)
	}
	return nil
}

// validateNoCredentialsInConfig enforces environment-only credentials.
func validateNoCredentialsInConfig(v *viper.Viper) error {
	if v.IsSet("database_password") || v.IsSet("appraisal.database_password") {
		return fmt.Errorf("database credentials not allowed in config files (embed them in AP_APPRAISAL_DATABASE_URL)")
	}
	return nil
}
