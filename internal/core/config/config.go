// Package config provides configuration management for appraisal commands.
package config

import (
	"time"
)

// AppraisalConfig holds configuration shared by the appraisal commands.
type AppraisalConfig struct {
	DatabaseURL    string
	Workers        int
	RequestTimeout time.Duration
	MaxBatchSize   int
	LogLevel       string
	LogFormat      string
}

// DefaultAppraisalConfig returns configuration with default values.
func DefaultAppraisalConfig() *AppraisalConfig {
	return &AppraisalConfig{
		DatabaseURL:    "sqlite://./appraisal.db",
		Workers:        4,
		RequestTimeout: 30 * time.Second,
		MaxBatchSize:   1000,
		LogLevel:       "info",
		LogFormat:      "console",
	}
}
