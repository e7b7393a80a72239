// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	DBPath         string
	WebhookBaseURL string
	Agent          AgentConfig
}

// AgentConfig controls the generated SWML document: the voice and sampling
// parameters handed to the conversational agent platform.
type AgentConfig struct {
	Voice           string
	Confidence      float64
	BargeConfidence float64
	TopP            float64
	Temperature     float64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DBPath:         getEnv("DB_PATH", "./data/survey.db"),
		WebhookBaseURL: getEnv("WEBHOOK_BASE_URL", ""),
		Agent: AgentConfig{
			Voice:           getEnv("AGENT_VOICE", "en-US-Standard-A"),
			Confidence:      getEnvFloat("AGENT_CONFIDENCE", 0.6),
			BargeConfidence: getEnvFloat("AGENT_BARGE_CONFIDENCE", 0.1),
			TopP:            getEnvFloat("AGENT_TOP_P", 0.3),
			Temperature:     getEnvFloat("AGENT_TEMPERATURE", 1.0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.WebhookBaseURL == "" {
		return fmt.Errorf("WEBHOOK_BASE_URL cannot be empty")
	}
	if c.Agent.Voice == "" {
		return fmt.Errorf("AGENT_VOICE cannot be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}
