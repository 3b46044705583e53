package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all matching service settings. Values come from the YAML
// config file and can be overridden per-field by environment variables.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Matching struct {
		QueueTimeoutSeconds int      `yaml:"queue_timeout_seconds"`
		Tiers               []string `yaml:"tiers"`
	} `yaml:"matching"`

	Questions struct {
		// Source selects the question catalog collaborator: "http" queries
		// the question service API, "postgres" reads the questions database
		// directly.
		Source  string `yaml:"source"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"questions"`

	Auth struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"auth"`

	NATS struct {
		// URL enables match event publishing when set.
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML config file (if present) and applies
// environment overrides and defaults.
func loadConfig(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		// Config file is optional; env and defaults carry the rest.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.Server.Port = getEnv("PORT", orDefault(config.Server.Port, "8080"))
	config.Matching.QueueTimeoutSeconds = getEnvAsInt("QUEUE_TIMEOUT_SECONDS",
		orDefaultInt(config.Matching.QueueTimeoutSeconds, 30))
	if len(config.Matching.Tiers) == 0 {
		config.Matching.Tiers = []string{"easy", "medium", "hard"}
	}

	config.Questions.Source = getEnv("QUESTIONS_SOURCE", orDefault(config.Questions.Source, "http"))
	config.Questions.BaseURL = getEnv("QUESTIONS_BASE_URL",
		orDefault(config.Questions.BaseURL, "http://localhost:8000"))
	config.Auth.BaseURL = getEnv("AUTH_BASE_URL",
		orDefault(config.Auth.BaseURL, "http://localhost:8000"))

	config.NATS.URL = getEnv("NATS_URL", config.NATS.URL)
	config.NATS.Subject = getEnv("NATS_SUBJECT",
		orDefault(config.NATS.Subject, "matching.match.created"))

	return &config, nil
}

func orDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

func orDefaultInt(value, defaultValue int) int {
	if value != 0 {
		return value
	}
	return defaultValue
}
