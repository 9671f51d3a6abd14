// Package config maps viper settings into typed configuration for the rest
// of the program. Values come from the config file (~/.slopilot.yaml by
// default), environment variables, and command flags bound by cmd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// AI configures the intent classifier backend.
type AI struct {
	Provider string // "bedrock" or "gemini"
	Model    string
	Region   string // bedrock only
	APIKey   string // gemini only
	Timeout  time.Duration
}

// ClickHouse configures the behavior-pattern store, spoken to over its HTTP
// interface.
type ClickHouse struct {
	URL      string
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

// SLOStats configures the SLO statistics API and the Keycloak realm that
// guards it.
type SLOStats struct {
	BaseURL       string
	ApplicationID int
	TokenURL      string
	ClientID      string
	ClientSecret  string
	Username      string
	Password      string
	Timeout       time.Duration
}

// Config is the fully resolved program configuration.
type Config struct {
	AI         AI
	ClickHouse ClickHouse
	SLOStats   SLOStats

	// PostgresDSN points at the SLO definition store. Empty disables it.
	PostgresDSN string
	// OpenSearchURL is carried for forward compatibility; the backend
	// reports itself as not implemented.
	OpenSearchURL string

	CatalogPath string
	HistoryPath string

	LogLevel  string
	LogFormat string
	Debug     bool
}

// SetDefaults registers fallback values on viper. Call once before Load.
func SetDefaults() {
	viper.SetDefault("ai.provider", "bedrock")
	viper.SetDefault("ai.model", "anthropic.claude-3-5-sonnet-20240620-v1:0")
	viper.SetDefault("ai.region", "us-east-1")
	viper.SetDefault("ai.timeout", "30s")

	viper.SetDefault("clickhouse.url", "http://localhost:8123")
	viper.SetDefault("clickhouse.database", "default")
	viper.SetDefault("clickhouse.timeout", "15s")

	viper.SetDefault("slostats.timeout", "20s")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
}

// Load snapshots the current viper state into a Config.
func Load() (*Config, error) {
	cfg := &Config{
		AI: AI{
			Provider: viper.GetString("ai.provider"),
			Model:    viper.GetString("ai.model"),
			Region:   viper.GetString("ai.region"),
			APIKey:   viper.GetString("ai.api_key"),
			Timeout:  viper.GetDuration("ai.timeout"),
		},
		ClickHouse: ClickHouse{
			URL:      viper.GetString("clickhouse.url"),
			Database: viper.GetString("clickhouse.database"),
			Username: viper.GetString("clickhouse.username"),
			Password: viper.GetString("clickhouse.password"),
			Timeout:  viper.GetDuration("clickhouse.timeout"),
		},
		SLOStats: SLOStats{
			BaseURL:       viper.GetString("slostats.base_url"),
			ApplicationID: viper.GetInt("slostats.application_id"),
			TokenURL:      viper.GetString("slostats.token_url"),
			ClientID:      viper.GetString("slostats.client_id"),
			ClientSecret:  viper.GetString("slostats.client_secret"),
			Username:      viper.GetString("slostats.username"),
			Password:      viper.GetString("slostats.password"),
			Timeout:       viper.GetDuration("slostats.timeout"),
		},
		PostgresDSN:   viper.GetString("postgres.dsn"),
		OpenSearchURL: viper.GetString("opensearch.url"),
		CatalogPath:   viper.GetString("catalog.path"),
		HistoryPath:   viper.GetString("history.path"),
		LogLevel:      viper.GetString("log.level"),
		LogFormat:     viper.GetString("log.format"),
		Debug:         viper.GetBool("debug"),
	}

	if cfg.CatalogPath == "" {
		cfg.CatalogPath = defaultUserPath("services.yaml")
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = defaultUserPath("history.db")
	}

	switch cfg.AI.Provider {
	case "bedrock", "gemini":
	default:
		return nil, fmt.Errorf("unsupported ai provider %q (want bedrock or gemini)", cfg.AI.Provider)
	}

	return cfg, nil
}

func defaultUserPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".slopilot", name)
}
