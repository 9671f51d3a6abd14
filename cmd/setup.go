package cmd

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/slopilot/slopilot/internal/backends/clickhouse"
	"github.com/slopilot/slopilot/internal/backends/slostats"
	"github.com/slopilot/slopilot/internal/backends/slostore"
	"github.com/slopilot/slopilot/internal/catalog"
	"github.com/slopilot/slopilot/internal/config"
	"github.com/slopilot/slopilot/internal/history"
	"github.com/slopilot/slopilot/internal/intent"
	"github.com/slopilot/slopilot/internal/logging"
	"github.com/slopilot/slopilot/internal/orchestrator"
)

// app bundles everything a command needs after wiring.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	orch    *orchestrator.Orchestrator
	hist    *history.Store
	cleanup func()
}

// buildApp wires the full pipeline from the loaded configuration. Optional
// pieces (catalog, definition store, history) degrade to disabled with a
// warning instead of failing startup.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	model, err := buildModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tables, err := intent.LoadTables()
	if err != nil {
		return nil, err
	}
	classifier := intent.NewClassifier(tables, model, log)

	patterns := clickhouse.New(clickhouse.Config{
		URL:      cfg.ClickHouse.URL,
		Database: cfg.ClickHouse.Database,
		Username: cfg.ClickHouse.Username,
		Password: cfg.ClickHouse.Password,
		Timeout:  cfg.ClickHouse.Timeout,
	}, log)

	stats := slostats.New(slostats.Config{
		BaseURL:       cfg.SLOStats.BaseURL,
		ApplicationID: cfg.SLOStats.ApplicationID,
		TokenURL:      cfg.SLOStats.TokenURL,
		ClientID:      cfg.SLOStats.ClientID,
		ClientSecret:  cfg.SLOStats.ClientSecret,
		Username:      cfg.SLOStats.Username,
		Password:      cfg.SLOStats.Password,
		Timeout:       cfg.SLOStats.Timeout,
	}, log)

	opts := orchestrator.Options{
		Classifier: classifier,
		Patterns:   patterns,
		Stats:      stats,
		AppID:      cfg.SLOStats.ApplicationID,
		Logger:     log,
	}

	var cleanups []func()

	if cfg.PostgresDSN != "" {
		store, err := slostore.Open(ctx, cfg.PostgresDSN, log)
		if err != nil {
			log.Warn("SLO definition store disabled", zap.Error(err))
		} else {
			opts.Definitions = store
			cleanups = append(cleanups, store.Close)
		}
	}

	if _, err := os.Stat(cfg.CatalogPath); err == nil {
		cat, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			log.Warn("service catalog disabled", zap.Error(err))
		} else {
			opts.Matcher = cat
			log.Info("service catalog loaded",
				zap.Int("services", cat.Len()),
				zap.String("path", cfg.CatalogPath))
		}
	} else {
		log.Warn("service catalog not found, service matching disabled",
			zap.String("path", cfg.CatalogPath))
	}

	var hist *history.Store
	if cfg.HistoryPath != "" {
		hist, err = history.Open(cfg.HistoryPath)
		if err != nil {
			log.Warn("query history disabled", zap.Error(err))
			hist = nil
		} else {
			opts.History = hist
			cleanups = append(cleanups, func() { hist.Close() })
		}
	}

	return &app{
		cfg:  cfg,
		log:  log,
		orch: orchestrator.New(opts),
		hist: hist,
		cleanup: func() {
			for _, fn := range cleanups {
				fn()
			}
			log.Sync()
		},
	}, nil
}

// buildModel selects the classifier backend from configuration.
func buildModel(ctx context.Context, cfg *config.Config) (intent.Model, error) {
	switch cfg.AI.Provider {
	case "bedrock":
		return intent.NewBedrockModel(ctx, cfg.AI.Region, cfg.AI.Model)
	case "gemini":
		return intent.NewGeminiModel(ctx, cfg.AI.APIKey, cfg.AI.Model)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.AI.Provider)
	}
}
