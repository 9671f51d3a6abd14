package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/slopilot/slopilot/internal/backends/clickhouse"
	"github.com/slopilot/slopilot/internal/catalog"
	"github.com/slopilot/slopilot/internal/config"
	"github.com/slopilot/slopilot/internal/logging"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Manage the local service catalog",
}

var servicesFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the service catalog from the behavior store",
	Long: `Fetch queries the behavior store for every distinct service of the
configured application and writes the catalog file used for fuzzy service
matching. Run it once before asking service-scoped questions, and again
whenever services are added.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logging.New(cfg.LogLevel, cfg.LogFormat)
		defer log.Sync()

		client := clickhouse.New(clickhouse.Config{
			URL:      cfg.ClickHouse.URL,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
			Timeout:  cfg.ClickHouse.Timeout,
		}, log)

		names, err := client.DistinctServices(cmd.Context(), cfg.SLOStats.ApplicationID)
		if err != nil {
			return fmt.Errorf("failed to fetch services: %w", err)
		}
		if len(names) == 0 {
			return fmt.Errorf("no services found for application %d", cfg.SLOStats.ApplicationID)
		}

		file := catalog.BuildFile(cfg.SLOStats.ApplicationID, names)

		if dir := filepath.Dir(cfg.CatalogPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create catalog directory: %w", err)
			}
		}
		if err := file.Write(cfg.CatalogPath); err != nil {
			return err
		}

		fmt.Printf("wrote %d services to %s\n", file.TotalServices, cfg.CatalogPath)
		return nil
	},
}

func init() {
	servicesCmd.AddCommand(servicesFetchCmd)
	rootCmd.AddCommand(servicesCmd)
}
