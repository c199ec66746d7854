package cli

import (
	"github.com/spf13/cobra"

	"amcdesk/internal/logs"
	"amcdesk/server"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		d, err := server.OpenDB(cfg, true)
		if err != nil {
			return err
		}
		if sqlDB, err := d.DB(); err == nil {
			defer sqlDB.Close()
		}
		logs.Logger.WithField("driver", cfg.Database.Driver).Info("migrations applied")
		return nil
	},
}
