// Package cli содержит команды amcdesk: сервер, миграции, создание администратора и отчёт по AMC.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"amcdesk/config"
)

var rootCmd = &cobra.Command{
	Use:           "amcdesk",
	Short:         "Admin dashboard backend for devices, AMC contracts and service requests",
	RunE:          runServe, // без подкоманды: сервер
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, adminCmd, amcCmd)
}

// loadConfig читает конфиг и сразу настраивает логгер.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	initLogs(cfg)
	return cfg, nil
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
