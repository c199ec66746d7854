package cli

import (
	"github.com/spf13/cobra"

	"amcdesk/config"
	"amcdesk/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var initLogs = server.InitLogs

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	app := &server.App{}
	app.Initialize(cfg)
	return app.Run()
}
