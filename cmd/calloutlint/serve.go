package main

import (
	"github.com/artpar/calloutlint/bootstrap"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the calloutlint HTTP API.

The server will:
  - Load configuration from calloutlint.yaml (or --config)
  - Or load configuration from CALLOUTLINT_* environment variables
  - Load structures and rules from the configured registry source
  - Serve validation, detection and quick fixes under /v1
  - Reload the config file on change or SIGHUP

Environment variables:
  CALLOUTLINT_SERVER_PORT        - Server port (default: 8080)
  CALLOUTLINT_REGISTRY_SOURCE    - builtin, file or sqlite (default: builtin)
  CALLOUTLINT_REGISTRY_PATH      - Schema file for the file source
  CALLOUTLINT_DATABASE_DSN       - Database path (default: calloutlint.db)
  CALLOUTLINT_ADMIN_TOKEN_HASH   - bcrypt hash enabling registry writes
  CALLOUTLINT_LOG_LEVEL          - Log level: debug, info, warn, error

Examples:
  calloutlint serve
  calloutlint serve --config /etc/calloutlint/config.yaml
  CALLOUTLINT_REGISTRY_SOURCE=sqlite calloutlint serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.New(cmd.Context(), bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
	})
	if err != nil {
		return err
	}
	return app.Run()
}
