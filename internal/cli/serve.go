package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackgate/internal/server"
)

// serveCommand runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve package checks over HTTP",
		Long: `Serve the HTTP API:

  POST /v1/check    {"packages": ["express@^4"]}
  GET  /v1/pending  packages waiting for a re-run (?all=1 for the whole ledger)
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			svc, err := c.newServices(cmd.Context(), cfg, noCache, false)
			if err != nil {
				return err
			}
			defer svc.Close()

			srv := server.New(svc.runner, svc.history, c.Logger)
			c.Logger.Info("listening", "addr", addr, "scope", cfg.Mirror.Scope, "workflow", cfg.Workflow.Repository+"/"+cfg.Workflow.File)
			return server.ListenAndServe(cmd.Context(), addr, srv.Handler(), cfg.Gate.Deadline.Duration+time.Minute)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the registry metadata cache")
	return cmd
}
