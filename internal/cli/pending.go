package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackgate/pkg/history"
)

// pendingCommand lists the history ledger.
func (c *CLI) pendingCommand() *cobra.Command {
	var all, asJSON bool

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List packages still waiting for the caching workflow",
		Long: `List the packages whose last check timed out or whose caching run failed.
Run "stackgate check --pending" to check them again. With --all, every
recorded package is listed, including blocked and finished ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateStorage(); err != nil {
				return err
			}
			store, err := newHistory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []history.Entry
			if all {
				entries, err = store.List(cmd.Context())
			} else {
				entries, err = store.Pending(cmd.Context())
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if entries == nil {
					entries = []history.Entry{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			u := ui{w: out}
			if len(entries) == 0 {
				u.info("Nothing pending")
				return nil
			}
			for _, e := range entries {
				u.entry(e)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list every recorded package")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return cmd
}
