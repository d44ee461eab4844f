package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackgate/pkg/cache"
	"github.com/matzehuels/stackgate/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the registry metadata cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached registry metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateStorage(); err != nil {
				return err
			}
			ch, err := newCache(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer ch.Close()

			u := ui{w: cmd.OutOrStdout()}
			var count int
			switch cc := ch.(type) {
			case *cache.FileCache:
				count, err = cc.Clear()
				if err == nil {
					defer u.detail("Directory: %s", cc.Dir())
				}
			case *cache.RedisCache:
				count, err = cc.Clear(cmd.Context())
			default:
				u.info("The %s cache backend keeps nothing to clear", cfg.Cache.Backend)
				return nil
			}
			if err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "clear cache")
			}
			u.success("Cleared %d cached entries", count)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			dir, err := cacheDir(cfg)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
