package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackgate/pkg/config"
	"github.com/matzehuels/stackgate/pkg/errors"
	"github.com/matzehuels/stackgate/pkg/manifest"
	"github.com/matzehuels/stackgate/pkg/observability"
	"github.com/matzehuels/stackgate/pkg/pipeline"
)

// ErrNotInstallable is returned by check when at least one package failed
// or is still being cached, so scripts can rely on the exit code.
var ErrNotInstallable = stderrors.New("not every package is installable")

type checkOptions struct {
	manifest  string
	write     bool
	pending   bool
	noCache   bool
	refresh   bool
	json      bool
	workers   int
	node      string
	noEngines bool
}

// apply lets flags override the configuration.
func (o checkOptions) apply(cfg *config.Config) {
	if o.manifest != "" {
		cfg.Batch.Manifest = o.manifest
	}
	if o.workers > 0 {
		cfg.Batch.Workers = o.workers
	}
	if o.node != "" {
		cfg.Runtime.Node = o.node
	}
	if o.noEngines {
		cfg.Runtime.CheckEngines = false
	}
}

func (c *CLI) checkCommand() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check [package[@spec]...]",
		Short: "Check packages and mirror the ones that pass",
		Long: `Check resolves each package, walks its dependencies against the license
allow-list and makes sure the private mirror serves the resolved version,
dispatching the caching workflow when it does not.

Without arguments the dependencies and devDependencies of the manifest are
checked. With --write, installable versions are pinned in the manifest and
private-scope aliases are replaced by the plain package name.`,
		Example: `  stackgate check express@^4.18.0 @types/node
  stackgate check --write
  stackgate check --pending`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.manifest, "manifest", "m", "", "package.json to read and pin (default from config)")
	f.BoolVarP(&opts.write, "write", "w", false, "pin installable versions in the manifest")
	f.BoolVar(&opts.pending, "pending", false, "re-check every package left pending by earlier runs")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the registry metadata cache")
	f.BoolVar(&opts.refresh, "refresh", false, "refetch registry metadata even if cached")
	f.BoolVar(&opts.json, "json", false, "print the batch as JSON")
	f.IntVar(&opts.workers, "workers", 0, "packages checked concurrently (default from config)")
	f.StringVar(&opts.node, "node", "", "node version to check engines against (default: detected)")
	f.BoolVar(&opts.noEngines, "no-engines", false, "skip the engines.node check")

	return cmd
}

func (c *CLI) runCheck(ctx context.Context, out io.Writer, args []string, opts checkOptions) error {
	if opts.pending && len(args) > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "--pending takes no package arguments")
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := c.newServices(ctx, cfg, opts.noCache, opts.refresh)
	if err != nil {
		return err
	}
	defer svc.Close()

	var m *manifest.Manifest
	var reqs []pipeline.Request
	switch {
	case opts.pending:
		reqs, err = svc.runner.Pending(ctx)
	case len(args) > 0:
		reqs, err = pipeline.ParseRequests(args)
	default:
		m, err = manifest.Load(cfg.Batch.Manifest)
		if err == nil {
			for _, e := range m.Requests(cfg.Mirror.Scope) {
				reqs = append(reqs, pipeline.Request{Name: e.Name, Spec: e.Spec})
			}
		}
	}
	if err != nil {
		return err
	}
	if opts.write && m == nil {
		if m, err = manifest.Load(cfg.Batch.Manifest); err != nil {
			return err
		}
	}

	u := ui{w: out}
	if len(reqs) == 0 {
		u.info("Nothing to check")
		return nil
	}

	batch := c.runBatch(ctx, svc.runner, reqs, !opts.json)
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(batch); err != nil {
			return err
		}
	} else {
		for _, o := range batch.Outcomes {
			u.outcome(o)
		}
		u.summary(batch)
	}

	if opts.write {
		n, err := pipeline.Apply(m, batch.Outcomes, cfg.Mirror.Scope)
		if err != nil {
			return err
		}
		changed := m.Dirty()
		if err := m.Save(); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "write %s", m.Path())
		}
		if !opts.json && changed {
			u.success("Pinned %d packages in %s", n, m.Path())
		}
	}

	if !batch.OK() {
		return ErrNotInstallable
	}
	return nil
}

// runBatch runs reqs, showing a spinner on stderr when interactive.
func (c *CLI) runBatch(ctx context.Context, runner *pipeline.Runner, reqs []pipeline.Request, interactive bool) *pipeline.Batch {
	prog := newProgress(c.Logger)
	var s *Spinner
	if interactive {
		s = newSpinner(ctx, os.Stderr, fmt.Sprintf("Checking %d packages", len(reqs)))
		observability.SetPipelineHooks(&batchProgress{spinner: s, total: len(reqs)})
		s.Start()
	}
	batch := runner.Run(ctx, reqs)
	if s != nil {
		s.Stop()
		observability.SetPipelineHooks(observability.NoopPipelineHooks{})
	}
	prog.done(fmt.Sprintf("Checked %d packages", len(reqs)))
	return batch
}
