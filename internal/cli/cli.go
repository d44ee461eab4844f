// Package cli implements the stackgate command-line interface.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackgate/pkg/buildinfo"
	"github.com/matzehuels/stackgate/pkg/cache"
	"github.com/matzehuels/stackgate/pkg/config"
	"github.com/matzehuels/stackgate/pkg/gate"
	"github.com/matzehuels/stackgate/pkg/history"
	"github.com/matzehuels/stackgate/pkg/httputil"
	"github.com/matzehuels/stackgate/pkg/integrations/github"
	"github.com/matzehuels/stackgate/pkg/integrations/npm"
	"github.com/matzehuels/stackgate/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "stackgate"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level, HTTP, cache and
// gate events are logged too.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		installDebugHooks(c.Logger)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "stackgate mirrors npm packages into a private registry behind license and runtime checks",
		Long: `stackgate decides whether an npm package may be installed from the private mirror.

Each requested version is resolved against the public registry, its whole
dependency graph is checked against the license allow-list, and if the mirror
does not serve it yet a caching workflow is dispatched and followed until it
finishes or the deadline passes.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default ./"+config.DefaultFile+")")

	root.AddCommand(c.checkCommand())
	root.AddCommand(c.pendingCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(c.configPath)
}

// services bundles the long-lived dependencies of a check.
type services struct {
	cache   cache.Cache
	history history.Store
	runner  *pipeline.Runner
}

func (s *services) Close() error {
	return errors.Join(s.cache.Close(), s.history.Close())
}

// newServices wires the registry clients, gate and runner from cfg, which
// must be validated.
func (c *CLI) newServices(ctx context.Context, cfg *config.Config, noCache, refresh bool) (*services, error) {
	if noCache {
		cfg.Cache.Backend = "none"
	}
	ch, err := newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := newHistory(ctx, cfg)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	limiter := httputil.NewLimiter(cfg.Batch.RateLimit)

	registry := npm.NewClient(cache.Prefixed(ch, "registry:"), cfg.Registry.URL, "", cfg.Registry.CacheTTL.Duration)
	registry.SetLimiter(limiter)

	if cfg.MirrorToken() == "" {
		c.Logger.Warn("mirror token not set", "env", cfg.Mirror.TokenEnv)
	}
	mirror := npm.NewClient(nil, cfg.Mirror.URL, cfg.MirrorToken(), 0)
	mirror.SetLimiter(limiter)

	if cfg.WorkflowToken() == "" {
		c.Logger.Warn("workflow token not set", "env", cfg.Workflow.TokenEnv)
	}
	owner, repo, err := github.ParseRepoRef(cfg.Workflow.Repository)
	if err != nil {
		_ = ch.Close()
		_ = store.Close()
		return nil, err
	}
	gh := github.NewClient(cfg.Workflow.APIURL, cfg.WorkflowToken())
	gh.SetLimiter(limiter)
	jobs := &gate.Actions{Client: gh, Owner: owner, Repo: repo, Workflow: cfg.Workflow.File, Ref: cfg.Workflow.Ref}

	g := gate.New(mirror, jobs, cfg.GateConfig(), c.Logger)
	runner := pipeline.NewRunner(registry, g, cfg.LicensePolicy(), store, c.Logger)
	runner.Workers = cfg.Batch.Workers
	runner.Refresh = refresh
	runner.CheckEngines = cfg.Runtime.CheckEngines
	runner.NodeVersion = cfg.Runtime.Node

	return &services{cache: ch, history: store, runner: runner}, nil
}

// newCache opens the configured registry metadata cache.
func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "memory":
		return cache.NewMemoryCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, cfg.Cache.RedisURL, appName+":")
	default:
		dir, err := cacheDir(cfg)
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// newHistory opens the configured ledger.
func newHistory(ctx context.Context, cfg *config.Config) (history.Store, error) {
	switch cfg.History.Backend {
	case "none":
		return history.NewNullStore(), nil
	case "mongo":
		return history.NewMongoStore(ctx, cfg.History.MongoURI, cfg.History.Database, cfg.History.Collection)
	default:
		path := cfg.History.Path
		if path == "" {
			p, err := history.DefaultPath(appName)
			if err != nil {
				return nil, err
			}
			path = p
		}
		return history.NewFileStore(path)
	}
}

// cacheDir returns the configured cache directory, defaulting to the XDG
// cache location (~/.cache/stackgate/).
func cacheDir(cfg *config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return cache.DefaultDir(appName)
}
