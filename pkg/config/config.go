// Package config loads stackgate's TOML configuration.
//
// A file only needs the keys it changes; everything else keeps the value
// from [Default]. Secrets are never stored in the file: it names the
// environment variables that hold them.
//
//	[mirror]
//	url = "https://npm.pkg.github.com"
//	scope = "@acme"
//	token_env = "GITHUB_TOKEN"
//
//	[workflow]
//	repository = "acme/npm-mirror"
//	file = "cache-package.yml"
//	ref = "main"
//
//	[policy]
//	allowed = ["MIT", "ISC", "Apache-2.0"]
//	missing_license = "deny"
//
//	[gate]
//	poll_interval = "5s"
//	deadline = "5m"
package config

import (
	"errors"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	stackerrors "github.com/matzehuels/stackgate/pkg/errors"
	"github.com/matzehuels/stackgate/pkg/gate"
	"github.com/matzehuels/stackgate/pkg/integrations/github"
	"github.com/matzehuels/stackgate/pkg/integrations/npm"
	"github.com/matzehuels/stackgate/pkg/license"
)

// DefaultFile is the configuration file looked up in the working
// directory when no path is given.
const DefaultFile = "stackgate.toml"

// Duration is a time.Duration written as a string such as "90s" or "5m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the complete configuration.
type Config struct {
	Registry RegistryConfig `toml:"registry"`
	Mirror   MirrorConfig   `toml:"mirror"`
	Workflow WorkflowConfig `toml:"workflow"`
	Policy   PolicyConfig   `toml:"policy"`
	Gate     GateConfig     `toml:"gate"`
	Runtime  RuntimeConfig  `toml:"runtime"`
	Cache    CacheConfig    `toml:"cache"`
	History  HistoryConfig  `toml:"history"`
	Batch    BatchConfig    `toml:"batch"`
}

// RegistryConfig is the public registry versions are resolved against.
type RegistryConfig struct {
	URL      string   `toml:"url"`
	CacheTTL Duration `toml:"cache_ttl"`
}

// MirrorConfig is the private npm-compatible registry.
type MirrorConfig struct {
	URL      string `toml:"url"`
	Scope    string `toml:"scope"`
	TokenEnv string `toml:"token_env"`
}

// WorkflowConfig is the GitHub Actions workflow that caches packages.
type WorkflowConfig struct {
	APIURL     string `toml:"api_url"`
	Repository string `toml:"repository"`
	File       string `toml:"file"`
	Ref        string `toml:"ref"`
	TokenEnv   string `toml:"token_env"`
	Correlate  bool   `toml:"correlate"`
}

// PolicyConfig is the license allow-list.
type PolicyConfig struct {
	Allowed        []string `toml:"allowed"`
	MissingLicense string   `toml:"missing_license"`
}

// GateConfig tunes dispatch attribution and polling.
type GateConfig struct {
	GraceDelay   Duration `toml:"grace_delay"`
	ClockSkew    Duration `toml:"clock_skew"`
	PollInterval Duration `toml:"poll_interval"`
	MaxInterval  Duration `toml:"max_interval"`
	Backoff      float64  `toml:"backoff"`
	Deadline     Duration `toml:"deadline"`
}

// RuntimeConfig controls the advisory engine check.
type RuntimeConfig struct {
	CheckEngines bool   `toml:"check_engines"`
	Node         string `toml:"node"` // overrides detection when set
}

// CacheConfig selects the registry metadata cache.
type CacheConfig struct {
	Backend  string `toml:"backend"` // file, redis, memory or none
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
}

// HistoryConfig selects the pending-package ledger.
type HistoryConfig struct {
	Backend    string `toml:"backend"` // file, mongo or none
	Path       string `toml:"path"`
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// BatchConfig bounds concurrent work.
type BatchConfig struct {
	Workers   int     `toml:"workers"`
	RateLimit float64 `toml:"rate_limit"` // requests per second, 0 = unlimited
	Manifest  string  `toml:"manifest"`
}

// Default returns the built-in configuration.
func Default() *Config {
	g := gate.DefaultConfig()
	return &Config{
		Registry: RegistryConfig{URL: npm.DefaultRegistry, CacheTTL: Duration{24 * time.Hour}},
		Mirror:   MirrorConfig{URL: "https://npm.pkg.github.com", TokenEnv: "GITHUB_TOKEN"},
		Workflow: WorkflowConfig{APIURL: github.DefaultBaseURL, File: "cache-package.yml", Ref: "main", TokenEnv: "GITHUB_TOKEN"},
		Policy:   PolicyConfig{Allowed: append([]string(nil), license.DefaultAllowed...), MissingLicense: string(license.MissingDeny)},
		Gate: GateConfig{
			GraceDelay:   Duration{g.GraceDelay},
			ClockSkew:    Duration{g.ClockSkew},
			PollInterval: Duration{g.PollInterval},
			MaxInterval:  Duration{g.MaxInterval},
			Backoff:      g.Backoff,
			Deadline:     Duration{g.Deadline},
		},
		Runtime: RuntimeConfig{CheckEngines: true},
		Cache:   CacheConfig{Backend: "file"},
		History: HistoryConfig{Backend: "file", Database: "stackgate", Collection: "history"},
		Batch:   BatchConfig{Workers: 4, RateLimit: 10, Manifest: "package.json"},
	}
}

// Load reads path over the defaults. An empty path reads DefaultFile if it
// exists and returns the defaults otherwise. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultFile); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		path = DefaultFile
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, stackerrors.Wrap(stackerrors.ErrCodeInvalidConfig, err, "load config %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, stackerrors.New(stackerrors.ErrCodeInvalidConfig, "load config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// MirrorToken returns the private registry token from the environment.
func (c *Config) MirrorToken() string { return os.Getenv(c.Mirror.TokenEnv) }

// WorkflowToken returns the GitHub token from the environment.
func (c *Config) WorkflowToken() string { return os.Getenv(c.Workflow.TokenEnv) }

// GateConfig converts the gate section.
func (c *Config) GateConfig() gate.Config {
	return gate.Config{
		Scope:        c.Mirror.Scope,
		GraceDelay:   c.Gate.GraceDelay.Duration,
		ClockSkew:    c.Gate.ClockSkew.Duration,
		PollInterval: c.Gate.PollInterval.Duration,
		MaxInterval:  c.Gate.MaxInterval.Duration,
		Backoff:      c.Gate.Backoff,
		Deadline:     c.Gate.Deadline.Duration,
		Correlate:    c.Workflow.Correlate,
	}
}

// LicensePolicy converts the policy section. Call Validate first.
func (c *Config) LicensePolicy() *license.Policy {
	missing, _ := license.ParseMissingPolicy(c.Policy.MissingLicense)
	return license.NewPolicy(c.Policy.Allowed, missing)
}
