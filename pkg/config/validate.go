package config

import (
	"slices"

	"github.com/matzehuels/stackgate/pkg/errors"
	"github.com/matzehuels/stackgate/pkg/integrations/github"
	"github.com/matzehuels/stackgate/pkg/license"
)

// Validate checks the settings a package check needs.
func (c *Config) Validate() error {
	if err := errors.ValidateURL(c.Registry.URL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "registry.url")
	}
	if err := errors.ValidateURL(c.Mirror.URL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "mirror.url")
	}
	if err := errors.ValidateScope(c.Mirror.Scope); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "mirror.scope")
	}
	if err := errors.ValidateURL(c.Workflow.APIURL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "workflow.api_url")
	}
	if _, _, err := github.ParseRepoRef(c.Workflow.Repository); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "workflow.repository")
	}
	if err := github.ValidateWorkflow(c.Workflow.File); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "workflow.file")
	}
	if c.Workflow.Ref == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "workflow.ref must not be empty")
	}

	if len(c.Policy.Allowed) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "policy.allowed must list at least one license")
	}
	if _, err := license.ParseMissingPolicy(c.Policy.MissingLicense); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "policy.missing_license")
	}

	g := c.Gate
	for name, d := range map[string]Duration{
		"gate.poll_interval": g.PollInterval,
		"gate.max_interval":  g.MaxInterval,
		"gate.deadline":      g.Deadline,
	} {
		if d.Duration <= 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "%s must be positive", name)
		}
	}
	if g.GraceDelay.Duration < 0 || g.ClockSkew.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "gate.grace_delay and gate.clock_skew must not be negative")
	}
	if g.Backoff < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "gate.backoff must be at least 1")
	}
	if g.MaxInterval.Duration < g.PollInterval.Duration {
		return errors.New(errors.ErrCodeInvalidConfig, "gate.max_interval must not be below gate.poll_interval")
	}
	if g.Deadline.Duration < g.PollInterval.Duration {
		return errors.New(errors.ErrCodeInvalidConfig, "gate.deadline must not be below gate.poll_interval")
	}

	return c.ValidateStorage()
}

// ValidateStorage checks only the cache, history and batch sections, which
// is all that commands other than check need.
func (c *Config) ValidateStorage() error {
	if !slices.Contains([]string{"file", "redis", "memory", "none"}, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.backend %q (want file, redis, memory or none)", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_url is required for the redis backend")
	}
	if !slices.Contains([]string{"file", "mongo", "none"}, c.History.Backend) {
		return errors.New(errors.ErrCodeInvalidConfig, "history.backend %q (want file, mongo or none)", c.History.Backend)
	}
	if c.History.Backend == "mongo" && c.History.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "history.mongo_uri is required for the mongo backend")
	}
	if c.Batch.Workers < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "batch.workers must be at least 1")
	}
	if c.Batch.RateLimit < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "batch.rate_limit must not be negative")
	}
	return nil
}
