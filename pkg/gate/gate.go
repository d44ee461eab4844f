package gate

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/stackgate/pkg/errors"
	"github.com/matzehuels/stackgate/pkg/integrations/github"
	"github.com/matzehuels/stackgate/pkg/integrations/npm"
	"github.com/matzehuels/stackgate/pkg/observability"
)

// Mirror answers whether the private mirror serves an exact version.
// *npm.Client implements it.
type Mirror interface {
	HasVersion(ctx context.Context, pkg, version string) (bool, error)
}

// Jobs triggers and observes the remote caching workflow.
// *Actions implements it.
type Jobs interface {
	Dispatch(ctx context.Context, inputs map[string]string) error
	ListRuns(ctx context.Context) ([]github.WorkflowRun, error)
	GetRun(ctx context.Context, id int64) (*github.WorkflowRun, error)
}

// Workflow input names.
const (
	InputPackageName    = "package_name"
	InputPackageVersion = "package_version"
	InputCorrelationID  = "correlation_id"
)

// Config tunes the gate. Zero durations take the defaults.
type Config struct {
	Scope        string        // private scope, e.g. "@acme"
	GraceDelay   time.Duration // wait before looking for the dispatched run
	ClockSkew    time.Duration // tolerated skew between us and the job system
	PollInterval time.Duration // first wait between status queries
	MaxInterval  time.Duration // cap for the backed-off wait
	Backoff      float64       // interval multiplier per poll, >= 1
	Deadline     time.Duration // bound on attribution and polling together
	Correlate    bool          // send and match a correlation_id input
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		GraceDelay:   3 * time.Second,
		ClockSkew:    5 * time.Second,
		PollInterval: 5 * time.Second,
		MaxInterval:  30 * time.Second,
		Backoff:      1.5,
		Deadline:     5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.GraceDelay < 0 {
		c.GraceDelay = 0
	} else if c.GraceDelay == 0 {
		c.GraceDelay = d.GraceDelay
	}
	if c.ClockSkew <= 0 {
		c.ClockSkew = d.ClockSkew
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxInterval < c.PollInterval {
		c.MaxInterval = max(d.MaxInterval, c.PollInterval)
	}
	if c.Backoff < 1 {
		c.Backoff = d.Backoff
	}
	if c.Deadline <= 0 {
		c.Deadline = d.Deadline
	}
	return c
}

// Request identifies the package to gate.
type Request struct {
	Name    string // public name, e.g. "express" or "@types/node"
	Spec    string // the specifier as the user wrote it
	Version string // the resolved version
}

// Result is the terminal outcome of one Run.
type Result struct {
	State       State
	MirrorName  string
	Run         *github.WorkflowRun
	Dispatched  bool
	Err         error    // set for Failed and TimedOut
	Warnings    []string // non-fatal problems, e.g. an unreachable mirror
	Transitions []Transition
}

// RunFailedError reports a workflow run that completed without success.
type RunFailedError struct {
	RunID      int64
	URL        string
	Conclusion string
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("caching run %d concluded %q: %s", e.RunID, e.Conclusion, e.URL)
}

// Gate runs the mirror check, dispatch and poll sequence.
type Gate struct {
	mirror Mirror
	jobs   Jobs
	cfg    Config
	logger *log.Logger
	now    func() time.Time
}

// New creates a Gate. logger may be nil.
func New(mirror Mirror, jobs Jobs, cfg Config, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Gate{mirror: mirror, jobs: jobs, cfg: cfg.withDefaults(), logger: logger, now: time.Now}
}

// MirrorName is the name req.Name is published under in the mirror.
func (g *Gate) MirrorName(name string) string { return npm.ScopedName(g.cfg.Scope, name) }

// Run drives req to a terminal state. It never returns a nil Result; the
// error, if any, is in Result.Err.
func (g *Gate) Run(ctx context.Context, req Request) *Result {
	m := &machine{pkg: req.Name, now: g.now}
	res := &Result{MirrorName: g.MirrorName(req.Name)}
	defer func() {
		res.State = m.state
		res.Transitions = m.history
	}()
	logger := g.logger.With("package", req.Name, "version", req.Version)
	hooks := observability.Gate()

	present, err := g.mirror.HasVersion(ctx, res.MirrorName, req.Version)
	hooks.OnMirrorCheck(ctx, res.MirrorName, req.Version, present, err)
	if err != nil {
		err = errors.Wrap(errors.ErrCodeCacheCheckFailed, err, "query mirror for %s@%s", res.MirrorName, req.Version)
		logger.Warn("mirror check failed, treating as absent", "err", err)
		res.Warnings = append(res.Warnings, errors.UserMessage(err))
		present = false
	}
	if present {
		m.to(ctx, Present)
		logger.Debug("already mirrored", "mirror", res.MirrorName)
		return res
	}
	m.to(ctx, Absent)

	m.to(ctx, Triggering)
	spec := req.Spec
	if spec == "" {
		spec = "latest"
	}
	inputs := map[string]string{InputPackageName: req.Name, InputPackageVersion: spec}
	token := ""
	if g.cfg.Correlate {
		token = uuid.NewString()
		inputs[InputCorrelationID] = token
	}
	dispatchedAt := g.now()
	err = g.jobs.Dispatch(ctx, inputs)
	hooks.OnDispatch(ctx, req.Name, spec, err)
	if err != nil {
		m.to(ctx, Failed)
		res.Err = errors.Wrap(errors.ErrCodeDispatchFailed, err, "dispatch caching workflow for %s@%s", req.Name, spec)
		return res
	}
	res.Dispatched = true
	m.to(ctx, Polling)
	logger.Info("caching workflow dispatched", "spec", spec)

	pollCtx, cancel := context.WithTimeout(ctx, g.cfg.Deadline)
	defer cancel()

	run, err := g.locate(pollCtx, dispatchedAt, token, logger)
	if err == nil {
		res.Run = run
		run, err = g.poll(pollCtx, req.Name, run, logger)
		if run != nil {
			res.Run = run
		}
	}
	switch {
	case err == nil:
		m.to(ctx, Succeeded)
	case pollCtx.Err() != nil:
		m.to(ctx, TimedOut)
		res.Err = g.timeoutError(req, res.Run, pollCtx.Err())
	default:
		m.to(ctx, Failed)
		res.Err = err
	}
	return res
}

func (g *Gate) timeoutError(req Request, run *github.WorkflowRun, cause error) error {
	if run == nil {
		return errors.Wrap(errors.ErrCodePollTimeout, cause, "no caching run for %s found within %s", req.Name, g.cfg.Deadline)
	}
	return errors.Wrap(errors.ErrCodePollTimeout, cause, "caching run %d for %s still %s after %s: %s",
		run.ID, req.Name, run.Status, g.cfg.Deadline, run.HTMLURL)
}

// locate finds the run the dispatch created.
func (g *Gate) locate(ctx context.Context, since time.Time, token string, logger *log.Logger) (*github.WorkflowRun, error) {
	wait := g.cfg.GraceDelay
	for {
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
		wait = g.cfg.PollInterval

		runs, err := g.jobs.ListRuns(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("list workflow runs", "err", err)
			continue
		}
		if run := pickRun(runs, since.Add(-g.cfg.ClockSkew), token); run != nil {
			logger.Debug("attributed workflow run", "run", run.ID, "url", run.HTMLURL)
			return run, nil
		}
	}
}

// pickRun returns the newest run created no earlier than since whose title
// carries token, if one is given.
func pickRun(runs []github.WorkflowRun, since time.Time, token string) *github.WorkflowRun {
	var best *github.WorkflowRun
	for i := range runs {
		r := &runs[i]
		if r.CreatedAt.Before(since) {
			continue
		}
		if token != "" && !strings.Contains(r.DisplayTitle, token) && !strings.Contains(r.Name, token) {
			continue
		}
		if best == nil || r.CreatedAt.After(best.CreatedAt) {
			best = r
		}
	}
	return best
}

// poll queries run until it completes, backing off between queries.
func (g *Gate) poll(ctx context.Context, pkg string, run *github.WorkflowRun, logger *log.Logger) (*github.WorkflowRun, error) {
	wait := g.cfg.PollInterval
	current := run
	for {
		observability.Gate().OnPoll(ctx, pkg, current.ID, current.Status, current.Conclusion)
		if current.Completed() {
			if current.Succeeded() {
				return current, nil
			}
			return current, errors.Wrap(errors.ErrCodePollFailed,
				&RunFailedError{RunID: current.ID, URL: current.HTMLURL, Conclusion: current.Conclusion},
				"caching workflow for %s failed", pkg)
		}

		if err := sleep(ctx, wait); err != nil {
			return current, err
		}
		wait = min(time.Duration(float64(wait)*g.cfg.Backoff), g.cfg.MaxInterval)

		next, err := g.jobs.GetRun(ctx, current.ID)
		if err != nil {
			if ctx.Err() != nil {
				return current, ctx.Err()
			}
			logger.Warn("read workflow run", "run", current.ID, "err", err)
			continue
		}
		current = next
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
