package pipeline

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stackgate/pkg/compat"
	"github.com/matzehuels/stackgate/pkg/errors"
	"github.com/matzehuels/stackgate/pkg/gate"
	"github.com/matzehuels/stackgate/pkg/history"
	"github.com/matzehuels/stackgate/pkg/httputil"
	"github.com/matzehuels/stackgate/pkg/integrations"
	"github.com/matzehuels/stackgate/pkg/integrations/npm"
	"github.com/matzehuels/stackgate/pkg/license"
	"github.com/matzehuels/stackgate/pkg/observability"
	"github.com/matzehuels/stackgate/pkg/resolve"
)

// DefaultWorkers is the batch concurrency used when Runner.Workers is unset.
const DefaultWorkers = 4

// Runner checks packages. A Runner holds no per-batch state, so several
// goroutines may call Run concurrently.
type Runner struct {
	Registry resolve.Registry
	Gate     *gate.Gate
	Policy   *license.Policy
	History  history.Store
	Logger   *log.Logger

	Workers      int    // concurrent checks per batch
	Refresh      bool   // bypass the registry cache on first fetch
	CheckEngines bool   // compare engines.node with the runtime
	NodeVersion  string // runtime version; detected when empty

	// DetectNode reports the local runtime version. Defaults to
	// compat.DetectNodeVersion.
	DetectNode func(ctx context.Context) (string, error)
}

// NewRunner creates a Runner with engine checks enabled. A nil store
// records nothing and a nil logger discards output.
func NewRunner(registry resolve.Registry, g *gate.Gate, policy *license.Policy, store history.Store, logger *log.Logger) *Runner {
	if store == nil {
		store = history.NewNullStore()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		Registry:     registry,
		Gate:         g,
		Policy:       policy,
		History:      store,
		Logger:       logger,
		Workers:      DefaultWorkers,
		CheckEngines: true,
		DetectNode:   compat.DetectNodeVersion,
	}
}

// batch is the state shared by the checks of one Run.
type batch struct {
	id       string
	resolver *resolve.Resolver
	walker   *license.Walker
	node     string

	mu    sync.Mutex
	gates map[string]*gateOnce
}

type gateOnce struct {
	once sync.Once
	res  *gate.Result
}

// Check runs a single request as its own batch.
func (r *Runner) Check(ctx context.Context, req Request) *Outcome {
	return r.Run(ctx, []Request{req}).Outcomes[0]
}

// Run checks every request with at most Workers checks in flight and
// returns one outcome per request, in request order. A failing package
// never stops the others. Repeated requests share one outcome.
func (r *Runner) Run(ctx context.Context, reqs []Request) *Batch {
	start := time.Now()
	b := &batch{
		id:       uuid.NewString(),
		resolver: resolve.New(r.Registry, r.Refresh),
		gates:    make(map[string]*gateOnce),
	}
	for _, req := range reqs {
		b.resolver.Fresh(req.Name)
	}
	b.walker = license.NewWalker(b.resolver, r.Policy, r.Logger)
	if r.CheckEngines {
		b.node = r.runtimeVersion(ctx)
	}
	logger := r.Logger.With("batch", b.id[:8])
	logger.Debug("batch started", "packages", len(reqs), "node", b.node)

	first := make(map[Request]int, len(reqs))
	outcomes := make([]*Outcome, len(reqs))

	var g errgroup.Group
	g.SetLimit(max(r.Workers, 1))
	for i, req := range reqs {
		if _, dup := first[req]; dup {
			continue
		}
		first[req] = i
		g.Go(func() error {
			o := r.check(ctx, b, req, logger)
			outcomes[i] = o
			if ctx.Err() != nil {
				logger.Debug("outcome not recorded, batch cancelled", "package", req.String())
				return nil
			}
			r.record(ctx, b.id, o, logger)
			return nil
		})
	}
	_ = g.Wait()

	for i, req := range reqs {
		if outcomes[i] == nil {
			outcomes[i] = outcomes[first[req]]
		}
	}

	res := &Batch{ID: b.id, Outcomes: outcomes, Fetched: b.resolver.Cached(), Duration: time.Since(start)}
	logger.Info("batch finished",
		"packages", len(reqs),
		"installable", res.Count(Present)+res.Count(Succeeded),
		"fetched", res.Fetched,
		"duration", res.Duration.Round(time.Millisecond))
	return res
}

func (r *Runner) runtimeVersion(ctx context.Context) string {
	if r.NodeVersion != "" {
		return r.NodeVersion
	}
	if r.DetectNode == nil {
		return ""
	}
	v, err := r.DetectNode(ctx)
	if err != nil {
		r.Logger.Debug("node runtime not detected", "err", err)
		return ""
	}
	return v
}

func (r *Runner) check(ctx context.Context, b *batch, req Request, logger *log.Logger) (o *Outcome) {
	start := time.Now()
	hooks := observability.Pipeline()
	hooks.OnCheckStart(ctx, req.Name, req.Spec)
	o = &Outcome{Request: req}
	defer func() {
		o.Duration = time.Since(start)
		hooks.OnCheckComplete(ctx, req.Name, o.Version, o.Kind.String(), o.Duration, o.Err)
	}()
	logger = logger.With("package", req.String())

	fail := func(err error) *Outcome {
		o.Kind = Failed
		o.Err = err
		logger.Debug("check failed", "code", errors.GetCode(err), "err", err)
		return o
	}

	version, err := b.resolver.Resolve(ctx, req.Name, req.Spec)
	if err != nil {
		return fail(err)
	}
	o.Version = version
	logger = logger.With("version", version)

	m, err := b.resolver.Manifest(ctx, req.Name, version)
	if err != nil {
		return fail(errors.Wrap(errors.ErrCodeResolutionFailed, err, "read %s@%s", req.Name, version))
	}
	if m.Deprecated != "" {
		o.Warnings = append(o.Warnings, "deprecated: "+m.Deprecated)
	}
	if r.CheckEngines {
		o.Warnings = append(o.Warnings, engineWarnings(req.Name, version, m.Engines, b.node)...)
	}

	report, err := b.walker.Check(ctx, req.Name, version)
	if err != nil {
		return fail(err)
	}
	o.Licenses = report

	res := b.gate(ctx, r.Gate, gate.Request{Name: req.Name, Spec: req.Spec, Version: version})
	o.MirrorName = res.MirrorName
	o.Dispatched = res.Dispatched
	o.Warnings = append(o.Warnings, res.Warnings...)
	if res.Run != nil {
		o.RunURL = res.Run.HTMLURL
	}
	switch res.State {
	case gate.Present:
		o.Kind = Present
	case gate.Succeeded:
		o.Kind = Succeeded
	case gate.TimedOut:
		o.Kind = TimedOut
		o.Err = res.Err
	default:
		o.Kind = Failed
		o.Err = res.Err
	}
	logger.Debug("check finished", "outcome", o.Kind, "dispatched", o.Dispatched)
	return o
}

// gate runs the cache gate at most once per name@version in a batch, so two
// specifiers resolving to the same version never dispatch twice.
func (b *batch) gate(ctx context.Context, g *gate.Gate, req gate.Request) *gate.Result {
	key := req.Name + "@" + req.Version
	b.mu.Lock()
	o, ok := b.gates[key]
	if !ok {
		o = &gateOnce{}
		b.gates[key] = o
	}
	b.mu.Unlock()
	o.once.Do(func() { o.res = g.Run(ctx, req) })
	return o.res
}

// engineWarnings compares the engines.node constraint with the runtime.
// Incompatibility is reported, never enforced.
func engineWarnings(name, version string, engines npm.Engines, node string) []string {
	constraint, ok := engines.Get("node")
	if !ok {
		return nil
	}
	if node == "" {
		return []string{"engines.node " + constraint + " not checked: node runtime unknown"}
	}
	compatible, warnings := compat.IsCompatible(node, constraint)
	if !compatible {
		err := errors.New(errors.ErrCodeEngineIncompatible, "%s@%s requires node %s, running %s", name, version, constraint, node)
		warnings = append([]string{errors.UserMessage(err)}, warnings...)
	}
	return warnings
}

// record writes the outcome to the history ledger. Ledger errors are
// logged, not returned: the check itself already happened.
func (r *Runner) record(ctx context.Context, batchID string, o *Outcome, logger *log.Logger) {
	e := history.Entry{
		ID:        uuid.NewString(),
		Name:      o.Request.Name,
		Spec:      o.Request.Spec,
		Version:   o.Version,
		Status:    Status(o),
		Outcome:   o.Kind.String(),
		RunURL:    o.RunURL,
		BatchID:   batchID,
		UpdatedAt: time.Now().UTC(),
	}
	if o.Err != nil {
		e.Code = string(o.Code())
		e.Message = errors.UserMessage(o.Err)
	}
	if err := r.History.Record(ctx, e); err != nil {
		logger.Warn("history not recorded", "package", o.Request.Name, "err", err)
	}
}

// Status maps an outcome to its ledger status. Outcomes a later run could
// change are pending: timeouts, failed dispatches and runs, and transient
// registry errors. License violations and specifiers no published version
// satisfies are blocked.
func Status(o *Outcome) history.Status {
	switch o.Kind {
	case Present, Succeeded:
		return history.StatusDone
	case TimedOut:
		return history.StatusPending
	}
	switch o.Code() {
	case errors.ErrCodeLicenseViolation:
		return history.StatusBlocked
	case errors.ErrCodeDispatchFailed, errors.ErrCodePollFailed, errors.ErrCodePollTimeout:
		return history.StatusPending
	}
	if transient(o.Err) {
		return history.StatusPending
	}
	return history.StatusBlocked
}

// transient reports whether err came from an interrupted run or an upstream
// that may answer differently later.
func transient(err error) bool {
	switch {
	case err == nil:
		return false
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return true
	case stderrors.Is(err, integrations.ErrNetwork), stderrors.Is(err, integrations.ErrRateLimited):
		return true
	}
	return httputil.IsRetryable(err)
}

// Pending returns the requests the ledger lists as pending. An entry whose
// resolved version has since been unpublished from the public registry is
// marked blocked instead of returned, since dispatching it again cannot
// succeed. Registry errors keep the entry pending.
func (r *Runner) Pending(ctx context.Context) ([]Request, error) {
	entries, err := r.History.Pending(ctx)
	if err != nil {
		return nil, err
	}
	resolver := resolve.New(r.Registry, true)
	reqs := make([]Request, 0, len(entries))
	for _, e := range entries {
		if e.Version != "" {
			ok, err := resolver.Exists(ctx, e.Name, e.Version)
			if err != nil {
				r.Logger.Warn("could not confirm pending version", "package", e.Name, "version", e.Version, "err", err)
			} else if !ok {
				r.unpublished(ctx, e)
				continue
			}
		}
		reqs = append(reqs, Request{Name: e.Name, Spec: e.Spec})
	}
	return reqs, nil
}

func (r *Runner) unpublished(ctx context.Context, e history.Entry) {
	r.Logger.Warn("pending version no longer published", "package", e.Name, "version", e.Version)
	err := errors.New(errors.ErrCodeResolutionFailed, "%s@%s is no longer published", e.Name, e.Version)
	e.ID = uuid.NewString()
	e.Status = history.StatusBlocked
	e.Outcome = Failed.String()
	e.Code = string(errors.ErrCodeResolutionFailed)
	e.Message = errors.UserMessage(err)
	e.RunURL = ""
	e.UpdatedAt = time.Now().UTC()
	if err := r.History.Record(ctx, e); err != nil {
		r.Logger.Warn("history not recorded", "package", e.Name, "err", err)
	}
}
