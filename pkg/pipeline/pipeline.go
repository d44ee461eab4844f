// Package pipeline runs the complete check for requested packages.
//
// One check resolves the requested specifier against the public registry,
// compares the version's engines.node constraint with the local runtime
// (advisory only), walks the dependency graph against the license policy,
// and finally runs the cache gate. Both the CLI and the HTTP server use the
// same [Runner], so the two entry points always agree.
//
// # Usage
//
//	runner := pipeline.NewRunner(registry, g, policy, store, logger)
//	batch := runner.Run(ctx, []pipeline.Request{{Name: "express", Spec: "^4"}})
//	for _, o := range batch.Outcomes {
//	    fmt.Println(o.Request, o.Kind, o.Version)
//	}
//
// A batch is one invocation: it shares a single resolve.Resolver, so every
// packument is fetched at most once no matter how many walks need it.
package pipeline

import (
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"github.com/matzehuels/stackgate/pkg/errors"
	"github.com/matzehuels/stackgate/pkg/license"
)

// Request is one requested package.
type Request struct {
	Name string `json:"name"`
	Spec string `json:"spec,omitempty"` // empty means the latest tag
}

func (r Request) String() string {
	if r.Spec == "" {
		return r.Name
	}
	return r.Name + "@" + r.Spec
}

// ParseRequest reads a "name[@spec]" token. Scoped names keep their leading
// "@": "@types/node@^20" is {"@types/node", "^20"}.
func ParseRequest(token string) (Request, error) {
	token = strings.TrimSpace(token)
	start := 0
	if strings.HasPrefix(token, "@") {
		start = 1
	}
	req := Request{Name: token}
	if i := strings.Index(token[start:], "@"); i >= 0 {
		req.Name = token[:start+i]
		req.Spec = strings.TrimSpace(token[start+i+1:])
	}
	if err := errors.ValidateNpmPackageName(req.Name); err != nil {
		return Request{}, err
	}
	if err := errors.ValidateVersionSpec(req.Spec); err != nil {
		return Request{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "request %q", token)
	}
	return req, nil
}

// ParseRequests parses every token, stopping at the first invalid one.
func ParseRequests(tokens []string) ([]Request, error) {
	reqs := make([]Request, 0, len(tokens))
	for _, tok := range tokens {
		req, err := ParseRequest(tok)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Kind is the final answer for one request.
type Kind int

const (
	Present   Kind = iota // already in the mirror
	Succeeded             // mirrored by a workflow run during this check
	Failed                // rejected, or the workflow could not mirror it
	TimedOut              // the workflow did not finish before the deadline
)

var kindNames = [...]string{"present", "succeeded", "failed", "timed_out"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Installable reports whether the package can be installed from the mirror.
func (k Kind) Installable() bool { return k == Present || k == Succeeded }

// Outcome is the result of checking one request.
type Outcome struct {
	Request    Request
	Kind       Kind
	Version    string // resolved version, empty if resolution failed
	MirrorName string
	Err        error
	Warnings   []string
	RunURL     string
	Dispatched bool
	Licenses   *license.Report
	Duration   time.Duration
}

// Code returns the error code of a failed outcome.
func (o *Outcome) Code() errors.Code { return errors.GetCode(o.Err) }

// Violation returns the license violation behind a failed outcome, if any.
func (o *Outcome) Violation() (*license.ViolationError, bool) {
	var v *license.ViolationError
	ok := stderrors.As(o.Err, &v)
	return v, ok
}

type outcomeJSON struct {
	Package    string          `json:"package"`
	Spec       string          `json:"spec,omitempty"`
	Outcome    Kind            `json:"outcome"`
	Version    string          `json:"version,omitempty"`
	MirrorName string          `json:"mirror_name,omitempty"`
	Code       errors.Code     `json:"code,omitempty"`
	Error      string          `json:"error,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	RunURL     string          `json:"run_url,omitempty"`
	Dispatched bool            `json:"dispatched"`
	Licenses   *license.Report `json:"licenses,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

// MarshalJSON renders the outcome for the HTTP API and --json output.
func (o *Outcome) MarshalJSON() ([]byte, error) {
	out := outcomeJSON{
		Package:    o.Request.Name,
		Spec:       o.Request.Spec,
		Outcome:    o.Kind,
		Version:    o.Version,
		MirrorName: o.MirrorName,
		Warnings:   o.Warnings,
		RunURL:     o.RunURL,
		Dispatched: o.Dispatched,
		Licenses:   o.Licenses,
		DurationMS: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		out.Code = o.Code()
		out.Error = errors.UserMessage(o.Err)
	}
	return json.Marshal(out)
}

// Batch is the result of one Run.
type Batch struct {
	ID       string        `json:"id"`
	Outcomes []*Outcome    `json:"outcomes"` // in request order
	Fetched  int           `json:"fetched"`  // packuments fetched
	Duration time.Duration `json:"-"`
}

// Count returns how many outcomes are of kind k.
func (b *Batch) Count(k Kind) int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Kind == k {
			n++
		}
	}
	return n
}

// OK reports whether every requested package is installable.
func (b *Batch) OK() bool {
	for _, o := range b.Outcomes {
		if !o.Kind.Installable() {
			return false
		}
	}
	return true
}
