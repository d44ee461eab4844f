package license

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackgate/pkg/errors"
	"github.com/matzehuels/stackgate/pkg/integrations/npm"
)

// Resolver resolves dependency specifiers and serves manifests.
// *resolve.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, name, spec string) (string, error)
	Manifest(ctx context.Context, name, version string) (*npm.Manifest, error)
}

// ViolationError names the first package whose license the policy rejected.
type ViolationError struct {
	Name    string
	Version string
	License string   // empty when none is declared
	Path    []string // name@version from the root down to the offender
}

func (e *ViolationError) Error() string {
	var b strings.Builder
	if e.License == "" {
		fmt.Fprintf(&b, "%s@%s declares no license", e.Name, e.Version)
	} else {
		fmt.Fprintf(&b, "%s@%s is licensed %q, which is not allowed", e.Name, e.Version, e.License)
	}
	if len(e.Path) > 1 {
		fmt.Fprintf(&b, " (via %s)", strings.Join(e.Path, " > "))
	}
	return b.String()
}

// Report summarizes an accepted walk.
type Report struct {
	Root     string         `json:"root"`
	Visited  int            `json:"visited"`
	Licenses map[string]int `json:"licenses"` // packages per declared license
}

// Walker checks dependency graphs against a Policy.
type Walker struct {
	resolver Resolver
	policy   *Policy
	logger   *log.Logger
}

// NewWalker creates a Walker. logger may be nil.
func NewWalker(r Resolver, p *Policy, logger *log.Logger) *Walker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Walker{resolver: r, policy: p, logger: logger}
}

type item struct {
	name    string
	spec    string // resolved on pop when version is empty
	version string
	parent  []string
}

// Check walks name@version and its transitive dependencies with a fresh
// VisitedSet.
func (w *Walker) Check(ctx context.Context, name, version string) (*Report, error) {
	return w.CheckWith(ctx, name, version, NewVisitedSet())
}

// CheckWith walks name@version, skipping vertices already in visited.
// Vertices in visited are trusted to have passed, so a set must only be
// shared between walks whose earlier walks all succeeded.
func (w *Walker) CheckWith(ctx context.Context, name, version string, visited *VisitedSet) (*Report, error) {
	root := key(name, version)
	report := &Report{Root: root, Licenses: make(map[string]int)}
	stack := []item{{name: name, version: version}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		v := it.version
		if v == "" {
			resolved, err := w.resolver.Resolve(ctx, it.name, it.spec)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeResolutionFailed, err,
					"dependency %s@%s of %s", it.name, it.spec, last(it.parent))
			}
			v = resolved
		}
		if visited.Contains(it.name, v) {
			continue
		}

		m, err := w.resolver.Manifest(ctx, it.name, v)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeResolutionFailed, err, "read metadata of %s@%s", it.name, v)
		}
		visited.Add(it.name, v)
		report.Visited++
		path := append(append([]string(nil), it.parent...), key(it.name, v))

		w.logger.Debug("license", "package", key(it.name, v), "license", m.License, "deps", len(m.Dependencies))
		if !w.policy.Allows(m.License) {
			violation := &ViolationError{Name: it.name, Version: v, License: m.License, Path: path}
			return nil, errors.Wrap(errors.ErrCodeLicenseViolation, violation, "license check of %s", root)
		}
		report.Licenses[licenseLabel(m.License)]++

		// Reverse push so dependencies pop in declaration order.
		for i := len(m.Dependencies) - 1; i >= 0; i-- {
			dep := m.Dependencies[i]
			stack = append(stack, item{name: dep.Name, spec: dep.Spec, parent: path})
		}
	}
	return report, nil
}

func last(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

func licenseLabel(license string) string {
	if license == "" {
		return "(none)"
	}
	return license
}
