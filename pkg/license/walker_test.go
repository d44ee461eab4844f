package license

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	stackerrors "github.com/matzehuels/stackgate/pkg/errors"
	"github.com/matzehuels/stackgate/pkg/integrations/npm"
)

// graph is an in-memory registry: every package has exactly one version,
// and every specifier resolves to it.
type graph struct {
	nodes     map[string]*npm.Manifest
	manifests map[string]int
	resolves  int
}

func newGraph(nodes ...*npm.Manifest) *graph {
	g := &graph{nodes: make(map[string]*npm.Manifest), manifests: make(map[string]int)}
	for _, n := range nodes {
		g.nodes[n.Name] = n
	}
	return g
}

func node(name, version, license string, deps ...string) *npm.Manifest {
	m := &npm.Manifest{Name: name, Version: version, License: license}
	for _, d := range deps {
		m.Dependencies = append(m.Dependencies, npm.Dependency{Name: d, Spec: "*"})
	}
	return m
}

func (g *graph) Resolve(_ context.Context, name, _ string) (string, error) {
	g.resolves++
	n, ok := g.nodes[name]
	if !ok {
		return "", stackerrors.New(stackerrors.ErrCodeResolutionFailed, "no such package %s", name)
	}
	return n.Version, nil
}

func (g *graph) Manifest(_ context.Context, name, version string) (*npm.Manifest, error) {
	g.manifests[name+"@"+version]++
	n, ok := g.nodes[name]
	if !ok || n.Version != version {
		return nil, fmt.Errorf("no manifest for %s@%s", name, version)
	}
	return n, nil
}

func (g *graph) totalFetches() int {
	total := 0
	for _, n := range g.manifests {
		total += n
	}
	return total
}

var mitOnly = NewPolicy([]string{"MIT", "ISC"}, MissingDeny)

func TestWalker_Accepts(t *testing.T) {
	g := newGraph(
		node("app", "1.0.0", "MIT", "a", "b"),
		node("a", "1.1.0", "ISC", "c"),
		node("b", "2.0.0", "MIT", "c"),
		node("c", "3.0.0", "MIT"),
	)

	report, err := NewWalker(g, mitOnly, nil).Check(context.Background(), "app", "1.0.0")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.Visited != 4 {
		t.Errorf("Visited = %d, want 4", report.Visited)
	}
	if report.Licenses["MIT"] != 3 || report.Licenses["ISC"] != 1 {
		t.Errorf("Licenses = %v", report.Licenses)
	}
	if g.manifests["c@3.0.0"] != 1 {
		t.Errorf("shared dependency fetched %d times, want 1", g.manifests["c@3.0.0"])
	}
}

func TestWalker_CycleVisitedOnce(t *testing.T) {
	g := newGraph(
		node("a", "1.0.0", "MIT", "b"),
		node("b", "1.0.0", "MIT", "c"),
		node("c", "1.0.0", "MIT", "a", "b"),
	)

	report, err := NewWalker(g, mitOnly, nil).Check(context.Background(), "a", "1.0.0")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.Visited != 3 {
		t.Errorf("Visited = %d, want 3", report.Visited)
	}
	for k, n := range g.manifests {
		if n != 1 {
			t.Errorf("%s fetched %d times, want 1", k, n)
		}
	}
}

func TestWalker_TransitiveViolation(t *testing.T) {
	g := newGraph(
		node("pkg", "2.0.0", "MIT", "mid"),
		node("mid", "1.0.0", "MIT", "sub"),
		node("sub", "4.0.0", "GPL-3.0"),
	)

	_, err := NewWalker(g, mitOnly, nil).Check(context.Background(), "pkg", "2.0.0")
	if !stackerrors.Is(err, stackerrors.ErrCodeLicenseViolation) {
		t.Fatalf("error = %v, want LICENSE_VIOLATION", err)
	}
	var v *ViolationError
	if !errors.As(err, &v) {
		t.Fatalf("error %v does not carry a ViolationError", err)
	}
	if v.Name != "sub" || v.Version != "4.0.0" || v.License != "GPL-3.0" {
		t.Errorf("violation = %+v, want sub@4.0.0 GPL-3.0", v)
	}
	want := []string{"pkg@2.0.0", "mid@1.0.0", "sub@4.0.0"}
	if !reflect.DeepEqual(v.Path, want) {
		t.Errorf("Path = %v, want %v", v.Path, want)
	}
}

func TestWalker_ShortCircuits(t *testing.T) {
	g := newGraph(
		node("root", "1.0.0", "MIT", "bad", "x", "y"),
		node("bad", "1.0.0", "AGPL-3.0", "z"),
		node("x", "1.0.0", "MIT"),
		node("y", "1.0.0", "GPL-2.0"),
		node("z", "1.0.0", "MIT"),
	)

	_, err := NewWalker(g, mitOnly, nil).Check(context.Background(), "root", "1.0.0")
	var v *ViolationError
	if !errors.As(err, &v) || v.Name != "bad" {
		t.Fatalf("error = %v, want violation at bad", err)
	}
	if n := g.totalFetches(); n != 2 {
		t.Errorf("fetched %d manifests, want 2 (root and the first offender)", n)
	}
	if g.resolves != 1 {
		t.Errorf("resolved %d specifiers after the violation, want 1", g.resolves)
	}
}

func TestWalker_DeclarationOrder(t *testing.T) {
	g := newGraph(
		node("root", "1.0.0", "MIT", "first", "second"),
		node("first", "1.0.0", "MIT", "deep"),
		node("deep", "1.0.0", "BSD-2-Clause"),
		node("second", "1.0.0", "GPL-3.0"),
	)

	_, err := NewWalker(g, mitOnly, nil).Check(context.Background(), "root", "1.0.0")
	var v *ViolationError
	if !errors.As(err, &v) {
		t.Fatalf("error = %v", err)
	}
	if v.Name != "deep" {
		t.Errorf("first violation = %s, want deep (depth-first, declaration order)", v.Name)
	}
}

func TestWalker_MissingLicense(t *testing.T) {
	g := newGraph(node("root", "1.0.0", "MIT", "bare"), node("bare", "0.1.0", ""))

	_, err := NewWalker(g, mitOnly, nil).Check(context.Background(), "root", "1.0.0")
	var v *ViolationError
	if !errors.As(err, &v) || v.Name != "bare" || v.License != "" {
		t.Fatalf("deny policy: error = %v", err)
	}

	lenient := NewPolicy([]string{"MIT"}, MissingAllow)
	if _, err := NewWalker(g, lenient, nil).Check(context.Background(), "root", "1.0.0"); err != nil {
		t.Errorf("allow policy: %v", err)
	}
}

func TestWalker_UnresolvableDependencyFailsClosed(t *testing.T) {
	g := newGraph(node("root", "1.0.0", "MIT", "ghost"))

	_, err := NewWalker(g, mitOnly, nil).Check(context.Background(), "root", "1.0.0")
	if !stackerrors.Is(err, stackerrors.ErrCodeResolutionFailed) {
		t.Errorf("error = %v, want RESOLUTION_FAILED", err)
	}
}

func TestWalker_SharedVisitedSet(t *testing.T) {
	g := newGraph(
		node("a", "1.0.0", "MIT", "common"),
		node("b", "1.0.0", "MIT", "common"),
		node("common", "1.0.0", "MIT"),
	)
	w := NewWalker(g, mitOnly, nil)
	visited := NewVisitedSet()

	if _, err := w.CheckWith(context.Background(), "a", "1.0.0", visited); err != nil {
		t.Fatal(err)
	}
	report, err := w.CheckWith(context.Background(), "b", "1.0.0", visited)
	if err != nil {
		t.Fatal(err)
	}
	if report.Visited != 1 {
		t.Errorf("second walk visited %d, want 1", report.Visited)
	}
	if visited.Len() != 3 {
		t.Errorf("visited.Len() = %d, want 3", visited.Len())
	}
}

func TestWalker_Cancelled(t *testing.T) {
	g := newGraph(node("root", "1.0.0", "MIT"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewWalker(g, mitOnly, nil).Check(ctx, "root", "1.0.0"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestViolationError_Error(t *testing.T) {
	e := &ViolationError{Name: "sub", Version: "4.0.0", License: "GPL-3.0", Path: []string{"pkg@2.0.0", "sub@4.0.0"}}
	want := `sub@4.0.0 is licensed "GPL-3.0", which is not allowed (via pkg@2.0.0 > sub@4.0.0)`
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}
