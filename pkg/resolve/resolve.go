// Package resolve turns a package name and a version specifier into one
// concrete published version.
//
// Resolution always runs against the public registry, never the private
// mirror, so ranges are matched against the complete set of published
// versions. A [Resolver] is also the memoization scope of one invocation:
// every packument it fetches is kept for its lifetime and shared by all
// goroutines using it, so a batch never fetches the same document twice.
//
// Packages named with [Resolver.Fresh] are fetched bypassing the registry
// client's cache, so the versions requested directly are resolved against
// what the registry publishes now. Transitive dependencies may come from
// the cache.
package resolve

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	stackerrors "github.com/matzehuels/stackgate/pkg/errors"
	"github.com/matzehuels/stackgate/pkg/integrations"
	"github.com/matzehuels/stackgate/pkg/integrations/npm"
)

// LatestTag is the dist-tag used for an empty specifier.
const LatestTag = "latest"

// Registry serves packuments. *npm.Client implements it.
type Registry interface {
	FetchPackument(ctx context.Context, pkg string, refresh bool) (*npm.Packument, error)
}

// Resolver resolves specifiers and serves per-version manifests. It is safe
// for concurrent use.
type Resolver struct {
	registry Registry
	refresh  bool

	mu    sync.Mutex
	docs  map[string]*npm.Packument
	fresh map[string]bool
	group singleflight.Group
}

// New creates a Resolver. With refresh set, the first fetch of each package
// bypasses the registry client's cache; later lookups in the same Resolver
// still reuse the in-memory document.
func New(registry Registry, refresh bool) *Resolver {
	return &Resolver{
		registry: registry,
		refresh:  refresh,
		docs:     make(map[string]*npm.Packument),
		fresh:    make(map[string]bool),
	}
}

// Fresh marks names whose first fetch in this Resolver bypasses the
// registry client's cache. Call it before the names are first looked up.
func (r *Resolver) Fresh(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		r.fresh[integrations.NormalizePkgName(name)] = true
	}
}

// Packument returns the registry document for name, fetching it at most
// once per Resolver.
func (r *Resolver) Packument(ctx context.Context, name string) (*npm.Packument, error) {
	name = integrations.NormalizePkgName(name)

	r.mu.Lock()
	doc, ok := r.docs[name]
	r.mu.Unlock()
	if ok {
		return doc, nil
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		r.mu.Lock()
		doc, ok := r.docs[name]
		refresh := r.refresh || r.fresh[name]
		r.mu.Unlock()
		if ok {
			return doc, nil
		}
		doc, err := r.registry.FetchPackument(ctx, name, refresh)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.docs[name] = doc
		r.mu.Unlock()
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*npm.Packument), nil
}

// Resolve returns the concrete version spec selects for name. spec may be
// empty (the latest tag), a dist-tag, an exact version or a range. The
// returned error carries ErrCodeResolutionFailed and the original spec.
func (r *Resolver) Resolve(ctx context.Context, name, spec string) (string, error) {
	doc, err := r.Packument(ctx, name)
	if err != nil {
		return "", stackerrors.Wrap(stackerrors.ErrCodeResolutionFailed, err, "resolve %s@%s", name, displaySpec(spec))
	}
	version, err := Select(doc, spec)
	if err != nil {
		return "", stackerrors.Wrap(stackerrors.ErrCodeResolutionFailed, err, "resolve %s@%s", name, displaySpec(spec))
	}
	return version, nil
}

// Manifest returns the metadata of name at an exact version.
func (r *Resolver) Manifest(ctx context.Context, name, version string) (*npm.Manifest, error) {
	doc, err := r.Packument(ctx, name)
	if err != nil {
		return nil, err
	}
	return doc.Manifest(version)
}

// Exists reports whether name@version is published on the public registry.
// An unknown package is not an error.
func (r *Resolver) Exists(ctx context.Context, name, version string) (bool, error) {
	doc, err := r.Packument(ctx, name)
	if errors.Is(err, integrations.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, ok := doc.Versions[version]; ok {
		return true, nil
	}
	_, ok := doc.Invalid[version]
	return ok, nil
}

// Cached returns how many packuments the Resolver holds.
func (r *Resolver) Cached() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

func displaySpec(spec string) string {
	if spec == "" {
		return LatestTag
	}
	return spec
}

// IsRegistrySpec reports whether spec names registry versions at all, as
// opposed to a local path, a URL, a git source or an alias.
func IsRegistrySpec(spec string) bool {
	for _, prefix := range []string{"file:", "link:", "workspace:", "npm:", "git:", "git+", "github:", "http:", "https:", "portal:"} {
		if strings.HasPrefix(spec, prefix) {
			return false
		}
	}
	return !strings.Contains(spec, "/")
}
