package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/stackgate/pkg/cache"
	stackerrors "github.com/matzehuels/stackgate/pkg/errors"
	"github.com/matzehuels/stackgate/pkg/integrations"
	"github.com/matzehuels/stackgate/pkg/integrations/npm"
)

type fakeRegistry struct {
	docs    map[string]*npm.Packument
	fetches atomic.Int32
}

func (f *fakeRegistry) FetchPackument(_ context.Context, pkg string, _ bool) (*npm.Packument, error) {
	f.fetches.Add(1)
	doc, ok := f.docs[pkg]
	if !ok {
		return nil, fmt.Errorf("%w: npm package %s", integrations.ErrNotFound, pkg)
	}
	return doc, nil
}

func packument(name, latest string, versions ...string) *npm.Packument {
	doc := &npm.Packument{
		Name:     name,
		DistTags: map[string]string{"latest": latest},
		Versions: make(map[string]*npm.Manifest),
	}
	for _, v := range versions {
		doc.Versions[v] = &npm.Manifest{Name: name, Version: v, License: "MIT"}
	}
	return doc
}

func newTestResolver() (*Resolver, *fakeRegistry) {
	express := packument("express", "4.18.2", "3.21.2", "4.17.3", "4.18.2", "4.19.0-rc.1", "5.0.0")
	express.DistTags["next"] = "5.0.0"
	express.Invalid = map[string]string{"0.0.1": "dependencies: unsupported shape"}
	reg := &fakeRegistry{docs: map[string]*npm.Packument{
		"express": express,
		"notags":  {Name: "notags", Versions: map[string]*npm.Manifest{"1.0.0": {Version: "1.0.0"}}},
	}}
	return New(reg, false), reg
}

func TestResolver_Resolve(t *testing.T) {
	r, _ := newTestResolver()

	tests := []struct {
		spec string
		want string
	}{
		{"", "4.18.2"},
		{"latest", "4.18.2"},
		{"next", "5.0.0"},
		{"4.17.3", "4.17.3"},
		{"=4.17.3", "4.17.3"},
		{"v4.17.3", "4.17.3"},
		{"^4.0.0", "4.18.2"},
		{"~4.17.0", "4.17.3"},
		{">=4", "4.18.2"},
		{">4.18.2", "5.0.0"},
		{"3.x", "3.21.2"},
		{"*", "4.18.2"},
		{"^4.19.0-rc.0", "4.19.0-rc.1"},
		{"0.0.1", "0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), "express", tt.spec)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.spec, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.spec, got, tt.want)
			}
		})
	}
}

func TestResolver_ResolveFailures(t *testing.T) {
	r, _ := newTestResolver()

	tests := []struct {
		name string
		pkg  string
		spec string
	}{
		{"unknown exact", "express", "9.9.9"},
		{"unsatisfiable range", "express", "^6"},
		{"unknown tag", "express", "beta"},
		{"git source", "express", "git+https://github.com/expressjs/express"},
		{"local path", "express", "file:../express"},
		{"unknown package", "nope", "^1"},
		{"no latest tag", "notags", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.pkg, tt.spec)
			if !stackerrors.Is(err, stackerrors.ErrCodeResolutionFailed) {
				t.Fatalf("error = %v, want RESOLUTION_FAILED", err)
			}
			spec := tt.spec
			if spec == "" {
				spec = "latest"
			}
			if !strings.Contains(err.Error(), spec) {
				t.Errorf("error %q does not mention the original spec %q", err, spec)
			}
		})
	}
}

func TestResolver_ResolveNotFoundCause(t *testing.T) {
	r, _ := newTestResolver()
	_, err := r.Resolve(context.Background(), "nope", "")
	if !errors.Is(err, integrations.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound in chain", err)
	}
}

func TestResolver_Memoizes(t *testing.T) {
	r, reg := newTestResolver()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(context.Background(), "express", "^4"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if _, err := r.Manifest(context.Background(), "Express", "4.18.2"); err != nil {
		t.Fatal(err)
	}
	if n := reg.fetches.Load(); n != 1 {
		t.Errorf("registry fetched %d times, want 1", n)
	}
	if r.Cached() != 1 {
		t.Errorf("Cached() = %d", r.Cached())
	}
}

func TestResolver_Exists(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	tests := []struct {
		pkg, version string
		want         bool
	}{
		{"express", "4.18.2", true},
		{"express", "0.0.1", true},
		{"express", "4.18.3", false},
		{"nope", "1.0.0", false},
	}
	for _, tt := range tests {
		got, err := r.Exists(ctx, tt.pkg, tt.version)
		if err != nil {
			t.Fatalf("Exists(%s@%s): %v", tt.pkg, tt.version, err)
		}
		if got != tt.want {
			t.Errorf("Exists(%s@%s) = %v, want %v", tt.pkg, tt.version, got, tt.want)
		}
	}
}

func TestIsRegistrySpec(t *testing.T) {
	tests := []struct {
		spec string
		want bool
	}{
		{"^1.0.0", true},
		{"latest", true},
		{">=1 <2 || 3", true},
		{"file:../lib", false},
		{"npm:other@1", false},
		{"github:user/repo", false},
		{"user/repo", false},
		{"https://example.com/x.tgz", false},
		{"workspace:*", false},
	}
	for _, tt := range tests {
		if got := IsRegistrySpec(tt.spec); got != tt.want {
			t.Errorf("IsRegistrySpec(%q) = %v, want %v", tt.spec, got, tt.want)
		}
	}
}

func TestResolver_FreshBypassesSharedCache(t *testing.T) {
	var latest atomic.Value
	latest.Store("1.0.0")
	var depHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/app":
			fmt.Fprintf(w, `{"name":"app","dist-tags":{"latest":%q},"versions":{"1.0.0":{"version":"1.0.0"},"2.0.0":{"version":"2.0.0"}}}`, latest.Load())
		case "/dep":
			depHits.Add(1)
			w.Write([]byte(`{"name":"dep","dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"version":"1.0.0"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	shared := cache.NewMemoryCache()
	invoke := func() (app, dep string) {
		client := npm.NewClient(shared, server.URL, "", 24*time.Hour)
		client.SetHTTPClient(server.Client())
		r := New(client, false)
		r.Fresh("app")
		app, err := r.Resolve(context.Background(), "app", "latest")
		if err != nil {
			t.Fatal(err)
		}
		dep, err = r.Resolve(context.Background(), "dep", "^1")
		if err != nil {
			t.Fatal(err)
		}
		return app, dep
	}

	if app, _ := invoke(); app != "1.0.0" {
		t.Fatalf("first run resolved %s, want 1.0.0", app)
	}
	latest.Store("2.0.0")
	if app, _ := invoke(); app != "2.0.0" {
		t.Errorf("second run resolved %s, want the moved latest 2.0.0", app)
	}
	if n := depHits.Load(); n != 1 {
		t.Errorf("dependency fetched %d times, want 1 (served from cache)", n)
	}
}
