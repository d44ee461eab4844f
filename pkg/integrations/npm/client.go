package npm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/stackgate/pkg/cache"
	"github.com/matzehuels/stackgate/pkg/integrations"
)

// DefaultRegistry is the public npm registry.
const DefaultRegistry = "https://registry.npmjs.org"

// Packument is the normalized registry document for one package.
type Packument struct {
	Name     string               `json:"name"`
	DistTags map[string]string    `json:"dist_tags"`
	Versions map[string]*Manifest `json:"versions"`

	// Invalid maps versions whose metadata could not be normalized to the
	// reason.
	Invalid map[string]string `json:"invalid,omitempty"`
}

// Manifest is the metadata of one published version.
type Manifest struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	License      string       `json:"license,omitempty"`
	Dependencies Dependencies `json:"dependencies,omitempty"`
	Engines      Engines      `json:"engines,omitempty"`
	Deprecated   string       `json:"deprecated,omitempty"`
}

// ErrInvalidVersion is returned by [Packument.Manifest] for versions whose
// metadata could not be normalized.
var ErrInvalidVersion = errors.New("unreadable version metadata")

// Manifest returns the metadata for version.
func (p *Packument) Manifest(version string) (*Manifest, error) {
	if m, ok := p.Versions[version]; ok {
		return m, nil
	}
	if reason, ok := p.Invalid[version]; ok {
		return nil, fmt.Errorf("%w: %s@%s: %s", ErrInvalidVersion, p.Name, version, reason)
	}
	return nil, fmt.Errorf("%w: %s@%s", integrations.ErrNotFound, p.Name, version)
}

// VersionList returns every published version, readable or not, sorted
// lexically. Callers that need semver order sort again.
func (p *Packument) VersionList() []string {
	out := make([]string, 0, len(p.Versions)+len(p.Invalid))
	for v := range p.Versions {
		out = append(out, v)
	}
	for v := range p.Invalid {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Client fetches packuments from one npm-compatible registry.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a registry client for baseURL. A non-empty token is
// sent as a bearer token. Packuments are cached in c for ttl.
func NewClient(c cache.Cache, baseURL, token string, ttl time.Duration) *Client {
	headers := map[string]string{"Accept": "application/json"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		Client:  integrations.NewClient(c, "npm:"+baseURL+":", ttl, headers),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the registry root.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchPackument retrieves the normalized document for pkg.
// If refresh is true, cached data is bypassed.
func (c *Client) FetchPackument(ctx context.Context, pkg string, refresh bool) (*Packument, error) {
	pkg = integrations.NormalizePkgName(pkg)

	var doc Packument
	err := c.Cached(ctx, pkg, refresh, &doc, func() error {
		return c.fetch(ctx, pkg, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// HasVersion reports whether the registry serves pkg at exactly version.
// The answer is never cached; an unknown package is simply absent.
func (c *Client) HasVersion(ctx context.Context, pkg, version string) (bool, error) {
	pkg = integrations.NormalizePkgName(pkg)

	var data struct {
		Versions map[string]json.RawMessage `json:"versions"`
	}
	err := c.Retry(ctx, func() error {
		return c.Get(ctx, c.baseURL+"/"+integrations.EscapePkgName(pkg), &data)
	})
	if errors.Is(err, integrations.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, ok := data.Versions[version]
	return ok, nil
}

func (c *Client) fetch(ctx context.Context, pkg string, doc *Packument) error {
	var data registryResponse
	if err := c.Get(ctx, c.baseURL+"/"+integrations.EscapePkgName(pkg), &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: npm package %s", err, pkg)
		}
		return err
	}

	*doc = Packument{
		Name:     data.Name,
		DistTags: data.DistTags,
		Versions: make(map[string]*Manifest, len(data.Versions)),
	}
	if doc.Name == "" {
		doc.Name = pkg
	}
	for version, raw := range data.Versions {
		m, err := parseVersion(raw)
		if err != nil {
			if doc.Invalid == nil {
				doc.Invalid = make(map[string]string)
			}
			doc.Invalid[version] = err.Error()
			continue
		}
		if m.Name == "" {
			m.Name = doc.Name
		}
		m.Version = version
		doc.Versions[version] = m
	}
	return nil
}

func parseVersion(raw json.RawMessage) (*Manifest, error) {
	var v versionDetails
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	license, err := normalizeLicense(v.License, v.Licenses)
	if err != nil {
		return nil, err
	}
	var engines Engines
	// Engines are advisory; an unreadable block is dropped.
	_ = json.Unmarshal(v.Engines, &engines)

	return &Manifest{
		Name:         v.Name,
		Version:      v.Version,
		License:      license,
		Dependencies: v.Dependencies,
		Engines:      engines,
		Deprecated:   deprecationNotice(v.Deprecated),
	}, nil
}

type registryResponse struct {
	Name     string                     `json:"name"`
	DistTags map[string]string          `json:"dist-tags"`
	Versions map[string]json.RawMessage `json:"versions"`
}

type versionDetails struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	License      json.RawMessage `json:"license"`
	Licenses     json.RawMessage `json:"licenses"`
	Dependencies Dependencies    `json:"dependencies"`
	Engines      json.RawMessage `json:"engines"`
	Deprecated   json.RawMessage `json:"deprecated"`
}
