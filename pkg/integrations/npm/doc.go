// Package npm provides an HTTP client for npm-compatible registries.
//
// # Overview
//
// The same client talks to the public registry (https://registry.npmjs.org),
// which is the source of truth for version resolution and license data, and
// to the private mirror (for example GitHub Packages at
// https://npm.pkg.github.com), where only presence matters.
//
// # Usage
//
//	public := npm.NewClient(c, npm.DefaultRegistry, "", 24*time.Hour)
//	doc, err := public.FetchPackument(ctx, "express", false)
//	m, err := doc.Manifest("4.18.2")
//	fmt.Println(m.License, m.Dependencies)
//
//	mirror := npm.NewClient(nil, "https://npm.pkg.github.com", token, 0)
//	ok, err := mirror.HasVersion(ctx, "@acme/express", "4.18.2")
//
// # Canonical shapes
//
// Registry documents accumulated several shapes over the years. They are
// normalized once, at decode time:
//
//   - license: a string, an object {"type": ...} or a legacy "licenses"
//     array, joined with " OR "
//   - dependencies: an object (document order preserved) or a legacy list
//     of "name@spec" strings
//   - engines: an object or a legacy list of "node >= 0.8" strings
//
// A version whose metadata cannot be normalized is kept in
// [Packument.Invalid]; asking for its manifest fails instead of silently
// dropping its dependencies.
package npm
