// Package license verifies that a package and everything it depends on,
// transitively, declares a license on an allow-list.
//
// # Walking
//
// [Walker.Check] runs a depth-first walk over the dependency graph using an
// explicit stack, in dependency declaration order. Each dependency
// specifier is resolved to a concrete version before it is evaluated, so
// the walk only ever judges published versions. A [VisitedSet] bounds the
// walk: every name@version is fetched and evaluated at most once, which
// also terminates cycles.
//
// The first violation stops the walk. The returned error wraps a
// [*ViolationError] naming the offending package, its license and the
// dependency path that led to it. A dependency that cannot be resolved
// fails the walk: an unknown subtree is never accepted.
//
// # Policy
//
// [Policy] matches licenses case-insensitively and understands SPDX
// expressions: "(MIT OR GPL-3.0)" passes when either side is allowed,
// "MIT AND BSD-3-Clause" needs both. Whether a package with no declared
// license passes is an explicit choice ([MissingDeny] or [MissingAllow]).
package license
