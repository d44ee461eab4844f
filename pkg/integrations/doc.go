// Package integrations provides the HTTP plumbing shared by stackgate's API
// clients.
//
// # Overview
//
// Each upstream has its own subpackage:
//
//   - [npm]: npm-compatible registries, both the public registry and the
//     private mirror
//   - [github]: the GitHub Actions API used to dispatch and observe the
//     caching workflow
//
// # Shared Infrastructure
//
// [Client] wraps an *http.Client with default headers, response caching
// through [cache.Cache], retries of transient failures via
// [httputil.Retry], an optional shared rate limiter and
// [observability.HTTP] events. Status codes are mapped to the sentinel
// errors [ErrNotFound], [ErrUnauthorized], [ErrForbidden] and [ErrNetwork].
//
// [npm]: github.com/matzehuels/stackgate/pkg/integrations/npm
// [github]: github.com/matzehuels/stackgate/pkg/integrations/github
package integrations
