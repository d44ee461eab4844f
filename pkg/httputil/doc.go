// Package httputil provides HTTP utilities shared by the registry and
// GitHub API clients.
//
// # Retry
//
// [Retry] re-runs an operation when it fails with a [RetryableError]
// (network errors, 5xx responses, secondary rate limits), doubling the delay
// after each attempt:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    return client.Get(ctx, url, &v)
//	})
//
// Errors not wrapped with [RetryableError] are returned immediately, so a
// 404 from the registry never costs a backoff.
//
// # Rate limiting
//
// [NewLimiter] builds a token-bucket limiter shared by every client created
// for one invocation. Batch mode runs many package checks in parallel; the
// shared limiter keeps their combined request rate under the upstream API
// budget.
package httputil
