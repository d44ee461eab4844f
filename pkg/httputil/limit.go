package httputil

import "golang.org/x/time/rate"

// NewLimiter returns a token-bucket limiter allowing rps requests per second
// with a burst of the same size. A non-positive rps disables limiting.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
}
