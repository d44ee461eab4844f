// Package observability lets the process that owns a run observe library
// events without the libraries depending on a logging or metrics backend.
//
// Libraries emit events through a small global registry of hook interfaces;
// the process that owns the run (the CLI or the HTTP server) installs
// implementations at startup. Nothing is installed by default, so library
// code stays free of backend dependencies.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetGateHooks(&myGateHooks{})
//	    observability.SetHTTPHooks(&myHTTPHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Gate().OnDispatch(ctx, name, spec, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives one start and one completion event per package check.
type PipelineHooks interface {
	OnCheckStart(ctx context.Context, pkg, spec string)
	OnCheckComplete(ctx context.Context, pkg, version, outcome string, duration time.Duration, err error)
}

// GateHooks receives events from the private-mirror cache gate.
type GateHooks interface {
	// OnMirrorCheck records a presence query against the private mirror.
	OnMirrorCheck(ctx context.Context, pkg, version string, present bool, err error)

	// OnDispatch records a caching workflow dispatch.
	OnDispatch(ctx context.Context, pkg, spec string, err error)

	// OnPoll records one observation of a workflow run.
	OnPoll(ctx context.Context, pkg string, runID int64, status, conclusion string)

	// OnTransition records a state machine transition.
	OnTransition(ctx context.Context, pkg, from, to string)
}

// CacheHooks receives lookups and writes of cached upstream responses.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, key string)
	OnCacheMiss(ctx context.Context, key string)
	OnCacheSet(ctx context.Context, key string, size int)
}

// HTTPHooks receives every registry and GitHub API call.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError reports a transport failure with no response.
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopPipelineHooks ignores every event. Embed it to implement a subset.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnCheckStart(context.Context, string, string) {}
func (NoopPipelineHooks) OnCheckComplete(context.Context, string, string, string, time.Duration, error) {
}

// NoopGateHooks ignores every event.
type NoopGateHooks struct{}

func (NoopGateHooks) OnMirrorCheck(context.Context, string, string, bool, error) {}
func (NoopGateHooks) OnDispatch(context.Context, string, string, error)          {}
func (NoopGateHooks) OnPoll(context.Context, string, int64, string, string)      {}
func (NoopGateHooks) OnTransition(context.Context, string, string, string)       {}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// slot holds one installed hook implementation.
type slot[T any] struct {
	mu   sync.RWMutex
	cur  T
	noop T
}

func newSlot[T any](noop T) *slot[T] { return &slot[T]{cur: noop, noop: noop} }

func (s *slot[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// set installs h. A nil h keeps the current implementation.
func (s *slot[T]) set(h T) {
	if any(h) == nil {
		return
	}
	s.mu.Lock()
	s.cur = h
	s.mu.Unlock()
}

func (s *slot[T]) reset() {
	s.mu.Lock()
	s.cur = s.noop
	s.mu.Unlock()
}

var (
	pipelineSlot = newSlot[PipelineHooks](NoopPipelineHooks{})
	gateSlot     = newSlot[GateHooks](NoopGateHooks{})
	cacheSlot    = newSlot[CacheHooks](NoopCacheHooks{})
	httpSlot     = newSlot[HTTPHooks](NoopHTTPHooks{})
)

// SetPipelineHooks installs pipeline hooks, typically once per command.
func SetPipelineHooks(h PipelineHooks) { pipelineSlot.set(h) }

// SetGateHooks installs gate hooks.
func SetGateHooks(h GateHooks) { gateSlot.set(h) }

// SetCacheHooks installs cache hooks.
func SetCacheHooks(h CacheHooks) { cacheSlot.set(h) }

// SetHTTPHooks installs HTTP client hooks.
func SetHTTPHooks(h HTTPHooks) { httpSlot.set(h) }

// Pipeline returns the installed pipeline hooks.
func Pipeline() PipelineHooks { return pipelineSlot.get() }

// Gate returns the installed gate hooks.
func Gate() GateHooks { return gateSlot.get() }

// Cache returns the installed cache hooks.
func Cache() CacheHooks { return cacheSlot.get() }

// HTTP returns the installed HTTP hooks.
func HTTP() HTTPHooks { return httpSlot.get() }

// Reset restores every no-op default. Tests that install hooks defer it.
func Reset() {
	pipelineSlot.reset()
	gateSlot.reset()
	cacheSlot.reset()
	httpSlot.reset()
}
