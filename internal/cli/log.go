package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackgate/pkg/observability"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs completion of an operation with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Checked 12 packages (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// debugHooks logs observability events at debug level.
type debugHooks struct {
	logger *log.Logger
}

func installDebugHooks(l *log.Logger) {
	h := debugHooks{logger: l.WithPrefix("trace")}
	observability.SetHTTPHooks(h)
	observability.SetCacheHooks(h)
	observability.SetGateHooks(h)
}

func (h debugHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("request", "method", method, "host", host, "path", path)
}

func (h debugHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "host", host, "path", path, "status", status, "duration", d.Round(time.Millisecond))
}

func (h debugHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("request failed", "method", method, "host", host, "path", path, "err", err)
}

func (h debugHooks) OnCacheHit(_ context.Context, key string) {
	h.logger.Debug("cache hit", "key", key)
}
func (h debugHooks) OnCacheMiss(_ context.Context, key string) {
	h.logger.Debug("cache miss", "key", key)
}
func (h debugHooks) OnCacheSet(_ context.Context, key string, size int) {
	h.logger.Debug("cache set", "key", key, "bytes", size)
}

func (h debugHooks) OnMirrorCheck(_ context.Context, pkg, version string, present bool, err error) {
	h.logger.Debug("mirror check", "package", pkg, "version", version, "present", present, "err", err)
}

func (h debugHooks) OnDispatch(_ context.Context, pkg, spec string, err error) {
	h.logger.Debug("dispatch", "package", pkg, "spec", spec, "err", err)
}

func (h debugHooks) OnPoll(_ context.Context, pkg string, runID int64, status, conclusion string) {
	h.logger.Debug("poll", "package", pkg, "run", runID, "status", status, "conclusion", conclusion)
}

func (h debugHooks) OnTransition(_ context.Context, pkg, from, to string) {
	h.logger.Debug("gate", "package", pkg, "from", from, "to", to)
}
