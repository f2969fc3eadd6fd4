// Package metrics defines the minimal metrics seam used by the fetch and
// download paths.
//
// Design goals (intentionally opinionated):
//
//   - Core code depends only on Backend; concrete backends (Datadog, noop)
//     live in subpackages or behind the process-global registration.
//   - Recording must be cheap and safe to call before SetBackend runs.
package metrics

import (
	"strconv"
	"sync"
	"time"
)

// Labels carries metric dimensions as free-form key/value pairs.
type Labels map[string]string

// Backend is implemented by metric sinks.
//
// Implementations must be safe for concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Nop is a Backend that discards everything. It is the default backend so
// callers never need a nil check.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = Nop{}
)

// SetBackend installs the process-global backend.
//
// Edge cases:
//   - Passing nil restores the Nop backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = Nop{}
		return
	}
	backend = b
}

// Flush flushes the current backend.
func Flush() error {
	mu.RLock()
	b := backend
	mu.RUnlock()
	return b.Flush()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// RecordHTTP records one HTTP attempt (page fetch or file download).
//
// Inputs:
//   - status: HTTP status code; 0 means a transport-level failure.
//   - reqDur/respDur: time to first byte and total time; negative values
//     are skipped.
//   - bytes: downloaded body size; negative values are skipped.
func RecordHTTP(job string, status int, err error, reqDur, respDur time.Duration, bytes int64) {
	b := current()

	labels := Labels{"job": job, "status": statusLabel(status)}

	b.IncCounter("statfetch_http_requests_total", 1, labels)
	if err != nil {
		b.IncCounter("statfetch_http_errors_total", 1, labels)
	}
	if reqDur >= 0 {
		b.ObserveHistogram("statfetch_http_request_duration_seconds", reqDur.Seconds(), labels)
	}
	if respDur >= 0 {
		b.ObserveHistogram("statfetch_http_response_duration_seconds", respDur.Seconds(), labels)
	}
	if bytes >= 0 {
		b.ObserveHistogram("statfetch_http_download_bytes", float64(bytes), labels)
	}
}

// RecordSource records a per-source outcome (fetched, no_match, saved,
// save_failed, extract_failed, unreachable).
func RecordSource(job, sourceName, outcome string) {
	current().IncCounter("statfetch_source_total", 1, Labels{
		"job":     job,
		"source":  sourceName,
		"outcome": outcome,
	})
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
