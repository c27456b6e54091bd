// Package monitoring abstracts error reporting so background loops can hand
// failures to an external service without depending on it.
package monitoring

import (
	"sync"
	"time"
)

// Tags annotate a captured error.
type Tags map[string]string

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags Tags)
	// Recover must be deferred directly; it reports a panic and re-panics.
	Recover()
	Flush(timeout time.Duration)
}

// NopMonitor drops everything.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, Tags) {}
func (NopMonitor) Recover()                     {}
func (NopMonitor) Flush(time.Duration)          {}

// OrNop returns m, or a NopMonitor when m is nil.
func OrNop(m Monitor) Monitor {
	if m == nil {
		return NopMonitor{}
	}
	return m
}

// Recorder keeps captured errors in memory. Tests use it to assert on what
// was reported.
type Recorder struct {
	mu     sync.Mutex
	errors []error
	tags   []Tags
}

func (r *Recorder) CaptureException(err error, tags Tags) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.errors = append(r.errors, err)
	r.tags = append(r.tags, tags)
	r.mu.Unlock()
}

// Captured returns the recorded errors and their tags.
func (r *Recorder) Captured() ([]error, []Tags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errors...), append([]Tags(nil), r.tags...)
}

func (r *Recorder) Recover()            {}
func (r *Recorder) Flush(time.Duration) {}
