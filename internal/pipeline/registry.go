package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Operation names used by the registry, the API, and the scheduler.
const (
	OpFetch      = "fetch"
	OpProcess    = "process"
	OpSynthesize = "synthesize"
)

// ErrAlreadyRunning is returned when an operation is requested while an
// instance of it is still in flight.
var ErrAlreadyRunning = errors.New("operation already running")

// Operations tracks in-flight pipeline operations so the same stage never
// runs concurrently with itself. Scheduled and manually triggered runs share
// one registry.
type Operations struct {
	mu      sync.Mutex
	running map[string]time.Time
}

// NewOperations creates an empty registry.
func NewOperations() *Operations {
	return &Operations{running: make(map[string]time.Time)}
}

// Begin marks an operation as running and returns its release function.
// A second Begin for the same name before release fails with ErrAlreadyRunning.
func (o *Operations) Begin(name string) (func(), error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if since, ok := o.running[name]; ok {
		return nil, fmt.Errorf("%s (since %s): %w", name, since.UTC().Format(time.RFC3339), ErrAlreadyRunning)
	}
	o.running[name] = time.Now()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.running, name)
			o.mu.Unlock()
		})
	}, nil
}

// Running returns a snapshot of in-flight operations and their start times.
func (o *Operations) Running() map[string]time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()

	snapshot := make(map[string]time.Time, len(o.running))
	for name, since := range o.running {
		snapshot[name] = since
	}
	return snapshot
}
