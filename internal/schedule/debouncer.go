// Package schedule provides the coalescing primitives the reconciler runs
// on: a debouncer collapsing clustered informer events into a single
// callback, and a cron-backed periodic trigger.
package schedule

import (
	"sync"
	"time"
)

// Debouncer collects keys into a deduplicating set and, once per quiet
// window, drains the set into a single flush call. The first key added to an
// empty set arms the timer; keys added while the timer is pending coalesce
// into the same flush.
type Debouncer struct {
	delay time.Duration
	flush func(keys []string)

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewDebouncer returns a debouncer invoking flush with the drained key set
// delay after the first Add.
func NewDebouncer(delay time.Duration, flush func(keys []string)) *Debouncer {
	return &Debouncer{
		delay:   delay,
		flush:   flush,
		pending: make(map[string]struct{}),
	}
}

// Add enqueues a key. Duplicate keys within one window collapse.
func (d *Debouncer) Add(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	arm := len(d.pending) == 0
	d.pending[key] = struct{}{}
	if arm {
		time.AfterFunc(d.delay, d.drain)
	}
}

func (d *Debouncer) drain() {
	d.mu.Lock()
	keys := make([]string, 0, len(d.pending))
	for key := range d.pending {
		keys = append(keys, key)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	d.flush(keys)
}
