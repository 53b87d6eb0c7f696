package schedule

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flushRecorder struct {
	mu      sync.Mutex
	flushes [][]string
}

func (r *flushRecorder) record(keys []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes = append(r.flushes, keys)
}

func (r *flushRecorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.flushes))
	copy(out, r.flushes)
	return out
}

func TestDebouncerCoalescesDuplicateKeys(t *testing.T) {
	recorder := &flushRecorder{}
	d := NewDebouncer(20*time.Millisecond, recorder.record)

	for i := 0; i < 5; i++ {
		d.Add("openshift-ingress/router-kas")
	}

	assert.Eventually(t, func() bool {
		return len(recorder.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	flushes := recorder.snapshot()
	require.Len(t, flushes, 1)
	assert.Equal(t, []string{"openshift-ingress/router-kas"}, flushes[0])
}

func TestDebouncerDistinctKeysShareOneWindow(t *testing.T) {
	recorder := &flushRecorder{}
	d := NewDebouncer(20*time.Millisecond, recorder.record)

	d.Add("openshift-ingress/router-kas")
	d.Add("openshift-ingress/router-kas-a")
	d.Add("openshift-ingress/router-kas-b")

	assert.Eventually(t, func() bool {
		return len(recorder.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	flushes := recorder.snapshot()
	require.Len(t, flushes, 1)
	assert.Len(t, flushes[0], 3)
}

func TestDebouncerRearmsAfterDrain(t *testing.T) {
	recorder := &flushRecorder{}
	d := NewDebouncer(10*time.Millisecond, recorder.record)

	d.Add("openshift-ingress/router-kas")
	assert.Eventually(t, func() bool {
		return len(recorder.snapshot()) == 1
	}, time.Second, 2*time.Millisecond)

	d.Add("openshift-ingress/router-kas")
	assert.Eventually(t, func() bool {
		return len(recorder.snapshot()) == 2
	}, time.Second, 2*time.Millisecond)
}
