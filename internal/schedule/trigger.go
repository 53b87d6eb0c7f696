package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger owns the process-wide cron scheduler driving periodic work. One
// scheduler is created and reused; each firing runs its job on a new
// goroutine.
type Trigger struct {
	cron *cron.Cron
}

// NewTrigger returns a stopped trigger.
func NewTrigger() *Trigger {
	return &Trigger{cron: cron.New()}
}

// Every schedules fn at a constant interval, first firing one interval after
// Start.
func (t *Trigger) Every(interval time.Duration, fn func()) {
	t.cron.Schedule(cron.Every(interval), cron.FuncJob(fn))
}

// Start begins firing scheduled jobs.
func (t *Trigger) Start() {
	t.cron.Start()
}

// Stop halts scheduling; the returned context is done once in-flight jobs
// have finished.
func (t *Trigger) Stop() context.Context {
	return t.cron.Stop()
}
