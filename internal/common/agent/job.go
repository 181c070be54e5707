// internal/common/agent/job.go
package agent

import (
	"sync"
	"time"

	"rehmat-agent/internal/common/logger"
)

// JobContext is what an entrypoint gets for one room.
type JobContext struct {
	ID          string
	Room        Room
	Participant Participant
	Process     *Process
	Scheduler   Scheduler
	Logger      logger.Logger

	mu      sync.Mutex
	timers  []Timer
	stopped bool
}

// Schedule runs f after d unless the job has ended by then. Pending
// callbacks are stopped best effort when the job ends.
func (jc *JobContext) Schedule(d time.Duration, f func()) {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	if jc.stopped {
		return
	}
	jc.timers = append(jc.timers, jc.Scheduler.AfterFunc(d, func() {
		jc.mu.Lock()
		stopped := jc.stopped
		jc.mu.Unlock()
		if !stopped {
			f()
		}
	}))
}

// StopTimers cancels every pending callback. It returns how many were still
// pending.
func (jc *JobContext) StopTimers() int {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	jc.stopped = true
	n := 0
	for _, t := range jc.timers {
		if t.Stop() {
			n++
		}
	}
	jc.timers = nil
	return n
}
