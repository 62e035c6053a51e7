// Package pool provides pooled timers for the timeout races that bound
// every blocking operation in linknode.
package pool

import (
	"sync"
	"time"
)

var timerPool = sync.Pool{
	New: func() any {
		t := time.NewTimer(time.Hour)
		t.Stop()
		return t
	},
}

// GetTimer returns a timer armed with duration d from the pool.
//
// Return the timer to the pool with PutTimer when done.
func GetTimer(d time.Duration) *time.Timer {
	t, _ := timerPool.Get().(*time.Timer)
	if t.Reset(d) {
		// the timer was still active, drain a possible stale tick
		select {
		case <-t.C:
		default:
		}
	}

	return t
}

// PutTimer stops the timer and returns it to the pool.
//
// t must not be accessed after returning to the pool.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		// drain t.C if the tick wasn't consumed by the caller
		select {
		case <-t.C:
		default:
		}
	}
	timerPool.Put(t)
}
