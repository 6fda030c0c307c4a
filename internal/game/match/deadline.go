package match

import (
	"sync"
	"time"
)

// Deadline fires a callback once a wall-clock budget elapses unless stopped.
// It is safe for concurrent use.
type Deadline struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDeadline starts a deadline that calls onExpire after budget.
// onExpire runs on its own goroutine.
//
// Precondition: budget > 0; onExpire must not be nil.
// Postcondition: onExpire will be called unless Stop is called first.
func NewDeadline(budget time.Duration, onExpire func()) *Deadline {
	d := &Deadline{}
	d.timer = time.AfterFunc(budget, d.guard(onExpire))
	return d
}

func (d *Deadline) guard(onExpire func()) func() {
	return func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			onExpire()
		}
	}
}

// Extend cancels the pending expiry and restarts the budget from now.
//
// Precondition: budget > 0; onExpire must not be nil.
// Postcondition: onExpire will be called after budget from now unless Stop is called first.
func (d *Deadline) Extend(budget time.Duration, onExpire func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = false
	d.timer.Stop()
	d.timer = time.AfterFunc(budget, d.guard(onExpire))
}

// Stop prevents the callback from firing. Safe to call multiple times.
//
// Postcondition: onExpire will not be called after Stop returns.
func (d *Deadline) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.timer.Stop()
}
