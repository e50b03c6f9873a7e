package live

import (
	"sync"
	"time"
)

// deferredAction runs a callback once after a fixed delay unless it is
// cancelled or restarted first. Start resets the window; the callback
// runs on the timer goroutine.
type deferredAction struct {
	delay time.Duration
	fire  func()

	mu     sync.Mutex
	active bool
	timer  *time.Timer
}

func newDeferredAction(delay time.Duration, fire func()) *deferredAction {
	return &deferredAction{delay: delay, fire: fire}
}

// Start arms the timer, replacing any window already running.
func (d *deferredAction) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.active = true
	d.timer = time.AfterFunc(d.delay, d.expire)
}

func (d *deferredAction) expire() {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	d.mu.Unlock()

	d.fire()
}

// Cancel stops the window without running the callback. Cancelling an
// idle timer is a no-op.
func (d *deferredAction) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.active = false
}

// IsActive reports whether a window is currently armed.
func (d *deferredAction) IsActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}
