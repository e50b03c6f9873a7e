package live

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDeferredActionFiresAfterDelay(t *testing.T) {
	var fired atomic.Int32
	d := newDeferredAction(20*time.Millisecond, func() { fired.Add(1) })

	d.Start()
	if !d.IsActive() {
		t.Fatal("should be active after Start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if fired.Load() != 1 {
		t.Fatalf("fired = %d, want 1", fired.Load())
	}
	if d.IsActive() {
		t.Error("should be inactive after firing")
	}
}

func TestDeferredActionCancelPreventsFire(t *testing.T) {
	var fired atomic.Int32
	d := newDeferredAction(20*time.Millisecond, func() { fired.Add(1) })

	d.Start()
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("fired = %d, want 0 after cancel", fired.Load())
	}
	if d.IsActive() {
		t.Error("should be inactive after cancel")
	}
}

func TestDeferredActionRestartResetsWindow(t *testing.T) {
	var fired atomic.Int32
	d := newDeferredAction(40*time.Millisecond, func() { fired.Add(1) })

	d.Start()
	time.Sleep(25 * time.Millisecond)
	d.Start() // restart inside the first window

	time.Sleep(25 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("fired before the restarted window elapsed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if fired.Load() != 1 {
		t.Fatalf("fired = %d, want exactly 1", fired.Load())
	}
}

func TestDeferredActionCancelWhenIdleIsNoop(t *testing.T) {
	d := newDeferredAction(10*time.Millisecond, func() {})
	d.Cancel()
	if d.IsActive() {
		t.Error("cancel on idle timer should leave it inactive")
	}
}
