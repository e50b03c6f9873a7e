// Package playback schedules decoded audio segments against an output
// device so consecutive segments play back-to-back without gaps or
// overlap, and supports immediate flush-and-stop for interruption.
package playback

import (
	"log/slog"
	"sync"
	"time"
)

// Clock is a monotonic output clock.
type Clock interface {
	// Now returns the current position of the output clock.
	Now() time.Duration
}

// Device is an output sink that plays sample buffers at scheduled times.
//
// ScheduleBuffer must play buffers in the order their start times
// indicate and invoke done exactly once when the buffer finishes
// naturally. Reset discards everything scheduled without invoking the
// pending done callbacks; no audio may continue after Reset returns.
type Device interface {
	Clock
	ScheduleBuffer(samples []float32, start time.Duration, done func())
	Reset()
	Close() error
}

// Unit is one scheduled audio segment.
type Unit struct {
	Start    time.Duration
	Duration time.Duration
}

// Scheduler queues decoded segments and issues them to the device with
// monotonically increasing start times. Segments arrive in irregular
// network deliveries; the scheduled timeline stays smooth regardless.
type Scheduler struct {
	device     Device
	sampleRate int
	log        *slog.Logger

	mu        sync.Mutex
	nextStart time.Duration
	inflight  map[uint64]Unit
	seq       uint64
	onIdle    func()
	closed    bool
}

// NewScheduler creates a scheduler over the given device. sampleRate is
// the rate of the decoded segments (24000 for model replies).
func NewScheduler(device Device, sampleRate int, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		device:     device,
		sampleRate: sampleRate,
		log:        log,
		nextStart:  device.Now(),
		inflight:   make(map[uint64]Unit),
	}
}

// SetOnIdle registers the callback fired when the in-flight set drains
// after a unit finishes naturally. Flush does not fire it.
func (s *Scheduler) SetOnIdle(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onIdle = fn
}

// Enqueue schedules a decoded segment to start at max(cursor, clock now)
// and advances the cursor by the segment's duration.
func (s *Scheduler) Enqueue(samples []float32) Unit {
	dur := time.Duration(len(samples)) * time.Second / time.Duration(s.sampleRate)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Unit{}
	}
	start := s.nextStart
	if now := s.device.Now(); now > start {
		start = now
	}
	s.nextStart = start + dur

	s.seq++
	id := s.seq
	unit := Unit{Start: start, Duration: dur}
	s.inflight[id] = unit
	s.mu.Unlock()

	s.log.Debug("playback: scheduled", "start", start, "duration", dur, "samples", len(samples))
	s.device.ScheduleBuffer(samples, start, func() { s.finish(id) })
	return unit
}

// finish removes a naturally finished unit. A unit flushed before its
// done callback fires is already gone and must not raise idle.
func (s *Scheduler) finish(id uint64) {
	s.mu.Lock()
	if _, ok := s.inflight[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.inflight, id)
	drained := len(s.inflight) == 0
	fn := s.onIdle
	s.mu.Unlock()

	if drained && fn != nil {
		fn()
	}
}

// Flush immediately stops every in-flight unit, clears the in-flight set,
// and resets the cursor to zero. Used on interruption and when the user
// starts a new turn.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	n := len(s.inflight)
	s.inflight = make(map[uint64]Unit)
	s.nextStart = 0
	s.mu.Unlock()

	s.device.Reset()
	if n > 0 {
		s.log.Debug("playback: flushed", "units", n)
	}
}

// InFlight returns the number of scheduled units not yet finished.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Cursor returns the next scheduled start time.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// Close flushes and releases the output device.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.inflight = make(map[uint64]Unit)
	s.nextStart = 0
	s.mu.Unlock()

	s.device.Reset()
	return s.device.Close()
}
