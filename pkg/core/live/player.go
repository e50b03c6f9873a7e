package live

import (
	"github.com/quillvoice/quill/pkg/core/playback"
)

// Player is the playback surface a session drives. Enqueue appends one
// reply segment to the gapless timeline, Flush discards everything
// queued or playing, and the idle callback fires when the timeline
// drains.
type Player interface {
	Enqueue(samples []float32)
	Flush()
	SetOnIdle(fn func())
	Close() error
}

// schedulerPlayer adapts a playback.Scheduler to the Player surface.
type schedulerPlayer struct {
	s *playback.Scheduler
}

// NewSchedulerPlayer wraps a playback scheduler for use as a session
// player.
func NewSchedulerPlayer(s *playback.Scheduler) Player {
	return &schedulerPlayer{s: s}
}

func (p *schedulerPlayer) Enqueue(samples []float32) { p.s.Enqueue(samples) }
func (p *schedulerPlayer) Flush()                    { p.s.Flush() }
func (p *schedulerPlayer) SetOnIdle(fn func())       { p.s.SetOnIdle(fn) }
func (p *schedulerPlayer) Close() error              { return p.s.Close() }
