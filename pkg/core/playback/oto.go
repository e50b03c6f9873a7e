package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/quillvoice/quill/pkg/core/pcm"
)

// otoDevice plays scheduled buffers through the system speaker.
//
// The scheduler only ever hands it back-to-back buffers, so ordered
// append is sufficient to honor the scheduled timeline. The output clock
// is derived from samples actually served to the player, which keeps it
// monotonic across resets.
type otoDevice struct {
	sampleRate int
	otoCtx     *oto.Context

	mu       sync.Mutex
	segments []*otoSegment
	consumed int64 // samples served to the player, never reset
	player   *oto.Player
	playing  bool
	closed   bool
}

type otoSegment struct {
	data []byte
	done func()
}

// NewOtoDevice opens the system speaker at the given sample rate, mono.
func NewOtoDevice(sampleRate int) (Device, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		// Small buffer keeps interruption latency low.
		BufferSize: 100 * time.Millisecond,
	}
	otoCtx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("open speaker: %w", err)
	}
	<-ready

	return &otoDevice{sampleRate: sampleRate, otoCtx: otoCtx}, nil
}

func (d *otoDevice) Now() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return time.Duration(d.consumed) * time.Second / time.Duration(d.sampleRate)
}

func (d *otoDevice) ScheduleBuffer(samples []float32, _ time.Duration, done func()) {
	data := pcm.EncodeS16LE(samples)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.segments = append(d.segments, &otoSegment{data: data, done: done})

	// The player is created lazily on first audio and recreated after
	// each Reset so stale device-internal buffers never replay.
	if !d.playing {
		d.playing = true
		d.player = d.otoCtx.NewPlayer(d)
		d.player.Play()
	}
}

// Read implements io.Reader for the oto player. It serves queued segment
// bytes and pads with silence when the queue is empty so the player never
// stalls.
func (d *otoDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	var finished []func()
	for n < len(p) && len(d.segments) > 0 {
		seg := d.segments[0]
		c := copy(p[n:], seg.data)
		n += c
		seg.data = seg.data[c:]
		if len(seg.data) == 0 {
			d.segments = d.segments[1:]
			if seg.done != nil {
				finished = append(finished, seg.done)
			}
		}
	}
	d.consumed += int64(n / 2)

	for i := n; i < len(p); i++ {
		p[i] = 0
	}

	// Fire done callbacks off the critical section but still in order.
	if len(finished) > 0 {
		go func() {
			for _, fn := range finished {
				fn()
			}
		}()
	}
	return len(p), nil
}

// Reset discards every queued segment without firing its done callback
// and tears the player down so its internal buffer cannot keep playing.
func (d *otoDevice) Reset() {
	d.mu.Lock()
	d.segments = nil
	player := d.player
	wasPlaying := d.playing
	d.player = nil
	d.playing = false
	d.mu.Unlock()

	if wasPlaying && player != nil {
		player.Pause()
		player.Reset()
		_ = player.Close()
	}
}

func (d *otoDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.segments = nil
	player := d.player
	d.player = nil
	d.playing = false
	d.mu.Unlock()

	if player != nil {
		return player.Close()
	}
	return nil
}
