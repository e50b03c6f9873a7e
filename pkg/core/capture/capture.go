// Package capture acquires a microphone source and slices its delivery
// stream into fixed-size frames for encoding and transport.
package capture

// Config describes how the microphone is opened.
type Config struct {
	// SampleRate in Hz. Default: 16000, the wire rate for model input.
	SampleRate int

	// Channels is the number of capture channels. Default: 1 (mono).
	Channels int

	// FrameSize is the number of samples delivered per frame callback.
	// Default: 4096 (~256ms at 16kHz).
	FrameSize int

	// Device-layer processing hints. Applied where the audio backend
	// supports them; harmless elsewhere.
	EchoCancel    bool
	NoiseSuppress bool
	AutoGain      bool
}

// DefaultConfig returns the standard capture configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:    16000,
		Channels:      1,
		FrameSize:     4096,
		EchoCancel:    true,
		NoiseSuppress: true,
		AutoGain:      true,
	}
}

// FrameFunc receives exactly one fixed-size frame of normalized samples.
// The slice is owned by the receiver; it is never reused by the pipeline.
type FrameFunc func(frame []float32)

// Device is an open microphone source. Start begins frame delivery;
// Close stops the device and releases it. Close is idempotent.
type Device interface {
	Start() error
	Close() error
}

// Pipeline re-slices arbitrarily sized device deliveries into fixed
// FrameSize frames, carrying any remainder to the next delivery. Samples
// are forwarded in capture order.
//
// Push is only ever called from the device's data callback, so the
// pipeline needs no locking.
type Pipeline struct {
	frameSize int
	pending   []float32
	onFrame   FrameFunc
}

// NewPipeline creates a pipeline emitting frames of frameSize samples.
func NewPipeline(frameSize int, onFrame FrameFunc) *Pipeline {
	return &Pipeline{
		frameSize: frameSize,
		pending:   make([]float32, 0, frameSize),
		onFrame:   onFrame,
	}
}

// Push appends a device delivery and emits as many full frames as it
// completes.
func (p *Pipeline) Push(samples []float32) {
	p.pending = append(p.pending, samples...)
	for len(p.pending) >= p.frameSize {
		frame := make([]float32, p.frameSize)
		copy(frame, p.pending[:p.frameSize])
		p.pending = p.pending[p.frameSize:]
		if p.onFrame != nil {
			p.onFrame(frame)
		}
	}
}

// Pending returns the number of buffered samples awaiting a full frame.
func (p *Pipeline) Pending() int {
	return len(p.pending)
}
