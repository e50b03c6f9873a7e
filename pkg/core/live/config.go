package live

import (
	"log/slog"
	"time"

	"github.com/quillvoice/quill/pkg/core/pcm"
	"github.com/quillvoice/quill/pkg/core/transport"
)

// SessionConfig holds all configuration for a live session.
type SessionConfig struct {
	// APIKey authenticates the transport connection. Required.
	APIKey string `json:"-"`

	// Model is the conversational audio model. Default: transport.DefaultModel.
	Model string `json:"model"`

	// SystemInstruction primes the model for the conversation.
	SystemInstruction string `json:"system_instruction,omitempty"`

	// Voice selects a prebuilt voice for synthesized replies.
	Voice string `json:"voice,omitempty"`

	// BaseURL overrides the transport endpoint. Used by tests.
	BaseURL string `json:"base_url,omitempty"`

	// InputSampleRate is the microphone rate in Hz. Default: 16000.
	InputSampleRate int `json:"input_sample_rate"`

	// OutputSampleRate is the synthesized reply rate in Hz. Default: 24000.
	OutputSampleRate int `json:"output_sample_rate"`

	// FrameSize is the capture frame size in samples. Default: 4096.
	FrameSize int `json:"frame_size"`

	// EndOfTurnSilence is the length of the silence marker appended when
	// the microphone is released. Default: 500ms.
	EndOfTurnSilence time.Duration `json:"end_of_turn_silence"`

	// ReturnToReadyDelay is the debounce between playback draining and
	// the session returning to Ready. A reply chunk arriving inside the
	// window cancels the transition. Default: 200ms.
	ReturnToReadyDelay time.Duration `json:"return_to_ready_delay"`

	// HandshakeTimeout bounds Connect. Default: transport.DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration `json:"handshake_timeout"`

	// Logger for session diagnostics. Nil means slog.Default().
	Logger *slog.Logger `json:"-"`
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
// The API key must still be supplied by the caller.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Model:              transport.DefaultModel,
		InputSampleRate:    pcm.InputSampleRate,
		OutputSampleRate:   pcm.OutputSampleRate,
		FrameSize:          4096,
		EndOfTurnSilence:   500 * time.Millisecond,
		ReturnToReadyDelay: 200 * time.Millisecond,
		HandshakeTimeout:   transport.DefaultHandshakeTimeout,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.Model == "" {
		c.Model = transport.DefaultModel
	}
	if c.InputSampleRate <= 0 {
		c.InputSampleRate = pcm.InputSampleRate
	}
	if c.OutputSampleRate <= 0 {
		c.OutputSampleRate = pcm.OutputSampleRate
	}
	if c.FrameSize <= 0 {
		c.FrameSize = 4096
	}
	if c.EndOfTurnSilence <= 0 {
		c.EndOfTurnSilence = 500 * time.Millisecond
	}
	if c.ReturnToReadyDelay <= 0 {
		c.ReturnToReadyDelay = 200 * time.Millisecond
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = transport.DefaultHandshakeTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// endOfTurnSamples is the sample count of the silence marker at the
// input rate.
func (c SessionConfig) endOfTurnSamples() int {
	return int(c.EndOfTurnSilence * time.Duration(c.InputSampleRate) / time.Second)
}
