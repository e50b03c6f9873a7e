package live

// Event is the interface for all live session events.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// ModeChangedEvent is emitted on every session mode transition.
type ModeChangedEvent struct {
	From Mode `json:"from"`
	To   Mode `json:"to"`
}

func (e *ModeChangedEvent) EventType() string { return "mode.changed" }

// VolumeEvent carries the perceptual input level for the most recent
// microphone frame, emitted only while the session is listening.
type VolumeEvent struct {
	Level float64 `json:"level"`
}

func (e *VolumeEvent) EventType() string { return "audio.volume" }

// TranscriptEvent carries transcript-style text from the model turn.
type TranscriptEvent struct {
	Text string `json:"text"`
}

func (e *TranscriptEvent) EventType() string { return "transcript.delta" }

// InterruptedEvent is emitted when the remote model abandons its turn
// because the user barged in.
type InterruptedEvent struct{}

func (e *InterruptedEvent) EventType() string { return "response.interrupted" }

// TurnCompleteEvent is emitted when the remote model finishes producing
// its turn. Playback may still be draining when it arrives.
type TurnCompleteEvent struct{}

func (e *TurnCompleteEvent) EventType() string { return "turn.complete" }

// ErrorEvent is emitted when the session fails.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorEvent) EventType() string { return "error" }

// ClosedEvent is the final event of a session.
type ClosedEvent struct {
	Reason string `json:"reason,omitempty"`
}

func (e *ClosedEvent) EventType() string { return "session.closed" }
