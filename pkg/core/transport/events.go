package transport

// Event is one message received from the remote model. Events are
// delivered on a single stream in the order the remote produced them;
// the channel performs no reordering.
type Event interface {
	// EventType returns the event type string for logging.
	EventType() string
}

// AudioEvent carries one synthesized speech payload, already
// base64-decoded: 24 kHz mono PCM16 little-endian.
type AudioEvent struct {
	Data []byte
}

func (AudioEvent) EventType() string { return "audio" }

// TextEvent carries transcript-style text from the model turn.
type TextEvent struct {
	Text string
}

func (TextEvent) EventType() string { return "text" }

// TurnCompleteEvent signals the remote finished producing its turn.
type TurnCompleteEvent struct{}

func (TurnCompleteEvent) EventType() string { return "turn_complete" }

// InterruptedEvent signals the remote detected the user barging in and
// abandoned the rest of its turn.
type InterruptedEvent struct{}

func (InterruptedEvent) EventType() string { return "interrupted" }

// ClosedEvent is the final event on the stream. Err is nil when the
// channel was closed by the local side; otherwise it carries the read
// error that terminated the connection.
type ClosedEvent struct {
	Err error
}

func (ClosedEvent) EventType() string { return "closed" }
