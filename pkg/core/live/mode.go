package live

// Mode represents the current state of the live session.
type Mode int

const (
	// ModeInactive is the state before Connect and after any shutdown.
	// It is terminal once the session has run.
	ModeInactive Mode = iota
	// ModeConnecting is the window between Connect and the transport
	// handshake completing.
	ModeConnecting
	// ModeReady is the idle conversational state: connected, microphone
	// off, nothing playing.
	ModeReady
	// ModeListening is when microphone frames stream to the remote model.
	ModeListening
	// ModeThinking is the wait between committing the user turn and the
	// first synthesized reply chunk.
	ModeThinking
	// ModeSpeaking is when synthesized reply audio is playing.
	ModeSpeaking
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeInactive:
		return "INACTIVE"
	case ModeConnecting:
		return "CONNECTING"
	case ModeReady:
		return "READY"
	case ModeListening:
		return "LISTENING"
	case ModeThinking:
		return "THINKING"
	case ModeSpeaking:
		return "SPEAKING"
	default:
		return "UNKNOWN"
	}
}
