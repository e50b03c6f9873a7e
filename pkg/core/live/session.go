package live

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/quillvoice/quill/pkg/core"
	"github.com/quillvoice/quill/pkg/core/capture"
	"github.com/quillvoice/quill/pkg/core/pcm"
	"github.com/quillvoice/quill/pkg/core/transport"
)

// Channel is the transport surface a session drives.
type Channel interface {
	SendAudio(data []byte) error
	SendText(text string) error
	Events() <-chan transport.Event
	Close() error
}

// Dialer opens a transport channel. The default wraps transport.Connect.
type Dialer func(ctx context.Context, cfg transport.Config) (Channel, error)

// MicOpener opens a capture device. The default wraps capture.Open.
type MicOpener func(cfg capture.Config, onFrame capture.FrameFunc) (capture.Device, error)

// Deps are the session's pluggable backends. Zero-value Dial and
// OpenMic use the real transport and microphone; Player is required.
type Deps struct {
	Dial    Dialer
	OpenMic MicOpener
	Player  Player
}

// Session orchestrates one duplex voice conversation. It owns the
// microphone, the transport channel, and the playback timeline, and
// applies every input on a single event loop so transitions happen in
// arrival order.
type Session struct {
	config SessionConfig
	deps   Deps
	log    *slog.Logger
	id     string

	mu         sync.RWMutex
	mode       Mode
	started    bool
	connecting bool

	channel Channel
	mic     capture.Device
	idle    *deferredAction

	inbox  chan input
	events chan Event
	done   chan struct{}
	closed atomic.Bool
}

// Inputs posted to the session inbox. One loop goroutine consumes them,
// so ordering between a microphone toggle and the frames around it is
// exactly the ordering of the posts.
type input interface{}

type micToggleInput struct{ on bool }
type micFrameInput struct{ samples []float32 }
type remoteInput struct{ ev transport.Event }
type playerIdleInput struct{}
type idleExpiredInput struct{}
type sendTextInput struct{ text string }
type closeInput struct{ reason string }

// NewSession creates a session in Inactive mode. Connect starts it.
func NewSession(config SessionConfig, deps Deps) *Session {
	config = config.withDefaults()
	if deps.Dial == nil {
		deps.Dial = func(ctx context.Context, cfg transport.Config) (Channel, error) {
			return transport.Connect(ctx, cfg)
		}
	}
	if deps.OpenMic == nil {
		deps.OpenMic = capture.Open
	}

	s := &Session{
		config: config,
		deps:   deps,
		log:    config.Logger,
		id:     uuid.NewString(),
		mode:   ModeInactive,
		inbox:  make(chan input, 256),
		events: make(chan Event, 100),
		done:   make(chan struct{}),
	}
	s.idle = newDeferredAction(config.ReturnToReadyDelay, func() {
		s.post(idleExpiredInput{})
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Mode returns the current session mode.
func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Events returns the channel for receiving session events. It is closed
// after the final ClosedEvent.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Connect dials the remote model and opens the microphone. The
// microphone is only touched after the transport handshake succeeds, so
// a failed or timed-out connection never claims the device. On success
// the session is Ready.
func (s *Session) Connect(ctx context.Context) error {
	if s.config.APIKey == "" {
		return core.NewConfigurationError("missing API key")
	}

	s.mu.Lock()
	if s.started || s.connecting {
		s.mu.Unlock()
		return core.NewConfigurationError("session already started")
	}
	if s.closed.Load() {
		s.mu.Unlock()
		return core.NewConfigurationError("session closed")
	}
	// While the attempt is in flight, Close defers its teardown to
	// failConnect so the event channel is never closed under an emit and
	// a freshly acquired device cannot leak.
	s.connecting = true
	s.mu.Unlock()

	s.setMode(ModeConnecting)

	ch, err := s.deps.Dial(ctx, transport.Config{
		APIKey:            s.config.APIKey,
		Model:             s.config.Model,
		SystemInstruction: s.config.SystemInstruction,
		Voice:             s.config.Voice,
		BaseURL:           s.config.BaseURL,
		HandshakeTimeout:  s.config.HandshakeTimeout,
		Logger:            s.log,
	})
	if err != nil {
		return s.failConnect(err, nil, nil)
	}

	micCfg := capture.DefaultConfig()
	micCfg.SampleRate = s.config.InputSampleRate
	micCfg.FrameSize = s.config.FrameSize
	mic, err := s.deps.OpenMic(micCfg, s.onMicFrame)
	if err != nil {
		return s.failConnect(err, nil, ch)
	}
	if err := mic.Start(); err != nil {
		return s.failConnect(err, mic, ch)
	}

	s.mu.Lock()
	if s.closed.Load() {
		// Close arrived while resources were being acquired.
		s.mu.Unlock()
		return s.failConnect(core.NewConfigurationError("session closed"), mic, ch)
	}
	s.channel = ch
	s.mic = mic
	s.started = true
	s.connecting = false
	s.mu.Unlock()

	s.deps.Player.SetOnIdle(func() {
		s.post(playerIdleInput{})
	})

	go s.loop()
	go s.pumpRemote(ch)

	s.setMode(ModeReady)
	s.log.Info("session connected", "session_id", s.id, "model", s.config.Model)
	return nil
}

// failConnect unwinds a connect attempt that did not reach Ready,
// releasing whatever the attempt had acquired. If Close landed while the
// attempt was in flight, the deferred tail events and channel closes run
// here, exactly once.
func (s *Session) failConnect(err error, mic capture.Device, ch Channel) error {
	if mic != nil {
		_ = mic.Close()
	}
	if ch != nil {
		_ = ch.Close()
	}
	s.setMode(ModeInactive)

	s.mu.Lock()
	s.connecting = false
	closed := s.closed.Load()
	s.mu.Unlock()

	if closed {
		s.emit(&ClosedEvent{Reason: "closed"})
		close(s.done)
		close(s.events)
	}
	return err
}

// SetMicrophone turns capture streaming on or off. Turning it on during
// playback cuts the reply immediately (barge-in); turning it off
// commits the user turn.
func (s *Session) SetMicrophone(on bool) {
	s.post(micToggleInput{on: on})
}

// SendText submits a complete typed user turn. Accepted only while the
// session is Ready.
func (s *Session) SendText(text string) {
	s.post(sendTextInput{text: text})
}

// Close shuts the session down. Safe to call from any goroutine, any
// number of times.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed.Swap(true) {
		s.mu.Unlock()
		return nil
	}
	connecting := s.connecting
	started := s.started
	s.mu.Unlock()

	if connecting {
		// A connect attempt is in flight; it observes the closed flag,
		// releases whatever it acquired, and finishes the teardown.
		return nil
	}
	if !started {
		// Never connected: there is no loop to unwind.
		s.setMode(ModeInactive)
		s.emit(&ClosedEvent{Reason: "closed"})
		close(s.done)
		close(s.events)
		return nil
	}

	s.post(closeInput{reason: "closed"})
	return nil
}

// post delivers an input to the loop, giving up once the session shuts
// down.
func (s *Session) post(in input) {
	select {
	case s.inbox <- in:
	case <-s.done:
	}
}

// onMicFrame runs on the capture callback thread. It must not block, so
// a full inbox drops the frame rather than stalling the device.
func (s *Session) onMicFrame(frame []float32) {
	select {
	case s.inbox <- micFrameInput{samples: frame}:
	case <-s.done:
	default:
	}
}

// pumpRemote forwards transport events into the inbox.
func (s *Session) pumpRemote(ch Channel) {
	for ev := range ch.Events() {
		s.post(remoteInput{ev: ev})
	}
}

func (s *Session) loop() {
	for in := range s.inbox {
		if s.handle(in) {
			return
		}
	}
}

// handle applies one input. It returns true when the session has shut
// down and the loop must exit.
func (s *Session) handle(in input) bool {
	switch in := in.(type) {
	case micToggleInput:
		s.handleMicToggle(in.on)
	case micFrameInput:
		s.handleMicFrame(in.samples)
	case remoteInput:
		return s.handleRemote(in.ev)
	case playerIdleInput:
		// Playback drained. Debounce the return to Ready so a chunk
		// arriving moments later resumes Speaking seamlessly.
		if s.Mode() == ModeSpeaking {
			s.idle.Start()
		}
	case idleExpiredInput:
		// A reply chunk or a mode change may have landed while the
		// debounce was pending; only a still-speaking session returns.
		if s.Mode() == ModeSpeaking {
			s.setMode(ModeReady)
		}
	case sendTextInput:
		s.handleSendText(in.text)
	case closeInput:
		s.shutdown(in.reason, nil)
		return true
	}
	return false
}

func (s *Session) handleMicToggle(on bool) {
	mode := s.Mode()
	if on {
		switch mode {
		case ModeReady, ModeThinking, ModeSpeaking:
			s.idle.Cancel()
			s.deps.Player.Flush()
			s.setMode(ModeListening)
		}
		return
	}

	if mode != ModeListening {
		return
	}
	// Committing the turn: one fixed silence marker tells the remote
	// endpointer the user is done.
	marker := pcm.SilenceS16LE(s.config.endOfTurnSamples())
	if err := s.channel.SendAudio(marker); err != nil {
		s.log.Warn("session: end-of-turn marker failed", "error", err)
	}
	s.setMode(ModeThinking)
}

func (s *Session) handleMicFrame(frame []float32) {
	if s.Mode() != ModeListening {
		// Frames race the toggle through the same inbox, so anything
		// arriving here is from before capture was enabled or after it
		// was released. The pipeline stays warm but nothing is sent and
		// the meter reads zero.
		s.emit(&VolumeEvent{Level: 0})
		return
	}

	s.emit(&VolumeEvent{Level: pcm.Volume(pcm.RMS(frame))})

	if err := s.channel.SendAudio(pcm.EncodeS16LE(frame)); err != nil {
		// The transport surfaces a terminal ClosedEvent on its own.
		s.log.Warn("session: frame send failed", "error", err)
	}
}

func (s *Session) handleRemote(ev transport.Event) bool {
	switch ev := ev.(type) {
	case transport.AudioEvent:
		s.handleReplyAudio(ev.Data)
	case transport.TextEvent:
		s.emit(&TranscriptEvent{Text: ev.Text})
	case transport.InterruptedEvent:
		s.emit(&InterruptedEvent{})
		if s.Mode() == ModeSpeaking {
			s.idle.Cancel()
			s.deps.Player.Flush()
			s.setMode(ModeReady)
		}
	case transport.TurnCompleteEvent:
		s.emit(&TurnCompleteEvent{})
	case transport.ClosedEvent:
		if ev.Err != nil {
			s.shutdown("transport closed", core.NewTransportClosedError(ev.Err))
		} else {
			s.shutdown("remote closed", nil)
		}
		return true
	}
	return false
}

func (s *Session) handleReplyAudio(data []byte) {
	switch s.Mode() {
	case ModeListening:
		// Stale tail of an interrupted reply; the user has already
		// moved on.
		return
	case ModeInactive, ModeConnecting:
		return
	case ModeReady, ModeThinking:
		s.setMode(ModeSpeaking)
	}

	s.idle.Cancel()
	s.deps.Player.Enqueue(pcm.DecodeS16LE(data))
}

func (s *Session) handleSendText(text string) {
	if s.Mode() != ModeReady {
		s.log.Warn("session: text input ignored outside Ready", "mode", s.Mode().String())
		return
	}
	if err := s.channel.SendText(text); err != nil {
		s.log.Warn("session: text send failed", "error", err)
		return
	}
	s.setMode(ModeThinking)
}

// shutdown tears the session down in a single place: stop capture,
// discard playback, release the transport, then emit the tail events
// and close the stream.
func (s *Session) shutdown(reason string, err error) {
	s.closed.Store(true)
	s.idle.Cancel()

	s.mu.Lock()
	mic := s.mic
	ch := s.channel
	s.mu.Unlock()

	if mic != nil {
		if cerr := mic.Close(); cerr != nil {
			s.log.Warn("session: microphone close failed", "error", cerr)
		}
	}
	s.deps.Player.Flush()
	if cerr := s.deps.Player.Close(); cerr != nil {
		s.log.Warn("session: player close failed", "error", cerr)
	}
	if ch != nil {
		if cerr := ch.Close(); cerr != nil {
			s.log.Warn("session: channel close failed", "error", cerr)
		}
	}

	s.setMode(ModeInactive)
	if err != nil {
		s.log.Error("session failed", "session_id", s.id, "error", err)
		s.emit(&ErrorEvent{Code: string(core.TypeOf(err)), Message: err.Error()})
		reason = "error"
	}
	s.emit(&ClosedEvent{Reason: reason})

	close(s.done)
	close(s.events)
	s.log.Info("session closed", "session_id", s.id, "reason", reason)
}

func (s *Session) setMode(m Mode) {
	s.mu.Lock()
	old := s.mode
	s.mode = m
	s.mu.Unlock()

	if old != m {
		s.log.Debug("session mode", "from", old.String(), "to", m.String())
		s.emit(&ModeChangedEvent{From: old, To: m})
	}
}

// emit delivers an event without blocking the loop. A consumer that has
// fallen 100 events behind loses the oldest ones.
func (s *Session) emit(event Event) {
	select {
	case s.events <- event:
	default:
	}
}
