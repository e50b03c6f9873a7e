// Package transport implements the bidirectional streaming channel to the
// remote conversational audio model over the BidiGenerateContent WebSocket
// protocol.
//
// Outgoing audio is transmitted as base64-encoded PCM16 media chunks;
// incoming server messages are decoded into an ordered Event stream.
package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quillvoice/quill/pkg/core"
)

const (
	// DefaultModel is the live audio model used when none is configured.
	DefaultModel = "gemini-2.0-flash-live-001"

	// DefaultBaseURL is the production live endpoint.
	DefaultBaseURL = "wss://generativelanguage.googleapis.com/ws"

	// DefaultHandshakeTimeout bounds connect: dial, setup, and the
	// setupComplete ack must all land within this window.
	DefaultHandshakeTimeout = 10 * time.Second

	// InputMIMEType tags outgoing media chunks.
	InputMIMEType = "audio/pcm;rate=16000"

	keepaliveInterval = 20 * time.Second
	keepaliveTimeout  = 5 * time.Second
)

// Config holds everything needed to open a channel.
type Config struct {
	// APIKey authenticates the connection. Required.
	APIKey string

	// Model is the live model identifier. Default: DefaultModel.
	Model string

	// SystemInstruction primes the model for the conversation.
	SystemInstruction string

	// Voice selects a prebuilt voice for synthesized replies. Optional.
	Voice string

	// BaseURL overrides the WebSocket endpoint. Used by tests to point
	// at a local mock server.
	BaseURL string

	// HandshakeTimeout bounds Connect. Default: DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration

	// Logger for decode warnings. Nil means slog.Default().
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Channel is an open bidirectional session. Send methods may be called
// from a single goroutine; Close may be called from any goroutine, any
// number of times.
type Channel struct {
	conn *websocket.Conn
	log  *slog.Logger

	events chan Event
	done   chan struct{}

	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
}

// Connect dials the endpoint, sends the setup message, and waits for the
// setupComplete ack. It fails with a ConfigurationError before any dial
// when the API key is missing, and with a ConnectionError when the
// handshake fails or does not complete within the timeout.
func Connect(ctx context.Context, cfg Config) (*Channel, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		return nil, core.NewConfigurationError("missing API key")
	}

	url := fmt.Sprintf(
		"%s/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent?key=%s",
		cfg.BaseURL, cfg.APIKey,
	)

	dialCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return nil, core.NewConnectionError("dial", err)
	}

	if err := conn.WriteJSON(buildSetup(cfg)); err != nil {
		conn.Close()
		return nil, core.NewConnectionError("send setup", err)
	}

	// The first server message must be the setupComplete ack.
	_ = conn.SetReadDeadline(time.Now().Add(cfg.HandshakeTimeout))
	var first serverMessage
	if err := conn.ReadJSON(&first); err != nil {
		conn.Close()
		return nil, core.NewConnectionError("handshake", err)
	}
	if first.SetupComplete == nil {
		conn.Close()
		return nil, core.NewConnectionError("handshake: unexpected first message", nil)
	}
	_ = conn.SetReadDeadline(time.Time{})

	ch := &Channel{
		conn:   conn,
		log:    cfg.Logger,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
	go ch.receiveLoop()
	go ch.keepaliveLoop()
	return ch, nil
}

func buildSetup(cfg Config) setupMessage {
	msg := setupMessage{
		Setup: setupConfig{
			Model: fmt.Sprintf("models/%s", cfg.Model),
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"audio"},
			},
		},
	}
	if cfg.SystemInstruction != "" {
		msg.Setup.SystemInstruction = &systemInstruction{
			Parts: []part{{Text: cfg.SystemInstruction}},
		}
	}
	if cfg.Voice != "" {
		msg.Setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	return msg
}

// Events returns the ordered receive stream. The final event is always a
// ClosedEvent, after which the channel is closed.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// SendAudio transmits one encoded PCM16 chunk as a realtime media chunk.
func (c *Channel) SendAudio(data []byte) error {
	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []mediaChunk{{
				MIMEType: InputMIMEType,
				Data:     base64.StdEncoding.EncodeToString(data),
			}},
		},
	}
	return c.writeJSON(msg)
}

// SendText submits a complete user text turn.
func (c *Channel) SendText(text string) error {
	msg := clientContentMessage{
		ClientContent: clientContent{
			Turns: []contentTurn{{
				Role:  "user",
				Parts: []part{{Text: text}},
			}},
			TurnComplete: true,
		},
	}
	return c.writeJSON(msg)
}

func (c *Channel) writeJSON(v any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("transport: channel closed")
	}
	c.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Close releases the underlying socket exactly once. Calls after the
// channel already closed are no-ops, not errors.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
		deadline,
	)
	close(c.done)
	return c.conn.Close()
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// receiveLoop reads server messages and emits events in arrival order.
// It owns the events channel: the loop emits the terminal ClosedEvent
// and closes the channel when it exits.
func (c *Channel) receiveLoop() {
	var closeErr error
	defer func() {
		// Terminal event; never blocks so a departed consumer cannot
		// wedge shutdown.
		select {
		case c.events <- ClosedEvent{Err: closeErr}:
		default:
		}
		close(c.events)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.isClosed() {
				closeErr = err
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed frame: drop it and keep the session alive.
			c.log.Warn("transport: dropping malformed frame", "error", err)
			continue
		}
		c.handleServerMessage(&msg)
	}
}

func (c *Channel) handleServerMessage(msg *serverMessage) {
	if msg.Error != nil {
		c.log.Warn("transport: remote error",
			"code", msg.Error.Code, "status", msg.Error.Status, "message", msg.Error.Message)
	}

	sc := msg.ServerContent
	if sc == nil {
		return
	}

	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData != nil {
				audio, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil || len(audio) == 0 {
					c.log.Warn("transport: dropping undecodable audio payload",
						"error", core.NewDecodeError("inline data", err))
					continue
				}
				c.emit(AudioEvent{Data: audio})
			}
			if p.Text != "" {
				c.emit(TextEvent{Text: p.Text})
			}
		}
	}
	if sc.Interrupted {
		c.emit(InterruptedEvent{})
	}
	if sc.TurnComplete {
		c.emit(TurnCompleteEvent{})
	}
}

// emit delivers an event in order, blocking until the consumer takes it
// or the channel shuts down. Dropping would break the ordering contract.
func (c *Channel) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// keepaliveLoop pings the remote so idle turns do not let intermediaries
// drop the connection.
func (c *Channel) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(keepaliveTimeout)
			_ = c.conn.WriteControl(websocket.PingMessage, nil, deadline)
		}
	}
}
