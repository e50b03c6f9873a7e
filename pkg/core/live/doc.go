// Package live orchestrates a duplex, turn-based voice conversation
// with a remote conversational audio model.
//
// A Session owns three moving parts: the microphone capture pipeline,
// the bidirectional transport channel, and the playback scheduler. All
// of them feed a single event loop through one inbox, so every state
// transition is applied by exactly one goroutine and inputs take effect
// in the order they arrived.
//
// The session moves through six modes:
//
//	Inactive -> Connecting -> Ready -> Listening -> Thinking -> Speaking
//
// Listening streams encoded microphone frames to the remote model.
// Releasing the microphone appends a short silence marker and moves to
// Thinking; the first synthesized reply chunk moves to Speaking; once
// playback drains, a short debounce returns the session to Ready.
// Turning the microphone back on at any point cuts playback immediately
// and returns to Listening (barge-in). Any transport failure or Close
// call lands in Inactive, which is terminal.
package live
