// Package bridgeerr defines the error taxonomy shared by every bridge
// component, so callers can branch with errors.Is/errors.As instead of
// string matching.
package bridgeerr

import "errors"

// Sentinel kinds from the error handling design. Components wrap these
// with context via fmt.Errorf("...: %w", err).
var (
	// ErrTransport covers TCP resets, TLS failures, and abnormal WS closes.
	ErrTransport = errors.New("transport error")

	// ErrHandshake covers a missing session.created within the handshake timeout.
	ErrHandshake = errors.New("handshake error")

	// ErrProtocol covers malformed JSON or a frame missing a required field.
	ErrProtocol = errors.New("protocol error")

	// ErrRateLimit covers a send-path budget violation.
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrAudioFormat covers an unsupported codec or media format.
	ErrAudioFormat = errors.New("unsupported audio format")

	// ErrQueueFull covers a producer outrunning a bounded consumer queue.
	ErrQueueFull = errors.New("queue full")

	// ErrRemote covers a fatal error event reported by the upstream peer.
	ErrRemote = errors.New("remote error")

	// ErrCancelledResponse covers a delta arriving for a response_id that
	// is no longer active.
	ErrCancelledResponse = errors.New("response cancelled")

	// ErrAudioLoad covers an unreadable audio container on the file-load path.
	ErrAudioLoad = errors.New("audio load error")
)
