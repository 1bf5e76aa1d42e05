package realtimeclient

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicebridge/bridge/internal/protocol/realtime"
)

// ResponseState mirrors spec §3's Response lifecycle
// (Created → InProgress → Done|Cancelled|Failed), adapted from the
// teacher's pkg/realtimeapi/state/response_tracker.go ResponseState.
type ResponseState int

const (
	ResponseStateIdle ResponseState = iota
	ResponseStateInProgress
	ResponseStateCompleted
	ResponseStateFailed
	ResponseStateCancelled
)

func (s ResponseState) String() string {
	switch s {
	case ResponseStateIdle:
		return "idle"
	case ResponseStateInProgress:
		return "in_progress"
	case ResponseStateFailed:
		return "failed"
	case ResponseStateCancelled:
		return "cancelled"
	default:
		return "completed"
	}
}

// Sentinel errors for response tracker operations (mirrors the
// teacher's naming, routed through bridgeerr-style wrapping where the
// caller needs a stable type).
var (
	ErrNoActiveResponse       = errors.New("realtimeclient: no active response")
	ErrResponseAlreadyActive  = errors.New("realtimeclient: response already active")
	ErrInvalidStateTransition = errors.New("realtimeclient: invalid response state transition")
)

// ResponseContext holds the state for the single response the spec
// allows to be active at a time (spec §3: "at most one response is
// active per call").
type ResponseContext struct {
	ResponseID string
	ItemID     string
	State      ResponseState
	StartTime  time.Time
	AudioData  []byte
	TextData   string
}

// ResponseTracker enforces the at-most-one-active-response invariant.
type ResponseTracker struct {
	mu      sync.RWMutex
	current *ResponseContext
}

func NewResponseTracker() *ResponseTracker {
	return &ResponseTracker{}
}

// StartResponse begins tracking a new response, generating IDs unless
// the caller already has them from an upstream response.created event.
func (rt *ResponseTracker) StartResponse(responseID string) (*ResponseContext, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.current != nil && rt.current.State == ResponseStateInProgress {
		return nil, ErrResponseAlreadyActive
	}

	if responseID == "" {
		responseID = "resp_" + uuid.NewString()[:8]
	}

	rt.current = &ResponseContext{
		ResponseID: responseID,
		State:      ResponseStateInProgress,
		StartTime:  time.Now(),
	}
	return rt.current, nil
}

// GetCurrentResponse returns a copy of the active response context.
func (rt *ResponseTracker) GetCurrentResponse() (*ResponseContext, error) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if rt.current == nil {
		return nil, ErrNoActiveResponse
	}
	cp := *rt.current
	return &cp, nil
}

// HasActiveResponse reports whether a response is in progress.
func (rt *ResponseTracker) HasActiveResponse() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.current != nil && rt.current.State == ResponseStateInProgress
}

// AddAudioData accumulates decoded audio bytes for the active response.
func (rt *ResponseTracker) AddAudioData(data []byte) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.current == nil || rt.current.State != ResponseStateInProgress {
		return ErrNoActiveResponse
	}
	rt.current.AudioData = append(rt.current.AudioData, data...)
	return nil
}

// AddTextData accumulates text deltas for the active response.
func (rt *ResponseTracker) AddTextData(text string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.current == nil || rt.current.State != ResponseStateInProgress {
		return ErrNoActiveResponse
	}
	rt.current.TextData += text
	return nil
}

// Complete transitions the active response to a terminal state.
func (rt *ResponseTracker) Complete(status realtime.ResponseStatus) (*ResponseContext, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.current == nil {
		return nil, ErrNoActiveResponse
	}
	if rt.current.State != ResponseStateInProgress {
		return nil, ErrInvalidStateTransition
	}

	switch status {
	case realtime.ResponseStatusCancelled:
		rt.current.State = ResponseStateCancelled
	case realtime.ResponseStatusFailed:
		rt.current.State = ResponseStateFailed
	default:
		rt.current.State = ResponseStateCompleted
	}

	cp := *rt.current
	return &cp, nil
}

// Cancel is shorthand for Complete(Cancelled), the path taken when an
// interruption (e.g. barge-in) arrives mid-response.
func (rt *ResponseTracker) Cancel() (*ResponseContext, error) {
	return rt.Complete(realtime.ResponseStatusCancelled)
}

// Reset clears tracked state, e.g. after a reconnect.
func (rt *ResponseTracker) Reset() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.current = nil
}
