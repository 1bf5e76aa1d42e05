package realtimeclient

import (
	"errors"
	"testing"

	"github.com/voicebridge/bridge/internal/protocol/realtime"
)

func TestResponseTrackerStartResponse(t *testing.T) {
	rt := NewResponseTracker()
	if _, err := rt.StartResponse(""); err != nil {
		t.Fatalf("unexpected error starting first response: %v", err)
	}
	if _, err := rt.StartResponse(""); !errors.Is(err, ErrResponseAlreadyActive) {
		t.Fatalf("expected ErrResponseAlreadyActive, got %v", err)
	}
}

func TestResponseTrackerGetCurrentResponse(t *testing.T) {
	rt := NewResponseTracker()
	if _, err := rt.GetCurrentResponse(); !errors.Is(err, ErrNoActiveResponse) {
		t.Fatalf("expected ErrNoActiveResponse, got %v", err)
	}
	rt.StartResponse("resp_1")
	ctx, err := rt.GetCurrentResponse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.ResponseID != "resp_1" {
		t.Errorf("expected resp_1, got %s", ctx.ResponseID)
	}
}

func TestResponseTrackerAddAudioAndTextData(t *testing.T) {
	rt := NewResponseTracker()
	rt.StartResponse("resp_1")

	if err := rt.AddAudioData([]byte{1, 2, 3}); err != nil {
		t.Fatalf("unexpected error adding audio: %v", err)
	}
	if err := rt.AddTextData("hello "); err != nil {
		t.Fatalf("unexpected error adding text: %v", err)
	}
	if err := rt.AddTextData("world"); err != nil {
		t.Fatalf("unexpected error adding text: %v", err)
	}

	ctx, _ := rt.GetCurrentResponse()
	if len(ctx.AudioData) != 3 {
		t.Errorf("expected 3 bytes of audio, got %d", len(ctx.AudioData))
	}
	if ctx.TextData != "hello world" {
		t.Errorf("expected accumulated text %q, got %q", "hello world", ctx.TextData)
	}
}

func TestResponseTrackerComplete(t *testing.T) {
	rt := NewResponseTracker()
	rt.StartResponse("resp_1")

	ctx, err := rt.Complete(realtime.ResponseStatusCompleted)
	if err != nil {
		t.Fatalf("unexpected error completing: %v", err)
	}
	if ctx.State != ResponseStateCompleted {
		t.Errorf("expected completed state, got %s", ctx.State)
	}

	if _, err := rt.Complete(realtime.ResponseStatusCompleted); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition on double-complete, got %v", err)
	}
}

func TestResponseTrackerCancel(t *testing.T) {
	rt := NewResponseTracker()
	rt.StartResponse("resp_1")

	ctx, err := rt.Cancel()
	if err != nil {
		t.Fatalf("unexpected error cancelling: %v", err)
	}
	if ctx.State != ResponseStateCancelled {
		t.Errorf("expected cancelled state, got %s", ctx.State)
	}
}

func TestResponseTrackerReset(t *testing.T) {
	rt := NewResponseTracker()
	rt.StartResponse("resp_1")
	rt.Reset()

	if rt.HasActiveResponse() {
		t.Error("expected no active response after Reset")
	}
	if _, err := rt.StartResponse(""); err != nil {
		t.Fatalf("expected StartResponse to succeed after Reset, got %v", err)
	}
}

func TestResponseStateString(t *testing.T) {
	cases := []struct {
		state ResponseState
		want  string
	}{
		{ResponseStateIdle, "idle"},
		{ResponseStateInProgress, "in_progress"},
		{ResponseStateCompleted, "completed"},
		{ResponseStateFailed, "failed"},
		{ResponseStateCancelled, "cancelled"},
	}
	for _, c := range cases {
		if got := c.state.String(); got != c.want {
			t.Errorf("state %d: got %q, want %q", c.state, got, c.want)
		}
	}
}
