package router

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func newTestRouter() *Router {
	return New(zerolog.Nop())
}

func TestDispatchInvokesRegisteredHandlersInOrder(t *testing.T) {
	r := newTestRouter()
	var order []int

	r.Register(SourceTwilio, "media", func(ctx context.Context, frame any) error {
		order = append(order, 1)
		return nil
	})
	r.Register(SourceTwilio, "media", func(ctx context.Context, frame any) error {
		order = append(order, 2)
		return nil
	})

	r.Dispatch(context.Background(), SourceTwilio, "media", "payload")

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected handlers invoked in registration order, got %v", order)
	}
}

func TestDispatchWithNoHandlerIsANoop(t *testing.T) {
	r := newTestRouter()
	// No handler registered for this (source, type) pair; dispatch must
	// not panic and must simply drop the frame.
	r.Dispatch(context.Background(), SourceUpstream, "response.done", nil)
}

func TestDispatchWithEmptyTypeIsDropped(t *testing.T) {
	r := newTestRouter()
	called := false
	r.Register(SourceAudioCodes, "", func(ctx context.Context, frame any) error {
		called = true
		return nil
	})
	r.Dispatch(context.Background(), SourceAudioCodes, "", "frame")
	if called {
		t.Fatal("a frame with no type discriminator must never reach a handler")
	}
}

func TestDispatchIsolatesHandlerErrors(t *testing.T) {
	r := newTestRouter()
	secondRan := false

	r.Register(SourceUpstream, "error", func(ctx context.Context, frame any) error {
		return errors.New("boom")
	})
	r.Register(SourceUpstream, "error", func(ctx context.Context, frame any) error {
		secondRan = true
		return nil
	})

	r.Dispatch(context.Background(), SourceUpstream, "error", nil)

	if !secondRan {
		t.Fatal("a failing handler must not prevent its sibling from running")
	}
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	r := newTestRouter()
	secondRan := false

	r.Register(SourceTwilio, "start", func(ctx context.Context, frame any) error {
		panic("handler blew up")
	})
	r.Register(SourceTwilio, "start", func(ctx context.Context, frame any) error {
		secondRan = true
		return nil
	})

	r.Dispatch(context.Background(), SourceTwilio, "start", nil)

	if !secondRan {
		t.Fatal("a panicking handler must not prevent its sibling from running")
	}
}

func TestDispatchScopesHandlersBySource(t *testing.T) {
	r := newTestRouter()
	var sources []Source

	r.Register(SourceAudioCodes, "session.initiate", func(ctx context.Context, frame any) error {
		sources = append(sources, SourceAudioCodes)
		return nil
	})
	r.Register(SourceTwilio, "session.initiate", func(ctx context.Context, frame any) error {
		sources = append(sources, SourceTwilio)
		return nil
	})

	r.Dispatch(context.Background(), SourceAudioCodes, "session.initiate", nil)

	if len(sources) != 1 || sources[0] != SourceAudioCodes {
		t.Fatalf("expected only the AudioCodes handler to run, got %v", sources)
	}
}
