// Package router implements the single dispatch point for every
// inbound frame, from either a telephony platform or the upstream
// Realtime API (spec §4.2). It generalizes the teacher's
// pkg/realtimeapi/bridge/event_bridge.go, which wires one fixed set of
// pipeline-bus events to one fixed set of handlers, into a general
// register/dispatch table keyed by (source, event type) so the Bridge
// Orchestrator can wire AudioCodes, Twilio, and upstream events through
// the same mechanism.
package router

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/voicebridge/bridge/internal/protocol/realtime"
)

// Source identifies which side a frame came from.
type Source string

const (
	SourceAudioCodes Source = "audiocodes"
	SourceTwilio     Source = "twilio"
	SourceUpstream   Source = "upstream"
)

// Handler processes one parsed frame. Handlers are declared async in
// the spec; in Go that is simply a function the router awaits by
// calling directly — there is no implicit goroutine per handler, since
// spec §4.2 requires in-order invocation within one connection.
type Handler func(ctx context.Context, frame any) error

// key is the (source, event type) pair handlers register against.
type key struct {
	source Source
	event  string
}

// Router dispatches frames to registered handlers, isolating handler
// panics/errors from each other (spec §4.2: "catch per-handler
// exceptions and log without aborting sibling handlers").
type Router struct {
	log      zerolog.Logger
	handlers map[key][]Handler
}

// New builds an empty Router.
func New(log zerolog.Logger) *Router {
	return &Router{log: log.With().Str("component", "router").Logger(), handlers: make(map[key][]Handler)}
}

// Register adds handler for (source, eventType). Multiple handlers per
// key are allowed and invoked in registration order.
func (r *Router) Register(source Source, eventType string, h Handler) {
	k := key{source, eventType}
	r.handlers[k] = append(r.handlers[k], h)
}

// Dispatch invokes every handler registered for (source, eventType),
// sequentially, logging but not propagating a handler's error so
// sibling handlers still run.
func (r *Router) Dispatch(ctx context.Context, source Source, eventType string, frame any) {
	if eventType == "" {
		r.log.Warn().Str("source", string(source)).Msg("dropping frame with no type discriminator")
		return
	}

	if source == SourceUpstream && realtime.LogOnlyTypes[realtime.InboundType(eventType)] {
		r.log.Info().Str("event", eventType).Msg("log-only upstream event")
	}

	hs := r.handlers[key{source, eventType}]
	if len(hs) == 0 {
		r.log.Debug().Str("source", string(source)).Str("event", eventType).Msg("no handler registered")
		return
	}

	for i, h := range hs {
		if err := r.invoke(ctx, h, frame); err != nil {
			r.log.Error().Err(err).Str("source", string(source)).Str("event", eventType).
				Int("handler_index", i).Msg("handler failed")
		}
	}
}

// invoke recovers from a handler panic and turns it into an error, so
// one misbehaving handler can never take down dispatch for its
// siblings or for the caller's goroutine.
func (r *Router) invoke(ctx context.Context, h Handler, frame any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()
	return h(ctx, frame)
}
