package bridge

import (
	"context"
	"encoding/base64"
	"errors"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/voicebridge/bridge/internal/audio"
	"github.com/voicebridge/bridge/internal/bridgeerr"
	"github.com/voicebridge/bridge/internal/protocol/audiocodes"
	"github.com/voicebridge/bridge/internal/protocol/realtime"
	"github.com/voicebridge/bridge/internal/realtimeclient"
	"github.com/voicebridge/bridge/internal/router"
	"github.com/voicebridge/bridge/internal/session"
)

const (
	audioCodesSampleRate = 16000
	upstreamSampleRate   = 24000
)

// audioCodesCall holds the per-call state for one AudioCodes session
// (spec §4.5 bring-up/teardown sequences). Inbound platform frames and
// inbound upstream events are both classified and dispatched through
// the shared Event Router (spec §4.2) rather than switched on inline,
// so malformed or panicking handlers for one event type never take
// down the rest of the call.
type audioCodesCall struct {
	o      *Orchestrator
	conn   *websocket.Conn
	sess   *session.Session
	client *realtimeclient.Client
	router *router.Router
	dedup  *speechDedup
	vad    *localVAD
	in2up  *audio.Resampler // 16kHz platform -> 24kHz upstream
	up2in  *audio.Resampler // 24kHz upstream -> 16kHz platform
	playID string
	done   bool

	// throttled mirrors the Realtime Client's audio output queue pressure
	// (spec §4.4.4 "orchestrator may throttle upstream sends"):
	// forwardAudioToUpstream stops sending input_audio_buffer.append
	// while the downstream queue is backed up, rather than piling more
	// audio behind an upstream that is already falling behind.
	throttled atomic.Bool
}

func (o *Orchestrator) runAudioCodesCall(conn *websocket.Conn) {
	defer conn.Close()

	call := &audioCodesCall{
		o:     o,
		conn:  conn,
		sess:  session.Create(session.DialectAudioCodes, ""),
		dedup: newSpeechDedup(vadDedupWindow(o.cfg)),
		vad:   newLocalVAD(o.cfg, audioCodesSampleRate, o.log),
	}
	defer call.vad.close()
	call.router = router.New(o.log)
	call.registerPlatformHandlers()
	call.registerUpstreamHandlers()

	var err error
	call.in2up, err = audio.NewResampler(audioCodesSampleRate, upstreamSampleRate)
	if err != nil {
		o.log.Error().Err(err).Msg("failed to build inbound resampler")
		return
	}
	defer call.in2up.Close()
	call.up2in, err = audio.NewResampler(upstreamSampleRate, audioCodesSampleRate)
	if err != nil {
		o.log.Error().Err(err).Msg("failed to build outbound resampler")
		return
	}
	defer call.up2in.Close()

	o.metrics.ActiveCalls.Inc()
	defer o.metrics.ActiveCalls.Dec()

	ctx := context.Background()
	client, err := o.dialUpstream(ctx, string(realtime.AudioFormatPCM16), string(realtime.AudioFormatPCM16), call.sess.ConvID, call, nil, call.onUpstreamLost)
	if err != nil {
		o.log.Error().Err(err).Msg("upstream dial failed, aborting AudioCodes call")
		call.sendError("upstream unavailable")
		return
	}
	call.client = client
	defer client.Close()

	call.readLoop()
}

// onUpstreamLost is the Realtime Client's §4.4.6 "lost" callback: once
// reconnection has given up for good, hang the platform side up
// cleanly instead of leaving it stuck waiting on dead audio (spec §7
// TransportError disposition).
func (c *audioCodesCall) onUpstreamLost() {
	c.sendError("upstream connection lost")
	c.conn.Close()
}

func (c *audioCodesCall) sendError(reason string) {
	c.writeFrame(audiocodes.SessionError(c.sess.ConvID, reason))
}

func (c *audioCodesCall) writeFrame(f audiocodes.Frame) {
	if err := c.conn.WriteJSON(f); err != nil {
		c.o.log.Warn().Err(err).Msg("failed writing AudioCodes frame")
	}
}

func (c *audioCodesCall) readLoop() {
	ctx := context.Background()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.o.log.Info().Err(err).Str("conv_id", c.sess.ConvID).Msg("AudioCodes platform socket closed")
			return
		}

		frame, err := audiocodes.ParseFrame(data)
		if err != nil {
			c.o.log.Warn().Err(err).Msg("dropping malformed AudioCodes frame")
			continue
		}

		c.router.Dispatch(ctx, router.SourceAudioCodes, string(frame.Type), frame)
		if c.done {
			return
		}
	}
}

// registerPlatformHandlers wires one Event Router handler per AudioCodes
// frame type this bridge reacts to (spec §4.2 register/dispatch).
func (c *audioCodesCall) registerPlatformHandlers() {
	reg := func(t audiocodes.FrameType, h func(*audiocodes.Frame) error) {
		c.router.Register(router.SourceAudioCodes, string(t), func(_ context.Context, frame any) error {
			return h(frame.(*audiocodes.Frame))
		})
	}

	reg(audiocodes.TypeSessionInitiate, func(f *audiocodes.Frame) error {
		c.sess.ConvID = f.ConversationID
		c.writeFrame(audiocodes.SessionAccepted(c.sess.ConvID, "raw/lpcm16"))
		return c.sess.HandleAccepted(&audiocodes.Frame{MediaFormat: "raw/lpcm16"})
	})

	reg(audiocodes.TypeSessionResume, func(f *audiocodes.Frame) error {
		c.writeFrame(audiocodes.SessionResumed(c.sess.ConvID))
		return nil
	})

	reg(audiocodes.TypeConnectionValidate, func(f *audiocodes.Frame) error {
		c.writeFrame(audiocodes.ConnectionValidated(c.sess.ConvID))
		return nil
	})

	reg(audiocodes.TypeUserStreamStart, func(f *audiocodes.Frame) error {
		c.sess.SetUserStreamActive()
		c.writeFrame(audiocodes.UserStreamStarted(c.sess.ConvID))
		return nil
	})

	reg(audiocodes.TypeUserStreamStop, func(f *audiocodes.Frame) error {
		c.sess.SetUserStreamStopped()
		c.writeFrame(audiocodes.UserStreamStopped(c.sess.ConvID))
		return c.client.SendEvent(realtime.NewInputAudioBufferCommitEvent())
	})

	reg(audiocodes.TypeUserStreamChunk, func(f *audiocodes.Frame) error {
		c.forwardAudioToUpstream(f.AudioChunk)
		return nil
	})

	reg(audiocodes.TypeActivities, func(f *audiocodes.Frame) error {
		for _, act := range f.Activities {
			if act.Name == "hangup" {
				c.done = true
			}
		}
		return nil
	})

	reg(audiocodes.TypeSessionEnd, func(f *audiocodes.Frame) error {
		c.done = true
		return c.client.SendEvent(realtime.NewInputAudioBufferCommitEvent())
	})
}

func (c *audioCodesCall) forwardAudioToUpstream(audioChunkB64 string) {
	raw, err := base64.StdEncoding.DecodeString(audioChunkB64)
	if err != nil {
		c.o.log.Warn().Err(err).Msg("invalid base64 in userStream.chunk")
		return
	}

	if started, stopped := c.vad.observe(raw); started {
		if !c.dedup.Seen(sourceLocalVAD, "started") {
			c.writeFrame(audiocodes.SpeechStarted(c.sess.ConvID))
		}
		if c.playID != "" {
			if cur, err := c.client.Responses.GetCurrentResponse(); err == nil {
				c.client.CancelResponse(cur.ResponseID)
				c.client.SendEvent(realtime.NewResponseCancelEvent(cur.ResponseID))
			}
		}
	} else if stopped {
		if !c.dedup.Seen(sourceLocalVAD, "stopped") {
			c.writeFrame(audiocodes.SpeechStopped(c.sess.ConvID))
		}
	}

	if c.throttled.Load() {
		return
	}

	resampled, err := c.in2up.Resample(raw)
	if err != nil {
		c.o.log.Warn().Err(err).Msg("resample to upstream rate failed")
		return
	}

	encoded := base64.StdEncoding.EncodeToString(resampled)
	if err := c.client.SendEvent(realtime.NewInputAudioBufferAppendEvent(encoded)); err != nil {
		if errors.Is(err, bridgeerr.ErrRateLimit) {
			c.o.metrics.RateLimitRejections.WithLabelValues(c.sess.ConvID).Inc()
		}
		c.o.log.Warn().Err(err).Msg("rate-limited or failed input_audio_buffer.append")
	}
}

// --- realtimeclient.EventHandler ---

// registerUpstreamHandlers wires one Event Router handler per upstream
// event type this call reacts to; OnEvent below only classifies and
// dispatches (spec §4.2 applies to both the platform and upstream
// directions, per §6.3/§9).
func (c *audioCodesCall) registerUpstreamHandlers() {
	reg := func(t realtime.InboundType, h func(realtime.InboundEvent) error) {
		c.router.Register(router.SourceUpstream, string(t), func(_ context.Context, evt any) error {
			return h(evt.(realtime.InboundEvent))
		})
	}

	reg(realtime.InboundInputAudioBufferSpeechStarted, func(evt realtime.InboundEvent) error {
		if !c.dedup.Seen(sourcePlatform, "started") {
			c.writeFrame(audiocodes.SpeechStarted(c.sess.ConvID))
		}
		if c.playID != "" {
			// Barge-in while a play stream is active: cancel the
			// in-progress response so late deltas are discarded by
			// response_id mismatch (spec §4.5, §8 S5).
			if cur, err := c.client.Responses.GetCurrentResponse(); err == nil {
				c.client.CancelResponse(cur.ResponseID)
				return c.client.SendEvent(realtime.NewResponseCancelEvent(cur.ResponseID))
			}
		}
		return nil
	})

	reg(realtime.InboundInputAudioBufferSpeechStopped, func(evt realtime.InboundEvent) error {
		if !c.dedup.Seen(sourcePlatform, "stopped") {
			c.writeFrame(audiocodes.SpeechStopped(c.sess.ConvID))
		}
		return nil
	})

	reg(realtime.InboundResponseCreated, func(evt realtime.InboundEvent) error {
		e := evt.(*realtime.ResponseCreatedEvent)
		c.playID = "play_" + e.Response.ID
		c.writeFrame(audiocodes.PlayStreamStart(c.sess.ConvID, c.playID, "raw/lpcm16"))
		return nil
	})

	responseEnded := func(evt realtime.InboundEvent) error {
		if c.playID != "" {
			c.writeFrame(audiocodes.PlayStreamStop(c.sess.ConvID, c.playID))
			c.playID = ""
		}
		return nil
	}
	reg(realtime.InboundResponseDone, responseEnded)
	reg(realtime.InboundResponseCancelled, responseEnded)

	reg(realtime.InboundError, func(evt realtime.InboundEvent) error {
		e := evt.(*realtime.ErrorEvent)
		c.o.log.Warn().Str("message", e.Error.Message).Msg("upstream reported error")
		return nil
	})
}

func (c *audioCodesCall) OnEvent(evt realtime.InboundEvent) {
	c.router.Dispatch(context.Background(), router.SourceUpstream, string(evt.EventType()), evt)
}

func (c *audioCodesCall) OnAudioChunk(pcm []byte) {
	if c.playID == "" {
		return
	}
	down, err := c.up2in.Resample(pcm)
	if err != nil {
		c.o.log.Warn().Err(err).Msg("resample to platform rate failed")
		return
	}
	c.writeFrame(audiocodes.PlayStreamChunk(c.sess.ConvID, c.playID, base64.StdEncoding.EncodeToString(down)))
}

func (c *audioCodesCall) OnQueuePressure(active bool) {
	c.throttled.Store(active)
}

func (c *audioCodesCall) OnClose(err error) {
	c.o.log.Warn().Err(err).Str("conv_id", c.sess.ConvID).Msg("upstream connection closed")
}
