package bridge

import (
	"context"
	"encoding/base64"
	"errors"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/voicebridge/bridge/internal/audio"
	"github.com/voicebridge/bridge/internal/bridgeerr"
	"github.com/voicebridge/bridge/internal/protocol/realtime"
	"github.com/voicebridge/bridge/internal/protocol/twilio"
	"github.com/voicebridge/bridge/internal/realtimeclient"
	"github.com/voicebridge/bridge/internal/router"
	"github.com/voicebridge/bridge/internal/session"
)

// twilioCall holds the per-call state for one Twilio Media Streams
// connection. mark/clear round-trip is grounded in the teacher's
// pkg/connection/twilio_connection.go SendMark/WaitForMark/ClearAudio
// (spec §6.2): a `mark` is sent after the final chunk of a response so
// completion is observable on the wire, and `clear` flushes
// client-buffered audio on interruption. Both platform and upstream
// frames are classified and dispatched through the shared Event Router
// (spec §4.2).
type twilioCall struct {
	o      *Orchestrator
	conn   *websocket.Conn
	sess   *session.Session
	client *realtimeclient.Client
	router *router.Router
	dedup  *speechDedup
	vad    *localVAD
	in2up  *audio.Resampler // 8kHz platform -> 24kHz upstream
	up2in  *audio.Resampler // 24kHz upstream -> 8kHz platform

	responding bool
	done       bool

	// throttled mirrors the Realtime Client's audio output queue pressure
	// (spec §4.4.4 "orchestrator may throttle upstream sends"):
	// forwardAudioToUpstream stops sending input_audio_buffer.append
	// while the downstream queue is backed up.
	throttled atomic.Bool
}

func (o *Orchestrator) runTwilioCall(conn *websocket.Conn) {
	defer conn.Close()

	call := &twilioCall{
		o:     o,
		conn:  conn,
		sess:  session.Create(session.DialectTwilio, ""),
		dedup: newSpeechDedup(vadDedupWindow(o.cfg)),
		vad:   newLocalVAD(o.cfg, twilio.InputSampleRate, o.log),
	}
	defer call.vad.close()
	call.router = router.New(o.log)
	call.registerPlatformHandlers()
	call.registerUpstreamHandlers()

	var err error
	call.in2up, err = audio.NewResampler(twilio.InputSampleRate, upstreamSampleRate)
	if err != nil {
		o.log.Error().Err(err).Msg("failed to build inbound resampler")
		return
	}
	defer call.in2up.Close()
	call.up2in, err = audio.NewResampler(upstreamSampleRate, twilio.OutputSampleRate)
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
		o.log.Error().Err(err).Msg("upstream dial failed, aborting Twilio call")
		return
	}
	call.client = client
	defer client.Close()

	call.readLoop()
}

// onUpstreamLost is the Realtime Client's §4.4.6 "lost" callback: once
// reconnection has given up for good, close the platform socket so the
// caller isn't left on a silent line (spec §7 TransportError
// disposition). Twilio has no dialect-level error frame, so the bridge
// just tears the stream down.
func (c *twilioCall) onUpstreamLost() {
	c.conn.Close()
}

func (c *twilioCall) writeFrame(f twilio.Frame) {
	if err := c.conn.WriteJSON(f); err != nil {
		c.o.log.Warn().Err(err).Msg("failed writing Twilio frame")
	}
}

func (c *twilioCall) readLoop() {
	ctx := context.Background()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.o.log.Info().Err(err).Str("conv_id", c.sess.ConvID).Msg("Twilio platform socket closed")
			return
		}

		frame, err := twilio.ParseFrame(data)
		if err != nil {
			c.o.log.Warn().Err(err).Msg("dropping malformed Twilio frame")
			continue
		}

		c.router.Dispatch(ctx, router.SourceTwilio, string(frame.Event), frame)
		if c.done {
			return
		}
	}
}

// registerPlatformHandlers wires one Event Router handler per Twilio
// event type this bridge reacts to (spec §4.2).
func (c *twilioCall) registerPlatformHandlers() {
	reg := func(t twilio.EventType, h func(*twilio.Frame) error) {
		c.router.Register(router.SourceTwilio, string(t), func(_ context.Context, frame any) error {
			return h(frame.(*twilio.Frame))
		})
	}

	reg(twilio.EventStart, func(f *twilio.Frame) error {
		return c.sess.HandleTwilioStart(f)
	})

	reg(twilio.EventMedia, func(f *twilio.Frame) error {
		c.forwardAudioToUpstream(f.Media.Payload)
		return nil
	})

	reg(twilio.EventStop, func(f *twilio.Frame) error {
		c.done = true
		if err := c.client.SendEvent(realtime.NewInputAudioBufferCommitEvent()); err != nil {
			c.o.log.Warn().Err(err).Msg("failed to commit on stop")
		}
		return c.sess.HandleTwilioStop(f)
	})

	// DTMF is pass-through only; the spec treats it as an opaque
	// activity with no upstream equivalent in the Twilio dialect, so no
	// handler is registered and the router logs it as undispatched.
}

func (c *twilioCall) forwardAudioToUpstream(payloadB64 string) {
	mulaw, err := base64.StdEncoding.DecodeString(payloadB64)
	if err != nil {
		c.o.log.Warn().Err(err).Msg("invalid base64 in media frame")
		return
	}

	pcm := audio.MuLawToPCM16(mulaw)

	// Twilio's dialect has no client-originated "caller speech started"
	// frame, so a local-VAD edge only feeds the dedup ring (matching
	// OnEvent's handling of the upstream-reported equivalent below) and,
	// on barge-in, flushes and cancels exactly as InboundInputAudioBufferSpeechStarted does.
	if started, stopped := c.vad.observe(pcm); started {
		if !c.dedup.Seen(sourceLocalVAD, "started") && c.responding {
			c.writeFrame(twilio.Clear(c.sess.StreamSid))
			if cur, err := c.client.Responses.GetCurrentResponse(); err == nil {
				c.client.CancelResponse(cur.ResponseID)
				c.client.SendEvent(realtime.NewResponseCancelEvent(cur.ResponseID))
			}
		}
	} else if stopped {
		c.dedup.Seen(sourceLocalVAD, "stopped")
	}

	if c.throttled.Load() {
		return
	}

	resampled, err := c.in2up.Resample(pcm)
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
// event type this call reacts to (spec §4.2).
func (c *twilioCall) registerUpstreamHandlers() {
	reg := func(t realtime.InboundType, h func(realtime.InboundEvent) error) {
		c.router.Register(router.SourceUpstream, string(t), func(_ context.Context, evt any) error {
			return h(evt.(realtime.InboundEvent))
		})
	}

	reg(realtime.InboundInputAudioBufferSpeechStarted, func(evt realtime.InboundEvent) error {
		c.dedup.Seen(sourcePlatform, "started")
		if c.responding {
			// Barge-in: the caller started talking while a response was
			// still playing out. Flush whatever audio Twilio has buffered
			// and cancel the in-progress response so its late deltas get
			// discarded by response_id mismatch (spec §4.5, §8 S5).
			c.writeFrame(twilio.Clear(c.sess.StreamSid))
			if cur, err := c.client.Responses.GetCurrentResponse(); err == nil {
				c.client.CancelResponse(cur.ResponseID)
				return c.client.SendEvent(realtime.NewResponseCancelEvent(cur.ResponseID))
			}
		}
		return nil
	})

	reg(realtime.InboundInputAudioBufferSpeechStopped, func(evt realtime.InboundEvent) error {
		c.dedup.Seen(sourcePlatform, "stopped")
		return nil
	})

	reg(realtime.InboundResponseCreated, func(evt realtime.InboundEvent) error {
		c.responding = true
		return nil
	})

	responseEnded := func(evt realtime.InboundEvent) error {
		c.responding = false
		c.writeFrame(twilio.Mark(c.sess.StreamSid, "response_done"))
		return nil
	}
	reg(realtime.InboundResponseDone, responseEnded)
	reg(realtime.InboundResponseCancelled, responseEnded)
}

func (c *twilioCall) OnEvent(evt realtime.InboundEvent) {
	c.router.Dispatch(context.Background(), router.SourceUpstream, string(evt.EventType()), evt)
}

func (c *twilioCall) OnAudioChunk(pcm []byte) {
	down, err := c.up2in.Resample(pcm)
	if err != nil {
		c.o.log.Warn().Err(err).Msg("resample to platform rate failed")
		return
	}
	for _, frame := range audio.FrameTwilio(down) {
		c.writeFrame(twilio.Media(c.sess.StreamSid, base64.StdEncoding.EncodeToString(frame)))
	}
}

func (c *twilioCall) OnQueuePressure(active bool) {
	c.throttled.Store(active)
}

func (c *twilioCall) OnClose(err error) {
	c.o.log.Warn().Err(err).Str("conv_id", c.sess.ConvID).Msg("upstream connection closed")
}
