// Package bridge implements the Bridge Orchestrator (spec §4.5): it
// creates the Session Manager, Event Router, Audio Handler, and
// Realtime Client for one call, wires the platform↔upstream data flow
// between them, and tears everything down cleanly. No single teacher
// file plays this role; it is grounded piecewise in
// pkg/realtimeapi/bridge/event_bridge.go's event-wiring style (fan
// events from a producer into per-type handlers) generalized from one
// upstream-only pipeline to the bidirectional platform+upstream flow
// this spec requires.
package bridge

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voicebridge/bridge/internal/config"
	"github.com/voicebridge/bridge/internal/metrics"
	"github.com/voicebridge/bridge/internal/protocol/realtime"
	"github.com/voicebridge/bridge/internal/realtimeclient"
)

// Orchestrator holds the dependencies shared by every call: config,
// the process-wide metrics registry, and the logger each call derives
// its own per-call logger from.
type Orchestrator struct {
	cfg     *config.Config
	metrics *metrics.Registry
	log     zerolog.Logger

	upgrader websocket.Upgrader
}

// New builds an Orchestrator.
func New(cfg *config.Config, reg *metrics.Registry, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		metrics: reg,
		log:     log.With().Str("component", "orchestrator").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeAudioCodes upgrades an HTTP request to a WebSocket and runs one
// AudioCodes call to completion. Meant to be wired directly as an
// http.HandlerFunc.
func (o *Orchestrator) ServeAudioCodes(w http.ResponseWriter, r *http.Request) {
	conn, err := o.upgrader.Upgrade(w, r, nil)
	if err != nil {
		o.log.Error().Err(err).Msg("audiocodes websocket upgrade failed")
		return
	}
	o.runAudioCodesCall(conn)
}

// ServeTwilio upgrades an HTTP request and runs one Twilio call.
func (o *Orchestrator) ServeTwilio(w http.ResponseWriter, r *http.Request) {
	conn, err := o.upgrader.Upgrade(w, r, nil)
	if err != nil {
		o.log.Error().Err(err).Msg("twilio websocket upgrade failed")
		return
	}
	o.runTwilioCall(conn)
}

// sessionConfig builds the SessionConfig sent to upstream during the
// handshake (spec §4.4.2), with the bridge defaulting to PCM16 audio
// in and out at 24kHz.
func (o *Orchestrator) sessionConfig(inputFormat, outputFormat string) realtime.SessionConfig {
	return realtime.SessionConfig{
		Modalities:       []realtime.Modality{realtime.ModalityAudio, realtime.ModalityText},
		Voice:            o.cfg.RealtimeVoice,
		InputAudioFormat: realtime.AudioFormat(inputFormat),
		OutputAudioFormat: realtime.AudioFormat(outputFormat),
		TurnDetection: &realtime.TurnDetection{
			Type: realtime.TurnDetectionServerVAD,
		},
	}
}

// dialUpstream constructs and connects a Realtime Client shared by both
// dialect call handlers. onReconnect fires after a successful reconnect
// handshake; onLost fires once the reconnect loop gives up for good
// (spec §4.4.6) so the caller can hang up the platform side.
func (o *Orchestrator) dialUpstream(ctx context.Context, inputFormat, outputFormat, convID string, handler realtimeclient.EventHandler, onReconnect, onLost func()) (*realtimeclient.Client, error) {
	client := realtimeclient.New(realtimeclient.Config{
		Host:                 o.cfg.RealtimeHost,
		Model:                o.cfg.RealtimeModel,
		APIKey:               o.cfg.OpenAIAPIKey,
		Voice:                o.cfg.RealtimeVoice,
		Session:              o.sessionConfig(inputFormat, outputFormat),
		QueueCapacity:        o.cfg.AudioQueueCapacity,
		RateLimitMaxRequests: o.cfg.RateLimitMaxRequests,
		RateLimitMaxBytes:    o.cfg.RateLimitMaxBytes,
		Reconnected:          onReconnect,
		Lost:                 onLost,
		OnQueueDrop:          func() { o.metrics.QueueDropped.WithLabelValues(convID).Inc() },
		OnReconnectOutcome:   func(outcome string) { o.metrics.ReconnectAttempts.WithLabelValues(outcome).Inc() },
		OnQueueDepthChanged:  func(depth int) { o.metrics.QueueDepth.WithLabelValues(convID).Set(float64(depth)) },
	}, handler, o.log)

	dialCtx, cancel := context.WithTimeout(ctx, realtimeclient.HandshakeTimeout+5*time.Second)
	defer cancel()

	if err := client.Connect(dialCtx); err != nil {
		return nil, err
	}
	return client, nil
}

func vadDedupWindow(cfg *config.Config) time.Duration {
	ms := cfg.VADDedupWindowMs
	if ms <= 0 {
		ms = 200
	}
	return time.Duration(ms) * time.Millisecond
}
