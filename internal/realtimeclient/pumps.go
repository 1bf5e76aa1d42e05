package realtimeclient

import (
	"encoding/base64"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicebridge/bridge/internal/protocol/realtime"
)

// receiveLoop is the Receiver task (spec §4.4.3): reads frames, decodes
// JSON or binary, dispatches to the handler, feeds audio deltas into
// the output queue. Stops on socket close or Close().
//
// Each iteration re-arms its own ReceiveTimeout read deadline before
// blocking on ReadMessage (spec §5: "per-frame receive 5 s (loop
// re-arms)"), grounded in the teacher's websocket_connection.go
// readPump keeping its deadline fresh rather than relying on the
// one-time deadline the handshake wait left behind. A deadline-induced
// timeout is not a connection failure — the loop just re-arms and
// retries — only a genuine socket error or close triggers OnClose and
// a reconnect attempt.
func (c *Client) receiveLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.conn.SetReadDeadline(time.Now().Add(ReceiveTimeout))
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if !c.IsClosing() {
				c.handler.OnClose(err)
				go c.maybeReconnect()
			}
			return
		}
		c.markActivity()

		switch msgType {
		case websocket.TextMessage:
			c.handleInboundJSON(data)
		case websocket.BinaryMessage:
			c.handleInboundBinary(data)
		}
	}
}

func (c *Client) handleInboundJSON(data []byte) {
	evt, err := realtime.ParseInbound(data)
	if err != nil {
		c.log.Warn().Err(err).Msg("dropping malformed upstream frame")
		return
	}

	c.trackResponseLifecycle(evt)
	c.handler.OnEvent(evt)

	if delta, ok := evt.(*realtime.ResponseAudioDeltaEvent); ok {
		if !c.responseStillActive(delta.ResponseID) {
			// Spec §4.5 ordering / §8 scenario S5: a delta for a response
			// that was already cancelled (or superseded) is discarded by
			// response_id mismatch rather than queued.
			c.log.Debug().Str("response_id", delta.ResponseID).Msg("discarding audio delta for inactive response")
			return
		}
		raw, err := base64.StdEncoding.DecodeString(delta.Delta)
		if err != nil {
			c.log.Warn().Err(err).Msg("failed to decode audio delta")
			return
		}
		c.pushAudio(raw)
	}
}

// trackResponseLifecycle feeds response.created/done/cancelled events
// into the ResponseTracker so responseStillActive can discard stray
// deltas for a response that is no longer the active one (spec §3: "at
// most one response is active per call at a time").
func (c *Client) trackResponseLifecycle(evt realtime.InboundEvent) {
	switch e := evt.(type) {
	case *realtime.ResponseCreatedEvent:
		if _, err := c.Responses.StartResponse(e.Response.ID); err != nil {
			c.log.Debug().Err(err).Msg("response.created while another response was already active")
		}
	case *realtime.ResponseDoneEvent:
		status := e.Response.Status
		if status == "" {
			status = realtime.ResponseStatusCompleted
		}
		if _, err := c.Responses.Complete(status); err != nil {
			c.log.Debug().Err(err).Msg("response.done/cancelled for an already-terminal response")
		}
	}
}

// responseStillActive reports whether responseID is the in-progress
// response the tracker currently knows about. An empty responseID
// (some upstream implementations omit it on early deltas) is treated as
// active so audio is never dropped just for lacking an id.
func (c *Client) responseStillActive(responseID string) bool {
	if responseID == "" {
		return true
	}
	cur, err := c.Responses.GetCurrentResponse()
	if err != nil {
		return false
	}
	return cur.State == ResponseStateInProgress && cur.ResponseID == responseID
}

// CancelResponse marks responseID as cancelled if it is the active
// response; per spec §3, cancel(id) is a no-op if id does not match the
// active response. It does not itself send response.cancel upstream —
// that is an orchestrator-initiated SendEvent — it only updates local
// bookkeeping so subsequent late deltas are recognized as stale.
func (c *Client) CancelResponse(responseID string) {
	cur, err := c.Responses.GetCurrentResponse()
	if err != nil || cur.ResponseID != responseID {
		return
	}
	c.Responses.Cancel()
}

// handleInboundBinary implements spec §4.4.7: if a binary frame
// base64-decodes as audio, treat it as a chunk; otherwise treat the raw
// bytes as audio and queue as-is. Non-audio binary is logged and
// dropped — here "non-audio" means it is neither valid base64 nor can
// be treated as raw PCM, which in practice never happens for this
// upstream, so any binary frame is queued as raw PCM after a failed
// base64 decode.
func (c *Client) handleInboundBinary(data []byte) {
	if decoded, err := base64.StdEncoding.DecodeString(string(data)); err == nil {
		c.pushAudio(decoded)
		return
	}
	c.pushAudio(data)
}

// pushAudio is the queue's only producer-side entry point (spec §4.4.4).
// Delivery to the handler is gated on a successful Push: a chunk the
// queue dropped because it was already at capacity is never forwarded,
// so the bounded-FIFO/drop-new policy is actually observable on the
// live path rather than only in queue_test.go. A pressure-state
// transition (crossing the 80% watermark in either direction) notifies
// both the metrics hook and the handler, so a call handler can throttle
// its own upstream sends in response (spec §4.4.4 "orchestrator may
// throttle upstream sends").
func (c *Client) pushAudio(pcm []byte) {
	accepted := c.Queue.Push(pcm)
	if !accepted {
		c.log.Warn().Int("queue_len", c.Queue.Len()).Msg("audio output queue full, dropping chunk")
		if c.cfg.OnQueueDrop != nil {
			c.cfg.OnQueueDrop()
		}
	}
	if c.cfg.OnQueueDepthChanged != nil {
		c.cfg.OnQueueDepthChanged(c.Queue.Len())
	}

	if pressure := c.Queue.Pressure(); pressure != c.pressureActive.Swap(pressure) {
		c.handler.OnQueuePressure(pressure)
	}

	if !accepted {
		return
	}
	c.handler.OnAudioChunk(pcm)
}

// heartbeatLoop is the Heartbeat task (spec §4.4.3): every
// HeartbeatInterval, if idle for longer than that interval, sends a
// ping and expects a pong within a fixed 5s timeout. A missed
// pong marks the connection dead and triggers reconnect.
func (c *Client) heartbeatLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	pongCh := make(chan struct{}, 1)
	c.conn.SetPongHandler(func(string) error {
		select {
		case pongCh <- struct{}{}:
		default:
		}
		c.markActivity()
		// Re-arm the read deadline here too (grounded in the teacher's
		// websocket_connection.go pong handler doing the same with
		// pongWait), so a pong that arrives mid-receiveLoop-iteration
		// keeps the deadline fresh rather than depending solely on the
		// next loop iteration to do it.
		c.conn.SetReadDeadline(time.Now().Add(ReceiveTimeout))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if c.idleFor() <= HeartbeatInterval {
				continue
			}
			if err := c.ping(); err != nil {
				c.log.Warn().Err(err).Msg("heartbeat ping failed")
				go c.maybeReconnect()
				return
			}
			select {
			case <-pongCh:
			case <-time.After(5 * time.Second):
				c.log.Warn().Msg("heartbeat pong timeout, connection presumed dead")
				go c.maybeReconnect()
				return
			case <-c.ctx.Done():
				return
			}
		}
	}
}

func (c *Client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}
