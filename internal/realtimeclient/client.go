// Package realtimeclient owns the upstream Realtime API WebSocket
// connection over its entire lifetime (spec §4.4), the hardest
// component per the spec. Its three-goroutine concurrency model
// (Receiver, Heartbeat, mutex-serialized Sender) is grounded in the
// teacher's pkg/connection/websocket_connection.go readPump/writePump/
// pingPump trio, re-timed to this spec's handshake/heartbeat/ping
// constants and turned into an outbound *client* (the teacher's
// version accepts an already-upgraded server-side connection; here we
// dial out).
package realtimeclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voicebridge/bridge/internal/bridgeerr"
	"github.com/voicebridge/bridge/internal/protocol/realtime"
)

// Connection-level constants (spec §4.4.1).
const (
	MaxFrameSize      = 16 * 1024 * 1024 // 16 MiB
	PingInterval      = 5 * time.Second
	HandshakeTimeout  = 30 * time.Second
	ReconnectHandshakeTimeout = 20 * time.Second
	HeartbeatInterval = 60 * time.Second
	WriteWait         = 10 * time.Second
	SessionCreatedWait = 30 * time.Second

	// ReceiveTimeout bounds each receiveLoop iteration's blocking read
	// (spec §5: "per-frame receive 5 s (loop re-arms)"). A timeout here
	// is not a connection failure; the loop just re-arms and tries
	// again, the way the teacher's pingPump/readPump pair keeps its own
	// deadline fresh rather than letting a one-time handshake deadline
	// go stale.
	ReceiveTimeout = 5 * time.Second
)

// DialState is the connection lifecycle (spec §4.4.1).
type DialState int

const (
	StateDisconnected DialState = iota
	StateDialing
	StateHandshaking
	StateActive
	StateClosing
	StateReconnecting
)

func (s DialState) String() string {
	switch s {
	case StateDialing:
		return "dialing"
	case StateHandshaking:
		return "handshaking"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Config configures one Client.
type Config struct {
	Host   string // e.g. "api.openai.com"
	Model  string
	APIKey string
	Voice  string

	Session realtime.SessionConfig

	QueueCapacity int

	// RateLimitMaxRequests/RateLimitMaxBytes override the sliding-window
	// rate limiter's bounds (spec §4.4.5, §6.4 RATE_LIMIT_MAX_REQUESTS/
	// RATE_LIMIT_MAX_BYTES). Zero means "use the spec's defaults"
	// (rateLimitMaxRequests/rateLimitMaxBytes).
	RateLimitMaxRequests int
	RateLimitMaxBytes    int

	// Reconnected is invoked after a successful reconnect and
	// re-handshake; the orchestrator may use it to resend context
	// (spec §4.4.6 — the client itself never replays items).
	Reconnected func()

	// Lost is invoked once reconnection gives up after the 5th failed
	// attempt (spec §4.4.6, §7 TransportError: "after 5 failed attempts,
	// notify orchestrator's 'lost' callback"). The orchestrator uses this
	// to hang up the platform side cleanly.
	Lost func()

	// OnQueueDrop is invoked once per audio chunk the output queue drops
	// because it was already at capacity (spec §4.4.4, §8 scenario S6),
	// letting the orchestrator feed a metrics counter without the Client
	// depending on the metrics package directly.
	OnQueueDrop func()

	// OnReconnectOutcome is invoked with "attempt_failed" for each failed
	// reconnect attempt, then once with "restored" when an attempt
	// succeeds or once with "lost" when every attempt has failed
	// (spec §4.4.6).
	OnReconnectOutcome func(outcome string)

	// OnQueueDepthChanged is invoked after every push attempt on the
	// output queue (accepted or dropped) with its current length; pops
	// do not invoke it. It lets the orchestrator track the
	// backlog gauge (spec §4.4.4) without the Client depending on the
	// metrics package directly.
	OnQueueDepthChanged func(depth int)

	// dialer/now are overridable for tests.
	dialer *websocket.Dialer
	now    func() time.Time
}

// EventHandler receives parsed inbound events and raw audio chunks as
// the Receiver goroutine decodes them.
type EventHandler interface {
	OnEvent(evt realtime.InboundEvent)
	OnAudioChunk(pcm []byte)
	// OnQueuePressure is invoked whenever the audio output queue crosses
	// the 80% soft watermark in either direction (spec §4.4.4: "the
	// orchestrator may throttle upstream sends in response"), letting a
	// call handler gate its own forwardAudioToUpstream path without the
	// Client knowing anything about telephony dialects.
	OnQueuePressure(active bool)
	OnClose(err error)
}

// Client owns one upstream WebSocket connection plus its queues,
// rate limiter, and reconnect logic.
type Client struct {
	cfg Config
	log zerolog.Logger

	mu    sync.Mutex
	state DialState
	conn  *websocket.Conn

	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closing     bool
	reconnecting bool

	lastActivity time.Time
	lastActMu    sync.Mutex

	Queue       *AudioQueue
	RateLimiter *RateLimiter
	Responses   *ResponseTracker

	// pressureActive mirrors the queue's last-reported Pressure() state
	// so OnQueuePressure only fires on a transition, not on every push.
	pressureActive atomic.Bool

	handler EventHandler
}

// New builds a Client in the Disconnected state. Call Connect to dial.
func New(cfg Config, handler EventHandler, log zerolog.Logger) *Client {
	if cfg.dialer == nil {
		cfg.dialer = &websocket.Dialer{
			HandshakeTimeout: HandshakeTimeout,
			TLSClientConfig:  &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &Client{
		cfg:         cfg,
		log:         log.With().Str("component", "realtimeclient").Logger(),
		state:       StateDisconnected,
		Queue:       NewAudioQueue(cfg.QueueCapacity),
		RateLimiter: NewRateLimiterWithLimits(cfg.RateLimitMaxRequests, cfg.RateLimitMaxBytes),
		Responses:   NewResponseTracker(),
		handler:     handler,
	}
}

// Connect dials the upstream endpoint, performs the session handshake,
// and starts the Receiver/Heartbeat goroutines. Only one transition per
// call is permitted (spec §4.4.1): calling Connect while already Active
// or mid-transition is an error.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		s := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: connect called in state %s", bridgeerr.ErrTransport, s)
	}
	c.state = StateDialing
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("%w: %v", bridgeerr.ErrTransport, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateHandshaking
	c.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.Background())
	c.ctx = runCtx
	c.cancel = cancel

	if err := c.handshake(ctx); err != nil {
		cancel()
		conn.Close()
		c.setState(StateDisconnected)
		return fmt.Errorf("%w: %v", bridgeerr.ErrHandshake, err)
	}

	c.setState(StateActive)
	c.markActivity()

	// The handshake wait (SessionCreatedWait, 30s) left a read deadline
	// set on the socket; clear it here so it can never be mistaken for a
	// steady-state deadline. receiveLoop re-arms its own 5s deadline on
	// every iteration before the goroutine even starts (spec §5).
	c.conn.SetReadDeadline(time.Time{})

	c.wg.Add(2)
	go c.receiveLoop()
	go c.heartbeatLoop()

	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u := url.URL{Scheme: "wss", Host: c.cfg.Host, Path: "/realtime", RawQuery: url.Values{"model": {c.cfg.Model}}.Encode()}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	dialCtx, cancel := context.WithTimeout(ctx, HandshakeTimeout)
	defer cancel()

	conn, _, err := c.cfg.dialer.DialContext(dialCtx, u.String(), header)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(MaxFrameSize)
	return conn, nil
}

// handshake sends session.update and waits up to 30s for session.created.
func (c *Client) handshake(ctx context.Context) error {
	if err := c.sendRaw(realtime.NewSessionUpdateEvent(c.cfg.Session)); err != nil {
		return err
	}

	type result struct {
		evt realtime.InboundEvent
		err error
	}
	done := make(chan result, 1)

	go func() {
		c.conn.SetReadDeadline(time.Now().Add(SessionCreatedWait))
		for {
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				done <- result{err: err}
				return
			}
			evt, err := realtime.ParseInbound(data)
			if err != nil {
				continue
			}
			if evt.EventType() == realtime.InboundSessionCreated {
				done <- result{evt: evt}
				return
			}
		}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return r.err
		}
		return nil
	case <-time.After(SessionCreatedWait):
		return fmt.Errorf("timed out waiting for session.created")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) setState(s DialState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) State() DialState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) markActivity() {
	c.lastActMu.Lock()
	c.lastActivity = c.cfg.now()
	c.lastActMu.Unlock()
}

func (c *Client) idleFor() time.Duration {
	c.lastActMu.Lock()
	defer c.lastActMu.Unlock()
	return c.cfg.now().Sub(c.lastActivity)
}

// SendEvent rate-limits and writes one outbound event (spec §4.4.5).
func (c *Client) SendEvent(evt realtime.OutboundEvent) error {
	if err := c.RateLimiter.Allow(evt.ByteSize()); err != nil {
		return err
	}
	return c.sendRaw(evt)
}

// sendRaw writes an event to the wire without rate limiting, used
// directly for the handshake's session.update.
func (c *Client) sendRaw(evt realtime.OutboundEvent) error {
	data, err := realtime.Marshal(evt)
	if err != nil {
		return fmt.Errorf("%w: %v", bridgeerr.ErrProtocol, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("%w: not connected", bridgeerr.ErrTransport)
	}

	conn.SetWriteDeadline(time.Now().Add(WriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", bridgeerr.ErrTransport, err)
	}
	c.markActivity()
	return nil
}

// Close idempotently tears the client down (spec §4.4.8): sets
// closing, cancels Receiver+Heartbeat, closes the socket, drains the
// queue, resets the response tracker, and asserts closing so no
// reconnect fires afterward.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	conn := c.conn
	c.state = StateClosing
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	if conn != nil {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}

	joined := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(1 * time.Second):
	}

	c.Queue.Drain()
	c.Responses.Reset()
	c.setState(StateDisconnected)
	return nil
}

// IsClosing reports whether Close has been called (used by the
// reconnect loop to stop retrying).
func (c *Client) IsClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}
