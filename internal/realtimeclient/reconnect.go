package realtimeclient

import (
	"context"
	"math/rand"
	"time"
)

const maxReconnectAttempts = 5

// maybeReconnect runs the backoff-and-redial algorithm from spec
// §4.4.6. Grounded in original_source/opusagent/realtime/realtime_client.py's
// reconnect loop (exponential delay capped at 30s, 30% jitter, 5
// attempts), re-expressed with goroutines/context instead of asyncio.
func (c *Client) maybeReconnect() {
	c.mu.Lock()
	if c.reconnecting || c.closing {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.state = StateReconnecting
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		if c.IsClosing() {
			return
		}

		base := float64(time.Duration(1<<uint(attempt-1)) * 2 * time.Second)
		if base > float64(30*time.Second) {
			base = float64(30 * time.Second)
		}
		jitter := base * 0.3 * rand.Float64()
		delay := time.Duration(base + jitter)

		if !c.sleepUnlessClosing(delay) {
			return
		}

		if err := c.redial(); err != nil {
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("reconnect attempt failed")
			c.reportReconnectOutcome("attempt_failed")
			continue
		}

		c.log.Info().Int("attempt", attempt).Msg("reconnected to upstream")
		c.reportReconnectOutcome("restored")
		if c.cfg.Reconnected != nil {
			c.cfg.Reconnected()
		}
		return
	}

	c.log.Error().Int("attempts", maxReconnectAttempts).Msg("giving up reconnecting to upstream")
	c.setState(StateDisconnected)
	c.reportReconnectOutcome("lost")
	if c.cfg.Lost != nil {
		c.cfg.Lost()
	}
}

func (c *Client) reportReconnectOutcome(outcome string) {
	if c.cfg.OnReconnectOutcome != nil {
		c.cfg.OnReconnectOutcome(outcome)
	}
}

// sleepUnlessClosing sleeps for d, waking early (and returning false)
// if Close() is called during the sleep (spec §4.4.6: "if close() is
// called during the backoff sleep, reconnection aborts").
func (c *Client) sleepUnlessClosing(d time.Duration) bool {
	deadline := time.NewTimer(d)
	defer deadline.Stop()
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline.C:
			return !c.IsClosing()
		case <-ticker.C:
			if c.IsClosing() {
				return false
			}
		}
	}
}

// redial dials and re-handshakes with the shorter reconnect handshake
// timeout, then restarts the Receiver/Heartbeat goroutines.
func (c *Client) redial() error {
	dialCtx, cancel := context.WithTimeout(context.Background(), ReconnectHandshakeTimeout)
	defer cancel()

	conn, err := c.dial(dialCtx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	runCtx, runCancel := context.WithCancel(context.Background())
	c.ctx = runCtx
	c.cancel = runCancel

	if err := c.handshake(dialCtx); err != nil {
		runCancel()
		conn.Close()
		return err
	}

	c.setState(StateActive)
	c.markActivity()
	c.Responses.Reset()

	c.wg.Add(2)
	go c.receiveLoop()
	go c.heartbeatLoop()

	return nil
}
