package realtimeclient

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/voicebridge/bridge/internal/protocol/realtime"
)

// fakeHandler records what the Receiver pump delivered to it, standing
// in for a Bridge Orchestrator call handler in these tests.
type fakeHandler struct {
	events         []realtime.InboundEvent
	audio          [][]byte
	pressureEvents []bool
}

func (h *fakeHandler) OnEvent(evt realtime.InboundEvent) { h.events = append(h.events, evt) }
func (h *fakeHandler) OnAudioChunk(pcm []byte)           { h.audio = append(h.audio, pcm) }
func (h *fakeHandler) OnQueuePressure(active bool)       { h.pressureEvents = append(h.pressureEvents, active) }
func (h *fakeHandler) OnClose(err error)                 {}

func newTestClient(h EventHandler) *Client {
	return New(Config{QueueCapacity: 8}, h, zerolog.Nop())
}

func TestResponseStillActiveMatchesCurrentResponse(t *testing.T) {
	h := &fakeHandler{}
	c := newTestClient(h)

	c.Responses.StartResponse("resp_1")

	if !c.responseStillActive("resp_1") {
		t.Error("expected the in-progress response's own id to be considered active")
	}
	if c.responseStillActive("resp_other") {
		t.Error("expected a mismatched response id to be considered inactive")
	}
	if !c.responseStillActive("") {
		t.Error("expected an empty response id to be treated as active (never dropped for lacking one)")
	}
}

func TestCancelResponseIsNoopForMismatchedID(t *testing.T) {
	h := &fakeHandler{}
	c := newTestClient(h)
	c.Responses.StartResponse("resp_1")

	c.CancelResponse("resp_other")

	if !c.responseStillActive("resp_1") {
		t.Error("cancelling an id that isn't the active response must not cancel the active one")
	}
}

func TestCancelResponseDiscardsLateDeltas(t *testing.T) {
	h := &fakeHandler{}
	c := newTestClient(h)
	c.Responses.StartResponse("resp_1")

	c.CancelResponse("resp_1")

	// Spec §8 scenario S5: deltas for a cancelled response_id must be
	// discarded rather than queued, even though the response.cancelled
	// event hasn't necessarily arrived yet on the wire.
	if c.responseStillActive("resp_1") {
		t.Fatal("expected resp_1 to no longer be active after cancellation")
	}
}

func TestTrackResponseLifecycleTransitions(t *testing.T) {
	h := &fakeHandler{}
	c := newTestClient(h)

	c.trackResponseLifecycle(&realtime.ResponseCreatedEvent{
		Response: realtime.Response{ID: "resp_1"},
	})
	if !c.responseStillActive("resp_1") {
		t.Fatal("expected resp_1 to become the active response on response.created")
	}

	c.trackResponseLifecycle(&realtime.ResponseDoneEvent{
		Response: realtime.Response{ID: "resp_1", Status: realtime.ResponseStatusCompleted},
	})
	if c.responseStillActive("resp_1") {
		t.Fatal("expected resp_1 to no longer be active after response.done")
	}
}

func TestHandleInboundJSONDropsDeltaForStaleResponse(t *testing.T) {
	h := &fakeHandler{}
	c := newTestClient(h)

	c.trackResponseLifecycle(&realtime.ResponseCreatedEvent{Response: realtime.Response{ID: "resp_1"}})
	c.CancelResponse("resp_1")

	delta := []byte(`{"type":"response.audio.delta","response_id":"resp_1","delta":"AAA="}`)
	c.handleInboundJSON(delta)

	if c.Queue.Len() != 0 {
		t.Fatalf("expected the cancelled response's audio delta to be discarded, queue has %d chunks", c.Queue.Len())
	}
	if len(h.audio) != 0 {
		t.Fatalf("expected no audio chunk delivered to the handler, got %d", len(h.audio))
	}
}

func TestHandleInboundJSONAcceptsDeltaForActiveResponse(t *testing.T) {
	h := &fakeHandler{}
	c := newTestClient(h)

	c.trackResponseLifecycle(&realtime.ResponseCreatedEvent{Response: realtime.Response{ID: "resp_1"}})

	delta := []byte(`{"type":"response.audio.delta","response_id":"resp_1","delta":"AAA="}`)
	c.handleInboundJSON(delta)

	if c.Queue.Len() != 1 {
		t.Fatalf("expected the active response's audio delta to be queued, queue has %d chunks", c.Queue.Len())
	}
	if len(h.audio) != 1 {
		t.Fatalf("expected one audio chunk delivered to the handler, got %d", len(h.audio))
	}
}

func TestPushAudioDoesNotDeliverDroppedChunks(t *testing.T) {
	// Spec §4.4.4 / §8 scenario S6: a chunk the queue drops because it
	// is already at capacity must never reach the handler — delivery is
	// gated on a successful Push, not merely recorded by it.
	h := &fakeHandler{}
	c := newTestClient(h) // capacity 8

	for i := 0; i < 8; i++ {
		c.pushAudio([]byte{byte(i)})
	}
	if len(h.audio) != 8 {
		t.Fatalf("expected all 8 chunks under capacity to be delivered, got %d", len(h.audio))
	}

	c.pushAudio([]byte("dropped"))
	if len(h.audio) != 8 {
		t.Fatalf("expected the 9th chunk to be dropped, not delivered; handler has %d chunks", len(h.audio))
	}
	if c.Queue.Dropped() != 1 {
		t.Fatalf("expected the queue to record 1 drop, got %d", c.Queue.Dropped())
	}
}

func TestPushAudioNotifiesQueuePressureOnTransition(t *testing.T) {
	h := &fakeHandler{}
	c := newTestClient(h) // capacity 8, 80% watermark = 6.4 -> pressure at 7

	for i := 0; i < 6; i++ {
		c.pushAudio([]byte{byte(i)})
	}
	if len(h.pressureEvents) != 0 {
		t.Fatalf("expected no pressure notification below the watermark, got %v", h.pressureEvents)
	}

	c.pushAudio([]byte("seventh"))
	if len(h.pressureEvents) != 1 || !h.pressureEvents[0] {
		t.Fatalf("expected exactly one pressure=true notification at the watermark, got %v", h.pressureEvents)
	}

	c.pushAudio([]byte("eighth"))
	if len(h.pressureEvents) != 1 {
		t.Fatalf("expected no additional notification while pressure stays active, got %v", h.pressureEvents)
	}
}
