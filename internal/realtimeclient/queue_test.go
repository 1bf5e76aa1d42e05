package realtimeclient

import (
	"context"
	"testing"
	"time"
)

func TestAudioQueuePushPop(t *testing.T) {
	q := NewAudioQueue(4)
	if !q.Push([]byte("a")) {
		t.Fatal("expected push to succeed")
	}
	chunk, ok := q.Pop()
	if !ok || string(chunk) != "a" {
		t.Fatalf("unexpected pop result %q %v", chunk, ok)
	}
}

func TestAudioQueueDropsWhenFull(t *testing.T) {
	// Spec §8 scenario S6: 40 pushes against a 32-capacity queue should
	// hold 32 and drop 8.
	q := NewAudioQueue(32)
	accepted := 0
	for i := 0; i < 40; i++ {
		if q.Push([]byte{byte(i)}) {
			accepted++
		}
	}
	if accepted != 32 {
		t.Errorf("expected 32 accepted pushes, got %d", accepted)
	}
	if q.Dropped() != 8 {
		t.Errorf("expected 8 dropped chunks, got %d", q.Dropped())
	}
	if q.Len() != 32 {
		t.Errorf("expected queue to hold 32, got %d", q.Len())
	}
}

func TestAudioQueuePressureWatermark(t *testing.T) {
	q := NewAudioQueue(32)
	for i := 0; i < 25; i++ {
		q.Push([]byte{byte(i)})
	}
	if q.Pressure() {
		t.Error("expected no pressure below 80% capacity (26 chunks)")
	}
	q.Push([]byte{0})
	if !q.Pressure() {
		t.Error("expected pressure flag at 26/32 chunks")
	}
}

func TestAudioQueuePopWaitTimesOut(t *testing.T) {
	q := NewAudioQueue(4)
	ctx := context.Background()
	start := time.Now()
	_, ok := q.PopWait(ctx, 20*time.Millisecond)
	if ok {
		t.Fatal("expected timeout on empty queue")
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Error("returned too quickly for a timeout path")
	}
}

func TestAudioQueueDrain(t *testing.T) {
	q := NewAudioQueue(4)
	q.Push([]byte("a"))
	q.Drain()
	if q.Len() != 0 {
		t.Errorf("expected empty queue after Drain, got len %d", q.Len())
	}
}
