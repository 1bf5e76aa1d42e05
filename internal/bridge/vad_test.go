package bridge

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/voicebridge/bridge/internal/config"
	"github.com/voicebridge/bridge/internal/vad"
)

func TestLocalVADObserveReportsEdgesNotLevels(t *testing.T) {
	mock := vad.NewMockDetectorWithSequence([]float32{0, 0.9, 0.9, 0.9, 0.1, 0.1})
	v := &localVAD{detector: mock, threshold: 0.5}

	pcm := make([]byte, 4)

	started, stopped := v.observe(pcm) // 0.0
	if started || stopped {
		t.Fatalf("expected no edge on first silent sample, got started=%v stopped=%v", started, stopped)
	}

	started, stopped = v.observe(pcm) // 0.9, rising edge
	if !started || stopped {
		t.Fatalf("expected a started edge on the rising sample, got started=%v stopped=%v", started, stopped)
	}

	started, stopped = v.observe(pcm) // 0.9, still speaking
	if started || stopped {
		t.Fatalf("expected no repeated edge while still speaking, got started=%v stopped=%v", started, stopped)
	}

	started, stopped = v.observe(pcm) // 0.9, still speaking
	if started || stopped {
		t.Fatalf("expected no edge, got started=%v stopped=%v", started, stopped)
	}

	started, stopped = v.observe(pcm) // 0.1, falling edge
	if started || !stopped {
		t.Fatalf("expected a stopped edge on the falling sample, got started=%v stopped=%v", started, stopped)
	}

	started, stopped = v.observe(pcm) // 0.1, still silent
	if started || stopped {
		t.Fatalf("expected no repeated edge while still silent, got started=%v stopped=%v", started, stopped)
	}
}

func TestLocalVADNilReceiverIsANoop(t *testing.T) {
	var v *localVAD
	started, stopped := v.observe([]byte{0, 0, 0, 0})
	if started || stopped {
		t.Fatal("expected a nil *localVAD to never report an edge")
	}
	v.close() // must not panic
}

func TestNewLocalVADDisabledWithoutModelPath(t *testing.T) {
	cfg := &config.Config{}
	if v := newLocalVAD(cfg, 16000, zerolog.Nop()); v != nil {
		t.Fatal("expected newLocalVAD to return nil when VADModelPath is unset")
	}
}

func TestBytesToFloat32Normalizes(t *testing.T) {
	pcm := []byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80}
	samples := bytesToFloat32(pcm)
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if samples[0] != 0 {
		t.Errorf("expected sample 0 to be 0, got %v", samples[0])
	}
	if samples[1] <= 0.99 || samples[1] > 1.0 {
		t.Errorf("expected sample 1 close to 1.0, got %v", samples[1])
	}
	if samples[2] != -1 {
		t.Errorf("expected sample 2 to be -1.0, got %v", samples[2])
	}
}
