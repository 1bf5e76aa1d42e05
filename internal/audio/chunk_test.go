package audio

import "testing"

func TestChunkPCMFloor(t *testing.T) {
	// Spec §8 scenario: every emitted upstream chunk must be at least
	// the 100ms floor in size.
	const rate = 16000
	floor := BytesForDuration(100, rate)

	pcm := make([]byte, floor/2) // deliberately short: 50ms
	chunks := ChunkPCM(pcm, 32000, floor)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if len(chunks[0]) < floor {
		t.Errorf("chunk length %d below 100ms floor %d", len(chunks[0]), floor)
	}
}

func TestChunkPCMEmptyInputIsNotError(t *testing.T) {
	chunks := ChunkPCM(nil, 1000, 100)
	if chunks != nil {
		t.Errorf("expected nil chunks for empty input, got %v", chunks)
	}
}

func TestFrameTwilioExactSizing(t *testing.T) {
	// 8kHz mono PCM16, 200ms of audio = 3200 bytes -> 10 frames of 160B µ-law.
	pcm := make([]byte, 3200)
	frames := FrameTwilio(pcm)
	if len(frames) != 10 {
		t.Fatalf("expected 10 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if len(f) != 160 {
			t.Errorf("frame %d has length %d, want 160", i, len(f))
		}
	}
}

func TestFrameTwilioPadsShortTrailingFrame(t *testing.T) {
	pcm := make([]byte, 100) // well under one frame's worth of samples
	frames := FrameTwilio(pcm)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if len(frames[0]) != 160 {
		t.Fatalf("expected padded frame of 160 bytes, got %d", len(frames[0]))
	}
	// Trailing padding bytes should be the chosen silence codeword.
	for i := 50; i < 160; i++ {
		if frames[0][i] != SilenceByte {
			t.Errorf("byte %d = %#x, want silence byte %#x", i, frames[0][i], SilenceByte)
		}
	}
}

func TestLoadCacheRoundTrip(t *testing.T) {
	cache := NewLoadCache()
	chunks := [][]byte{{1, 2, 3}}

	if _, ok := cache.Get("a.wav", 16000, 32000); ok {
		t.Fatal("expected cache miss before Put")
	}

	cache.Put("a.wav", 16000, 32000, chunks)
	got, ok := cache.Get("a.wav", 16000, 32000)
	if !ok || len(got) != 1 {
		t.Fatal("expected cache hit after Put")
	}

	cache.Clear()
	if _, ok := cache.Get("a.wav", 16000, 32000); ok {
		t.Fatal("expected cache miss after Clear")
	}
}
