package audio

import (
	"encoding/base64"
	"fmt"
	"sync"
)

// BytesForDuration returns the byte count of durationMs worth of PCM16
// audio at the given sample rate (mono), the quantity the 100ms chunk
// floor (invariant 1) is checked against.
func BytesForDuration(durationMs, sampleRate int) int {
	const sampleWidth = 2
	return durationMs * sampleRate * sampleWidth / 1000
}

// PadToFloor pads pcm with SilenceByte-derived PCM16 silence (zero
// samples, which MuLawEncode and the raw PCM16 wire format alike treat
// as true silence) until it is at least floorBytes long. Spec §4.3:
// "enforces a floor of 100ms per emitted upstream chunk, padding with
// silence if needed".
func PadToFloor(pcm []byte, floorBytes int) []byte {
	if len(pcm) >= floorBytes {
		return pcm
	}
	padded := make([]byte, floorBytes)
	copy(padded, pcm)
	return padded
}

// ChunkPCM splits pcm into chunkSize-byte pieces, padding the final
// piece to floorBytes if it would otherwise be shorter (spec §4.3
// load-file path: "split into chunks of configured byte size ...
// pad final chunk with silence to meet 100ms floor").
func ChunkPCM(pcm []byte, chunkSize, floorBytes int) [][]byte {
	if len(pcm) == 0 {
		return nil
	}
	var chunks [][]byte
	for off := 0; off < len(pcm); off += chunkSize {
		end := off + chunkSize
		if end > len(pcm) {
			end = len(pcm)
		}
		chunk := make([]byte, end-off)
		copy(chunk, pcm[off:end])
		if len(chunk) < floorBytes {
			chunk = PadToFloor(chunk, floorBytes)
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// EncodeChunks base64-encodes each chunk, the representation the
// bridge puts on the wire for both upstream input_audio_buffer.append
// and AudioCodes/Twilio outbound audio frames.
func EncodeChunks(chunks [][]byte) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = base64.StdEncoding.EncodeToString(c)
	}
	return out
}

// FrameTwilio slices PCM16 mono 8kHz audio into exact 20ms/160-byte
// µ-law frames for Twilio outbound media messages (spec §3 "Audio
// frame", §6.2), padding the final frame to 160 bytes of µ-law silence.
// Grounded in the teacher's pkg/audio/audio_pacer.go ReadFrame, which
// returns exactly one fixed-size frame per call and pads short trailing
// data rather than emitting a partial frame.
func FrameTwilio(pcm []byte) [][]byte {
	const frameBytes = 160 // bytes of µ-law per 20ms at 8kHz
	mulaw := PCM16ToMuLaw(pcm)
	var frames [][]byte
	for off := 0; off < len(mulaw); off += frameBytes {
		end := off + frameBytes
		if end > len(mulaw) {
			end = len(mulaw)
		}
		frame := make([]byte, frameBytes)
		for i := range frame {
			frame[i] = SilenceByte
		}
		copy(frame, mulaw[off:end])
		frames = append(frames, frame)
	}
	return frames
}

// cacheKey identifies one (path, target_rate, chunk_size) load-file
// result, per spec §4.3's Cache paragraph.
type cacheKey struct {
	path       string
	targetRate int
	chunkSize  int
}

// LoadCache memoizes processed load-file output so repeated test runs
// against the same asset skip redundant container-decode/resample/chunk
// work. Eviction is manual only (ClearCache) — spec §4.3 is explicit
// that there is no automatic pressure policy here, unlike the bounded
// output queue in the Realtime Client.
type LoadCache struct {
	mu      sync.Mutex
	entries map[cacheKey][][]byte
}

// NewLoadCache constructs an empty cache.
func NewLoadCache() *LoadCache {
	return &LoadCache{entries: make(map[cacheKey][][]byte)}
}

// Get returns a cached chunk set and whether it was present.
func (c *LoadCache) Get(path string, targetRate, chunkSize int) ([][]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	chunks, ok := c.entries[cacheKey{path, targetRate, chunkSize}]
	return chunks, ok
}

// Put stores a chunk set under (path, targetRate, chunkSize).
func (c *LoadCache) Put(path string, targetRate, chunkSize int, chunks [][]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{path, targetRate, chunkSize}] = chunks
}

// Clear evicts every cache entry (the `clear_cache` operation).
func (c *LoadCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey][][]byte)
}

// errAudioFormat-style helper kept here rather than in bridgeerr since
// it needs to name the offending codec; it returns a plain error, and its
// callers in load.go wrap it with bridgeerr.ErrAudioFormat.
func unsupportedCodec(codec string) error {
	return fmt.Errorf("audio: unsupported codec %q", codec)
}
