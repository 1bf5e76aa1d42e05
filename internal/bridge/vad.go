package bridge

import (
	"encoding/binary"

	"github.com/rs/zerolog"

	"github.com/voicebridge/bridge/internal/config"
	"github.com/voicebridge/bridge/internal/vad"
)

// localVAD runs the optional on-device VAD capability over inbound
// platform audio, alongside whatever speech events the upstream's own
// server_vad turn detection reports (spec §3 "VAD speech event", §9
// Open Question 4). It is nil whenever VADModelPath is unset or the
// detector can't be constructed (the default build has no `vad` tag,
// so construction always fails there and the bridge falls back to
// upstream-only turn detection).
type localVAD struct {
	detector  vad.DetectorInterface
	threshold float32
	speaking  bool
}

// newLocalVAD returns nil if local VAD is not configured or unavailable
// in this build, in which case callers must treat every observe() as a
// no-op.
func newLocalVAD(cfg *config.Config, sampleRate int, log zerolog.Logger) *localVAD {
	if cfg.VADModelPath == "" {
		return nil
	}
	d, err := vad.NewDetector(vad.DetectorConfig{ModelPath: cfg.VADModelPath, SampleRate: sampleRate})
	if err != nil {
		log.Debug().Err(err).Msg("local VAD detector unavailable, relying on upstream turn detection only")
		return nil
	}
	threshold := cfg.VADThreshold
	if threshold <= 0 {
		threshold = 0.5
	}
	return &localVAD{detector: d, threshold: threshold}
}

// observe runs inference over one chunk of mono PCM16 audio at the
// detector's configured sample rate and reports an edge transition, if
// any. A nil receiver always reports no transition.
func (v *localVAD) observe(pcm []byte) (started, stopped bool) {
	if v == nil {
		return false, false
	}
	prob, err := v.detector.Infer(bytesToFloat32(pcm))
	if err != nil {
		return false, false
	}

	isSpeech := prob >= v.threshold
	switch {
	case isSpeech && !v.speaking:
		v.speaking = true
		return true, false
	case !isSpeech && v.speaking:
		v.speaking = false
		return false, true
	default:
		return false, false
	}
}

// close releases the underlying detector, if any. Safe to call on nil.
func (v *localVAD) close() {
	if v != nil && v.detector != nil {
		v.detector.Destroy()
	}
}

func bytesToFloat32(data []byte) []float32 {
	n := len(data) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		samples[i] = float32(s) / 32768.0
	}
	return samples
}
