// Package vad provides the Voice Activity Detection capability the
// Bridge Orchestrator uses to generate locally-run speech events
// alongside whatever the telephony platform itself reports (spec
// §4.5 "VAD speech-event deduplication"). VAD model internals are an
// explicit spec Non-goal. The capability interface and the mock are
// adapted from the teacher's pkg/vad/interface.go and pkg/vad/mock.go;
// the mock is used only by tests. The real Silero/ONNX implementation
// is kept behind the `vad` build tag exactly as the teacher keeps it,
// renamed to this package's import path but otherwise unmodified.
// Bridge code reaches it through NewDetector (internal/bridge/vad.go);
// in a build without the `vad` tag, NewDetector always returns an
// error and local VAD stays off.
package vad

// DetectorInterface is the capability boundary between the Bridge
// Orchestrator and a VAD implementation. This indirection is what lets
// the orchestrator be fully tested without an ONNX runtime or model
// file present.
type DetectorInterface interface {
	// Infer runs inference on audio samples and returns the speech
	// probability. samples should be normalized float32 values in the
	// range [-1, 1]. Returns a probability in [0, 1].
	Infer(samples []float32) (float32, error)

	// Reset clears internal state. Call when starting a new call.
	Reset() error

	// Destroy releases all resources. The detector must not be used
	// after this returns.
	Destroy() error
}
