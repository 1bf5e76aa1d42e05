//go:build !vad

// Stub build of the real Silero/ONNX detector, mirroring the teacher's
// own vad_element_stub.go: the same exported names compile without the
// `vad` tag so callers never need two code paths, but construction
// fails with a clear message until the binary is built with `-tags vad`
// and a real model file is supplied.
package vad

import "fmt"

// LogLevel is an ONNX Runtime logging level (stub; unused without the
// `vad` tag).
type LogLevel int

const (
	LevelVerbose LogLevel = iota + 1
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// DetectorConfig configures a real Silero VAD detector.
type DetectorConfig struct {
	ModelPath  string
	SampleRate int
	LogLevel   LogLevel
}

func (c DetectorConfig) IsValid() error {
	if c.ModelPath == "" {
		return fmt.Errorf("vad: ModelPath must not be empty")
	}
	if c.SampleRate != 8000 && c.SampleRate != 16000 {
		return fmt.Errorf("vad: SampleRate must be 8000 or 16000")
	}
	return nil
}

// InitRuntime always fails in this build; VAD support is not compiled in.
func InitRuntime(libraryPath string) error {
	return fmt.Errorf("vad: built without the 'vad' tag, ONNX runtime unavailable")
}

// DestroyRuntime is a no-op in this build.
func DestroyRuntime() error { return nil }

// Detector is an uninstantiable stub; NewDetector always errors.
type Detector struct{}

// NewDetector reports that VAD support was not compiled in. Rebuild with
// '-tags vad' and ensure ONNX Runtime and a model file are available.
func NewDetector(cfg DetectorConfig) (*Detector, error) {
	return nil, fmt.Errorf("vad: support not enabled, rebuild with '-tags vad'")
}

func (d *Detector) Infer(samples []float32) (float32, error) {
	return 0, fmt.Errorf("vad: support not enabled")
}

func (d *Detector) Reset() error { return fmt.Errorf("vad: support not enabled") }

func (d *Detector) Destroy() error { return fmt.Errorf("vad: support not enabled") }

var _ DetectorInterface = (*Detector)(nil)
