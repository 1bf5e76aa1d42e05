//go:build vad

// This file implements the real Silero VAD detector via ONNX Runtime.
// Kept behind the `vad` build tag and adapted from the teacher's
// pkg/vad/detector.go with only naming changes — VAD model internals
// are an explicit spec Non-goal, so this is carried forward unexercised
// by default rather than reimplemented.
package vad

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	stateLen   = 2 * 1 * 128
	contextLen = 64
)

// LogLevel is an ONNX Runtime logging level.
type LogLevel int

const (
	LevelVerbose LogLevel = iota + 1
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

var (
	runtimeInitialized bool
	runtimeMu          sync.Mutex
)

// InitRuntime initializes the ONNX runtime environment. libraryPath may
// be empty to auto-detect libonnxruntime.so/dylib. Call once at startup.
func InitRuntime(libraryPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if runtimeInitialized {
		return nil
	}

	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	} else if p := findONNXRuntimeLibrary(); p != "" {
		ort.SetSharedLibraryPath(p)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("vad: initializing onnx runtime: %w", err)
	}

	runtimeInitialized = true
	return nil
}

// DestroyRuntime tears down the ONNX runtime environment.
func DestroyRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !runtimeInitialized {
		return nil
	}
	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("vad: destroying onnx runtime: %w", err)
	}
	runtimeInitialized = false
	return nil
}

func findONNXRuntimeLibrary() string {
	paths := []string{
		os.Getenv("ONNXRUNTIME_LIB"),
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/opt/onnxruntime/lib/libonnxruntime.so",
		"/opt/homebrew/lib/libonnxruntime.dylib",
		"/usr/local/lib/libonnxruntime.dylib",
	}
	if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
		for _, dir := range filepath.SplitList(ldPath) {
			paths = append(paths, filepath.Join(dir, "libonnxruntime.so"))
		}
	}
	if dyldPath := os.Getenv("DYLD_LIBRARY_PATH"); dyldPath != "" {
		for _, dir := range filepath.SplitList(dyldPath) {
			paths = append(paths, filepath.Join(dir, "libonnxruntime.dylib"))
		}
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

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

// Detector runs the Silero VAD ONNX model.
type Detector struct {
	session *ort.DynamicAdvancedSession
	cfg     DetectorConfig

	state      [stateLen]float32
	ctx        [contextLen]float32
	currSample int

	inputNames  []string
	outputNames []string
}

// NewDetector builds a Detector, auto-initializing the runtime if
// InitRuntime has not already been called.
func NewDetector(cfg DetectorConfig) (*Detector, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("vad: invalid config: %w", err)
	}

	runtimeMu.Lock()
	initialized := runtimeInitialized
	runtimeMu.Unlock()
	if !initialized {
		if err := InitRuntime(""); err != nil {
			return nil, err
		}
	}

	d := &Detector{
		cfg:         cfg,
		inputNames:  []string{"input", "state", "sr"},
		outputNames: []string{"output", "stateN"},
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("vad: creating session options: %w", err)
	}
	defer options.Destroy()

	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("vad: setting graph optimization level: %w", err)
	}
	if err := options.SetIntraOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("vad: setting intra-op threads: %w", err)
	}
	if err := options.SetInterOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("vad: setting inter-op threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, d.inputNames, d.outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("vad: creating session: %w", err)
	}
	d.session = session
	return d, nil
}

// Infer runs one inference pass, carrying RNN state and a short
// context window across calls for continuity.
func (d *Detector) Infer(samples []float32) (float32, error) {
	if d == nil {
		return 0, fmt.Errorf("vad: nil detector")
	}

	pcm := samples
	if d.currSample > 0 {
		pcm = append(d.ctx[:], samples...)
	}
	if len(samples) >= contextLen {
		copy(d.ctx[:], samples[len(samples)-contextLen:])
	}
	d.currSample += len(samples)

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(pcm))), pcm)
	if err != nil {
		return 0, fmt.Errorf("vad: creating input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	stateTensor, err := ort.NewTensor(ort.NewShape(2, 1, 128), d.state[:])
	if err != nil {
		return 0, fmt.Errorf("vad: creating state tensor: %w", err)
	}
	defer stateTensor.Destroy()

	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(d.cfg.SampleRate)})
	if err != nil {
		return 0, fmt.Errorf("vad: creating sample-rate tensor: %w", err)
	}
	defer srTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return 0, fmt.Errorf("vad: creating output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	stateNTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, 128))
	if err != nil {
		return 0, fmt.Errorf("vad: creating stateN tensor: %w", err)
	}
	defer stateNTensor.Destroy()

	inputs := []ort.Value{inputTensor, stateTensor, srTensor}
	outputs := []ort.Value{outputTensor, stateNTensor}
	if err := d.session.Run(inputs, outputs); err != nil {
		return 0, fmt.Errorf("vad: running inference: %w", err)
	}

	copy(d.state[:], stateNTensor.GetData())

	out := outputTensor.GetData()
	if len(out) == 0 {
		return 0, fmt.Errorf("vad: empty inference output")
	}
	return out[0], nil
}

// Reset clears RNN state, context, and the sample counter.
func (d *Detector) Reset() error {
	if d == nil {
		return fmt.Errorf("vad: nil detector")
	}
	for i := range d.state {
		d.state[i] = 0
	}
	for i := range d.ctx {
		d.ctx[i] = 0
	}
	d.currSample = 0
	return nil
}

// Destroy releases the ONNX session.
func (d *Detector) Destroy() error {
	if d == nil {
		return fmt.Errorf("vad: nil detector")
	}
	if d.session != nil {
		if err := d.session.Destroy(); err != nil {
			return fmt.Errorf("vad: destroying session: %w", err)
		}
		d.session = nil
	}
	return nil
}

var _ DetectorInterface = (*Detector)(nil)
