// Package config binds the bridge's environment surface (spec §6.4)
// using godotenv + envconfig, the way the teacher's cmd/main.go loads
// its own .env (godotenv.Load()) — generalized here to a typed struct
// instead of the teacher's bare ad hoc env reads, since this bridge has
// a real configuration surface to validate.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the full environment-backed configuration surface.
type Config struct {
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" required:"true"`
	RealtimeHost string `envconfig:"REALTIME_HOST" default:"api.openai.com"`
	RealtimeModel string `envconfig:"REALTIME_MODEL" default:"gpt-4o-realtime-preview"`
	RealtimeVoice string `envconfig:"REALTIME_VOICE" default:"alloy"`

	BridgeListenAddr  string `envconfig:"BRIDGE_LISTEN_ADDR" default:":8080"`
	AudioCodesWSPath  string `envconfig:"AUDIOCODES_WS_PATH" default:"/voiceai"`
	TwilioWSPath      string `envconfig:"TWILIO_WS_PATH" default:"/twilio"`

	AudioQueueCapacity int `envconfig:"AUDIO_QUEUE_CAPACITY" default:"32"`

	RateLimitMaxRequests int `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"100"`
	RateLimitMaxBytes    int `envconfig:"RATE_LIMIT_MAX_BYTES" default:"10485760"`

	VADDedupWindowMs int `envconfig:"VAD_DEDUP_WINDOW_MS" default:"200"`

	// VADModelPath, if set, enables a locally-run VAD detector alongside
	// the upstream's own server_vad turn detection (spec §3 "VAD speech
	// event", §9 Open Question 4). Empty means disabled; the bridge then
	// relies solely on the upstream's speech-started/stopped events.
	// Requires a binary built with '-tags vad' to do anything but fail
	// detector construction.
	VADModelPath  string  `envconfig:"VAD_MODEL_PATH" default:""`
	VADThreshold  float32 `envconfig:"VAD_THRESHOLD" default:"0.5"`
}

// Load reads a .env file if present (missing is not an error, mirroring
// the teacher's godotenv.Load() call in cmd/main.go) then binds
// environment variables into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
