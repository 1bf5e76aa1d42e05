// Command bridge is the process entrypoint: it loads configuration,
// builds the metrics registry, and serves the AudioCodes and Twilio
// WebSocket endpoints plus a health and metrics endpoint. Bootstrap
// shape (env load, then listen) mirrors the teacher's cmd/main.go.
package main

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/voicebridge/bridge/internal/bridge"
	"github.com/voicebridge/bridge/internal/config"
	"github.com/voicebridge/bridge/internal/metrics"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	reg := metrics.New()
	orch := bridge.New(cfg, reg, log)

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.AudioCodesWSPath, orch.ServeAudioCodes)
	mux.HandleFunc(cfg.TwilioWSPath, orch.ServeTwilio)
	mux.Handle("/metrics", promhttp.HandlerFor(reg.AsGatherer(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	log.Info().Str("addr", cfg.BridgeListenAddr).Msg("voicebridge listening")
	if err := http.ListenAndServe(cfg.BridgeListenAddr, mux); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
