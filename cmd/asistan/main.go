// Asistan is a Turkish voice assistant daemon: it listens for utterances,
// matches them to intents, runs multi-turn calendar dialogues, and answers
// through text-to-speech.
//
// Usage:
//
//	asistan [flags]
//	asistan --config /path/to/asistan.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sudeakyildz/sesli-asistan/internal/asr"
	consoleasr "github.com/sudeakyildz/sesli-asistan/internal/asr/console"
	"github.com/sudeakyildz/sesli-asistan/internal/asr/whisper"
	"github.com/sudeakyildz/sesli-asistan/internal/classify"
	"github.com/sudeakyildz/sesli-asistan/internal/config"
	"github.com/sudeakyildz/sesli-asistan/internal/device"
	"github.com/sudeakyildz/sesli-asistan/internal/dialogue"
	"github.com/sudeakyildz/sesli-asistan/internal/dispatch"
	"github.com/sudeakyildz/sesli-asistan/internal/health"
	"github.com/sudeakyildz/sesli-asistan/internal/intent"
	"github.com/sudeakyildz/sesli-asistan/internal/store/sqlite"
	"github.com/sudeakyildz/sesli-asistan/internal/tts"
	consoletts "github.com/sudeakyildz/sesli-asistan/internal/tts/console"
	"github.com/sudeakyildz/sesli-asistan/internal/tts/piper"
	"github.com/sudeakyildz/sesli-asistan/internal/weather"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/asistan.local.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("asistan %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("asistan starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize the speech-to-text backend.
	var listener asr.Listener
	switch cfg.ASR.Backend {
	case "whisper":
		listener = whisper.New(cfg.ASR)
		slog.Info("using whisper transcription", "endpoint", cfg.ASR.Endpoint, "language", cfg.ASR.Language)
	case "console":
		listener = consoleasr.New()
		slog.Info("using console input")
	default:
		slog.Error("unknown asr backend", "backend", cfg.ASR.Backend)
		os.Exit(1)
	}
	defer listener.Close()

	// Initialize the text-to-speech backend.
	var speaker tts.Speaker
	switch cfg.TTS.Backend {
	case "piper":
		speaker = piper.New(cfg.TTS.Piper)
		slog.Info("using piper speech", "endpoint", cfg.TTS.Piper.Endpoint, "voice", cfg.TTS.Piper.Voice)
	case "console":
		speaker = consoletts.New()
		slog.Info("using console output")
	default:
		slog.Error("unknown tts backend", "backend", cfg.TTS.Backend)
		os.Exit(1)
	}
	defer speaker.Close()

	// The statistical fallback classifier is optional.
	var classifier intent.Classifier
	if cfg.Classifier.Endpoint != "" {
		classifier = classify.New(cfg.Classifier.Endpoint)
	}
	matcher := intent.New(classifier)

	// Open the task store.
	tasks, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		slog.Error("failed to open task store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer tasks.Close()

	var forecast *weather.Client
	if cfg.Weather.APIKey != "" {
		forecast = weather.New(cfg.Weather.APIKey, cfg.Weather.City)
	} else {
		slog.Warn("no weather API key configured, weather queries disabled")
	}

	devices := &device.Commands{
		VolumeUp:       cfg.Devices.VolumeUp,
		VolumeDown:     cfg.Devices.VolumeDown,
		BrightnessUp:   cfg.Devices.BrightnessUp,
		BrightnessDown: cfg.Devices.BrightnessDown,
	}

	flows := dialogue.New(listener, speaker, matcher, tasks, cfg.Dialogue.MaxRetries)

	healthServer := health.New(cfg.Server.HealthPort)

	assistant := dispatch.New(dispatch.Options{
		Listener:       listener,
		Speaker:        speaker,
		Matcher:        matcher,
		Flows:          flows,
		Tasks:          tasks,
		Devices:        devices,
		Weather:        forecast,
		VolumeStep:     cfg.Devices.VolumeStep,
		BrightnessStep: cfg.Devices.BrightnessStep,
		MusicSearchURL: cfg.Media.SearchURL,
		MusicWatchURL:  cfg.Media.WatchURL,
		OpenerCommand:  cfg.Media.OpenerCommand,
		CalendarCmd:    cfg.Calendar.Command,
		Ready:          healthServer.SetReady,
	})
	defer assistant.Close()

	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	healthServer.SetReady(true)
	slog.Info("asistan ready",
		"asr", cfg.ASR.Backend,
		"tts", cfg.TTS.Backend,
		"health_port", cfg.Server.HealthPort)

	// Run the turn loop until the user closes the session or a signal lands.
	if err := assistant.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("assistant loop failed", "error", err)
		os.Exit(1)
	}

	healthServer.SetReady(false)
	slog.Info("asistan stopped")
}
