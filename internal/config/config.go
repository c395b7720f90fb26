// Package config handles loading and validating the asistan configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the asistan daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	ASR        ASRConfig        `mapstructure:"asr"`
	TTS        TTSConfig        `mapstructure:"tts"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Store      StoreConfig      `mapstructure:"store"`
	Weather    WeatherConfig    `mapstructure:"weather"`
	Devices    DevicesConfig    `mapstructure:"devices"`
	Media      MediaConfig      `mapstructure:"media"`
	Calendar   CalendarConfig   `mapstructure:"calendar"`
	Dialogue   DialogueConfig   `mapstructure:"dialogue"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// ASRConfig selects and configures the speech-to-text backend.
type ASRConfig struct {
	Backend        string `mapstructure:"backend"`         // "whisper" or "console"
	Endpoint       string `mapstructure:"endpoint"`        // whisper-asr-webservice URL
	Language       string `mapstructure:"language"`        // ISO-639-1 (default "tr")
	CaptureCommand string `mapstructure:"capture_command"` // recorder writing WAV to stdout
	CaptureSeconds int    `mapstructure:"capture_seconds"`
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Backend string      `mapstructure:"backend"` // "piper" or "console"
	Piper   PiperConfig `mapstructure:"piper"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
type PiperConfig struct {
	Endpoint      string `mapstructure:"endpoint"`       // Wyoming TCP endpoint (host:port)
	Voice         string `mapstructure:"voice"`          // Piper voice model name
	PlayerCommand string `mapstructure:"player_command"` // audio player reading WAV from stdin
}

// ClassifierConfig points at the small-talk text classification service.
type ClassifierConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

// StoreConfig holds task storage settings.
type StoreConfig struct {
	Path string `mapstructure:"path"` // SQLite database file
}

// WeatherConfig holds OpenWeatherMap settings.
type WeatherConfig struct {
	APIKey string `mapstructure:"api_key"` // supports "${OWM_API_KEY}" references
	City   string `mapstructure:"city"`
}

// DevicesConfig maps volume and brightness adjustments to shell commands.
// Each command may contain a {step} placeholder.
type DevicesConfig struct {
	VolumeUp       string `mapstructure:"volume_up"`
	VolumeDown     string `mapstructure:"volume_down"`
	VolumeStep     int    `mapstructure:"volume_step"`
	BrightnessUp   string `mapstructure:"brightness_up"`
	BrightnessDown string `mapstructure:"brightness_down"`
	BrightnessStep int    `mapstructure:"brightness_step"`
}

// MediaConfig configures music playback via a search page and an opener.
type MediaConfig struct {
	SearchURL     string `mapstructure:"search_url"`     // search page, query appended
	WatchURL      string `mapstructure:"watch_url"`      // video page, id appended
	OpenerCommand string `mapstructure:"opener_command"` // command receiving the URL as last arg
}

// CalendarConfig names the desktop calendar application to open and close.
type CalendarConfig struct {
	Command string `mapstructure:"command"`
}

// DialogueConfig bounds the slot-filling conversations.
type DialogueConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./asistan.yaml, ./configs/asistan.yaml, /etc/asistan/asistan.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("asr.backend", "whisper")
	v.SetDefault("asr.endpoint", "http://localhost:9000/asr")
	v.SetDefault("asr.language", "tr")
	v.SetDefault("asr.capture_command", "arecord -q -f S16_LE -r 16000 -c 1 -d 5 -t wav -")
	v.SetDefault("asr.capture_seconds", 5)
	v.SetDefault("tts.backend", "piper")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("tts.piper.voice", "tr_TR-fettah-medium")
	v.SetDefault("tts.piper.player_command", "aplay -q -")
	v.SetDefault("classifier.endpoint", "http://localhost:5005/predict")
	v.SetDefault("store.path", "asistan.db")
	v.SetDefault("weather.api_key", "${OWM_API_KEY}")
	v.SetDefault("weather.city", "Istanbul")
	v.SetDefault("devices.volume_up", "amixer -q set Master {step}%+")
	v.SetDefault("devices.volume_down", "amixer -q set Master {step}%-")
	v.SetDefault("devices.volume_step", 10)
	v.SetDefault("devices.brightness_up", "brightnessctl -q set +{step}%")
	v.SetDefault("devices.brightness_down", "brightnessctl -q set {step}%-")
	v.SetDefault("devices.brightness_step", 10)
	v.SetDefault("media.search_url", "https://www.youtube.com/results?search_query=")
	v.SetDefault("media.watch_url", "https://www.youtube.com/watch?v=")
	v.SetDefault("media.opener_command", "xdg-open")
	v.SetDefault("calendar.command", "gnome-calendar")
	v.SetDefault("dialogue.max_retries", 3)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("asistan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/asistan")
	}

	// Environment variables: ASISTAN_ASR_ENDPOINT, ASISTAN_WEATHER_CITY, etc.
	v.SetEnvPrefix("ASISTAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional — env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OWM_API_KEY}")
	cfg.Weather.APIKey = resolveEnvRef(cfg.Weather.APIKey)

	return &cfg, nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
		return ""
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
