package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Audio      AudioConfig      `yaml:"audio"`
	LogLevel   string           `yaml:"log_level"`
}

// TranscribeConfig holds speech-to-text settings.
type TranscribeConfig struct {
	Backend   string `yaml:"backend"` // "whisper"
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"` // empty or "auto" lets whisper detect
	Threads   uint   `yaml:"threads"`  // 0 = whisper.cpp default
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	Host         string  `yaml:"host"`          // backend name, empty = platform default
	DeviceIndex  int     `yaml:"device_index"`  // -1 = default input device
	BufferFrames int     `yaml:"buffer_frames"` // 0 = backend default
	WindowSecs   float64 `yaml:"window_seconds"`
	QueueDepth   int     `yaml:"queue_depth"`
}

// WindowSamples returns the live transcription window length at sampleRate.
func (a AudioConfig) WindowSamples(sampleRate int) int {
	return int(a.WindowSecs * float64(sampleRate))
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "hush")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns the directory models are downloaded to.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "models")
	}
	return filepath.Join(home, ".local", "share", "hush", "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Transcribe: TranscribeConfig{
			Backend:   "whisper",
			ModelPath: filepath.Join(DefaultModelsDir(), "ggml-base.en.bin"),
			Language:  "en",
		},
		Audio: AudioConfig{
			DeviceIndex: -1,
			WindowSecs:  5,
			QueueDepth:  2,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in model_path is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Transcribe.ModelPath = expandTilde(cfg.Transcribe.ModelPath)

	return cfg, nil
}

const defaultHeader = `# hush configuration
# host: audio backend (see 'hush hosts'); empty uses the platform default.
# device_index: input device (see 'hush devices'); -1 uses the default device.
# window_seconds: audio per live transcription window.
`

// WriteDefault writes the default config to DefaultConfigPath. If the file
// already exists it is left untouched and the returned path is empty.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Transcribe.Backend {
	case "whisper":
		if c.Transcribe.ModelPath == "" {
			return fmt.Errorf("transcribe.model_path must not be empty")
		}
	default:
		return fmt.Errorf("transcribe.backend must be \"whisper\", got %q", c.Transcribe.Backend)
	}

	if c.Audio.DeviceIndex < -1 {
		return fmt.Errorf("audio.device_index must be >= -1, got %d", c.Audio.DeviceIndex)
	}

	if c.Audio.BufferFrames < 0 {
		return fmt.Errorf("audio.buffer_frames must be >= 0, got %d", c.Audio.BufferFrames)
	}

	// whisper.cpp processes at most 30s per call
	if c.Audio.WindowSecs <= 0 || c.Audio.WindowSecs > 30 {
		return fmt.Errorf("audio.window_seconds must be in (0, 30], got %g", c.Audio.WindowSecs)
	}

	if c.Audio.QueueDepth <= 0 {
		return fmt.Errorf("audio.queue_depth must be > 0, got %d", c.Audio.QueueDepth)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a log_level string to a slog level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
