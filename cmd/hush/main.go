package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/chaz8081/hush/internal/config"
)

const usage = `usage: hush [-config path] <command> [flags]

commands:
  init        write a default config file
  hosts       list audio backends on this platform
  devices     list input devices of a host
  record      record the default input device to a WAV file
  transcribe  transcribe a 16kHz WAV file
  live        transcribe the default input device until interrupted
  model       download a whisper model
`

type command func(cfg *config.Config, args []string) error

var commands = map[string]command{
	"hosts":      runHosts,
	"devices":    runDevices,
	"record":     runRecord,
	"transcribe": runTranscribe,
	"live":       runLive,
	"model":      runModel,
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/hush/config.yaml)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	name, args := flag.Arg(0), flag.Args()[1:]

	if name == "init" {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("init: %v", err)
		}
		if path == "" {
			fmt.Printf("Config already exists: %s\n", config.DefaultConfigPath())
			return
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return
	}

	run, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "hush: unknown command %q\n\n", name)
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	if err := run(cfg, args); err != nil {
		log.Fatalf("%s: %v", name, err)
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	// No config file, use defaults
	return config.Default(), nil
}
