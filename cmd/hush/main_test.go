package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chaz8081/hush/internal/config"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Audio.DeviceIndex != -1 {
		t.Errorf("Audio.DeviceIndex = %d, want -1", cfg.Audio.DeviceIndex)
	}
}

func TestLoadConfigFromDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "hush")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("audio:\n  window_seconds: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Audio.WindowSecs != 2 {
		t.Errorf("Audio.WindowSecs = %g, want 2", cfg.Audio.WindowSecs)
	}
}

func TestLoadConfigExplicitMissing(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("loadConfig() should fail for a missing explicit path")
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"hosts", "devices", "record", "transcribe", "live", "model"} {
		if commands[name] == nil {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestParseRecordFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Host = "alsa"

	tests := []struct {
		name    string
		args    []string
		want    recordOptions
		wantErr bool
	}{
		{
			name: "defaults",
			args: nil,
			want: recordOptions{duration: 5 * time.Second, output: "recorded.wav", device: -1, host: "alsa"},
		},
		{
			name: "whole seconds",
			args: []string{"-duration", "10", "-output", "out.wav", "-device", "2", "-host", "null"},
			want: recordOptions{duration: 10 * time.Second, output: "out.wav", device: 2, host: "null"},
		},
		{
			name:    "unit suffix rejected",
			args:    []string{"-duration", "10s"},
			wantErr: true,
		},
		{
			name:    "zero duration",
			args:    []string{"-duration", "0"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRecordFlags(cfg, tt.args, flag.ContinueOnError)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRecordFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseRecordFlags() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
