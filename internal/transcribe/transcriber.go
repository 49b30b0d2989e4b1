// Package transcribe turns fixed-length windows of mono 16kHz audio into
// text segments.
//
// The live path feeds a WindowSink from a capture stream; the offline path
// reads a WAV file through the same window logic. Inference is done by a
// Transcriber, currently whisper.cpp via its Go bindings.
package transcribe

import (
	"fmt"
	"time"

	"github.com/chaz8081/hush/internal/config"
)

// SampleRate is the only input rate the speech models accept.
const SampleRate = 16000

// Segment is one piece of recognized text.
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Transcriber converts audio samples to text.
type Transcriber interface {
	// Process transcribes mono 16kHz float32 audio samples into segments in
	// temporal order.
	Process(samples []float32) ([]Segment, error)
	// Close releases backend resources.
	Close() error
}

// New creates a Transcriber based on the config backend setting.
func New(cfg *config.TranscribeConfig) (Transcriber, error) {
	switch cfg.Backend {
	case "whisper", "":
		return NewWhisperTranscriber(cfg.ModelPath, WhisperOptions{
			Language: cfg.Language,
			Threads:  cfg.Threads,
		})
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: whisper)", cfg.Backend)
	}
}
