package transcribe

import (
	"fmt"
	"io"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperOptions tunes decoding. Zero values keep whisper.cpp defaults.
type WhisperOptions struct {
	Language string
	Threads  uint
}

// WhisperTranscriber wraps a whisper.cpp model for speech-to-text.
// The model and its inference state are loaded once and reused for every
// window.
type WhisperTranscriber struct {
	opts WhisperOptions

	mu    sync.Mutex
	model whisper.Model
}

// NewWhisperTranscriber loads a whisper model from the given path.
// The caller must call Close() when done.
func NewWhisperTranscriber(modelPath string, opts WhisperOptions) (*WhisperTranscriber, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", modelPath, err)
	}

	t := &WhisperTranscriber{opts: opts, model: model}

	// Fail on a bad language now rather than on the first window.
	if _, err := t.newContext(); err != nil {
		_ = model.Close()
		return nil, err
	}
	return t, nil
}

// newContext returns decoding parameters bound to the shared model state.
func (t *WhisperTranscriber) newContext() (whisper.Context, error) {
	ctx, err := t.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("transcribe: create context: %w", err)
	}
	if t.opts.Language != "" {
		if err := ctx.SetLanguage(t.opts.Language); err != nil {
			return nil, fmt.Errorf("transcribe: set language %q: %w", t.opts.Language, err)
		}
	}
	if t.opts.Threads > 0 {
		ctx.SetThreads(t.opts.Threads)
	}
	return ctx, nil
}

// Close releases the whisper model resources.
func (t *WhisperTranscriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model == nil {
		return nil
	}
	err := t.model.Close()
	t.model = nil
	return err
}

// Process transcribes mono 16kHz float32 audio samples to segments.
func (t *WhisperTranscriber) Process(samples []float32) ([]Segment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model == nil {
		return nil, fmt.Errorf("transcribe: model is closed")
	}

	ctx, err := t.newContext()
	if err != nil {
		return nil, err
	}
	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("transcribe: process: %w", err)
	}

	var segments []Segment
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("transcribe: next segment: %w", err)
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Text: text, Start: seg.Start, End: seg.End})
	}
	return segments, nil
}
