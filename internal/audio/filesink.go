package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV fmt chunk audio format codes.
const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// ErrEmptyRecording is returned by Finalize when no samples were written.
var ErrEmptyRecording = errors.New("audio: recording is empty")

// FileSink writes captured blocks to a WAV file at the stream's native bit depth.
type FileSink struct {
	path string

	mu        sync.Mutex
	f         *os.File
	enc       *wav.Encoder
	buf       *goaudio.IntBuffer
	format    SampleFormat
	samples   int
	err       error
	finalized bool
}

// CreateFileSink creates path and prepares a WAV encoder whose header
// matches cfg.
func CreateFileSink(path string, cfg StreamConfig) (*FileSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	wavFormat := wavFormatPCM
	if cfg.Format.IsFloat() {
		wavFormat = wavFormatFloat
	}

	return &FileSink{
		path: path,
		f:    f,
		enc:  wav.NewEncoder(f, cfg.SampleRate, cfg.Format.BitsPerSample(), cfg.Channels, wavFormat),
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: cfg.Channels,
				SampleRate:  cfg.SampleRate,
			},
			SourceBitDepth: cfg.Format.BitsPerSample(),
		},
		format: cfg.Format,
	}, nil
}

// Path returns the output file path.
func (s *FileSink) Path() string { return s.path }

// Accept appends block to the file. If Finalize holds the lock the block is
// dropped. After a write error or Finalize, blocks are silently discarded.
func (s *FileSink) Accept(block []float32) error {
	if !s.mu.TryLock() {
		return nil
	}
	defer s.mu.Unlock()

	if s.finalized || s.err != nil {
		return nil
	}

	s.buf.Data = s.buf.Data[:0]
	for _, v := range block {
		s.buf.Data = append(s.buf.Data, s.encodeSample(v))
	}
	if err := s.enc.Write(s.buf); err != nil {
		s.err = fmt.Errorf("writing %s: %w", s.path, err)
		return s.err
	}
	s.samples += len(block)
	return nil
}

// encodeSample maps a float sample to the integer the encoder expects for
// the file's bit depth. 8-bit WAV is unsigned; float samples travel as
// their IEEE bit pattern.
func (s *FileSink) encodeSample(v float32) int {
	switch s.format {
	case Int8:
		return int(Float32ToInt8(v)) + 128
	case Int16:
		return int(Float32ToInt16(v))
	case Int32:
		return int(Float32ToInt32(v))
	default:
		return int(int32(math.Float32bits(v)))
	}
}

// Samples returns the number of samples written so far.
func (s *FileSink) Samples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// Finalize writes the final header sizes and closes the file. It must be
// called exactly once, after the stream feeding the sink has stopped.
func (s *FileSink) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		panic("audio: FileSink finalized twice")
	}
	s.finalized = true

	if s.samples == 0 && s.err == nil {
		_ = s.f.Close()
		_ = os.Remove(s.path)
		return fmt.Errorf("%w: %s", ErrEmptyRecording, s.path)
	}

	encErr := s.enc.Close()
	closeErr := s.f.Close()

	if s.err != nil {
		return s.err
	}
	if encErr != nil {
		return fmt.Errorf("finalizing %s: %w", s.path, encErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", s.path, closeErr)
	}
	return nil
}
