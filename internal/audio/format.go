// Package audio captures microphone input through miniaudio (malgo) and
// forwards converted float32 blocks to a Sink.
package audio

import (
	"errors"
	"fmt"

	"github.com/gen2brain/malgo"
)

var (
	// ErrUnsupportedFormat is returned when a native sample format cannot be converted.
	ErrUnsupportedFormat = errors.New("audio: unsupported sample format")
	// ErrNoDevice is returned when no input device matches the request.
	ErrNoDevice = errors.New("audio: no matching input device")
)

// SampleFormat is the native encoding of samples delivered by the device.
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	Int8
	Int16
	Int32
	Float32
)

func (f SampleFormat) String() string {
	switch f {
	case Int8:
		return "i8"
	case Int16:
		return "i16"
	case Int32:
		return "i32"
	case Float32:
		return "f32"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// BytesPerSample returns the storage size of one sample, or 0 if unsupported.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	default:
		return 0
	}
}

// BitsPerSample returns the bit depth written to file headers.
func (f SampleFormat) BitsPerSample() int { return f.BytesPerSample() * 8 }

// IsFloat reports whether samples are IEEE floating point.
func (f SampleFormat) IsFloat() bool { return f == Float32 }

// Validate fails fast for formats the converter cannot handle.
func (f SampleFormat) Validate() error {
	if f.BytesPerSample() == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return nil
}

func (f SampleFormat) malgoFormat() malgo.FormatType {
	switch f {
	case Int8:
		return malgo.FormatU8
	case Int16:
		return malgo.FormatS16
	case Int32:
		return malgo.FormatS32
	case Float32:
		return malgo.FormatF32
	default:
		return malgo.FormatUnknown
	}
}

// FormatFromMalgo maps a miniaudio format onto a SampleFormat.
// 24-bit packed samples are not supported.
func FormatFromMalgo(ft malgo.FormatType) (SampleFormat, error) {
	switch ft {
	case malgo.FormatU8:
		return Int8, nil
	case malgo.FormatS16:
		return Int16, nil
	case malgo.FormatS32:
		return Int32, nil
	case malgo.FormatF32:
		return Float32, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: miniaudio format %d", ErrUnsupportedFormat, ft)
	}
}

// StreamConfig describes a capture stream. It is copied by value into the
// stream and never changes afterwards.
type StreamConfig struct {
	Channels   int
	SampleRate int
	Format     SampleFormat
	// BufferFrames is the requested period size. 0 lets the backend choose.
	BufferFrames int
}

// TranscriptionConfig is the fixed capture format used for speech recognition.
func TranscriptionConfig() StreamConfig {
	return StreamConfig{Channels: 1, SampleRate: 16000, Format: Float32}
}

// Validate checks the config before any device is opened.
func (c StreamConfig) Validate() error {
	if err := c.Format.Validate(); err != nil {
		return err
	}
	if c.Channels <= 0 {
		return fmt.Errorf("audio: channels must be > 0, got %d", c.Channels)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("audio: sample rate must be > 0, got %d", c.SampleRate)
	}
	if c.BufferFrames < 0 {
		return fmt.Errorf("audio: buffer frames must be >= 0, got %d", c.BufferFrames)
	}
	return nil
}

func (c StreamConfig) String() string {
	return fmt.Sprintf("%dHz %dch %s", c.SampleRate, c.Channels, c.Format)
}
