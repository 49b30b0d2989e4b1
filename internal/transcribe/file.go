package transcribe

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/go-audio/wav"
)

const wavFormatFloat = 3

// ErrSampleRate is returned for input audio not sampled at SampleRate.
var ErrSampleRate = errors.New("transcribe: audio must be 16kHz")

// LoadWAV decodes a WAV file into mono float32 samples in [-1.0, 1.0].
// Multi-channel audio is averaged down to mono; no resampling is done.
func LoadWAV(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transcribe: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("transcribe: decode %s: %w", path, err)
	}
	if dec.SampleRate != SampleRate {
		return nil, fmt.Errorf("%w: %s is %dHz", ErrSampleRate, path, dec.SampleRate)
	}

	samples := pcmToFloat32(buf.Data, int(dec.BitDepth), dec.WavAudioFormat == wavFormatFloat)
	return downmix(samples, int(dec.NumChans)), nil
}

// pcmToFloat32 normalizes decoded WAV integers. 8-bit WAV is unsigned;
// 32-bit float files decode to the IEEE bit pattern.
func pcmToFloat32(data []int, bitDepth int, isFloat bool) []float32 {
	out := make([]float32, len(data))
	switch {
	case isFloat:
		for i, v := range data {
			out[i] = math.Float32frombits(uint32(int32(v)))
		}
	case bitDepth == 8:
		for i, v := range data {
			out[i] = float32(v-128) / 128
		}
	default:
		scale := float64(int64(1) << (bitDepth - 1))
		for i, v := range data {
			out[i] = float32(float64(v) / scale)
		}
	}
	return out
}

// downmix averages interleaved frames into a mono signal.
func downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// TranscribeSamples splits samples into windows of windowSize, zero-pads
// the last one, and transcribes each in order. Segment times are relative
// to the start of samples. A window the engine fails on is logged and
// discarded; the remaining windows are still transcribed.
func TranscribeSamples(t Transcriber, samples []float32, windowSize int) ([]Segment, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("transcribe: window size must be > 0, got %d", windowSize)
	}

	span := time.Duration(windowSize) * time.Second / SampleRate
	buf := NewWindowBuffer(windowSize)

	var out []Segment
	process := func(index int, w []float32) {
		segments, err := t.Process(w)
		if err != nil {
			slog.Error("[transcribe] window discarded", "window", index, "error", err)
			return
		}
		offset := time.Duration(index) * span
		for _, seg := range segments {
			seg.Start += offset
			seg.End += offset
			out = append(out, seg)
		}
	}

	index := 0
	for off := 0; off < len(samples); off += windowSize {
		full, _ := buf.Push(samples[off:min(off+windowSize, len(samples))])
		if full == nil {
			continue
		}
		process(index, full)
		index++
	}
	if rest := buf.Drain(); rest != nil {
		process(index, rest)
	}
	return out, nil
}

// TranscribeFile loads a 16kHz WAV file and transcribes it window by window.
func TranscribeFile(t Transcriber, path string, windowSize int) ([]Segment, error) {
	samples, err := LoadWAV(path)
	if err != nil {
		return nil, err
	}
	return TranscribeSamples(t, samples, windowSize)
}
