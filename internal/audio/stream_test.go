package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/gen2brain/malgo"
)

// recordingSink collects every accepted block.
type recordingSink struct {
	mu     sync.Mutex
	blocks [][]float32
}

func (r *recordingSink) Accept(block []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, block)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.blocks)
}

func float32Bytes(samples ...float32) []byte {
	raw := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(s))
	}
	return raw
}

func TestOpenRejectsUnsupportedFormat(t *testing.T) {
	_, err := Open(nil, Device{}, StreamConfig{Channels: 1, SampleRate: 16000}, &recordingSink{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Open() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestOpenRequiresSinkAndContext(t *testing.T) {
	if _, err := Open(nil, Device{}, TranscriptionConfig(), nil); err == nil {
		t.Error("Open() with nil sink should return error")
	}
	if _, err := Open(nil, Device{}, TranscriptionConfig(), &recordingSink{}); err == nil {
		t.Error("Open() with nil context should return error")
	}
}

func TestStreamCallbackForwardsConvertedBlock(t *testing.T) {
	sink := &recordingSink{}
	s := &Stream{cfg: StreamConfig{Channels: 2, SampleRate: 48000, Format: Float32}, sink: sink}

	s.onData(nil, float32Bytes(0.1, 0.2, 0.3, 0.4), 2)

	if len(sink.blocks) != 1 {
		t.Fatalf("sink received %d blocks, want 1", len(sink.blocks))
	}
	got := sink.blocks[0]
	want := []float32{0.1, 0.2, 0.3, 0.4}
	if len(got) != len(want) {
		t.Fatalf("block length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStreamCallbackDropsShortBlock(t *testing.T) {
	sink := &recordingSink{}
	s := &Stream{cfg: TranscriptionConfig(), sink: sink}

	s.onData(nil, float32Bytes(0.1), 4)
	s.onData(nil, float32Bytes(0.5), 1)

	if len(sink.blocks) != 1 {
		t.Fatalf("sink received %d blocks, want 1", len(sink.blocks))
	}
	if sink.blocks[0][0] != 0.5 {
		t.Errorf("block = %v, want [0.5]", sink.blocks[0])
	}
}

func TestStreamCallbackRecoversPanic(t *testing.T) {
	calls := 0
	sink := SinkFunc(func(block []float32) error {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return nil
	})
	s := &Stream{cfg: TranscriptionConfig(), sink: sink}

	s.onData(nil, float32Bytes(0.1), 1)
	s.onData(nil, float32Bytes(0.2), 1)

	if calls != 2 {
		t.Errorf("sink called %d times, want 2", calls)
	}
}

func TestStreamCallbackContinuesAfterSinkError(t *testing.T) {
	calls := 0
	sink := SinkFunc(func(block []float32) error {
		calls++
		return errors.New("disk full")
	})
	s := &Stream{cfg: TranscriptionConfig(), sink: sink}

	for i := 0; i < 3; i++ {
		s.onData(nil, float32Bytes(0), 1)
	}
	if calls != 3 {
		t.Errorf("sink called %d times, want 3", calls)
	}
}

func TestStreamStopIsIdempotent(t *testing.T) {
	s := &Stream{cfg: TranscriptionConfig(), sink: &recordingSink{}}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("Start() after Stop() should return error")
	}
}

func TestStreamStopReleasesDeviceID(t *testing.T) {
	var id malgo.DeviceID
	s := &Stream{cfg: TranscriptionConfig(), sink: &recordingSink{}, deviceID: id.Pointer()}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if s.deviceID != nil {
		t.Error("Stop() should release the device ID")
	}
	// A second Stop must not free it again.
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestStreamCapturesFromNullBackend(t *testing.T) {
	ctx, err := OpenContext("null")
	if err != nil {
		t.Skipf("null backend unavailable: %v", err)
	}
	defer func() { _ = ctx.Close() }()

	dev, err := ctx.Resolve(-1)
	if err != nil {
		t.Skipf("no capture device on null backend: %v", err)
	}

	sink := &recordingSink{}
	s, err := Open(ctx, dev, TranscriptionConfig(), sink)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Errorf("second Start() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	// No callback may run after Stop returns.
	n := sink.count()
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if sink.count() != n {
		t.Errorf("sink received blocks after Stop()")
	}
}
