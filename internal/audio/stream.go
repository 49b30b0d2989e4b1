package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// Stream drives one capture device into one Sink.
type Stream struct {
	dev  Device
	cfg  StreamConfig
	sink Sink

	mu       sync.Mutex
	device   *malgo.Device
	deviceID unsafe.Pointer // C copy of dev.id, owned until Stop
	started  bool
}

// Open validates cfg and initializes a capture device bound to sink. The
// device does not deliver audio until Start is called. Call Stop() when done.
func Open(ctx *Context, dev Device, cfg StreamConfig, sink Sink) (*Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.New("audio: nil sink")
	}
	if ctx == nil || ctx.ctx == nil {
		return nil, errors.New("audio: context is not open")
	}

	s := &Stream{dev: dev, cfg: cfg, sink: sink, deviceID: dev.id.Pointer()}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = cfg.Format.malgoFormat()
	deviceCfg.Capture.Channels = uint32(cfg.Channels)
	deviceCfg.Capture.DeviceID = s.deviceID
	deviceCfg.SampleRate = uint32(cfg.SampleRate)
	deviceCfg.PeriodSizeInFrames = uint32(cfg.BufferFrames)

	callbacks := malgo.DeviceCallbacks{
		Data: s.onData,
	}

	device, err := malgo.InitDevice(ctx.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		freeC(s.deviceID)
		return nil, fmt.Errorf("initializing capture device %q: %w", dev.Name, err)
	}
	s.device = device

	slog.Debug("[audio] stream opened", "device", dev.Name, "config", cfg.String())
	return s, nil
}

// Config returns the stream's immutable configuration.
func (s *Stream) Config() StreamConfig { return s.cfg }

// Device returns the device the stream captures from.
func (s *Stream) Device() Device { return s.dev }

// Start begins audio delivery. Starting a running stream is a no-op.
func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return errors.New("audio: stream is stopped")
	}
	if s.started {
		return nil
	}
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("starting capture device: %w", err)
	}
	s.started = true
	return nil
}

// Stop halts delivery and releases the device. When Stop returns no
// callback is running or will run again, so the sink may be finalized.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != nil {
		// Uninit stops the device and joins its worker thread.
		s.device.Uninit()
		s.device = nil
	}
	freeC(s.deviceID)
	s.deviceID = nil
	s.started = false
	return nil
}

// onData is the malgo callback invoked when captured frames are available.
func (s *Stream) onData(_, pSample []byte, frameCount uint32) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[audio] recovered panic in capture callback", "panic", r)
		}
	}()

	block, err := DecodeBlock(pSample, s.cfg.Format, int(frameCount)*s.cfg.Channels)
	if err != nil {
		slog.Error("[audio] dropping block", "error", err)
		return
	}
	if err := s.sink.Accept(block); err != nil {
		slog.Error("[audio] sink rejected block", "error", err, "samples", len(block))
	}
}
