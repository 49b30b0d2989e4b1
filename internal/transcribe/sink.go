package transcribe

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultQueueDepth = 2

// SegmentHandler receives the segments of one window, in order.
type SegmentHandler func(segments []Segment)

// WindowOptions configures a WindowSink.
type WindowOptions struct {
	// Capacity is the window length in samples.
	Capacity int
	// SampleRate of the incoming samples, used for segment timestamps.
	SampleRate int
	// QueueDepth is how many full windows may wait for the engine.
	QueueDepth int
}

type window struct {
	seq     uint64
	samples []float32
}

// WindowSink collects captured samples into windows and transcribes each
// full window on a background worker, so the capture callback never waits
// for inference.
type WindowSink struct {
	engine Transcriber
	emit   SegmentHandler
	span   time.Duration // audio length of one window

	mu     sync.Mutex
	buf    *WindowBuffer
	seq    uint64
	closed bool

	queue chan window
	done  chan struct{}
}

// NewWindowSink starts a sink that hands full windows to engine and passes
// the results to emit. Call Close() when done.
func NewWindowSink(engine Transcriber, opts WindowOptions, emit SegmentHandler) (*WindowSink, error) {
	if engine == nil {
		return nil, fmt.Errorf("transcribe: nil engine")
	}
	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("transcribe: window capacity must be > 0, got %d", opts.Capacity)
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = SampleRate
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = defaultQueueDepth
	}
	if emit == nil {
		emit = func([]Segment) {}
	}

	s := &WindowSink{
		engine: engine,
		emit:   emit,
		span:   time.Duration(opts.Capacity) * time.Second / time.Duration(opts.SampleRate),
		buf:    NewWindowBuffer(opts.Capacity),
		queue:  make(chan window, opts.QueueDepth),
		done:   make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Accept appends block to the current window. It never blocks: a contended
// lock drops the block, and a full queue drops the finished window.
func (s *WindowSink) Accept(block []float32) error {
	if !s.mu.TryLock() {
		return nil
	}
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	full, dropped := s.buf.Push(block)
	if dropped > 0 {
		slog.Debug("[transcribe] block overflowed window", "dropped", dropped)
	}
	if full == nil {
		return nil
	}

	w := window{seq: s.seq, samples: full}
	s.seq++

	select {
	case s.queue <- w:
	default:
		slog.Warn("[transcribe] queue full, dropping window", "window", w.seq)
	}
	return nil
}

// Pending returns the number of samples in the current, unfinished window.
func (s *WindowSink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

// Close stops accepting samples, waits for queued windows to be
// transcribed, and stops the worker. The partial window is discarded.
func (s *WindowSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *WindowSink) run() {
	defer close(s.done)
	for w := range s.queue {
		s.transcribe(w)
	}
}

func (s *WindowSink) transcribe(w window) {
	start := time.Now()
	segments, err := s.engine.Process(w.samples)
	if err != nil {
		slog.Error("[transcribe] window discarded", "window", w.seq, "error", err)
		return
	}
	slog.Debug("[transcribe] window done", "window", w.seq, "segments", len(segments),
		"elapsed", time.Since(start).Round(time.Millisecond))

	offset := time.Duration(w.seq) * s.span
	for i := range segments {
		segments[i].Start += offset
		segments[i].End += offset
	}
	if len(segments) > 0 {
		s.emit(segments)
	}
}
