package transcribe

// WindowBuffer accumulates samples into a fixed-size window. It fills and
// flushes: once full, the window is handed out whole and a fresh empty one
// takes its place. Nothing is carried over between windows.
type WindowBuffer struct {
	data []float32
	pos  int
}

// NewWindowBuffer creates a buffer holding capacity samples per window.
func NewWindowBuffer(capacity int) *WindowBuffer {
	return &WindowBuffer{data: make([]float32, capacity)}
}

// Cap returns the window size in samples.
func (w *WindowBuffer) Cap() int { return len(w.data) }

// Len returns the write cursor, i.e. samples held since the last reset.
func (w *WindowBuffer) Len() int { return w.pos }

// Push copies block into the window. If this fills the window, the full
// window is returned and the buffer restarts empty. Samples of block that
// do not fit in the current window are discarded and counted in dropped;
// they are not carried into the next window.
func (w *WindowBuffer) Push(block []float32) (full []float32, dropped int) {
	n := copy(w.data[w.pos:], block)
	w.pos += n
	dropped = len(block) - n

	if w.pos < len(w.data) {
		return nil, dropped
	}
	full = w.data
	w.reset()
	return full, dropped
}

// Drain returns the partially filled window zero-padded to full length, or
// nil if nothing was written. The buffer restarts empty.
func (w *WindowBuffer) Drain() []float32 {
	if w.pos == 0 {
		return nil
	}
	full := w.data
	w.reset()
	return full
}

func (w *WindowBuffer) reset() {
	w.data = make([]float32, len(w.data))
	w.pos = 0
}
