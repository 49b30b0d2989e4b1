package audio

// Sink consumes converted sample blocks from a capture stream.
//
// Accept is called on the backend's real-time thread. Implementations must
// not block on locks held by other goroutines; a contended block should be
// dropped instead. The block is owned by the sink after the call.
type Sink interface {
	Accept(block []float32) error
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(block []float32) error

// Accept calls f(block).
func (f SinkFunc) Accept(block []float32) error { return f(block) }
