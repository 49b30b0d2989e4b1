package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Full-scale divisors for each integer bit depth.
const (
	scale8  = 1 << 7
	scale16 = 1 << 15
	scale32 = 1 << 31
)

// Int8ToFloat32 maps a signed 8-bit sample onto [-1.0, 1.0).
func Int8ToFloat32(s int8) float32 { return float32(s) / scale8 }

// Int16ToFloat32 maps a signed 16-bit sample onto [-1.0, 1.0).
func Int16ToFloat32(s int16) float32 { return float32(s) / scale16 }

// Int32ToFloat32 maps a signed 32-bit sample onto [-1.0, 1.0].
// Values beyond float32 precision are rounded; the extremes stay exact.
func Int32ToFloat32(s int32) float32 { return float32(float64(s) / scale32) }

// Float32ToInt8 is the inverse of Int8ToFloat32, saturating out-of-range input.
func Float32ToInt8(f float32) int8 {
	return int8(quantize(f, scale8, math.MinInt8, math.MaxInt8))
}

// Float32ToInt16 is the inverse of Int16ToFloat32, saturating out-of-range input.
func Float32ToInt16(f float32) int16 {
	return int16(quantize(f, scale16, math.MinInt16, math.MaxInt16))
}

// Float32ToInt32 is the inverse of Int32ToFloat32, saturating out-of-range input.
func Float32ToInt32(f float32) int32 {
	return int32(quantize(f, scale32, math.MinInt32, math.MaxInt32))
}

func quantize(f float32, scale, lo, hi float64) int64 {
	if f != f { // NaN
		return 0
	}
	v := math.Round(float64(f) * scale)
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return int64(v)
}

// DecodeBlock converts a raw little-endian capture buffer holding n samples
// of the given format into a freshly allocated float32 slice.
//
// 8-bit data is delivered by miniaudio as unsigned offset-binary and is
// re-centred to signed before scaling.
func DecodeBlock(raw []byte, format SampleFormat, n int) ([]float32, error) {
	size := format.BytesPerSample()
	if size == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if len(raw) < n*size {
		return nil, fmt.Errorf("audio: short block: %d bytes for %d %s samples", len(raw), n, format)
	}

	out := make([]float32, n)
	switch format {
	case Int8:
		for i := range out {
			out[i] = Int8ToFloat32(int8(raw[i] ^ 0x80))
		}
	case Int16:
		for i := range out {
			out[i] = Int16ToFloat32(int16(binary.LittleEndian.Uint16(raw[i*2:])))
		}
	case Int32:
		for i := range out {
			out[i] = Int32ToFloat32(int32(binary.LittleEndian.Uint32(raw[i*4:])))
		}
	case Float32:
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	}
	return out, nil
}
