package decoder

import "encoding/binary"

// s16leToF32 converts interleaved signed 16-bit little-endian PCM into
// [-1, 1] float32 samples. data must have an even length; a trailing odd
// byte (which should never occur on a frame boundary) is ignored.
func s16leToF32(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(data[2*i : 2*i+2]))
		out[i] = float32(sample) / 32768.0
	}
	return out
}
