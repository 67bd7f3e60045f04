package oto

import (
	"encoding/binary"
	"math"

	"github.com/vsariola/patchbay"
)

// FloatBufferToLE writes the frames of buff into p as interleaved float32
// little-endian samples and returns the number of bytes written. It stops
// when either runs out and never allocates.
func FloatBufferToLE(buff patchbay.AudioBuffer, p []byte) int {
	n := min(len(buff), len(p)/8)
	for i, v := range buff[:n] {
		binary.LittleEndian.PutUint32(p[8*i:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(p[8*i+4:], math.Float32bits(v[1]))
	}
	return 8 * n
}

// FloatBufferTo16BitLE converts the frames to interleaved 16-bit signed
// little-endian samples, clipping to -1..1.
func FloatBufferTo16BitLE(buff patchbay.AudioBuffer, p []byte) int {
	n := min(len(buff), len(p)/4)
	for i, v := range buff[:n] {
		binary.LittleEndian.PutUint16(p[4*i:], uint16(to16(v[0])))
		binary.LittleEndian.PutUint16(p[4*i+2:], uint16(to16(v[1])))
	}
	return 4 * n
}

func to16(v float32) int16 {
	if v < -1.0 {
		return -math.MaxInt16
	} else if v > 1.0 {
		return math.MaxInt16
	}
	return int16(v * math.MaxInt16)
}
