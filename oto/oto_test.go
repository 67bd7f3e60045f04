package oto

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vsariola/patchbay"
)

func TestFloatBufferToLE(t *testing.T) {
	p := make([]byte, 20)
	n := FloatBufferToLE(patchbay.AudioBuffer{{0.5, -1}, {0.25, 2}, {1, 1}}, p)
	assert.Equal(t, 16, n, "only whole frames that fit are written")
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(p[0:])))
	assert.Equal(t, float32(-1), math.Float32frombits(binary.LittleEndian.Uint32(p[4:])))
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(p[12:])))
}

func TestFloatBufferTo16BitLE(t *testing.T) {
	p := make([]byte, 8)
	n := FloatBufferTo16BitLE(patchbay.AudioBuffer{{0, 2}, {-2, 0.5}}, p)
	assert.Equal(t, 8, n)
	assert.Equal(t, int16(0), int16(binary.LittleEndian.Uint16(p[0:])))
	assert.Equal(t, int16(math.MaxInt16), int16(binary.LittleEndian.Uint16(p[2:])))
	assert.Equal(t, int16(-math.MaxInt16), int16(binary.LittleEndian.Uint16(p[4:])))
	assert.Equal(t, int16(16383), int16(binary.LittleEndian.Uint16(p[6:])))
}

func TestReadRendersAndSilencesErrors(t *testing.T) {
	fail := false
	o := newOutput(patchbay.RenderFunc(func(buf patchbay.AudioBuffer) error {
		for i := range buf {
			buf[i] = [2]float32{0.5, 0.5}
		}
		if fail {
			return errors.New("boom")
		}
		return nil
	}), false)
	p := make([]byte, 64)
	n, err := o.Read(p)
	assert.NoError(t, err)
	assert.Equal(t, 64, n)
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(p[60:])))

	fail = true
	n, err = o.Read(p)
	assert.NoError(t, err)
	assert.Equal(t, 64, n)
	assert.Equal(t, float32(0), math.Float32frombits(binary.LittleEndian.Uint32(p[60:])))
	assert.Equal(t, uint64(1), o.Errors())
}

func TestRead16Bit(t *testing.T) {
	o := newOutput(patchbay.RenderFunc(func(buf patchbay.AudioBuffer) error {
		for i := range buf {
			buf[i] = [2]float32{0.5, -2}
		}
		return nil
	}), true)
	p := make([]byte, 64)
	n, err := o.Read(p)
	assert.NoError(t, err)
	assert.Equal(t, 64, n, "16 frames of 4 bytes")
	assert.Equal(t, int16(16383), int16(binary.LittleEndian.Uint16(p[60:])))
	assert.Equal(t, int16(-math.MaxInt16), int16(binary.LittleEndian.Uint16(p[62:])))
	allocs := testing.AllocsPerRun(10, func() {
		o.Read(p)
	})
	assert.Zero(t, allocs)
}
