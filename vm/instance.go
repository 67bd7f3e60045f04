package vm

import (
	"math"
	"sync/atomic"

	"github.com/vsariola/patchbay"
)

// MaxBlock is the largest number of frames an Instance processes at once;
// longer buffers are rendered in blocks of MaxBlock frames.
const MaxBlock = 512

type (
	// Instance is a live native unit created by Engine. The control context
	// talks to it through the patchbay.NativeUnit methods; the render context
	// through process. The two sides share only atomics.
	Instance struct {
		tag        string
		generator  bool
		sampleRate int
		params     []paramCell
		bypass     atomic.Bool
		table      atomic.Pointer[[]float32]

		// owned by the render context
		kernel      Kernel
		ramps       []ramp
		buffers     [][]float32
		views       [][]float32
		lastTable   *[]float32
		wasBypassed bool
	}

	// paramCell is the single-writer single-reader mailbox of one
	// parameter. value is what Parameter reports; request packs the target
	// float bits (high word) and the ramp length in frames (low word), and
	// seq tells the render context a new request is there.
	paramCell struct {
		value   atomic.Uint32
		request atomic.Uint64
		seq     atomic.Uint32
	}

	ramp struct {
		seq       uint32
		current   float32
		target    float32
		step      float32
		remaining int
	}
)

func newInstance(dsp *DSP, req patchbay.InstanceRequest, sampleRate int) *Instance {
	n := len(req.Parameters)
	u := &Instance{
		tag:        dsp.tag,
		generator:  req.Component.Type == patchbay.Generator,
		sampleRate: sampleRate,
		params:     make([]paramCell, n),
		kernel:     dsp.kernel,
		ramps:      make([]ramp, n),
		buffers:    make([][]float32, n),
		views:      make([][]float32, n),
	}
	for i, def := range req.Parameters {
		v := def.Range.Clamp(def.Default)
		u.params[i].value.Store(math.Float32bits(v))
		u.params[i].request.Store(packRequest(v, 0))
		u.ramps[i] = ramp{current: v, target: v}
		u.buffers[i] = make([]float32, MaxBlock)
	}
	return u
}

// Tag returns the DSP tag the instance was created for.
func (u *Instance) Tag() string { return u.tag }

// Parameter returns the last value written or the target of the last ramp.
// Unknown addresses read as zero.
func (u *Instance) Parameter(addr patchbay.Address) float32 {
	if int(addr) >= len(u.params) {
		return 0
	}
	return math.Float32frombits(u.params[addr].value.Load())
}

// SetParameter jumps to value at the start of the next block. Writes to
// unknown addresses are ignored.
func (u *Instance) SetParameter(addr patchbay.Address, value float32) {
	u.ScheduleRamp(addr, value, 0)
}

// ScheduleRamp moves the parameter linearly to target over duration seconds,
// starting at the next block.
func (u *Instance) ScheduleRamp(addr patchbay.Address, target float32, duration float64) {
	if int(addr) >= len(u.params) {
		return
	}
	frames := 0.0
	if duration > 0 {
		frames = math.Min(math.Round(duration*float64(u.sampleRate)), math.MaxUint32)
	}
	c := &u.params[addr]
	c.value.Store(math.Float32bits(target))
	c.request.Store(packRequest(target, uint32(frames)))
	c.seq.Add(1)
}

func (u *Instance) SetBypass(bypass bool) { u.bypass.Store(bypass) }

func (u *Instance) Bypassed() bool { return u.bypass.Load() }

// SetWavetable hands a copy of table to the kernel, if it reads one.
func (u *Instance) SetWavetable(table []float32) {
	t := make([]float32, len(table))
	copy(t, table)
	u.table.Store(&t)
}

func packRequest(target float32, frames uint32) uint64 {
	return uint64(math.Float32bits(target))<<32 | uint64(frames)
}

func unpackRequest(r uint64) (float32, int) {
	return math.Float32frombits(uint32(r >> 32)), int(uint32(r))
}

// prepare picks up new requests and fills the parameter buffers for n
// frames.
func (u *Instance) prepare(n int) {
	for i := range u.ramps {
		r := &u.ramps[i]
		c := &u.params[i]
		if seq := c.seq.Load(); seq != r.seq {
			r.seq = seq
			target, frames := unpackRequest(c.request.Load())
			r.target = target
			if frames == 0 {
				r.current = target
				r.remaining = 0
			} else {
				r.step = (target - r.current) / float32(frames)
				r.remaining = frames
			}
		}
		buf := u.buffers[i][:n]
		for j := range buf {
			if r.remaining > 0 {
				r.current += r.step
				r.remaining--
				if r.remaining == 0 {
					r.current = r.target
				}
			}
			buf[j] = r.current
		}
		u.views[i] = buf
	}
}

// process renders n <= MaxBlock frames of in into out. Bypassed instances
// and instances without a kernel output silence when they are generators,
// and their input otherwise. Parameter ramps progress even when bypassed.
func (u *Instance) process(in, out [2][]float32) {
	n := len(out[0])
	u.prepare(n)
	if t := u.table.Load(); t != u.lastTable {
		u.lastTable = t
		if tk, ok := u.kernel.(TableKernel); ok {
			tk.SetTable(*t)
		}
	}
	bypass := u.bypass.Load()
	if !bypass && u.wasBypassed {
		if r, ok := u.kernel.(Resetter); ok {
			r.Reset()
		}
	}
	u.wasBypassed = bypass
	if bypass || u.kernel == nil {
		passThrough(u.generator, in, out)
		return
	}
	u.kernel.Process(u.views, in, out)
}

func passThrough(generator bool, in, out [2][]float32) {
	for c := range out {
		if generator {
			clear(out[c])
		} else {
			copy(out[c], in[c])
		}
	}
}
