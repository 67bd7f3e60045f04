package main

import (
	"math"

	"github.com/vsariola/patchbay"
	"github.com/vsariola/patchbay/nodes"
	"github.com/vsariola/patchbay/vm"
)

// Minimal kernels for the two node types, so that patches can be heard.

func registerKernels(e *vm.Engine) {
	e.RegisterKernel(nodes.FMOscillatorType.DSPTag, func(sampleRate int) vm.Kernel {
		return &fmKernel{sampleRate: float32(sampleRate), table: patchbay.NewTable(patchbay.SineTable, 0)}
	})
	e.RegisterKernel(nodes.PeakingParametricEqualizerFilterType.DSPTag, func(sampleRate int) vm.Kernel {
		return &peakingEQKernel{sampleRate: float64(sampleRate)}
	})
}

// fmKernel: params are baseFrequency, carrierMultiplier,
// modulatingMultiplier, modulationIndex, amplitude.
type fmKernel struct {
	sampleRate float32
	table      []float32
	carrier    float32 // phases in 0..1
	modulator  float32
}

func (k *fmKernel) SetTable(table []float32) {
	if len(table) > 0 {
		k.table = table
	}
}

func (k *fmKernel) Reset() { k.carrier, k.modulator = 0, 0 }

func (k *fmKernel) Process(params [][]float32, in, out [2][]float32) {
	base, cm, mm, index, amp := params[0], params[1], params[2], params[3], params[4]
	for i := range out[0] {
		modFreq := base[i] * mm[i]
		mod := k.lookup(k.modulator) * index[i] * modFreq
		v := amp[i] * k.lookup(k.carrier)
		out[0][i], out[1][i] = v, v
		k.carrier = wrap(k.carrier + (base[i]*cm[i]+mod)/k.sampleRate)
		k.modulator = wrap(k.modulator + modFreq/k.sampleRate)
	}
}

func (k *fmKernel) lookup(phase float32) float32 {
	n := len(k.table)
	i := int(phase * float32(n))
	if i >= n {
		i = n - 1
	}
	return k.table[i]
}

func wrap(phase float32) float32 {
	return phase - float32(math.Floor(float64(phase)))
}

// peakingEQKernel is a peaking biquad; gain is linear, 1 being flat.
// Coefficients are updated once per block.
type peakingEQKernel struct {
	sampleRate         float64
	freq, gain, q      float32
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     [2]float64
	computed           bool
}

func (k *peakingEQKernel) Reset() {
	k.x1, k.x2, k.y1, k.y2 = [2]float64{}, [2]float64{}, [2]float64{}, [2]float64{}
}

func (k *peakingEQKernel) update(freq, gain, q float32) {
	if k.computed && freq == k.freq && gain == k.gain && q == k.q {
		return
	}
	k.freq, k.gain, k.q, k.computed = freq, gain, q, true
	f := math.Min(float64(freq), 0.49*k.sampleRate)
	a := math.Sqrt(math.Max(float64(gain), 1e-4))
	w0 := 2 * math.Pi * f / k.sampleRate
	alpha := math.Sin(w0) / (2 * math.Max(float64(q), 0.01))
	cos := math.Cos(w0)
	a0 := 1 + alpha/a
	k.b0 = (1 + alpha*a) / a0
	k.b1 = -2 * cos / a0
	k.b2 = (1 - alpha*a) / a0
	k.a1 = -2 * cos / a0
	k.a2 = (1 - alpha/a) / a0
}

func (k *peakingEQKernel) Process(params [][]float32, in, out [2][]float32) {
	if len(out[0]) == 0 {
		return
	}
	k.update(params[0][0], params[1][0], params[2][0])
	for c := range out {
		for i, x := range in[c] {
			xf := float64(x)
			y := k.b0*xf + k.b1*k.x1[c] + k.b2*k.x2[c] - k.a1*k.y1[c] - k.a2*k.y2[c]
			k.x2[c], k.x1[c] = k.x1[c], xf
			k.y2[c], k.y1[c] = k.y1[c], y
			out[c][i] = float32(y)
		}
	}
}
