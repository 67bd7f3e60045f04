package vm

type (
	// Kernel is the signal processing algorithm of a native unit. Process is
	// called from the render context once per block and must not block or
	// allocate.
	//
	// params[a] holds the value of the parameter at address a for every frame
	// of the block, with ramps already applied. in holds the mixed input of
	// the unit (silence for generators). All slices have the same length.
	Kernel interface {
		Process(params [][]float32, in, out [2][]float32)
	}

	// KernelFactory creates one kernel for a unit rendering at sampleRate.
	KernelFactory func(sampleRate int) Kernel

	// TableKernel is implemented by kernels that read a waveform table. The
	// table is handed over in the render context, before the next Process.
	TableKernel interface {
		Kernel
		SetTable(table []float32)
	}

	// Resetter is implemented by kernels with state that should be cleared
	// when the unit is bypassed and re-enabled.
	Resetter interface {
		Reset()
	}
)

// KernelFunc adapts a stateless function to a Kernel.
type KernelFunc func(params [][]float32, in, out [2][]float32)

func (f KernelFunc) Process(params [][]float32, in, out [2][]float32) { f(params, in, out) }
