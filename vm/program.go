package vm

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/patchbay"
)

type (
	// Program is a graph compiled for rendering: the nodes reachable from the
	// output, in the order they are processed, with all buffers preallocated.
	// A Program is used by one render context at a time.
	Program struct {
		steps []step
		order []int
		out   int
		gain  atomic.Uint32 // float32 bits
		peak  [2]atomic.Uint32
		mix   [2][]float32
	}

	step struct {
		name      string
		host      *patchbay.UnitHost
		generator bool
		inputs    []int
		in        [2][]float32
		out       [2][]float32
	}
)

// Compile builds a Program rendering the graph upstream of output. Nodes
// can be compiled before their units are ready; until a node is bound to an
// Instance of an Engine it renders as if bypassed, and so do nodes whose
// instantiation failed. Cycles are allowed: an input that closes a cycle is
// heard one block late.
func Compile(output *patchbay.Node) (*Program, error) {
	if output == nil {
		return nil, fmt.Errorf("graph has no output node")
	}
	p := &Program{mix: [2][]float32{make([]float32, MaxBlock), make([]float32, MaxBlock)}}
	p.gain.Store(math.Float32bits(1))
	index := map[*patchbay.Node]int{}
	var visit func(n *patchbay.Node) int
	visit = func(n *patchbay.Node) int {
		if i, ok := index[n]; ok {
			return i // already compiled, or on the stack if part of a cycle
		}
		i := len(p.steps)
		index[n] = i
		s := step{
			name:      n.Name(),
			host:      n.Host(),
			generator: n.Type().Component.Type == patchbay.Generator,
			in:        [2][]float32{make([]float32, MaxBlock), make([]float32, MaxBlock)},
			out:       [2][]float32{make([]float32, MaxBlock), make([]float32, MaxBlock)},
		}
		p.steps = append(p.steps, s)
		var inputs []int
		for _, c := range n.Connections() {
			inputs = append(inputs, visit(c))
		}
		p.steps[i].inputs = inputs
		p.order = append(p.order, i)
		return i
	}
	p.out = visit(output)
	return p, nil
}

// Nodes returns the names of the nodes in processing order.
func (p *Program) Nodes() []string {
	ret := make([]string, len(p.order))
	for i, j := range p.order {
		ret[i] = p.steps[j].name
	}
	return ret
}

// SetGain sets the master gain applied to the output.
func (p *Program) SetGain(g float32) { p.gain.Store(math.Float32bits(g)) }

// Peak returns the absolute peak of each channel since the last call.
func (p *Program) Peak() [2]float32 {
	return [2]float32{
		math.Float32frombits(p.peak[0].Swap(0)),
		math.Float32frombits(p.peak[1].Swap(0)),
	}
}

// Render fills buffer with the output of the program, in blocks of at most
// MaxBlock frames. It does not allocate.
func (p *Program) Render(buffer patchbay.AudioBuffer) (renderError error) {
	defer func() {
		if err := recover(); err != nil {
			renderError = fmt.Errorf("render panicced: %v", err)
		}
	}()
	for len(buffer) > 0 {
		n := min(len(buffer), MaxBlock)
		p.renderBlock(n)
		for i := range buffer[:n] {
			buffer[i] = [2]float32{p.mix[0][i], p.mix[1][i]}
		}
		buffer = buffer[n:]
	}
	return nil
}

func (p *Program) renderBlock(n int) {
	for _, i := range p.order {
		s := &p.steps[i]
		in := [2][]float32{vek32.Zeros_Into(s.in[0], n), vek32.Zeros_Into(s.in[1], n)}
		for _, j := range s.inputs {
			vek32.Add_Inplace(in[0], p.steps[j].out[0][:n])
			vek32.Add_Inplace(in[1], p.steps[j].out[1][:n])
		}
		out := [2][]float32{s.out[0][:n], s.out[1][:n]}
		u, ok := s.host.Unit().(*Instance)
		if !ok {
			passThrough(s.generator, in, out)
			continue
		}
		u.process(in, out)
	}
	gain := math.Float32frombits(p.gain.Load())
	for c, o := range p.steps[p.out].out {
		m := vek32.MulNumber_Into(p.mix[c], o[:n], gain)
		peak := max(vek32.Max(m), -vek32.Min(m))
		if peak > math.Float32frombits(p.peak[c].Load()) {
			p.peak[c].Store(math.Float32bits(peak))
		}
	}
}
