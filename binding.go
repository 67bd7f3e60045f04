package patchbay

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

type (
	// Parameter binds one ParameterDef of a node to the native unit of the
	// node. Before Bind, all reads and writes go to a local cache, so a node is
	// fully configurable before its unit exists. After Bind, writes are
	// forwarded to the unit and reads come from it.
	//
	// Get never blocks or allocates. The writing methods are for the control
	// context and are serialised with a mutex, which the render context never
	// touches.
	Parameter struct {
		def     *ParameterDef
		addr    Address
		cache   atomic.Uint32 // float32 bits
		binding atomic.Pointer[parameterBinding]
		mu      sync.Mutex
	}

	parameterBinding struct {
		host *UnitHost
		unit NativeUnit
		addr Address
	}
)

// NewParameter returns an unbound parameter holding value, clamped to the
// range of def. addr is the address the parameter will be bound at.
func NewParameter(def *ParameterDef, addr Address, value float32) *Parameter {
	p := &Parameter{def: def, addr: addr}
	p.cache.Store(math.Float32bits(def.Range.Clamp(value)))
	return p
}

func (p *Parameter) Def() *ParameterDef { return p.def }

// Address returns the address the parameter is bound at, or the address it
// was resolved to at construction when still unbound.
func (p *Parameter) Address() Address {
	if b := p.binding.Load(); b != nil {
		return b.addr
	}
	return p.addr
}

func (p *Parameter) IsBound() bool { return p.binding.Load() != nil }

// Get returns the value of the native unit when bound, otherwise the cached
// value.
func (p *Parameter) Get() float32 {
	if b := p.binding.Load(); b != nil {
		return b.unit.Parameter(b.addr)
	}
	return math.Float32frombits(p.cache.Load())
}

// Set clamps value into the range of the parameter and writes it. Values out
// of range are not errors: control surfaces routinely overshoot a bit.
func (p *Parameter) Set(value float32) {
	value = p.def.Range.Clamp(value)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.Store(math.Float32bits(value))
	if b := p.binding.Load(); b != nil {
		b.unit.SetParameter(b.addr, value)
	}
}

// RampTo asks the native unit to move smoothly to value over duration
// seconds. Only automatable parameters can be ramped; others return
// ErrNotAutomatable and keep their value. When unbound there is nothing to
// ramp, so the value jumps to the (clamped) target.
func (p *Parameter) RampTo(value float32, duration float64) error {
	if !p.def.Automatable() {
		return fmt.Errorf("ramping %v: %w", p.def.Identifier, ErrNotAutomatable)
	}
	if !(duration > 0) { // also catches NaN
		duration = 0
	}
	value = p.def.Range.Clamp(value)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.Store(math.Float32bits(value))
	if b := p.binding.Load(); b != nil {
		b.unit.ScheduleRamp(b.addr, value, duration)
	}
	return nil
}

// Bind attaches the parameter to the live unit of host at addr and pushes
// the cached value to the unit. It can succeed only once; later calls return
// ErrAlreadyBound and leave the first binding in place.
func (p *Parameter) Bind(host *UnitHost, addr Address) error {
	_, err := p.bind(host, addr)
	return err
}

func (p *Parameter) bind(host *UnitHost, addr Address) (*parameterBinding, error) {
	unit := host.Unit()
	if unit == nil {
		return nil, fmt.Errorf("binding %v: %w", p.def.Identifier, ErrNotInstantiated)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	b := &parameterBinding{host: host, unit: unit, addr: addr}
	if !p.binding.CompareAndSwap(nil, b) {
		return nil, fmt.Errorf("binding %v: %w", p.def.Identifier, ErrAlreadyBound)
	}
	unit.SetParameter(addr, math.Float32frombits(p.cache.Load()))
	return b, nil
}

// unbind removes b, if it is still the binding. Only a node that fails to
// bind all of its parameters calls it, before the node leaves
// InstantiationRequested.
func (p *Parameter) unbind(b *parameterBinding) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.binding.CompareAndSwap(b, nil)
}

// Host returns the host the parameter is bound to, or nil.
func (p *Parameter) Host() *UnitHost {
	if b := p.binding.Load(); b != nil {
		return b.host
	}
	return nil
}

// Normalized returns the value mapped into 0..1.
func (p *Parameter) Normalized() float64 {
	return p.def.Range.Normalize(p.Get())
}

// SetNormalized sets the value from x in 0..1, e.g. from a fader.
func (p *Parameter) SetNormalized(x float64) {
	p.Set(p.def.Range.Denormalize(x))
}

func (p *Parameter) String() string {
	v, u := p.def.Display(p.Get())
	if u == "" {
		return p.def.Identifier + "=" + v
	}
	return p.def.Identifier + "=" + v + " " + u
}
