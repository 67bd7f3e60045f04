package patchbay

import (
	"errors"
	"fmt"
	"sync/atomic"
)

type (
	// NativeUnit is one live instance of a native processing unit. The
	// parameter methods are called from the control context while the render
	// context of the unit reads the same values, so implementations must store
	// them in a form that is safe for one writer and one reader without
	// blocking the reader, e.g. atomic float32 bits.
	NativeUnit interface {
		Parameter(addr Address) float32
		SetParameter(addr Address, value float32)
		// ScheduleRamp asks the unit to move the parameter to target over
		// duration seconds. The unit does the actual per-sample ramp.
		ScheduleRamp(addr Address, target float32, duration float64)
		SetBypass(bypass bool)
	}

	// WavetableSetter is implemented by native units that take a waveform
	// table, e.g. oscillators.
	WavetableSetter interface {
		SetWavetable(table []float32)
	}

	// DSPRef is an opaque handle to a native DSP algorithm instance. The core
	// passes it from Framework.CreateDSP back to Framework.Instantiate and
	// never looks inside.
	DSPRef any

	// Framework is the host audio framework as seen by the core: it resolves
	// addresses, creates DSP instances by tag and instantiates native units
	// asynchronously.
	Framework interface {
		AddressResolver
		CreateDSP(tag string) (DSPRef, error)
		// Instantiate creates the native unit described by req. completion
		// must be called exactly once, with either a unit or an error, on any
		// goroutine the framework likes; possibly even before Instantiate
		// returns. There is no cancellation.
		Instantiate(req InstanceRequest, completion func(NativeUnit, error))
	}

	// InstanceRequest carries everything the framework needs to create one
	// native unit.
	InstanceRequest struct {
		Component  ComponentDescription
		DSP        DSPRef
		Parameters []ParameterDef
	}

	// UnitHost owns the native unit of one node. The unit is created lazily,
	// asynchronously and at most once.
	UnitHost struct {
		typ       *NodeType
		framework Framework
		requested atomic.Bool
		completed atomic.Bool
		unit      atomic.Pointer[liveUnit]
	}

	liveUnit struct {
		NativeUnit
	}
)

// NewUnitHost returns a host for a node of type typ. No unit is created until
// Instantiate.
func NewUnitHost(framework Framework, typ *NodeType) *UnitHost {
	return &UnitHost{typ: typ, framework: framework}
}

// ParameterDefs returns the ordered parameter definitions of the node type.
// The slice is shared; do not modify it.
func (h *UnitHost) ParameterDefs() []ParameterDef { return h.typ.Parameters }

// Type returns the node type the host was created for.
func (h *UnitHost) Type() *NodeType { return h.typ }

// CreateDSP asks the framework for a new instance of the native algorithm
// of the node type.
func (h *UnitHost) CreateDSP() (DSPRef, error) {
	dsp, err := h.framework.CreateDSP(h.typ.DSPTag)
	if err != nil {
		return nil, fmt.Errorf("creating DSP %v: %w", h.typ.DSPTag, err)
	}
	return dsp, nil
}

// Unit returns the live native unit, or nil if instantiation has not
// completed successfully.
func (h *UnitHost) Unit() NativeUnit {
	if u := h.unit.Load(); u != nil {
		return u.NativeUnit
	}
	return nil
}

// Instantiate issues the one asynchronous request to create the native unit.
// completion receives the unit, or an error wrapping ErrInstantiationFailed,
// exactly once. A second call returns ErrAlreadyInstantiated and does
// nothing. Failed instantiations are not retried; create a new host instead.
func (h *UnitHost) Instantiate(completion func(NativeUnit, error)) error {
	if !h.requested.CompareAndSwap(false, true) {
		return fmt.Errorf("%v: %w", h.typ.Name, ErrAlreadyInstantiated)
	}
	done := func(u NativeUnit, err error) {
		if !h.completed.CompareAndSwap(false, true) {
			return // the framework broke its contract; only the first completion counts
		}
		if err == nil && u == nil {
			err = errors.New("framework returned no unit")
		}
		if err != nil {
			completion(nil, fmt.Errorf("%w: %v: %w", ErrInstantiationFailed, h.typ.Name, err))
			return
		}
		h.unit.Store(&liveUnit{u})
		completion(u, nil)
	}
	dsp, err := h.CreateDSP()
	if err != nil {
		done(nil, err)
		return nil
	}
	req := InstanceRequest{
		Component:  h.typ.Component,
		DSP:        dsp,
		Parameters: h.typ.Parameters,
	}
	h.framework.Instantiate(req, done)
	return nil
}
