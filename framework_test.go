package patchbay_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vsariola/patchbay"
)

// fakeFramework resolves addresses from the parameter tables of its types and
// instantiates fakeUnits. By default completion is called synchronously,
// before Instantiate returns.
type fakeFramework struct {
	types   map[string]*patchbay.NodeType // by DSP tag
	lookups atomic.Int64
	// resolving, if not nil, is waited on inside every ResolveAddress
	resolving chan struct{}
	// async calls completion from a new goroutine, after gate is closed if
	// gate is not nil
	async bool
	gate  chan struct{}
	fail  error

	mu    sync.Mutex
	units []*fakeUnit
}

func newFakeFramework(types ...*patchbay.NodeType) *fakeFramework {
	f := &fakeFramework{types: map[string]*patchbay.NodeType{}}
	for _, t := range types {
		f.types[t.DSPTag] = t
	}
	return f
}

func (f *fakeFramework) ResolveAddress(tag, identifier string) (patchbay.Address, error) {
	f.lookups.Add(1)
	if f.resolving != nil {
		<-f.resolving
	}
	t, ok := f.types[tag]
	if !ok {
		return 0, fmt.Errorf("tag %v: %w", tag, patchbay.ErrUnknownParameter)
	}
	for i, p := range t.Parameters {
		if p.Identifier == identifier {
			return patchbay.Address(100 + i), nil
		}
	}
	return 0, fmt.Errorf("%v/%v: %w", tag, identifier, patchbay.ErrUnknownParameter)
}

func (f *fakeFramework) CreateDSP(tag string) (patchbay.DSPRef, error) {
	if _, ok := f.types[tag]; !ok {
		return nil, errors.New("no such DSP")
	}
	return tag, nil
}

func (f *fakeFramework) Instantiate(req patchbay.InstanceRequest, completion func(patchbay.NativeUnit, error)) {
	complete := func() {
		if f.fail != nil {
			completion(nil, f.fail)
			return
		}
		u := &fakeUnit{values: map[patchbay.Address]float32{}}
		f.mu.Lock()
		f.units = append(f.units, u)
		f.mu.Unlock()
		completion(u, nil)
	}
	if !f.async {
		complete()
		return
	}
	go func() {
		if f.gate != nil {
			<-f.gate
		}
		complete()
	}()
}

type ramp struct {
	addr     patchbay.Address
	target   float32
	duration float64
}

// fakeUnit records everything written to it. Ramps jump to their target.
type fakeUnit struct {
	mu       sync.Mutex
	values   map[patchbay.Address]float32
	ramps    []ramp
	bypassed bool
	table    []float32
}

func (u *fakeUnit) Parameter(addr patchbay.Address) float32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.values[addr]
}

func (u *fakeUnit) SetParameter(addr patchbay.Address, value float32) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.values[addr] = value
}

func (u *fakeUnit) ScheduleRamp(addr patchbay.Address, target float32, duration float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ramps = append(u.ramps, ramp{addr, target, duration})
	u.values[addr] = target
}

func (u *fakeUnit) SetBypass(bypass bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.bypassed = bypass
}

func (u *fakeUnit) SetWavetable(table []float32) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.table = table
}

func (u *fakeUnit) Bypassed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.bypassed
}

func (u *fakeUnit) Ramps() []ramp {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]ramp(nil), u.ramps...)
}

var eqType = &patchbay.NodeType{
	Name:      "Equalizer",
	Component: patchbay.ComponentDescription{Type: patchbay.Effect, SubType: "peq0", Manufacturer: patchbay.DefaultManufacturer},
	DSPTag:    "EqualizerDSP",
	Parameters: []patchbay.ParameterDef{
		{Identifier: "centerFrequency", Name: "Center Frequency (Hz)", Range: patchbay.Range{Min: 12, Max: 20000}, Unit: patchbay.Hertz, Flags: patchbay.DefaultParameterFlags, Default: 1000, DisplayFunc: patchbay.FrequencyDisplay},
		{Identifier: "gain", Name: "Gain", Range: patchbay.Range{Min: 0, Max: 10}, Flags: patchbay.DefaultParameterFlags, Default: 1},
		{Identifier: "q", Name: "Q", Range: patchbay.Range{Min: 0, Max: 2}, Flags: patchbay.DefaultParameterFlags, Default: 0.707},
	},
}

var toneType = &patchbay.NodeType{
	Name:      "Tone",
	Component: patchbay.ComponentDescription{Type: patchbay.Generator, SubType: "tone", Manufacturer: patchbay.DefaultManufacturer},
	DSPTag:    "ToneDSP",
	Parameters: []patchbay.ParameterDef{
		{Identifier: "frequency", Name: "Frequency (Hz)", Range: patchbay.Range{Min: 0, Max: 20000}, Unit: patchbay.Hertz, Flags: patchbay.DefaultParameterFlags, Default: 440},
		{Identifier: "shape", Name: "Shape", Range: patchbay.Range{Min: 0, Max: 4}, Unit: patchbay.Indexed, Flags: patchbay.ParameterReadable | patchbay.ParameterWritable},
	},
}

var testTypes = patchbay.NodeTypes{eqType.Name: eqType, toneType.Name: toneType}
