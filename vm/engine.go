// Package vm is a pure Go patchbay.Framework: a registry of native unit types,
// Instances with lock-free parameter cells and per-sample ramps, and a
// Program rendering a graph of nodes block by block.
package vm

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vsariola/patchbay"
	"github.com/vsariola/patchbay/logging"
)

type (
	// Engine is a pure-Go host framework: it keeps the registry of native
	// unit types, resolves parameter addresses, and instantiates Instances
	// asynchronously on their own goroutines. It implements
	// patchbay.Framework.
	Engine struct {
		sampleRate int
		logger     *slog.Logger

		mu      sync.RWMutex
		units   map[string]*unitSpec // by DSP tag
		kernels map[string]KernelFactory
		hook    func(patchbay.InstanceRequest) error

		lookups atomic.Int64
	}

	unitSpec struct {
		tag         string
		component   patchbay.ComponentDescription
		identifiers []string
		addrs       map[string]patchbay.Address
	}

	// DSP is the opaque DSP reference handed out by Engine.CreateDSP.
	DSP struct {
		tag    string
		kernel Kernel
	}
)

// NewEngine returns an engine rendering at sampleRate with no unit types
// registered.
func NewEngine(sampleRate int) *Engine {
	return &Engine{
		sampleRate: sampleRate,
		logger:     logging.Get(logging.RENDER),
		units:      make(map[string]*unitSpec),
		kernels:    make(map[string]KernelFactory),
	}
}

func (e *Engine) SampleRate() int { return e.sampleRate }

// Register adds the native unit of a node type to the registry. The
// addresses of its parameters are their indices in the parameter table.
// Registering the same DSP tag twice is allowed only with an identical
// parameter list.
func (e *Engine) Register(t *patchbay.NodeType) error {
	ids := make([]string, len(t.Parameters))
	for i, p := range t.Parameters {
		ids[i] = p.Identifier
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if old, ok := e.units[t.DSPTag]; ok {
		if !slices.Equal(old.identifiers, ids) {
			return fmt.Errorf("DSP %v already registered with different parameters", t.DSPTag)
		}
		return nil
	}
	spec := &unitSpec{
		tag:         t.DSPTag,
		component:   t.Component,
		identifiers: ids,
		addrs:       make(map[string]patchbay.Address, len(ids)),
	}
	for i, id := range ids {
		spec.addrs[id] = patchbay.Address(i)
	}
	e.units[t.DSPTag] = spec
	return nil
}

// RegisterTypes registers every type of the set.
func (e *Engine) RegisterTypes(types patchbay.NodeTypes) error {
	for _, name := range types.Names() {
		if err := e.Register(types[name]); err != nil {
			return err
		}
	}
	return nil
}

// RegisterKernel sets the algorithm rendering the units with the given DSP
// tag. Units without a kernel render silence (generators) or pass their
// input through (effects).
func (e *Engine) RegisterKernel(tag string, f KernelFactory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.kernels[tag] = f
}

// SetInstantiateHook installs a function that is run before every
// instantiation; if it returns an error, the instantiation fails with it.
// Useful for simulating resource exhaustion.
func (e *Engine) SetInstantiateHook(f func(patchbay.InstanceRequest) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hook = f
}

// Lookups returns how many address resolutions have reached the registry.
func (e *Engine) Lookups() int64 { return e.lookups.Load() }

func (e *Engine) ResolveAddress(tag, identifier string) (patchbay.Address, error) {
	e.lookups.Add(1)
	e.mu.RLock()
	defer e.mu.RUnlock()
	spec, ok := e.units[tag]
	if !ok {
		return 0, fmt.Errorf("no native unit %v: %w", tag, patchbay.ErrUnknownParameter)
	}
	addr, ok := spec.addrs[identifier]
	if !ok {
		return 0, fmt.Errorf("native unit %v has no parameter %v: %w", tag, identifier, patchbay.ErrUnknownParameter)
	}
	return addr, nil
}

func (e *Engine) CreateDSP(tag string) (patchbay.DSPRef, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, ok := e.units[tag]; !ok {
		return nil, fmt.Errorf("no native unit %v", tag)
	}
	d := &DSP{tag: tag}
	if f, ok := e.kernels[tag]; ok {
		d.kernel = f(e.sampleRate)
	}
	return d, nil
}

// Instantiate creates the Instance on a new goroutine and calls completion
// from there.
func (e *Engine) Instantiate(req patchbay.InstanceRequest, completion func(patchbay.NativeUnit, error)) {
	e.mu.RLock()
	hook := e.hook
	e.mu.RUnlock()
	go func() {
		dsp, ok := req.DSP.(*DSP)
		if !ok {
			completion(nil, fmt.Errorf("DSP reference of type %T was not created by this engine", req.DSP))
			return
		}
		if hook != nil {
			if err := hook(req); err != nil {
				completion(nil, err)
				return
			}
		}
		if len(req.Parameters) == 0 && req.Component.Type == patchbay.Generator && dsp.kernel == nil {
			e.logger.Debug("instantiating a generator without parameters or kernel", "dsp", dsp.tag)
		}
		completion(newInstance(dsp, req, e.sampleRate), nil)
	}()
}
