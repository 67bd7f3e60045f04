package patchbay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vsariola/patchbay/logging"
)

type (
	// Node is one processing node of a graph: a native unit (through its
	// UnitHost), the parameters bound to it, the upstream nodes feeding it and
	// its enabled/bypassed state.
	//
	// A Node is usable right after construction: parameters and the toggle
	// state work on cached values until the native unit is ready, and are
	// then pushed to it.
	Node struct {
		name    string
		typ     *NodeType
		host    *UnitHost
		params  []*Parameter
		byID    map[string]*Parameter
		state   atomic.Int32
		done    chan struct{}
		logger  *slog.Logger
		onError func(*Node, error)
		stateCh chan<- StateChange

		mu          sync.Mutex // guards the fields below and state transitions
		connections []*Node
		enabled     bool
		wavetable   Table
		err         error
	}

	// NodeState is the lifecycle state of a Node.
	NodeState int32

	// StateChange is sent to the channel given with WithStateChannel when a
	// node reaches a terminal state.
	StateChange struct {
		Node  *Node
		State NodeState
		Err   error
	}

	NodeOption func(*Node)
)

const (
	Constructed NodeState = iota
	InstantiationRequested
	// Bound is the terminal success state: all parameters are bound.
	Bound
	// InstantiationFailed is the terminal error state: all parameters stay
	// unbound forever and work on their cached values only.
	InstantiationFailed
)

var nodeStateNames = [...]string{"constructed", "instantiation requested", "bound", "instantiation failed"}

func (s NodeState) String() string {
	if s < 0 || int(s) >= len(nodeStateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return nodeStateNames[s]
}

// Terminal reports whether the state is Bound or InstantiationFailed.
func (s NodeState) Terminal() bool { return s == Bound || s == InstantiationFailed }

// WithName names the node; the default is the name of its type.
func WithName(name string) NodeOption { return func(n *Node) { n.name = name } }

// WithErrorHandler sets a function called, on the completion goroutine, when
// instantiation fails.
func WithErrorHandler(f func(*Node, error)) NodeOption {
	return func(n *Node) { n.onError = f }
}

// WithStateChannel makes the node send a StateChange to c when it reaches a
// terminal state. The send never blocks: if c is full, the message is
// dropped, so give c enough capacity or poll State instead.
func WithStateChannel(c chan<- StateChange) NodeOption {
	return func(n *Node) { n.stateCh = c }
}

func WithLogger(l *slog.Logger) NodeOption { return func(n *Node) { n.logger = l } }

// WithWavetable gives the node a waveform table that is handed to the native
// unit when it is ready, if the unit implements WavetableSetter. It replaces
// the table named by the Wavetable of the node type.
func WithWavetable(t Table) NodeOption { return func(n *Node) { n.wavetable = t } }

// NewNode creates a node of type typ in rack and requests the instantiation
// of its native unit. input, if not nil, is recorded as the first upstream
// connection. defaults gives initial values by parameter identifier;
// parameters missing from it start at the default of the type. Unknown
// identifiers in defaults, and parameters the native registry cannot resolve,
// fail with ErrUnknownParameter. The type is validated the first time the
// rack resolves it.
func NewNode(rack *Rack, typ *NodeType, input *Node, defaults map[string]float32, opts ...NodeOption) (*Node, error) {
	for id := range defaults {
		if _, ok := typ.Param(id); !ok {
			return nil, fmt.Errorf("node type %v has no parameter %v: %w", typ.Name, id, ErrUnknownParameter)
		}
	}
	addrs, err := typ.Addresses(rack.Addresses)
	if err != nil {
		return nil, err
	}
	n := &Node{
		name:    typ.Name,
		typ:     typ,
		host:    NewUnitHost(rack.Framework, typ),
		done:    make(chan struct{}),
		enabled: true,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = logging.Get(logging.NODE)
	}
	if n.wavetable == nil && typ.Wavetable != "" {
		tt, _ := ParseTableType(typ.Wavetable) // checked by Addresses
		n.wavetable = NewTable(tt, 0)
	}
	n.logger = n.logger.With("node", n.name, "type", typ.Name)
	defs := n.host.ParameterDefs()
	n.params = make([]*Parameter, len(defs))
	n.byID = make(map[string]*Parameter, len(defs))
	for i := range defs {
		value, ok := defaults[defs[i].Identifier]
		if !ok {
			value = defs[i].Default
		}
		p := NewParameter(&defs[i], addrs[i], value)
		n.params[i] = p
		n.byID[defs[i].Identifier] = p
	}
	if input != nil {
		n.connections = append(n.connections, input)
	}
	n.state.Store(int32(InstantiationRequested))
	if err := n.host.Instantiate(n.complete); err != nil {
		return nil, err
	}
	return n, nil
}

// complete is the single transition out of InstantiationRequested. It runs
// on whatever goroutine the framework calls it from.
func (n *Node) complete(unit NativeUnit, err error) {
	n.mu.Lock()
	if err == nil {
		err = n.bind(unit)
	}
	state := Bound
	if err != nil {
		state = InstantiationFailed
		n.err = err
	}
	n.state.Store(int32(state))
	n.mu.Unlock()
	if err != nil {
		n.logger.Error("instantiation failed", "err", err)
		if n.onError != nil {
			n.onError(n, err)
		}
	} else {
		n.logger.Debug("bound", "parameters", len(n.params))
	}
	if n.stateCh != nil && !TrySend(n.stateCh, StateChange{Node: n, State: state, Err: err}) {
		n.logger.Warn("state channel full, dropped state change", "state", state)
	}
	close(n.done)
}

// bind wires every parameter and applies the pending toggle intent. Either
// all parameters end up bound or none do. Must be called with n.mu held.
func (n *Node) bind(unit NativeUnit) error {
	if n.host.Unit() == nil {
		return fmt.Errorf("node %v: %w", n.name, ErrNotInstantiated)
	}
	for _, p := range n.params {
		if p.IsBound() {
			return fmt.Errorf("node %v: parameter %v: %w", n.name, p.def.Identifier, ErrAlreadyBound)
		}
	}
	bound := make([]*parameterBinding, 0, len(n.params))
	for _, p := range n.params {
		b, err := p.bind(n.host, p.addr)
		if err != nil {
			// lost a race with a Bind from outside the node
			for i, prev := range bound {
				n.params[i].unbind(prev)
			}
			return fmt.Errorf("node %v: %w", n.name, err)
		}
		bound = append(bound, b)
	}
	if ws, ok := unit.(WavetableSetter); ok && n.wavetable != nil {
		ws.SetWavetable(n.wavetable)
	}
	unit.SetBypass(!n.enabled)
	return nil
}

func (n *Node) Name() string { return n.name }
func (n *Node) Type() *NodeType { return n.typ }
func (n *Node) Host() *UnitHost { return n.host }
func (n *Node) State() NodeState { return NodeState(n.state.Load()) }
func (n *Node) Done() <-chan struct{} { return n.done }

// Err returns the instantiation error, if the node is in the
// InstantiationFailed state.
func (n *Node) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

// Wait blocks until the node reaches a terminal state or ctx is done. It
// returns the instantiation error, if any. Giving up waiting does not cancel
// the instantiation.
func (n *Node) Wait(ctx context.Context) error {
	select {
	case <-n.done:
		return n.Err()
	case <-ctx.Done():
		return fmt.Errorf("waiting for node %v: %w", n.name, ctx.Err())
	}
}

// Parameters returns the parameters in the order of the parameter table of
// the node type.
func (n *Node) Parameters() []*Parameter { return n.params }

// Parameter returns the parameter with the given identifier.
func (n *Node) Parameter(identifier string) (*Parameter, bool) {
	p, ok := n.byID[identifier]
	return p, ok
}

// Toggle enables (on = true) or bypasses the node. Before the native unit is
// ready the state is only recorded; it is applied when the unit binds.
func (n *Node) Toggle(on bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = on
	if n.State() == Bound {
		n.host.Unit().SetBypass(!on)
	}
}

func (n *Node) Start() { n.Toggle(true) }
func (n *Node) Stop() { n.Toggle(false) }

// IsStarted reports the enabled state last asked for with Toggle.
func (n *Node) IsStarted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

// Connect appends input to the upstream connections of the node. The list is
// not checked for cycles.
func (n *Node) Connect(input *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.connections = append(n.connections, input)
}

// Connections returns a copy of the upstream connections, in the order they
// were made.
func (n *Node) Connections() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	ret := make([]*Node, len(n.connections))
	copy(ret, n.connections)
	return ret
}

// TrySend sends v to c if it can do so without blocking and reports whether
// it did.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}
