package patchbay

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/vsariola/patchbay/version"
)

type (
	// Patch is the description of a graph as read from a .yml file: the
	// nodes, their initial parameter values, how they are connected and what
	// should happen to the parameters over time.
	Patch struct {
		// Version is the version of the patch format, e.g. "1.0.0".
		Version    string
		SampleRate int `yaml:"samplerate,omitempty"`
		Nodes      []PatchNode
		// Output is the name of the node whose output is heard.
		Output     string
		Automation []AutomationEvent `yaml:",omitempty"`
	}

	// PatchNode describes one node of a patch.
	PatchNode struct {
		Name string
		Type string
		// Inputs are the names of the upstream nodes. They can refer to nodes
		// defined later in the patch; cycles are not rejected.
		Inputs     []string           `yaml:",flow,omitempty"`
		Parameters map[string]float32 `yaml:",flow,omitempty"`
		// Disabled nodes are constructed bypassed.
		Disabled bool `yaml:",omitempty"`
		// Wavetable, if set, replaces the default table of the node type,
		// e.g. "square".
		Wavetable string `yaml:",omitempty"`
		Comment   string `yaml:",omitempty"`
	}

	// AutomationEvent changes one parameter at a given time, in seconds
	// from the start of playback. Duration > 0 ramps to the value.
	AutomationEvent struct {
		Time      float64
		Node      string
		Parameter string
		Value     float32
		Duration  float64 `yaml:",omitempty"`
	}
)

// PatchFormatConstraint is the range of patch format versions this package
// reads.
const PatchFormatConstraint = "^1.0"

// PatchFormatVersion is written into new patches.
const PatchFormatVersion = version.PatchFormat

var patchConstraint = func() *semver.Constraints {
	c, err := semver.NewConstraint(PatchFormatConstraint)
	if err != nil {
		panic(err)
	}
	return c
}()

// ParsePatch reads a patch from YAML and validates it.
func ParsePatch(data []byte) (*Patch, error) {
	var p Patch
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("could not parse patch: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the version and that every name refers to something.
// Parameter identifiers are checked later, against the node types, in
// Build.
func (p *Patch) Validate() error {
	if p.Version == "" {
		return errors.New("patch has no version")
	}
	v, err := semver.NewVersion(p.Version)
	if err != nil {
		return fmt.Errorf("patch version %q: %w", p.Version, err)
	}
	if !patchConstraint.Check(v) {
		return fmt.Errorf("patch version %v is not supported (want %v)", v, PatchFormatConstraint)
	}
	if p.SampleRate < 0 {
		return fmt.Errorf("negative sample rate %d", p.SampleRate)
	}
	names := make(map[string]bool, len(p.Nodes))
	for _, n := range p.Nodes {
		if n.Name == "" {
			return fmt.Errorf("node of type %v has no name", n.Type)
		}
		if names[n.Name] {
			return fmt.Errorf("duplicate node name %v", n.Name)
		}
		if _, ok := ParseTableType(n.Wavetable); n.Wavetable != "" && !ok {
			return fmt.Errorf("node %v: unknown wavetable %q", n.Name, n.Wavetable)
		}
		names[n.Name] = true
	}
	for _, n := range p.Nodes {
		for _, in := range n.Inputs {
			if !names[in] {
				return fmt.Errorf("node %v: unknown input %v", n.Name, in)
			}
		}
	}
	if p.Output != "" && !names[p.Output] {
		return fmt.Errorf("unknown output node %v", p.Output)
	}
	for i, ev := range p.Automation {
		if !names[ev.Node] {
			return fmt.Errorf("automation event %d: unknown node %v", i, ev.Node)
		}
		if ev.Time < 0 {
			return fmt.Errorf("automation event %d: negative time", i)
		}
	}
	return nil
}

// Build constructs the nodes of the patch in rack and connects them. The
// instantiation of the native units is only requested; use Graph.Wait to
// wait for them. If Output is empty, the last node is the output.
func (p *Patch) Build(rack *Rack, types NodeTypes, opts ...NodeOption) (*Graph, error) {
	g := NewGraph()
	for _, pn := range p.Nodes {
		typ, ok := types[pn.Type]
		if !ok {
			return nil, fmt.Errorf("node %v: unknown node type %v", pn.Name, pn.Type)
		}
		var input *Node
		if len(pn.Inputs) > 0 {
			input, _ = g.Node(pn.Inputs[0]) // nil if defined later; connected below
		}
		nodeOpts := append(opts[:len(opts):len(opts)], WithName(pn.Name))
		if pn.Wavetable != "" {
			tt, ok := ParseTableType(pn.Wavetable)
			if !ok {
				return nil, fmt.Errorf("node %v: unknown wavetable %q", pn.Name, pn.Wavetable)
			}
			nodeOpts = append(nodeOpts, WithWavetable(NewTable(tt, 0)))
		}
		n, err := rack.NewNode(typ, input, pn.Parameters, nodeOpts...)
		if err != nil {
			return nil, fmt.Errorf("node %v: %w", pn.Name, err)
		}
		if pn.Disabled {
			n.Stop()
		}
		if err := g.Add(n); err != nil {
			return nil, err
		}
	}
	for _, pn := range p.Nodes {
		n, _ := g.Node(pn.Name)
		for i, in := range pn.Inputs {
			if i == 0 && len(n.Connections()) > 0 {
				continue
			}
			upstream, _ := g.Node(in)
			n.Connect(upstream)
		}
	}
	if p.Output != "" {
		out, _ := g.Node(p.Output)
		g.SetOutput(out)
	} else if len(g.nodes) > 0 {
		g.SetOutput(g.nodes[len(g.nodes)-1])
	}
	return g, nil
}

// ApplyValues sets the parameter values and enabled states of the patch to
// the matching nodes of an already built graph, e.g. when the patch file was
// edited while playing. Nodes missing from the graph are reported; the
// topology is not changed.
func (p *Patch) ApplyValues(g *Graph) error {
	var errs []error
	for _, pn := range p.Nodes {
		n, ok := g.Node(pn.Name)
		if !ok {
			errs = append(errs, fmt.Errorf("graph has no node %v", pn.Name))
			continue
		}
		ids := make([]string, 0, len(pn.Parameters))
		for id := range pn.Parameters {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			param, ok := n.Parameter(id)
			if !ok {
				errs = append(errs, fmt.Errorf("node %v has no parameter %v: %w", pn.Name, id, ErrUnknownParameter))
				continue
			}
			param.Set(pn.Parameters[id])
		}
		n.Toggle(!pn.Disabled)
	}
	return errors.Join(errs...)
}

// SameTopology reports whether o has the same nodes, with the same types,
// inputs and output, as p. Parameter values, disabled flags and automation
// may differ.
func (p *Patch) SameTopology(o *Patch) bool {
	if len(p.Nodes) != len(o.Nodes) || p.Output != o.Output {
		return false
	}
	for i, n := range p.Nodes {
		m := o.Nodes[i]
		if n.Name != m.Name || n.Type != m.Type || n.Wavetable != m.Wavetable || len(n.Inputs) != len(m.Inputs) {
			return false
		}
		for j := range n.Inputs {
			if n.Inputs[j] != m.Inputs[j] {
				return false
			}
		}
	}
	return true
}

// Duration is the time of the last automation event, plus its ramp.
func (p *Patch) Duration() float64 {
	var d float64
	for _, ev := range p.Automation {
		d = max(d, ev.Time+max(ev.Duration, 0))
	}
	return d
}
