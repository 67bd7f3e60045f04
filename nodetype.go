package patchbay

import (
	"errors"
	"fmt"
	"sort"
)

type (
	// NodeType is the static description of one kind of node: its native
	// component, the tag of its DSP algorithm and the ordered table of its
	// parameters. The parameter table is the contract of the node: a node
	// exposes exactly these parameters, in this order.
	NodeType struct {
		Name      string
		Comment   string `yaml:",omitempty"`
		Component ComponentDescription
		DSPTag    string `yaml:"dsptag"`
		// Wavetable names the table type (see ParseTableType) every node of
		// this type gets unless WithWavetable gives another one.
		Wavetable  string `yaml:",omitempty"`
		Parameters []ParameterDef
	}

	// ComponentDescription identifies a native component, e.g.
	// {Effect, "peq0", "AuKt"}.
	ComponentDescription struct {
		Type         ComponentType
		SubType      string `yaml:"subtype"`
		Manufacturer string `yaml:",omitempty"`
	}

	ComponentType int

	// NodeTypes is a set of node types by name.
	NodeTypes map[string]*NodeType
)

const (
	// Generator components produce audio without inputs.
	Generator ComponentType = iota
	// Effect components process the audio of their inputs.
	Effect
)

// DefaultManufacturer is used for components that do not name one.
const DefaultManufacturer = "PBay"

var componentTypeNames = [...]string{"generator", "effect"}

func (c ComponentType) String() string {
	if c < 0 || int(c) >= len(componentTypeNames) {
		return fmt.Sprintf("component(%d)", int(c))
	}
	return componentTypeNames[c]
}

func (c ComponentType) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(componentTypeNames) {
		return nil, fmt.Errorf("invalid component type %d", int(c))
	}
	return []byte(componentTypeNames[c]), nil
}

func (c *ComponentType) UnmarshalText(text []byte) error {
	for i, n := range componentTypeNames {
		if n == string(text) {
			*c = ComponentType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown component type %q", string(text))
}

func (c ComponentDescription) String() string {
	m := c.Manufacturer
	if m == "" {
		m = DefaultManufacturer
	}
	return c.Type.String() + "/" + c.SubType + "/" + m
}

// Validate checks that the parameter table is well formed: identifiers are
// unique, ranges are ordered and defaults are inside their ranges.
func (t *NodeType) Validate() error {
	if t.Name == "" {
		return errors.New("node type has no name")
	}
	if t.DSPTag == "" {
		return fmt.Errorf("node type %v has no DSP tag", t.Name)
	}
	if len(t.Component.SubType) != 4 {
		return fmt.Errorf("node type %v: component subtype %q should be four characters", t.Name, t.Component.SubType)
	}
	if _, ok := ParseTableType(t.Wavetable); t.Wavetable != "" && !ok {
		return fmt.Errorf("node type %v: unknown wavetable %q", t.Name, t.Wavetable)
	}
	seen := make(map[string]bool, len(t.Parameters))
	for i := range t.Parameters {
		d := &t.Parameters[i]
		if err := d.Validate(); err != nil {
			return fmt.Errorf("node type %v: %w", t.Name, err)
		}
		if seen[d.Identifier] {
			return fmt.Errorf("node type %v: duplicate parameter %v", t.Name, d.Identifier)
		}
		seen[d.Identifier] = true
	}
	return nil
}

// Param returns the definition with the given identifier.
func (t *NodeType) Param(identifier string) (*ParameterDef, bool) {
	for i := range t.Parameters {
		if t.Parameters[i].Identifier == identifier {
			return &t.Parameters[i], true
		}
	}
	return nil, false
}

// Addresses validates t and resolves the addresses of all the parameters, in
// table order. The table caches both, so this validates and reaches the
// native registry only the first time for each type.
func (t *NodeType) Addresses(table *AddressTable) ([]Address, error) {
	if err := table.validate(t); err != nil {
		return nil, err
	}
	ret := make([]Address, len(t.Parameters))
	for i := range t.Parameters {
		addr, err := table.Resolve(t.DSPTag, t.Parameters[i].Identifier)
		if err != nil {
			return nil, fmt.Errorf("node type %v: %w", t.Name, err)
		}
		ret[i] = addr
	}
	return ret, nil
}

// Defaults returns the table defaults by identifier.
func (t *NodeType) Defaults() map[string]float32 {
	ret := make(map[string]float32, len(t.Parameters))
	for _, d := range t.Parameters {
		ret[d.Identifier] = d.Default
	}
	return ret
}

// Add validates t and adds it to the set. Adding a second type with the same
// name is an error.
func (n NodeTypes) Add(t *NodeType) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, ok := n[t.Name]; ok {
		return fmt.Errorf("node type %v already registered", t.Name)
	}
	n[t.Name] = t
	return nil
}

// Names returns the names of the types, sorted.
func (n NodeTypes) Names() []string {
	ret := make([]string, 0, len(n))
	for k := range n {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
