// Package patchbay describes, binds and automates the parameters of the nodes
// of an audio graph. Each node type declares a table of ranged parameters;
// each node binds them to the addresses of a native processing unit created
// asynchronously by a Framework. Parameters can be read, set and ramped from
// any goroutine while the render context consumes them without locking.
package patchbay

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type (
	// ParameterDef documents one parameter that a node type takes. The same
	// ParameterDef is shared, read-only, by all the nodes of a type, so never
	// modify one after it has been given to a NodeType.
	ParameterDef struct {
		// Identifier is the key of the parameter within its node type, e.g.
		// "baseFrequency". It is also the key the native unit resolves into an
		// Address.
		Identifier string
		// Name is the human readable name, e.g. "Base Frequency (Hz)".
		Name  string
		Range Range
		Unit  ParameterUnit `yaml:",omitempty"`
		Flags ParameterFlags
		// Default is used when a node is constructed without a value for this
		// parameter.
		Default float32
		// Comment documents what the parameter does. The generator copies it
		// to the doc comments of the generated constructors.
		Comment string `yaml:",omitempty"`

		DisplayFunc ParameterDisplayFunc `yaml:"-"`
	}

	// Range is the legal range of a parameter, both ends inclusive.
	Range struct {
		Min float64
		Max float64
	}

	ParameterDisplayFunc func(float32) (value string, unit string)

	// ParameterUnit tags the physical unit of a parameter value. It is only
	// informative: the values are never converted between units.
	ParameterUnit int

	// ParameterFlags is a bitset of the capabilities of a parameter.
	ParameterFlags uint32
)

const (
	Generic ParameterUnit = iota
	Hertz
	Seconds
	Milliseconds
	Decibels
	Percent
	Cents
	Rate
	Boolean
	Indexed
)

const (
	ParameterReadable ParameterFlags = 1 << iota
	ParameterWritable
	// ParameterAutomatable means the parameter can be ramped over time with
	// Parameter.RampTo.
	ParameterAutomatable

	DefaultParameterFlags = ParameterReadable | ParameterWritable | ParameterAutomatable
)

var unitNames = [...]string{"generic", "hertz", "seconds", "milliseconds", "decibels", "percent", "cents", "rate", "boolean", "indexed"}

var unitSymbols = [...]string{"", "Hz", "s", "ms", "dB", "%", "ct", "", "", ""}

func (u ParameterUnit) String() string {
	if u < 0 || int(u) >= len(unitNames) {
		return "unit(" + strconv.Itoa(int(u)) + ")"
	}
	return unitNames[u]
}

// Symbol returns the short symbol used when displaying values, e.g. "Hz".
func (u ParameterUnit) Symbol() string {
	if u < 0 || int(u) >= len(unitSymbols) {
		return ""
	}
	return unitSymbols[u]
}

func (u ParameterUnit) MarshalText() ([]byte, error) {
	if u < 0 || int(u) >= len(unitNames) {
		return nil, fmt.Errorf("invalid parameter unit %d", int(u))
	}
	return []byte(unitNames[u]), nil
}

func (u *ParameterUnit) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for i, n := range unitNames {
		if n == s {
			*u = ParameterUnit(i)
			return nil
		}
	}
	return fmt.Errorf("unknown parameter unit %q", string(text))
}

var flagNames = [...]string{"readable", "writable", "automatable"}

// Has reports whether all the bits of o are set in f.
func (f ParameterFlags) Has(o ParameterFlags) bool { return f&o == o }

func (f ParameterFlags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for i, n := range flagNames {
		if f&(1<<i) != 0 {
			names = append(names, n)
		}
	}
	if rest := f &^ (1<<len(flagNames) - 1); rest != 0 {
		names = append(names, "0x"+strconv.FormatUint(uint64(rest), 16))
	}
	return strings.Join(names, "|")
}

// MarshalYAML writes the flags as a flow sequence of names, e.g. [readable,
// writable, automatable].
func (f ParameterFlags) MarshalYAML() (interface{}, error) {
	ret := []string{}
	for i, n := range flagNames {
		if f&(1<<i) != 0 {
			ret = append(ret, n)
		}
	}
	return ret, nil
}

// UnmarshalYAML accepts a sequence of flag names or the word "default".
func (f *ParameterFlags) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var word string
	if err := unmarshal(&word); err == nil {
		if word != "default" {
			return fmt.Errorf("unknown parameter flags %q", word)
		}
		*f = DefaultParameterFlags
		return nil
	}
	var names []string
	if err := unmarshal(&names); err != nil {
		return err
	}
	var ret ParameterFlags
outer:
	for _, n := range names {
		for i, fn := range flagNames {
			if fn == n {
				ret |= 1 << i
				continue outer
			}
		}
		return fmt.Errorf("unknown parameter flag %q", n)
	}
	*f = ret
	return nil
}

// Clamp returns v limited to the range. NaN is mapped to Min, so a NaN never
// reaches the native unit.
func (r Range) Clamp(v float32) float32 {
	lo, hi := float32(r.Min), float32(r.Max)
	switch {
	case v != v:
		return lo
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

// Contains reports whether v is inside the range.
func (r Range) Contains(v float32) bool {
	return v >= float32(r.Min) && v <= float32(r.Max)
}

// Span is Max - Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// Normalize maps v into 0..1. Degenerate ranges map everything to 0.
func (r Range) Normalize(v float32) float64 {
	if r.Max <= r.Min {
		return 0
	}
	return (float64(r.Clamp(v)) - r.Min) / r.Span()
}

// Denormalize maps x in 0..1 into the range; x is clamped first.
func (r Range) Denormalize(x float64) float32 {
	x = math.Max(0, math.Min(1, x))
	if math.IsNaN(x) {
		x = 0
	}
	return r.Clamp(float32(r.Min + x*r.Span()))
}

func (r Range) String() string {
	return formatFloat(r.Min) + "..." + formatFloat(r.Max)
}

// Validate checks the invariants of a single definition.
func (d *ParameterDef) Validate() error {
	if d.Identifier == "" {
		return fmt.Errorf("parameter %q has no identifier", d.Name)
	}
	if math.IsNaN(d.Range.Min) || math.IsNaN(d.Range.Max) || d.Range.Min > d.Range.Max {
		return fmt.Errorf("parameter %v has invalid range %v", d.Identifier, d.Range)
	}
	if !d.Range.Contains(d.Default) {
		return fmt.Errorf("parameter %v default %v is outside range %v", d.Identifier, d.Default, d.Range)
	}
	return nil
}

// Automatable is a shorthand for d.Flags.Has(ParameterAutomatable).
func (d *ParameterDef) Automatable() bool { return d.Flags.Has(ParameterAutomatable) }

// Display formats v for showing to the user, using DisplayFunc when given.
// Times are shown with EngineeringTime.
func (d *ParameterDef) Display(v float32) (value string, unit string) {
	if d.DisplayFunc != nil {
		return d.DisplayFunc(v)
	}
	switch d.Unit {
	case Seconds:
		return EngineeringTime(v)
	case Milliseconds:
		return EngineeringTime(v / 1000)
	}
	return strconv.FormatFloat(float64(v), 'f', -1, 32), d.Unit.Symbol()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FrequencyDisplay shows frequencies above 1 kHz in kHz.
func FrequencyDisplay(v float32) (string, string) {
	if v >= 1000 {
		return strconv.FormatFloat(float64(v)/1000, 'f', 2, 64), "kHz"
	}
	return strconv.FormatFloat(float64(v), 'f', 1, 64), "Hz"
}

// EngineeringTime shows a duration in seconds with a suitable prefix.
func EngineeringTime(sec float32) (string, string) {
	if sec < 1e-3 {
		return fmt.Sprintf("%.2f", sec*1e6), "us"
	} else if sec < 1 {
		return fmt.Sprintf("%.2f", sec*1e3), "ms"
	}
	return fmt.Sprintf("%.2f", sec), "s"
}
