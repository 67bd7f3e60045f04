package patchbay

import (
	"fmt"
	"math"
)

type (
	// Table is a single cycle waveform, sampled at len(Table) points.
	Table []float32

	TableType int
)

const (
	SineTable TableType = iota
	TriangleTable
	SquareTable
	SawtoothTable
	ReverseSawtoothTable
)

var tableTypeNames = [...]string{"sine", "triangle", "square", "sawtooth", "reverseSawtooth"}

func (t TableType) String() string {
	if t < 0 || int(t) >= len(tableTypeNames) {
		return fmt.Sprintf("table(%d)", int(t))
	}
	return tableTypeNames[t]
}

// ParseTableType returns the table type with the given name, e.g. "sine".
func ParseTableType(name string) (TableType, bool) {
	for i, n := range tableTypeNames {
		if n == name {
			return TableType(i), true
		}
	}
	return 0, false
}

// DefaultTableSize is the number of points used when none is given.
const DefaultTableSize = 4096

// NewTable samples a basic waveform of the given type. size <= 0 means
// DefaultTableSize.
func NewTable(t TableType, size int) Table {
	if size <= 0 {
		size = DefaultTableSize
	}
	ret := make(Table, size)
	for i := range ret {
		phase := float64(i) / float64(size)
		var v float64
		switch t {
		case SineTable:
			v = math.Sin(2 * math.Pi * phase)
		case TriangleTable:
			v = 1 - 4*math.Abs(math.Mod(phase+0.25, 1)-0.5)
		case SquareTable:
			v = 1
			if phase >= 0.5 {
				v = -1
			}
		case SawtoothTable:
			v = 2*phase - 1
		case ReverseSawtoothTable:
			v = 1 - 2*phase
		}
		ret[i] = float32(v)
	}
	return ret
}
