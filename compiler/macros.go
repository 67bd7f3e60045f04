package compiler

import (
	"strconv"
	"strings"
	"text/template"

	"github.com/vsariola/patchbay"
)

// goFuncs turn parameter table values into Go expressions.
var goFuncs = template.FuncMap{
	"goFloat":       goFloat,
	"goFlags":       goFlags,
	"goUnit":        goUnit,
	"goComponent":   goComponent,
	"exportedName":  exportedName,
	"isEffect":      func(c patchbay.ComponentType) bool { return c == patchbay.Effect },
	"isFrequency":   func(u patchbay.ParameterUnit) bool { return u == patchbay.Hertz },
	"commentPrefix": commentPrefix,
}

func goFloat(v interface{}) string {
	switch f := v.(type) {
	case float32:
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return "0"
}

func goFlags(f patchbay.ParameterFlags) string {
	if f == patchbay.DefaultParameterFlags {
		return "patchbay.DefaultParameterFlags"
	}
	var parts []string
	if f.Has(patchbay.ParameterReadable) {
		parts = append(parts, "patchbay.ParameterReadable")
	}
	if f.Has(patchbay.ParameterWritable) {
		parts = append(parts, "patchbay.ParameterWritable")
	}
	if f.Has(patchbay.ParameterAutomatable) {
		parts = append(parts, "patchbay.ParameterAutomatable")
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, " | ")
}

func goUnit(u patchbay.ParameterUnit) string {
	return "patchbay." + exportedName(u.String())
}

func goComponent(c patchbay.ComponentType) string {
	return "patchbay." + exportedName(c.String())
}

// exportedName upper cases the first letter: baseFrequency -> BaseFrequency.
func exportedName(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// commentPrefix makes a multi line text into a Go line comment.
func commentPrefix(s string) string {
	return "// " + strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n// ")
}
