package compiler_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/patchbay/compiler"
	"github.com/vsariola/patchbay/nodes"
)

func loadSpecs(t *testing.T) []*compiler.NodeSpec {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "nodes", "nodes.yml"))
	require.NoError(t, err)
	specs, err := compiler.ParseNodeSpecs(data)
	require.NoError(t, err)
	return specs
}

func TestGeneratedCodeParses(t *testing.T) {
	com, err := compiler.New("nodes")
	require.NoError(t, err)
	files, err := com.NodeTypes("nodes.yml", loadSpecs(t))
	require.NoError(t, err)
	require.Len(t, files, 3)
	for name, code := range files {
		_, err := parser.ParseFile(token.NewFileSet(), name, code, parser.ParseComments)
		assert.NoError(t, err, name)
	}
	fm := string(files["fmoscillator_gen.go"])
	assert.Contains(t, fm, "// Code generated by patchbay-gen from nodes.yml. DO NOT EDIT.")
	assert.Contains(t, fm, "func NewFMOscillator(rack *patchbay.Rack, params FMOscillatorParams, opts ...patchbay.NodeOption) (*FMOscillator, error) {")
	assert.Contains(t, fm, `Wavetable: "sine",`)
	assert.NotContains(t, fm, "WithWavetable", "the table comes with the type, not the constructor")
	assert.Contains(t, fm, "DisplayFunc: patchbay.FrequencyDisplay,")
	eq := string(files["peakingparametricequalizerfilter_gen.go"])
	assert.Contains(t, eq, "input *patchbay.Node, params PeakingParametricEqualizerFilterParams")
	assert.Contains(t, eq, "Default:    0.707,")
	assert.Contains(t, string(files["types_gen.go"]), "PeakingParametricEqualizerFilterType,")
}

// The checked-in generated package must describe the same tables as
// nodes.yml.
func TestGeneratedTablesMatchDescriptions(t *testing.T) {
	types, err := nodes.Types()
	require.NoError(t, err)
	specs := loadSpecs(t)
	require.Len(t, types, len(specs))
	for _, s := range specs {
		got, ok := types[s.Name]
		require.True(t, ok, s.Name)
		assert.Equal(t, s.Component, got.Component)
		assert.Equal(t, s.DSPTag, got.DSPTag)
		assert.Equal(t, s.Wavetable, got.Wavetable)
		require.Len(t, got.Parameters, len(s.Parameters))
		for i, want := range s.Parameters {
			p := got.Parameters[i]
			assert.Equal(t, want.Identifier, p.Identifier)
			assert.Equal(t, want.Name, p.Name)
			assert.Equal(t, want.Range, p.Range)
			assert.Equal(t, want.Unit, p.Unit)
			assert.Equal(t, want.Flags, p.Flags)
			assert.Equal(t, want.Default, p.Default)
			assert.Equal(t, want.Comment, p.Comment)
		}
	}
}

func TestParseNodeSpecsErrors(t *testing.T) {
	_, err := compiler.ParseNodeSpecs([]byte("- name: X\n  component: {type: effect, subtype: toolong}\n  dsptag: XDSP\n"))
	assert.Error(t, err)
	_, err = compiler.ParseNodeSpecs([]byte("- name: X\n  component: {type: generator, subtype: xxxx}\n  dsptag: XDSP\n  wavetable: noise\n"))
	assert.Error(t, err)
	_, err = compiler.ParseNodeSpecs([]byte("- name: X\n  component: {type: generator, subtype: xxxx}\n  dsptag: XDSP\n  parameters:\n    - {identifier: a, range: {min: 0, max: 1}, default: 2}\n"))
	assert.Error(t, err)
}
