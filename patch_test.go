package patchbay_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/patchbay"
)

const testPatch = `
version: 1.0.0
samplerate: 48000
nodes:
  - name: eq
    type: Equalizer
    inputs: [tone]
    parameters: {gain: 2, q: 50}
  - name: tone
    type: Tone
    parameters: {frequency: 220}
    disabled: true
output: eq
automation:
  - {time: 2, node: tone, parameter: frequency, value: 110, duration: 0.5}
  - {time: 1, node: eq, parameter: gain, value: 3}
  - {time: 1, node: tone, parameter: shape, value: 2, duration: 1}
`

func buildTestPatch(t *testing.T, f *fakeFramework) (*patchbay.Patch, *patchbay.Graph) {
	t.Helper()
	p, err := patchbay.ParsePatch([]byte(testPatch))
	require.NoError(t, err)
	g, err := p.Build(patchbay.NewRack(f), testTypes)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, g.Wait(ctx))
	return p, g
}

func TestBuildPatch(t *testing.T) {
	p, g := buildTestPatch(t, newFakeFramework(eqType, toneType))
	assert.Equal(t, 48000, p.SampleRate)
	assert.Equal(t, 2.5, p.Duration())
	eq, ok := g.Node("eq")
	require.True(t, ok)
	tone, _ := g.Node("tone")
	assert.Same(t, eq, g.Output())
	assert.Equal(t, []*patchbay.Node{tone}, eq.Connections(), "forward references are connected")
	assert.False(t, tone.IsStarted())
	assert.True(t, tone.Host().Unit().(*fakeUnit).Bypassed())
	q, err := g.Parameter("eq", "q")
	require.NoError(t, err)
	assert.Equal(t, float32(2), q.Get(), "patch values are clamped")
	_, err = g.Parameter("eq", "bandwidth")
	assert.ErrorIs(t, err, patchbay.ErrUnknownParameter)
	_, err = g.Parameter("nope", "q")
	assert.Error(t, err)
}

func TestBuildDefaultsOutputToLastNode(t *testing.T) {
	p := &patchbay.Patch{Version: "1.0.0", Nodes: []patchbay.PatchNode{{Name: "a", Type: "Tone"}, {Name: "b", Type: "Tone"}}}
	require.NoError(t, p.Validate())
	g, err := p.Build(patchbay.NewRack(newFakeFramework(toneType)), testTypes)
	require.NoError(t, err)
	assert.Equal(t, "b", g.Output().Name())
}

func TestBuildHandsDefaultWavetable(t *testing.T) {
	sine := *toneType
	sine.Wavetable = "sine"
	types := patchbay.NodeTypes{sine.Name: &sine}
	p, err := patchbay.ParsePatch([]byte("version: 1.0.0\nnodes:\n  - {name: a, type: Tone}\n  - {name: b, type: Tone, wavetable: square}\n"))
	require.NoError(t, err)
	g, err := p.Build(patchbay.NewRack(newFakeFramework(&sine)), types)
	require.NoError(t, err)
	require.NoError(t, g.Wait(context.Background()))
	a, _ := g.Node("a")
	assert.Equal(t, []float32(patchbay.NewTable(patchbay.SineTable, 0)), a.Host().Unit().(*fakeUnit).table)
	b, _ := g.Node("b")
	assert.Equal(t, []float32(patchbay.NewTable(patchbay.SquareTable, 0)), b.Host().Unit().(*fakeUnit).table, "the patch replaces the default")
}

func TestBuildUnknownType(t *testing.T) {
	p := &patchbay.Patch{Version: "1.0.0", Nodes: []patchbay.PatchNode{{Name: "a", Type: "Reverb"}}}
	_, err := p.Build(patchbay.NewRack(newFakeFramework(toneType)), testTypes)
	assert.Error(t, err)
}

func TestValidatePatch(t *testing.T) {
	for name, p := range map[string]patchbay.Patch{
		"no version":        {},
		"bad version":       {Version: "one"},
		"future version":    {Version: "2.0.0"},
		"negative rate":     {Version: "1.0.0", SampleRate: -1},
		"unnamed node":      {Version: "1.0.0", Nodes: []patchbay.PatchNode{{Type: "Tone"}}},
		"duplicate name":    {Version: "1.0.0", Nodes: []patchbay.PatchNode{{Name: "a"}, {Name: "a"}}},
		"unknown input":     {Version: "1.0.0", Nodes: []patchbay.PatchNode{{Name: "a", Inputs: []string{"b"}}}},
		"unknown output":    {Version: "1.0.0", Output: "b"},
		"automation target": {Version: "1.0.0", Automation: []patchbay.AutomationEvent{{Node: "a"}}},
		"negative time":     {Version: "1.0.0", Nodes: []patchbay.PatchNode{{Name: "a"}}, Automation: []patchbay.AutomationEvent{{Node: "a", Time: -1}}},
		"unknown wavetable": {Version: "1.0.0", Nodes: []patchbay.PatchNode{{Name: "a", Wavetable: "noise"}}},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, p.Validate())
		})
	}
	assert.NoError(t, (&patchbay.Patch{Version: "1.4.2"}).Validate())
}

func TestParsePatchRejectsGarbage(t *testing.T) {
	_, err := patchbay.ParsePatch([]byte("nodes: {"))
	assert.Error(t, err)
}

func TestApplyValues(t *testing.T) {
	p, g := buildTestPatch(t, newFakeFramework(eqType, toneType))
	p.Nodes[0].Parameters["gain"] = 7
	p.Nodes[1].Disabled = false
	p.Nodes = append(p.Nodes, patchbay.PatchNode{Name: "ghost"})
	err := p.ApplyValues(g)
	assert.Error(t, err)
	gain, _ := g.Parameter("eq", "gain")
	assert.Equal(t, float32(7), gain.Get())
	tone, _ := g.Node("tone")
	assert.True(t, tone.IsStarted())
}

func TestSameTopology(t *testing.T) {
	a, err := patchbay.ParsePatch([]byte(testPatch))
	require.NoError(t, err)
	b, err := patchbay.ParsePatch([]byte(testPatch))
	require.NoError(t, err)
	b.Nodes[0].Parameters["gain"] = 9
	b.Automation = nil
	assert.True(t, a.SameTopology(b))
	b.Nodes[0].Inputs = nil
	assert.False(t, a.SameTopology(b))
	b.Nodes[0].Inputs = []string{"tone"}
	b.Nodes[1].Wavetable = "square"
	assert.False(t, a.SameTopology(b), "a new table needs a new unit")
	b.Nodes[1].Wavetable = ""
	b.Output = "tone"
	assert.False(t, a.SameTopology(b))
}

func TestGraphRejectsDuplicateNames(t *testing.T) {
	rack := patchbay.NewRack(newFakeFramework(toneType))
	g := patchbay.NewGraph()
	a, _ := rack.NewNode(toneType, nil, nil)
	b, _ := rack.NewNode(toneType, nil, nil)
	require.NoError(t, g.Add(a))
	assert.Error(t, g.Add(b))
}

func TestGraphWaitJoinsErrors(t *testing.T) {
	f := newFakeFramework(eqType, toneType)
	f.fail = errors.New("no DSP")
	p, err := patchbay.ParsePatch([]byte(testPatch))
	require.NoError(t, err)
	g, err := p.Build(patchbay.NewRack(f), testTypes)
	require.NoError(t, err)
	err = g.Wait(context.Background())
	assert.ErrorIs(t, err, patchbay.ErrInstantiationFailed)
	assert.ErrorContains(t, err, "Equalizer")
	assert.ErrorContains(t, err, "Tone")
}

func TestScheduleAdvance(t *testing.T) {
	f := newFakeFramework(eqType, toneType)
	p, g := buildTestPatch(t, f)
	s := patchbay.NewSchedule(p.Automation)
	next, ok := s.NextTime()
	assert.True(t, ok)
	assert.Equal(t, 1.0, next)

	require.NoError(t, s.Advance(0.5, g))
	gain, _ := g.Parameter("eq", "gain")
	assert.Equal(t, float32(2), gain.Get())

	require.NoError(t, s.Advance(1, g))
	assert.Equal(t, float32(3), gain.Get())
	shape, _ := g.Parameter("tone", "shape")
	assert.Equal(t, float32(2), shape.Get(), "non-automatable parameters are set instead of ramped")

	require.NoError(t, s.Advance(10, g))
	assert.True(t, s.Done())
	tone, _ := g.Node("tone")
	u := tone.Host().Unit().(*fakeUnit)
	assert.Equal(t, []ramp{{100, 110, 0.5}}, u.Ramps())

	s.Reset()
	assert.False(t, s.Done())
}

func TestScheduleReportsBadEvents(t *testing.T) {
	_, g := buildTestPatch(t, newFakeFramework(eqType, toneType))
	s := patchbay.NewSchedule([]patchbay.AutomationEvent{
		{Time: 0, Node: "eq", Parameter: "bandwidth", Value: 1},
		{Time: 0, Node: "eq", Parameter: "gain", Value: 5},
	})
	assert.ErrorIs(t, s.Advance(0, g), patchbay.ErrUnknownParameter)
	gain, _ := g.Parameter("eq", "gain")
	assert.Equal(t, float32(5), gain.Get(), "one bad event does not stop the rest")
}

func TestScheduleRun(t *testing.T) {
	_, g := buildTestPatch(t, newFakeFramework(eqType, toneType))
	s := patchbay.NewSchedule([]patchbay.AutomationEvent{
		{Time: 0.01, Node: "eq", Parameter: "gain", Value: 6},
		{Time: 0.02, Node: "eq", Parameter: "nope", Value: 6},
	})
	var errs []error
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx, g, time.Now(), func(err error) { errs = append(errs, err) }))
	gain, _ := g.Parameter("eq", "gain")
	assert.Equal(t, float32(6), gain.Get())
	assert.Len(t, errs, 1)

	s.Reset()
	cancel()
	assert.ErrorIs(t, s.Run(ctx, g, time.Now().Add(time.Hour), nil), context.Canceled)
}
