package main

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/patchbay"
	"github.com/vsariola/patchbay/nodes"
	"github.com/vsariola/patchbay/vm"
)

const testRate = 8000

func exampleSession(t *testing.T) *session {
	t.Helper()
	p, err := readPatch("example.yml")
	require.NoError(t, err)
	types, err := nodes.Types()
	require.NoError(t, err)
	s, err := newSession(context.Background(), p, types, testRate)
	require.NoError(t, err)
	return s
}

func TestRenderExample(t *testing.T) {
	s := exampleSession(t)
	assert.Equal(t, []string{"osc", "eq"}, s.program.Nodes())
	buffer, err := s.renderOffline(0)
	require.NoError(t, err)
	assert.Len(t, buffer, int((s.patch.Duration()+1)*testRate))
	var peak float32
	for _, f := range buffer {
		for _, v := range f {
			require.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0))
			peak = max(peak, float32(math.Abs(float64(v))))
		}
	}
	assert.Greater(t, peak, float32(0.01))
	param, err := s.graph.Parameter("osc", "amplitude")
	require.NoError(t, err)
	assert.Equal(t, float32(0), param.Get(), "automation has run to the end")
}

func TestWriteOutputs(t *testing.T) {
	dir := t.TempDir()
	buffer := make(patchbay.AudioBuffer, 10)
	require.NoError(t, writeOutputs("patches/example.yml", dir, buffer, testRate, true, true, true))
	wav, err := os.ReadFile(filepath.Join(dir, "example.wav"))
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(wav[:4]))
	raw, err := os.ReadFile(filepath.Join(dir, "example.raw"))
	require.NoError(t, err)
	assert.Len(t, raw, 10*2*2)
}

func TestReloadKeepsGraphWhenTopologyIsSame(t *testing.T) {
	s := exampleSession(t)
	data, err := os.ReadFile("example.yml")
	require.NoError(t, err)
	p, err := patchbay.ParsePatch(data)
	require.NoError(t, err)
	p.Nodes[1].Parameters["gain"] = 2
	p.Nodes[1].Disabled = true
	assert.True(t, p.SameTopology(s.patch))
	require.NoError(t, p.ApplyValues(s.graph))
	gain, err := s.graph.Parameter("eq", "gain")
	require.NoError(t, err)
	assert.Equal(t, float32(2), gain.Get())
	eq, _ := s.graph.Node("eq")
	assert.False(t, eq.IsStarted())
}

func TestReloadMovesAutomationToRebuiltGraph(t *testing.T) {
	s := exampleSession(t)
	var player vm.Player
	player.SetProgram(s.program)
	live := &liveGraph{}
	live.Store(s.graph)
	schedule := patchbay.NewSchedule(s.patch.Automation)
	require.NoError(t, schedule.Advance(1, live))
	old := s.graph

	file := filepath.Join(t.TempDir(), "solo.yml")
	require.NoError(t, os.WriteFile(file, []byte("version: 1.0.0\nnodes:\n  - {name: osc, type: FMOscillator, parameters: {baseFrequency: 220}}\n"), 0644))
	require.NoError(t, s.reload(context.Background(), file, &player, live, nil, 1))
	assert.NotSame(t, old, s.graph)
	assert.Same(t, s.graph, live.Load())
	assert.Same(t, s.program, player.Program())
	assert.Equal(t, []string{"osc"}, s.program.Nodes())

	require.NoError(t, schedule.Advance(2, live))
	freq, err := s.graph.Parameter("osc", "baseFrequency")
	require.NoError(t, err)
	assert.Equal(t, float32(110), freq.Get(), "the remaining automation drives the new graph")
	stale, err := old.Parameter("osc", "baseFrequency")
	require.NoError(t, err)
	assert.Equal(t, float32(220), stale.Get())
}

func TestSetLogLevels(t *testing.T) {
	assert.NoError(t, setLogLevels("node=debug, param=warn"))
	assert.Error(t, setLogLevels("node"))
	assert.Error(t, setLogLevels("nope=debug"))
	assert.Error(t, setLogLevels("node=loud"))
}
