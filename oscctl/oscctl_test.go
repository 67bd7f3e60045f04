package oscctl_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/patchbay"
	"github.com/vsariola/patchbay/logging"
	"github.com/vsariola/patchbay/nodes"
	"github.com/vsariola/patchbay/oscctl"
	"github.com/vsariola/patchbay/vm"
)

func newGraph(t *testing.T) (*patchbay.Graph, *nodes.PeakingParametricEqualizerFilter) {
	t.Helper()
	types, err := nodes.Types()
	require.NoError(t, err)
	e := vm.NewEngine(44100)
	require.NoError(t, e.RegisterTypes(types))
	eq, err := nodes.NewPeakingParametricEqualizerFilter(patchbay.NewRack(e), nil,
		nodes.DefaultPeakingParametricEqualizerFilterParams(), patchbay.WithName("eq"))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, eq.Wait(ctx))
	g := patchbay.NewGraph()
	require.NoError(t, g.Add(eq.Node))
	g.SetOutput(eq.Node)
	return g, eq
}

func TestSetParameter(t *testing.T) {
	g, eq := newGraph(t)
	c := oscctl.New(g)
	c.Dispatch(osc.NewMessage("/node/eq/gain", float32(2.5)))
	assert.Equal(t, float32(2.5), eq.Gain().Get())
	c.Dispatch(osc.NewMessage("/node/eq/centerFrequency", int32(50000)))
	assert.Equal(t, float32(20000), eq.CenterFrequency().Get())
	c.Dispatch(osc.NewMessage("/node/eq/q/normalized", float32(0.5)))
	assert.Equal(t, float32(1), eq.Q().Get())
}

func TestInvalidMessagesAreIgnored(t *testing.T) {
	g, eq := newGraph(t)
	c := oscctl.New(g)
	c.Dispatch(osc.NewMessage("/node/eq/gain", "loud"))
	c.Dispatch(osc.NewMessage("/node/eq/gain"))
	c.Dispatch(osc.NewMessage("/node/eq/nope", float32(1)))
	c.Dispatch(osc.NewMessage("/node/other/gain", float32(1)))
	c.Dispatch(osc.NewMessage("/unrouted", float32(1)))
	assert.Equal(t, float32(1), eq.Gain().Get())
}

func TestRamp(t *testing.T) {
	g, eq := newGraph(t)
	c := oscctl.New(g)
	c.Dispatch(osc.NewMessage("/node/eq/gain/ramp", float32(4), float32(0.5)))
	assert.Equal(t, float32(4), eq.Gain().Get(), "reads report the ramp target")
}

func TestToggle(t *testing.T) {
	g, eq := newGraph(t)
	c := oscctl.New(g)
	c.Dispatch(osc.NewMessage("/node/eq/enabled", false))
	assert.False(t, eq.IsStarted())
	assert.True(t, eq.Host().Unit().(*vm.Instance).Bypassed())
	c.Dispatch(osc.NewMessage("/node/eq/enabled", int32(1)))
	assert.True(t, eq.IsStarted())
}

func TestBundle(t *testing.T) {
	g, eq := newGraph(t)
	c := oscctl.New(g)
	b := osc.NewBundle(time.Now().Add(-time.Second))
	require.NoError(t, b.Append(osc.NewMessage("/node/eq/gain", float32(3))))
	require.NoError(t, b.Append(osc.NewMessage("/node/eq/q", float32(1.5))))
	c.Dispatch(b)
	assert.Equal(t, float32(3), eq.Gain().Get())
	assert.Equal(t, float32(1.5), eq.Q().Get())
}

func TestSetGraph(t *testing.T) {
	g1, eq1 := newGraph(t)
	g2, eq2 := newGraph(t)
	c := oscctl.New(g1)
	c.SetGraph(g2)
	c.Dispatch(osc.NewMessage("/node/eq/gain", float32(2)))
	assert.Equal(t, float32(1), eq1.Gain().Get())
	assert.Equal(t, float32(2), eq2.Gain().Get())
}

func TestLogLevel(t *testing.T) {
	g, _ := newGraph(t)
	c := oscctl.New(g)
	defer logging.SetCategoryLevel(logging.PARAM, slog.LevelWarn)
	c.Dispatch(osc.NewMessage("/meta/logging/param/level", int32(-4)))
	assert.Equal(t, slog.LevelDebug, logging.CategoryLevel(logging.PARAM))
	c.Dispatch(osc.NewMessage("/meta/logging/nope/level", int32(0)))
	c.Dispatch(osc.NewMessage("/meta/logging/param/level", "debug"))
	assert.Equal(t, slog.LevelDebug, logging.CategoryLevel(logging.PARAM))
}
