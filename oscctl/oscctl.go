// Package oscctl is an OSC control surface for a patchbay graph.
//
// Routes:
//
//	/node/{node}/enabled i|T|F            enable or bypass a node
//	/node/{node}/{param} f                set a parameter
//	/node/{node}/{param}/ramp f f         ramp to a value over seconds
//	/node/{node}/{param}/normalized f     set a parameter from 0..1
//	/meta/logging/{category}/level i      -4 Debug, 0 Info, 4 Warn, 8 Error
package oscctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/hypebeast/go-osc/osc"

	"github.com/vsariola/patchbay"
	"github.com/vsariola/patchbay/logging"
)

// Controller applies OSC messages to the graph it currently controls. The
// graph can be swapped while serving, e.g. after a patch reload.
type Controller struct {
	graph      atomic.Pointer[patchbay.Graph]
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func New(g *patchbay.Graph) *Controller {
	c := &Controller{dispatcher: NewDispatcher(), logger: logging.Get(logging.OSC)}
	c.graph.Store(g)
	d := c.dispatcher
	d.Handle("/meta/logging/@/level", c.setLogLevel)
	d.Handle("/node/@/enabled", c.toggle)
	d.Handle("/node/@/@/ramp", c.ramp)
	d.Handle("/node/@/@/normalized", c.setNormalized)
	d.Handle("/node/@/@", c.set)
	d.NotFound(func(m *osc.Message) {
		c.logger.Info("no route for OSC message", "address", m.Address)
	})
	return c
}

func (c *Controller) SetGraph(g *patchbay.Graph) { c.graph.Store(g) }

// Dispatch implements osc.Dispatcher.
func (c *Controller) Dispatch(packet osc.Packet) { c.dispatcher.Dispatch(packet) }

// ListenAndServe serves OSC over UDP on addr until ctx is done.
func (c *Controller) ListenAndServe(ctx context.Context, addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("cannot listen for OSC on %v: %w", addr, err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	c.logger.Info("serving OSC", "addr", conn.LocalAddr().String())
	server := &osc.Server{Addr: addr, Dispatcher: c}
	err = server.Serve(conn)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Controller) parameter(node, id string) (*patchbay.Parameter, bool) {
	p, err := c.graph.Load().Parameter(node, id)
	if err != nil {
		c.logger.Warn("OSC message for unknown parameter", "err", err)
		return nil, false
	}
	return p, true
}

func (c *Controller) set(m *osc.Message, captures []string) {
	v, ok := c.floatArg(m, 0)
	if !ok {
		return
	}
	if p, ok := c.parameter(captures[0], captures[1]); ok {
		p.Set(v)
	}
}

func (c *Controller) setNormalized(m *osc.Message, captures []string) {
	v, ok := c.floatArg(m, 0)
	if !ok {
		return
	}
	if p, ok := c.parameter(captures[0], captures[1]); ok {
		p.SetNormalized(float64(v))
	}
}

func (c *Controller) ramp(m *osc.Message, captures []string) {
	v, ok := c.floatArg(m, 0)
	if !ok {
		return
	}
	d, ok := c.floatArg(m, 1)
	if !ok {
		return
	}
	ev := patchbay.AutomationEvent{Node: captures[0], Parameter: captures[1], Value: v, Duration: float64(d)}
	if err := c.graph.Load().Apply(ev); err != nil {
		c.logger.Warn("OSC ramp failed", "err", err)
	}
}

func (c *Controller) toggle(m *osc.Message, captures []string) {
	n, ok := c.graph.Load().Node(captures[0])
	if !ok {
		c.logger.Warn("OSC message for unknown node", "node", captures[0])
		return
	}
	if len(m.Arguments) == 0 {
		c.logger.Warn("missing argument in OSC message", "address", m.Address)
		return
	}
	switch a := m.Arguments[0].(type) {
	case bool:
		n.Toggle(a)
	case int32:
		n.Toggle(a != 0)
	case float32:
		n.Toggle(a != 0)
	default:
		c.logger.Warn("invalid argument type in OSC message", "address", m.Address, "got", fmt.Sprintf("%T", a))
	}
}

func (c *Controller) setLogLevel(m *osc.Message, captures []string) {
	cat, ok := logging.ParseCategory(captures[0])
	if !ok {
		c.logger.Info("unrecognized log category in OSC message", "category", captures[0])
		return
	}
	if len(m.Arguments) == 0 {
		return
	}
	level, ok := m.Arguments[0].(int32)
	if !ok {
		c.logger.Error("invalid level type in OSC message", "expected", "int32", "got", fmt.Sprintf("%T", m.Arguments[0]))
		return
	}
	logging.Get(logging.META).Info("setting category level via OSC", "category", cat, "level", level)
	logging.SetCategoryLevel(cat, slog.Level(level))
}

var errArgument = errors.New("argument is not a number")

func (c *Controller) floatArg(m *osc.Message, i int) (float32, bool) {
	v, err := floatArg(m, i)
	if err != nil {
		c.logger.Warn("invalid OSC message", "address", m.Address, "err", err)
		return 0, false
	}
	return v, true
}

func floatArg(m *osc.Message, i int) (float32, error) {
	if i >= len(m.Arguments) {
		return 0, fmt.Errorf("missing argument %d", i)
	}
	switch a := m.Arguments[i].(type) {
	case float32:
		return a, nil
	case float64:
		return float32(a), nil
	case int32:
		return float32(a), nil
	case int64:
		return float32(a), nil
	}
	return 0, fmt.Errorf("argument %d of type %T: %w", i, m.Arguments[i], errArgument)
}
