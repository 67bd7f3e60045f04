package patchbay

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Graph is a named set of nodes with one output node. It does not render
// anything by itself; a renderer (see package vm) walks the connections
// starting from Output.
type Graph struct {
	nodes  []*Node
	byName map[string]*Node
	output *Node
}

func NewGraph() *Graph {
	return &Graph{byName: make(map[string]*Node)}
}

// Add adds n to the graph. Names must be unique within a graph.
func (g *Graph) Add(n *Node) error {
	if _, ok := g.byName[n.Name()]; ok {
		return fmt.Errorf("graph already has a node named %v", n.Name())
	}
	g.nodes = append(g.nodes, n)
	g.byName[n.Name()] = n
	return nil
}

func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// Nodes returns the nodes in the order they were added.
func (g *Graph) Nodes() []*Node { return g.nodes }

func (g *Graph) Output() *Node { return g.output }

func (g *Graph) SetOutput(n *Node) { g.output = n }

// Wait waits until every node has reached a terminal state, and returns the
// instantiation errors of all the failed nodes joined together.
func (g *Graph) Wait(ctx context.Context) error {
	errs := make([]error, len(g.nodes))
	var eg errgroup.Group
	for i, n := range g.nodes {
		eg.Go(func() error {
			errs[i] = n.Wait(ctx)
			return nil
		})
	}
	eg.Wait()
	return errors.Join(errs...)
}

// Parameter finds the parameter of a node by node name and identifier.
func (g *Graph) Parameter(node, identifier string) (*Parameter, error) {
	n, ok := g.byName[node]
	if !ok {
		return nil, fmt.Errorf("graph has no node %v", node)
	}
	p, ok := n.Parameter(identifier)
	if !ok {
		return nil, fmt.Errorf("node %v has no parameter %v: %w", node, identifier, ErrUnknownParameter)
	}
	return p, nil
}

// Apply performs one automation event: a ramp when the event has a duration
// and the parameter is automatable, a plain Set otherwise.
func (g *Graph) Apply(ev AutomationEvent) error {
	p, err := g.Parameter(ev.Node, ev.Parameter)
	if err != nil {
		return err
	}
	if ev.Duration > 0 {
		if err := p.RampTo(ev.Value, ev.Duration); !errors.Is(err, ErrNotAutomatable) {
			return err
		}
	}
	p.Set(ev.Value)
	return nil
}
