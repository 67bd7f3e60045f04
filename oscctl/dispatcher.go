package oscctl

import (
	"strings"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

type (
	// Handler handles a message whose address matched a route. captures
	// holds the address segments matched by "@" wildcards, in order.
	Handler func(msg *osc.Message, captures []string)

	route struct {
		pattern string
		handler Handler
	}

	// Dispatcher is a custom osc.Dispatcher routing messages by address
	// pattern. Each "@" in a pattern matches one segment; a trailing "*"
	// matches any remaining segments. The first matching route wins.
	Dispatcher struct {
		routes   []route
		fallback func(*osc.Message)
	}
)

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Handle adds a route. Routes are tried in the order they were added.
func (d *Dispatcher) Handle(pattern string, h Handler) {
	d.routes = append(d.routes, route{pattern, h})
}

// NotFound sets a function called with messages no route matches.
func (d *Dispatcher) NotFound(f func(*osc.Message)) { d.fallback = f }

// Dispatch dispatches OSC packets. Implements the osc.Dispatcher interface.
// Bundles with a time tag in the future are dispatched when it expires.
func (d *Dispatcher) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	default:
		return

	case *osc.Message:
		d.dispatchMessage(p)

	case *osc.Bundle:
		wait := p.Timetag.ExpiresIn()
		if wait <= 0 {
			d.dispatchBundle(p)
			return
		}
		time.AfterFunc(wait, func() { d.dispatchBundle(p) })
	}
}

func (d *Dispatcher) dispatchBundle(b *osc.Bundle) {
	for _, m := range b.Messages {
		d.dispatchMessage(m)
	}
	for _, inner := range b.Bundles {
		d.Dispatch(inner)
	}
}

func (d *Dispatcher) dispatchMessage(m *osc.Message) {
	for _, r := range d.routes {
		if ok, captures := matchAddr(r.pattern, m.Address); ok {
			r.handler(m, captures)
			return
		}
	}
	if d.fallback != nil {
		d.fallback(m)
	}
}

// matchAddr checks if messageAddr matches the pattern and returns the
// segments captured by "@".
func matchAddr(pattern, messageAddr string) (bool, []string) {
	pathSegs := strings.Split(pattern, "/")
	addrSegs := strings.Split(messageAddr, "/")

	endsWithStar := len(pathSegs) > 0 && pathSegs[len(pathSegs)-1] == "*"
	matchLen := len(pathSegs)
	if endsWithStar {
		matchLen--
		if len(addrSegs) < matchLen {
			return false, nil
		}
	} else if len(pathSegs) != len(addrSegs) {
		return false, nil
	}

	var captures []string
	for i := 0; i < matchLen; i++ {
		p := pathSegs[i]
		if p == "@" {
			captures = append(captures, addrSegs[i])
		} else if p != addrSegs[i] {
			return false, nil
		}
	}
	return true, captures
}
