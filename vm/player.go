package vm

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/vsariola/patchbay"
)

// Player is the patchbay.Renderer handed to an audio output. It renders the
// current Program, which the control context can swap at any time without
// stopping the audio. With no program it renders silence.
type Player struct {
	program  atomic.Pointer[Program]
	busy     atomic.Bool
	rendered atomic.Uint64
	errors   atomic.Uint64
	lastErr  atomic.Pointer[error]
}

// SetProgram makes p the program rendered from the next Render call on and
// returns the previous one. The previous program may still be in use by a
// Render call in progress; see WaitIdle.
func (pl *Player) SetProgram(p *Program) *Program {
	return pl.program.Swap(p)
}

func (pl *Player) Program() *Program { return pl.program.Load() }

// Render is called from the render context.
func (pl *Player) Render(buffer patchbay.AudioBuffer) error {
	pl.busy.Store(true)
	defer func() {
		pl.busy.Store(false)
		pl.rendered.Add(1)
	}()
	p := pl.program.Load()
	if p == nil {
		buffer.Fill()
		return nil
	}
	if err := p.Render(buffer); err != nil {
		buffer.Fill()
		pl.errors.Add(1)
		// a copy, so that err itself stays on the stack of a successful call
		e := err
		pl.lastErr.Store(&e)
		return err
	}
	return nil
}

// WaitIdle waits until no Render call that could have seen a program set
// before WaitIdle was called is still running.
func (pl *Player) WaitIdle(ctx context.Context) error {
	if !pl.busy.Load() {
		return nil
	}
	start := pl.rendered.Load()
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for pl.busy.Load() && pl.rendered.Load() == start {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// Errors returns the number of failed Render calls and the last error.
func (pl *Player) Errors() (uint64, error) {
	n := pl.errors.Load()
	if e := pl.lastErr.Load(); e != nil {
		return n, *e
	}
	return n, nil
}
