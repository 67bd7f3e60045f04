// Package oto plays a patchbay.Renderer on the default audio device.
package oto

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/patchbay"
)

// Output pulls audio from a renderer whenever the audio device needs more.
// Read runs in the render context of oto.
type Output struct {
	ctx      *oto.Context
	player   *oto.Player
	renderer patchbay.Renderer
	buffer   patchbay.AudioBuffer
	pcm16    bool
	errors   atomic.Uint64
}

const otoBufferSize = 40 * time.Millisecond

// NewOutput opens the audio device at sampleRate and waits until it is
// ready. With pcm16, the device is fed 16-bit signed samples instead of
// float32. Playback starts with Play.
func NewOutput(sampleRate int, renderer patchbay.Renderer, pcm16 bool) (*Output, error) {
	format := oto.FormatFloat32LE
	if pcm16 {
		format = oto.FormatSignedInt16LE
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       format,
		BufferSize:   otoBufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	o := newOutput(renderer, pcm16)
	o.ctx = ctx
	o.player = ctx.NewPlayer(o)
	return o, nil
}

func newOutput(renderer patchbay.Renderer, pcm16 bool) *Output {
	// room for the usual callback sizes, so Read does not need to allocate
	return &Output{renderer: renderer, pcm16: pcm16, buffer: make(patchbay.AudioBuffer, 0, 4096)}
}

func (o *Output) Play() { o.player.Play() }

func (o *Output) Pause() { o.player.Pause() }

func (o *Output) IsPlaying() bool { return o.player.IsPlaying() }

// Read implements io.Reader for oto. Render errors are counted and turn
// into silence; playback never stops because of them.
func (o *Output) Read(p []byte) (n int, err error) {
	frameSize := 8
	if o.pcm16 {
		frameSize = 4
	}
	frames := len(p) / frameSize
	if cap(o.buffer) < frames {
		o.buffer = make(patchbay.AudioBuffer, 0, frames)
	}
	buf := o.buffer[:frames]
	if err := o.renderer.Render(buf); err != nil {
		o.errors.Add(1)
		buf.Fill()
	}
	if o.pcm16 {
		return FloatBufferTo16BitLE(buf, p), nil
	}
	return FloatBufferToLE(buf, p), nil
}

// Errors returns the number of failed Render calls.
func (o *Output) Errors() uint64 { return o.errors.Load() }

// Close stops playback and disposes of the player.
func (o *Output) Close() error {
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
