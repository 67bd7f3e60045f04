package patchbay

// AudioBuffer is a buffer of stereo frames, left channel first.
type AudioBuffer [][2]float32

// Renderer fills buffers with audio. Render is called from the render
// context: it must not block, allocate or log.
type Renderer interface {
	Render(buffer AudioBuffer) error
}

// RenderFunc adapts a function to a Renderer.
type RenderFunc func(buffer AudioBuffer) error

func (f RenderFunc) Render(buffer AudioBuffer) error { return f(buffer) }

// Fill sets every frame of the buffer to silence.
func (b AudioBuffer) Fill() {
	for i := range b {
		b[i] = [2]float32{}
	}
}
