package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-graph/engine/config"
)

func TestOptionsClampSize(t *testing.T) {
	w := newEngineWindow(WithSizeLimits(100, 100, 800, 600), WithSize(1920, 50))
	assert.Equal(t, 800, w.Width())
	assert.Equal(t, 100, w.Height())

	w = newEngineWindow(WithSizeLimits(0, 0, 0, 0), WithSize(4000, 3000))
	assert.Equal(t, 4000, w.Width(), "a zero maximum is unbounded")
}

func TestWithConfig(t *testing.T) {
	c := config.Default().Window
	c.Title = "graph"
	c.Width, c.Height = 1024, 768

	w := newEngineWindow(WithConfig(c))
	assert.Equal(t, "graph", w.title)
	assert.Equal(t, 1024, w.Width())
	assert.Equal(t, 768, w.Height())
	assert.Equal(t, c.MaxWidth, w.maxWidth)
}

func TestFramebufferResized(t *testing.T) {
	w := newEngineWindow()
	var got [][2]int
	w.SetResizeCallback(func(width, height int) {
		got = append(got, [2]int{width, height})
	})

	w.framebufferResized(640, 480)
	w.framebufferResized(0, 0)
	assert.True(t, w.Minimized())
	assert.Equal(t, 640, w.Width(), "minimizing keeps the last size")

	w.framebufferResized(800, 600)
	assert.False(t, w.Minimized())
	require.Len(t, got, 2)
	assert.Equal(t, [2]int{800, 600}, got[1])
}

func TestUninitializedWindow(t *testing.T) {
	w := newEngineWindow()
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
}

func TestKeyDigit(t *testing.T) {
	d, ok := Key7.Digit()
	assert.True(t, ok)
	assert.Equal(t, 7, d)

	_, ok = KeyEsc.Digit()
	assert.False(t, ok)
}
