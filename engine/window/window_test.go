package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClosedWindowIsInert(t *testing.T) {
	w := &engineWindow{width: 320, height: 200}

	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
	w.RequestClose()
	w.SetTitle("t")
	assert.Equal(t, "t", w.title)

	calls := 0
	w.SetUpdateCallback(func() { calls++ })
	w.ProcessMessages()
	assert.Equal(t, 0, calls)
}

func TestSizeLimits(t *testing.T) {
	w := &engineWindow{}
	for _, opt := range []WindowBuilderOption{WithMinSize(200, 0), WithMaxSize(0, 900), WithSize(640, 480), WithTitle("x")} {
		opt(w)
	}
	minW, minH, maxW, maxH := w.sizeLimits(-1)
	assert.Equal(t, []int{200, -1, -1, 900}, []int{minW, minH, maxW, maxH})
	assert.Equal(t, 640, w.Width())
	assert.Equal(t, 480, w.Height())
}

func TestNewWindowRejectsBadSize(t *testing.T) {
	_, err := NewWindow(WithSize(0, 10))
	assert.Error(t, err)
}
