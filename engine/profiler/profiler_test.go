package profiler

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestProfilerLogsEachInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var buf bytes.Buffer
	p := NewProfiler(WithInterval(time.Second), WithLogger(log.New(&buf, "", 0)), withClock(clock.now))

	for i := 0; i < 9; i++ {
		clock.advance(100 * time.Millisecond)
		assert.Nil(t, p.Tick(10*time.Millisecond))
	}
	clock.advance(100 * time.Millisecond)
	s := p.Tick(30 * time.Millisecond)
	require.NotNil(t, s)

	assert.InDelta(t, 10.0, s.FPS, 1e-9)
	assert.Equal(t, 100*time.Millisecond, s.AvgFrameTime)
	assert.Equal(t, 100*time.Millisecond, s.MaxFrameTime)
	assert.Equal(t, 12*time.Millisecond, s.AvgFenceWait)
	assert.Contains(t, buf.String(), "[Profiler] FPS: 10.00 | Frame: 100.00 ms")
	assert.Contains(t, buf.String(), "Fence wait: 12.00 ms")

	buf.Reset()
	clock.advance(50 * time.Millisecond)
	assert.Nil(t, p.Tick(0))
	assert.Empty(t, buf.String())
}

func TestProfilerTracksSlowestFrame(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var buf bytes.Buffer
	p := NewProfiler(WithInterval(time.Second), WithLogger(log.New(&buf, "", 0)), withClock(clock.now))

	clock.advance(200 * time.Millisecond)
	p.Tick(0)
	clock.advance(800 * time.Millisecond)
	s := p.Tick(0)
	require.NotNil(t, s)
	assert.Equal(t, 800*time.Millisecond, s.MaxFrameTime)
	assert.Equal(t, 500*time.Millisecond, s.AvgFrameTime)
}
