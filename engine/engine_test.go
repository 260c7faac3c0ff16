package engine

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/primitive"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer records the host API calls the engine makes.
type fakeRenderer struct {
	link *shader.LinkResult

	width, height int
	initialized   bool
	shutdowns     int
	uploads       [][]byte
	params        []scene.GPUFrameParams
	reloads       int
	readbacks     int
	frames        uint64

	failFrame  uint64
	failReload error
}

var _ renderer.Renderer = &fakeRenderer{}

func (r *fakeRenderer) Initialize(_ context.Context, width, height int) error {
	r.width, r.height = width, height
	r.initialized = true
	return nil
}

func (r *fakeRenderer) UploadScene(spheres, _, _, _, _, _ []byte) error {
	r.uploads = append(r.uploads, spheres)
	return nil
}

func (r *fakeRenderer) RenderFrame(params scene.GPUFrameParams) error {
	if r.failFrame > 0 && r.frames+1 == r.failFrame {
		return errors.New("device lost")
	}
	r.params = append(r.params, params)
	r.frames++
	return nil
}

func (r *fakeRenderer) Present() error { return nil }

func (r *fakeRenderer) Readback() (*common.PixelBuffer, error) {
	r.readbacks++
	return common.NewPixelBuffer(r.width, r.height), nil
}

func (r *fakeRenderer) ReloadKernel(link *shader.LinkResult) error {
	if r.failReload != nil {
		return r.failReload
	}
	r.reloads++
	r.link = link
	return nil
}

func (r *fakeRenderer) Resize(width, height int) error {
	r.width, r.height = width, height
	return nil
}

func (r *fakeRenderer) Size() (int, int)             { return r.width, r.height }
func (r *fakeRenderer) Headless() bool               { return true }
func (r *fakeRenderer) FramesInFlight() int          { return 2 }
func (r *fakeRenderer) FrameCount() uint64           { return r.frames }
func (r *fakeRenderer) Link() *shader.LinkResult     { return r.link }
func (r *fakeRenderer) LastFenceWait() time.Duration { return time.Millisecond }
func (r *fakeRenderer) Shutdown()                    { r.shutdowns++ }

func testLink(t *testing.T, buf *bytes.Buffer) *shader.LinkResult {
	t.Helper()
	link, err := shader.NewLinker(shader.WithLogger(log.New(buf, "", 0))).Link()
	require.NoError(t, err)
	return link
}

func testScene() scene.Scene {
	s := scene.NewScene()
	h := s.AddMaterial(material.Diffuse([3]float32{0.8, 0.2, 0.2}, 0.7, 0.1))
	s.AddSphere(primitive.NewSphere(common.Vec3{0, 0, -1}, 0.5, h))
	return s
}

func testCamera() camera.Camera {
	ctrl := camera.NewCameraController(
		camera.WithTarget(common.Vec3{2, 1.5, 0}),
		camera.WithOrbitPath(common.Vec3{2, 1.5, 6}, 3, 0, 1.0/180),
	)
	return camera.NewCamera(camera.WithController(ctrl))
}

func newTestEngine(t *testing.T, r *fakeRenderer, opts ...EngineBuilderOption) (Engine, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	r.link = testLink(t, &buf)
	base := []EngineBuilderOption{
		WithRenderer(r),
		WithScene(testScene()),
		WithCamera(testCamera()),
		WithLogger(log.New(&buf, "", 0)),
		WithLinker(shader.NewLinker(shader.WithLogger(log.New(&buf, "", 0)))),
	}
	e, err := NewEngine(append(base, opts...)...)
	require.NoError(t, err)
	return e, &buf
}

func TestNewEngineNeedsSceneAndCamera(t *testing.T) {
	_, err := NewEngine(WithCamera(testCamera()))
	assert.Error(t, err)
	_, err = NewEngine(WithScene(testScene()))
	assert.Error(t, err)
}

func TestHeadlessRunRendersFrames(t *testing.T) {
	r := &fakeRenderer{}
	e, _ := newTestEngine(t, r, WithSize(320, 240), WithFrames(4), WithTickRate(60))

	ticks := 0
	e.SetTickCallback(func(float32) { ticks++ })
	var rendered []uint64
	e.SetRenderCallback(func(n uint64) { rendered = append(rendered, n) })

	require.NoError(t, e.Run(context.Background()))

	assert.True(t, r.initialized)
	assert.Equal(t, 320, r.width)
	assert.Len(t, r.uploads, 1)
	assert.Len(t, r.uploads[0], 32)
	require.Len(t, r.params, 4)
	assert.Equal(t, 3, ticks)
	assert.Equal(t, []uint64{1, 2, 3, 4}, rendered)
	assert.Equal(t, int32(1), r.params[0].NumSpheres)
	assert.InDelta(t, 3.0/60, r.params[3].Time, 1e-6)
	assert.NotEqual(t, r.params[0].CameraPos, r.params[3].CameraPos)
	assert.Equal(t, 1, r.shutdowns)
	assert.InDelta(t, 320.0/240.0, e.Camera().Aspect(), 1e-6)

	assert.Error(t, e.Run(context.Background()))
}

func TestHeadlessCaptures(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRenderer{}
	e, buf := newTestEngine(t, r, WithSize(4, 4), WithFrames(5),
		WithCapture(filepath.Join(dir, "frame_%03d.ppm"), 2))
	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, 2, r.readbacks)
	for _, name := range []string{"frame_002.ppm", "frame_004.ppm"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	assert.Contains(t, buf.String(), "[Engine] saved frame 2")

	r = &fakeRenderer{}
	e, _ = newTestEngine(t, r, WithSize(4, 4), WithFrames(3), WithCapture(filepath.Join(dir, "last.png"), 0))
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 1, r.readbacks)
	_, err := os.Stat(filepath.Join(dir, "last.png"))
	assert.NoError(t, err)
}

func TestHeadlessFrameErrorIsFatal(t *testing.T) {
	r := &fakeRenderer{failFrame: 2}
	e, _ := newTestEngine(t, r, WithFrames(5))
	assert.ErrorContains(t, e.Run(context.Background()), "device lost")
	assert.Len(t, r.params, 1)
	assert.Equal(t, 1, r.shutdowns)
}

func TestReloadRelinksAndReuploads(t *testing.T) {
	r := &fakeRenderer{}
	e, _ := newTestEngine(t, r, WithFrames(2))
	e.RequestReload()
	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, 1, r.reloads)
	assert.Len(t, r.uploads, 2)
}

func TestReloadFailureKeepsRunning(t *testing.T) {
	r := &fakeRenderer{failReload: errors.New("layout changed")}
	e, buf := newTestEngine(t, r, WithFrames(2))
	e.RequestReload()
	require.NoError(t, e.Run(context.Background()))

	assert.Len(t, r.params, 2)
	assert.Len(t, r.uploads, 1)
	assert.Contains(t, buf.String(), "keeping current kernel")
}

func TestPausedCameraHoldsStill(t *testing.T) {
	r := &fakeRenderer{}
	e, _ := newTestEngine(t, r, WithFrames(3))
	e.SetPaused(true)
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, r.params[0].CameraPos, r.params[2].CameraPos)
}

func TestQuitStopsHeadlessRun(t *testing.T) {
	r := &fakeRenderer{}
	e, _ := newTestEngine(t, r, WithFrames(100))
	e.SetRenderCallback(func(n uint64) {
		if n == 3 {
			e.Quit()
		}
	})
	require.NoError(t, e.Run(context.Background()))
	assert.Len(t, r.params, 3)
	e.Quit()
}
