package config

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "render.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 800, cfg.Render.Width)
	assert.Equal(t, 600, cfg.Render.Height)
	assert.Equal(t, 2, cfg.Render.FramesInFlight)
	assert.Equal(t, [2]uint32{8, 8}, cfg.Render.WorkgroupSize)
	assert.Nil(t, cfg.Render.MaxDepth)
	assert.Equal(t, "naga", cfg.Shaders.Compiler)
	assert.Equal(t, 1, cfg.Output.Frames)
	assert.Equal(t, 200*time.Millisecond, cfg.Debounce())
	assert.Equal(t, time.Second, cfg.ProfileInterval())
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
[render]
width = 320
max_depth = 3
background_top = [0.1, 0.2, 0.3]
present_mode = "uncapped"

[shaders]
module_dir = "shaders"
compiler = "device"

[scene]
path = "/abs/scene.yaml"

[output]
capture = "out/frame_%04d.png"
capture_every = 10
frames = 30
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 320, cfg.Render.Width)
	assert.Equal(t, 600, cfg.Render.Height)
	require.NotNil(t, cfg.Render.MaxDepth)
	assert.Equal(t, 3, *cfg.Render.MaxDepth)
	require.NotNil(t, cfg.Render.BackgroundTop)
	assert.Equal(t, common.Vec3{0.1, 0.2, 0.3}, *cfg.Render.BackgroundTop)
	assert.Nil(t, cfg.Render.BackgroundBottom)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "shaders"), cfg.Shaders.ModuleDir)
	assert.Equal(t, "/abs/scene.yaml", cfg.Scene.Path)
	assert.Equal(t, shader.DefaultEntryMarker, cfg.Shaders.EntryMarker)
	assert.Equal(t, 10, cfg.Output.CaptureEvery)
	assert.Equal(t, 30, cfg.Output.Frames)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":      "[render]\nwidht = 10\n",
		"bad syntax":       "[render\n",
		"zero width":       "[render]\nwidth = 0\n",
		"no slots":         "[render]\nframes_in_flight = 0\n",
		"bad compiler":     "[shaders]\ncompiler = \"glslc\"\n",
		"negative depth":   "[render]\nmax_depth = -1\n",
		"zero workgroup":   "[render]\nworkgroup_size = [0, 8]\n",
		"negative capture": "[output]\ncapture_every = -2\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLinkerOptionsDriveTheLinker(t *testing.T) {
	cfg := Default()
	cfg.Shaders.Compiler = "device"
	cfg.Render.WorkgroupSize = [2]uint32{16, 16}

	var buf bytes.Buffer
	opts, err := cfg.LinkerOptions(log.New(&buf, "", 0))
	require.NoError(t, err)
	res, err := shader.NewLinker(opts...).Link()
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{16, 16, 1}, res.WorkgroupSize)
	assert.Equal(t, shader.FormatWGSL, res.Format)

	cfg.Shaders.Compiler = "glslc"
	_, err = cfg.LinkerOptions(nil)
	assert.Error(t, err)
}

func TestRendererOptions(t *testing.T) {
	assert.Len(t, Default().RendererOptions(log.Default()), 6)
}

func TestApplyScene(t *testing.T) {
	s := scene.NewScene()
	origTop, origBottom := s.Background()
	origDepth := s.MaxDepth()

	Default().ApplyScene(s)
	top, bottom := s.Background()
	assert.Equal(t, origTop, top)
	assert.Equal(t, origBottom, bottom)
	assert.Equal(t, origDepth, s.MaxDepth())

	cfg := Default()
	depth := 7
	bottom = common.Vec3{0.5, 0.5, 0.5}
	cfg.Render.MaxDepth = &depth
	cfg.Render.BackgroundBottom = &bottom
	cfg.ApplyScene(s)

	top, gotBottom := s.Background()
	assert.Equal(t, origTop, top)
	assert.Equal(t, bottom, gotBottom)
	assert.Equal(t, 7, s.MaxDepth())
}
