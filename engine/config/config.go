// Package config reads the TOML render configuration and turns it into builder options for the
// renderer, the kernel linker and the scene.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/pelletier/go-toml/v2"
)

// Config is the whole render configuration.
type Config struct {
	Render    RenderConfig    `toml:"render"`
	Shaders   ShaderConfig    `toml:"shaders"`
	Scene     SceneConfig     `toml:"scene"`
	Output    OutputConfig    `toml:"output"`
	Profiling ProfilingConfig `toml:"profiling"`
}

// RenderConfig is the [render] section.
type RenderConfig struct {
	Width                int       `toml:"width"`
	Height               int       `toml:"height"`
	FramesInFlight       int       `toml:"frames_in_flight"`
	WorkgroupSize        [2]uint32 `toml:"workgroup_size"`
	PresentMode          string    `toml:"present_mode"`
	ForceFallbackAdapter bool      `toml:"force_fallback_adapter"`
	Headless             bool      `toml:"headless"`
	FenceTimeoutMS       int       `toml:"fence_timeout_ms"`

	// MaxDepth and the background colors override the scene file when set.
	MaxDepth         *int         `toml:"max_depth"`
	BackgroundTop    *common.Vec3 `toml:"background_top"`
	BackgroundBottom *common.Vec3 `toml:"background_bottom"`
}

// ShaderConfig is the [shaders] section.
type ShaderConfig struct {
	ModuleDir   string `toml:"module_dir"`
	EntryMarker string `toml:"entry_marker"`
	Compiler    string `toml:"compiler"`
	ArtifactDir string `toml:"artifact_dir"`
	HotReload   bool   `toml:"hot_reload"`
	DebounceMS  int    `toml:"debounce_ms"`
}

// SceneConfig is the [scene] section.
type SceneConfig struct {
	Path string `toml:"path"`
}

// OutputConfig is the [output] section.
type OutputConfig struct {
	// Capture is the image path written by captures. A %d verb receives the frame number.
	Capture      string `toml:"capture"`
	CaptureEvery int    `toml:"capture_every"`

	// Frames is how many frames a headless run renders.
	Frames int `toml:"frames"`
}

// ProfilingConfig is the [profiling] section.
type ProfilingConfig struct {
	Enabled    bool `toml:"enabled"`
	IntervalMS int  `toml:"interval_ms"`
}

// Default returns the built-in configuration.
//
// Returns:
//   - *Config: the defaults
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			Width:          800,
			Height:         600,
			FramesInFlight: 2,
			WorkgroupSize:  [2]uint32{8, 8},
			PresentMode:    "vsync",
			FenceTimeoutMS: 10000,
		},
		Shaders: ShaderConfig{
			EntryMarker: shader.DefaultEntryMarker,
			Compiler:    "naga",
			DebounceMS:  200,
		},
		Output: OutputConfig{
			Frames: 1,
		},
		Profiling: ProfilingConfig{
			IntervalMS: 1000,
		},
	}
}

// Load reads a TOML file over the defaults. Relative module, artifact and scene paths resolve against
// the file's directory. Unknown keys are rejected.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - *Config: the merged configuration
//   - error: if the file cannot be read, does not parse or fails validation
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	cfg := Default()
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("config %s: %s", path, strict.String())
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	base := filepath.Dir(path)
	cfg.Shaders.ModuleDir = resolve(base, cfg.Shaders.ModuleDir)
	cfg.Shaders.ArtifactDir = resolve(base, cfg.Shaders.ArtifactDir)
	cfg.Scene.Path = resolve(base, cfg.Scene.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate checks value ranges.
//
// Returns:
//   - error: the first out of range value
func (c *Config) Validate() error {
	r := c.Render
	switch {
	case r.Width <= 0 || r.Height <= 0:
		return fmt.Errorf("render size %dx%d must be positive", r.Width, r.Height)
	case r.FramesInFlight < 1:
		return fmt.Errorf("frames_in_flight must be at least 1, got %d", r.FramesInFlight)
	case r.WorkgroupSize[0] == 0 || r.WorkgroupSize[1] == 0:
		return fmt.Errorf("workgroup_size %v must be positive", r.WorkgroupSize)
	case r.MaxDepth != nil && *r.MaxDepth < 0:
		return fmt.Errorf("max_depth must not be negative, got %d", *r.MaxDepth)
	case c.Output.CaptureEvery < 0:
		return fmt.Errorf("capture_every must not be negative, got %d", c.Output.CaptureEvery)
	case c.Output.Frames < 0:
		return fmt.Errorf("frames must not be negative, got %d", c.Output.Frames)
	}
	if _, err := shader.CompilerByName(c.Shaders.Compiler, c.Shaders.ArtifactDir); err != nil {
		return err
	}
	return nil
}

// RendererOptions converts the [render] section into renderer builder options.
//
// Parameters:
//   - logger: the logger handed to the renderer
//
// Returns:
//   - []renderer.RendererBuilderOption: the options
func (c *Config) RendererOptions(logger *log.Logger) []renderer.RendererBuilderOption {
	return []renderer.RendererBuilderOption{
		renderer.WithFramesInFlight(c.Render.FramesInFlight),
		renderer.WithPresentMode(renderer.ParsePresentMode(c.Render.PresentMode)),
		renderer.WithForceSoftwareRenderer(c.Render.ForceFallbackAdapter),
		renderer.WithHeadless(c.Render.Headless),
		renderer.WithFenceTimeout(time.Duration(c.Render.FenceTimeoutMS) * time.Millisecond),
		renderer.WithLogger(logger),
	}
}

// LinkerOptions converts the [shaders] section and the workgroup size into linker builder options.
//
// Parameters:
//   - logger: the logger handed to the linker
//
// Returns:
//   - []shader.LinkerBuilderOption: the options
//   - error: if the compiler name is unknown
func (c *Config) LinkerOptions(logger *log.Logger) ([]shader.LinkerBuilderOption, error) {
	compiler, err := shader.CompilerByName(c.Shaders.Compiler, c.Shaders.ArtifactDir)
	if err != nil {
		return nil, err
	}
	opts := []shader.LinkerBuilderOption{
		shader.WithModuleDir(c.Shaders.ModuleDir),
		shader.WithCompiler(compiler),
		shader.WithWorkgroupSize(c.Render.WorkgroupSize[0], c.Render.WorkgroupSize[1]),
		shader.WithLogger(logger),
	}
	if c.Shaders.EntryMarker != "" {
		opts = append(opts, shader.WithEntryMarker(c.Shaders.EntryMarker))
	}
	return opts, nil
}

// ApplyScene writes the render overrides into a loaded scene.
//
// Parameters:
//   - s: the scene to update
func (c *Config) ApplyScene(s scene.Scene) {
	if c.Render.MaxDepth != nil {
		s.SetMaxDepth(*c.Render.MaxDepth)
	}
	top, bottom := s.Background()
	if c.Render.BackgroundTop != nil {
		top = *c.Render.BackgroundTop
	}
	if c.Render.BackgroundBottom != nil {
		bottom = *c.Render.BackgroundBottom
	}
	s.SetBackground(top, bottom)
}

// Debounce returns the hot reload debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Shaders.DebounceMS) * time.Millisecond
}

// ProfileInterval returns the profiler logging interval.
func (c *Config) ProfileInterval() time.Duration {
	return time.Duration(c.Profiling.IntervalMS) * time.Millisecond
}
