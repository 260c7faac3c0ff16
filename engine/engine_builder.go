package engine

import (
	"log"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/profiler"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithProfiler replaces the default profiler.
//
// Parameters:
//   - p: the profiler ticked after every frame
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow renders into a window. Without it the engine runs headless.
//
// Parameters:
//   - w: an open Window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithScene sets the scene to render.
//
// Parameters:
//   - s: the Scene
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scene = s
	}
}

// WithCamera sets the camera frames are rendered from.
//
// Parameters:
//   - c: the Camera, its controller's orbit advances once per tick
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithRenderer supplies a renderer instead of building one from the linker and renderer options.
//
// Parameters:
//   - r: an uninitialized Renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithRendererOptions sets the options the engine builds its renderer with.
//
// Parameters:
//   - opts: renderer builder options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRendererOptions(opts ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOptions = append(e.rendererOptions, opts...)
	}
}

// WithLinker sets the linker used for the initial link and for every reload.
//
// Parameters:
//   - l: the Linker
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLinker(l shader.Linker) EngineBuilderOption {
	return func(e *engine) {
		e.linker = l
	}
}

// WithHotReload watches the linker's module directory and relinks the kernel when a module changes.
//
// Parameters:
//   - enabled: true to watch
//   - debounce: the quiet period before a change is acted on, the watcher default when zero
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithHotReload(enabled bool, debounce time.Duration) EngineBuilderOption {
	return func(e *engine) {
		e.hotReload = enabled
		e.debounce = debounce
	}
}

// WithSize sets the output size of a headless run. Windowed runs use the window size.
//
// Parameters:
//   - width: in pixels
//   - height: in pixels
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSize(width, height int) EngineBuilderOption {
	return func(e *engine) {
		e.width, e.height = width, height
	}
}

// WithFrames sets how many frames a headless run renders.
//
// Parameters:
//   - n: the frame count
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrames(n int) EngineBuilderOption {
	return func(e *engine) {
		e.frames = n
	}
}

// WithCapture saves the output image to path every n frames. With n = 0 a headless run saves the
// last frame only, and a windowed run saves on request.
//
// Parameters:
//   - path: the image path, a %d verb receives the frame number
//   - every: the capture interval in frames
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCapture(path string, every int) EngineBuilderOption {
	return func(e *engine) {
		e.capturePath = path
		e.captureEvery = every
	}
}

// WithLogger sets the logger for engine messages.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(l *log.Logger) EngineBuilderOption {
	return func(e *engine) {
		if l != nil {
			e.logger = l
		}
	}
}
