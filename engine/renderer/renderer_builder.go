package renderer

import (
	"log"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithFramesInFlight sets how many frames may be recorded or executing on the GPU at once.
// Frame k uses slot k mod n. The default is 2.
//
// Parameters:
//   - n: the number of frame slots, at least 1
//
// Returns:
//   - RendererBuilderOption: a function that applies the frames in flight option to a renderer
func WithFramesInFlight(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.framesInFlight = n
	}
}

// WithSurfaceDescriptor renders to a window surface. Without it the renderer is headless and
// frames are only reachable through Readback.
//
// Parameters:
//   - desc: the platform surface descriptor, usually from the window
//
// Returns:
//   - RendererBuilderOption: a function that applies the surface option to a renderer
func WithSurfaceDescriptor(desc *wgpu.SurfaceDescriptor) RendererBuilderOption {
	return func(r *renderer) {
		r.surfaceDescriptor = desc
	}
}

// WithHeadless forces headless rendering even when a surface descriptor was given.
//
// Parameters:
//   - headless: true to skip the surface
//
// Returns:
//   - RendererBuilderOption: a function that applies the headless option to a renderer
func WithHeadless(headless bool) RendererBuilderOption {
	return func(r *renderer) {
		r.headless = headless
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithLinkResult supplies an already linked kernel. Without it Initialize links the embedded
// kernel with no surface shader modules.
//
// Parameters:
//   - link: the link result to load
//
// Returns:
//   - RendererBuilderOption: a function that applies the link option to a renderer
func WithLinkResult(link *shader.LinkResult) RendererBuilderOption {
	return func(r *renderer) {
		r.link = link
	}
}

// WithBackend replaces the WGPU backend.
//
// Parameters:
//   - backend: the RendererBackend to drive
//
// Returns:
//   - RendererBuilderOption: a function that applies the backend option to a renderer
func WithBackend(backend RendererBackend) RendererBuilderOption {
	return func(r *renderer) {
		r.backend = backend
	}
}

// WithFenceTimeout bounds every wait on a frame fence. The default is 10 seconds.
//
// Parameters:
//   - d: the timeout
//
// Returns:
//   - RendererBuilderOption: a function that applies the timeout option to a renderer
func WithFenceTimeout(d time.Duration) RendererBuilderOption {
	return func(r *renderer) {
		if d > 0 {
			r.fenceTimeout = d
		}
	}
}

// WithLogger sets the logger for device and kernel messages.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(l *log.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if l != nil {
			r.logger = l
		}
	}
}
