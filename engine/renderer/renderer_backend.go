package renderer

import (
	"context"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ParsePresentMode maps a config name to a PresentMode. Unknown names select VSync.
//
// Parameters:
//   - name: "vsync" or "uncapped"
//
// Returns:
//   - PresentMode: the matching mode
func ParsePresentMode(name string) PresentMode {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "uncapped", "immediate":
		return PresentModeUncapped
	}
	return PresentModeVSync
}

// OutputImage is the storage texture the kernel writes pixels into. The same view is bound as
// the kernel's storage image and as the blit's sampled source.
type OutputImage struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Width   int
	Height  int
}

// Release releases the view and the texture. Safe on a partially created image.
func (o *OutputImage) Release() {
	if o == nil {
		return
	}
	if o.View != nil {
		o.View.Release()
		o.View = nil
	}
	if o.Texture != nil {
		o.Texture.Release()
		o.Texture = nil
	}
}

// RendererBackend is the device-facing half of the Renderer. The Renderer owns ordering, frame
// slots and the image tracker; the backend turns each step into GPU API calls.
type RendererBackend interface {
	// Open acquires the instance, adapter, device and queue. A configured surface descriptor
	// creates the surface first so the adapter is compatible with it.
	//
	// Parameters:
	//   - ctx: cancels the acquisition before it starts
	//
	// Returns:
	//   - error: an error if no adapter or device could be acquired
	Open(ctx context.Context) error

	// Headless reports whether the backend renders without a presentation surface.
	//
	// Returns:
	//   - bool: true when there is no surface
	Headless() bool

	// ConfigureSurface sizes the presentation surface. A no-op when headless.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	//
	// Returns:
	//   - error: an error if the surface reports no usable format
	ConfigureSurface(width, height int) error

	// SetPresentMode selects how frames are presented. Applied on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// RegisterComputePipeline creates the shader module, bind group layouts, pipeline layout and
	// compute pipeline for a compute Pipeline.
	//
	// Parameters:
	//   - p: the pipeline holding the parsed kernel
	//
	// Returns:
	//   - error: an error if any GPU object could not be created
	RegisterComputePipeline(p pipeline.Pipeline) error

	// RegisterRenderPipeline creates the render pipeline that draws into the surface format.
	//
	// Parameters:
	//   - p: the pipeline holding the parsed render shader
	//
	// Returns:
	//   - error: an error if any GPU object could not be created
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// CreateOutputImage creates the rgba8unorm output texture with storage, copy-source and
	// sampled usage, and its view.
	//
	// Parameters:
	//   - width: the image width in pixels
	//   - height: the image height in pixels
	//
	// Returns:
	//   - *OutputImage: the image
	//   - error: an error if the texture could not be created
	CreateOutputImage(width, height int) (*OutputImage, error)

	// InitSampler creates the linear clamp sampler used by the present blit.
	//
	// Parameters:
	//   - provider: the provider to store the sampler on
	//   - binding: the binding index of the sampler
	//
	// Returns:
	//   - error: an error if the sampler could not be created
	InitSampler(provider bind_group_provider.BindGroupProvider, binding int) error

	// InitBindGroup creates the layout, any missing buffers and the bind group of a provider.
	// Texture views and samplers must be attached before the call.
	//
	// Parameters:
	//   - provider: the provider describing the group
	//   - descriptor: the layout descriptor parsed from the shader
	//   - sizes: buffer sizes keyed by binding, overriding the descriptor's minimum binding size
	//
	// Returns:
	//   - error: an error if a resource is missing or could not be created
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, sizes map[int]uint64) error

	// WriteBuffers stages buffer writes on the queue. They land before the next submission.
	//
	// Parameters:
	//   - writes: the writes to stage
	//
	// Returns:
	//   - error: an error if a write targets a missing buffer
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// Dispatch records one compute pass with the given groups bound in order, submits it and
	// returns the submission's fence.
	//
	// Parameters:
	//   - p: the compute pipeline
	//   - groups: the providers to bind, index i is bound at group i
	//   - workgroups: the workgroup counts in x, y and z
	//
	// Returns:
	//   - frame.Fence: signals when the dispatch has finished on the GPU
	//   - error: an error if recording or submission failed
	Dispatch(p pipeline.Pipeline, groups []bind_group_provider.BindGroupProvider, workgroups [3]uint32) (frame.Fence, error)

	// Blit draws the source provider's image over the acquired surface texture and presents it.
	//
	// Parameters:
	//   - p: the blit render pipeline
	//   - source: the provider binding the sampled image and sampler
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired or the pass failed
	Blit(p pipeline.Pipeline, source bind_group_provider.BindGroupProvider) error

	// ReadImage copies the image into a mappable buffer and returns its rows at the padded stride
	// the copy required.
	//
	// Parameters:
	//   - ctx: bounds the wait for the copy and the map
	//   - img: the image to read
	//
	// Returns:
	//   - []byte: the padded RGBA rows
	//   - int: the byte stride between rows
	//   - error: an error if the copy or map failed
	ReadImage(ctx context.Context, img *OutputImage) ([]byte, int, error)

	// WaitIdle blocks until every submission on the queue has finished.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//
	// Returns:
	//   - error: the context error if the wait was abandoned
	WaitIdle(ctx context.Context) error

	// Close releases the queue, device, adapter, surface and instance, in that order. Safe to
	// call on a backend that never opened.
	Close()
}
