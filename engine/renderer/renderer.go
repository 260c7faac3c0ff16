package renderer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrNotInitialized is returned by every frame operation called before Initialize succeeded.
	ErrNotInitialized = errors.New("renderer not initialized")

	// ErrShutdown is returned by every operation called after Shutdown.
	ErrShutdown = errors.New("renderer shut down")
)

const (
	kernelPipelineKey = "Raytrace Kernel"
	blitPipelineKey   = "Present Blit"
)

type rendererState int

const (
	stateNew rendererState = iota
	stateReady
	stateShutdown
)

// slotResources is what one frame-in-flight slot owns on the device.
type slotResources struct {
	params bind_group_provider.BindGroupProvider
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu    *sync.Mutex
	state rendererState

	backend RendererBackend

	// Pre-creation config collected from builder options
	framesInFlight       int
	headless             bool
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool
	presentMode          PresentMode
	fenceTimeout         time.Duration
	link                 *shader.LinkResult
	logger               *log.Logger

	width, height int
	plan          bindingPlan
	blitPlan      blitPlan

	ring           *frame.Ring[*slotResources]
	tracker        *frame.ImageTracker
	sceneProvider  bind_group_provider.BindGroupProvider
	image          *OutputImage
	outputProvider bind_group_provider.BindGroupProvider
	kernel         pipeline.Pipeline
	blit           pipeline.Pipeline
	blitProvider   bind_group_provider.BindGroupProvider

	frame uint64
}

// Renderer drives the path tracing kernel on the GPU. It owns the frame-in-flight ring, the scene
// buffers, the output image and the pipelines, and it is the only component that records GPU
// commands.
//
// Methods are serialized by an internal lock. The engine drives one renderer from a single render
// goroutine.
type Renderer interface {
	// Initialize acquires the device, creates the frame slots, scene buffers, output image and
	// bind groups, and loads the linked kernel into a compute pipeline. Any failure releases what
	// was already created.
	//
	// Parameters:
	//   - ctx: bounds device acquisition and the kernel link when none was supplied
	//   - width: the output image width in pixels
	//   - height: the output image height in pixels
	//
	// Returns:
	//   - error: the first failure
	Initialize(ctx context.Context, width, height int) error

	// UploadScene replaces the scene buffers with packed blobs. Every frame in flight is drained
	// first. Buffers that are too small are recreated together with the scene bind group. On
	// failure the previous scene stays bound.
	//
	// Parameters:
	//   - spheres: packed spheres
	//   - ellipsoids: packed ellipsoids
	//   - materials: packed materials
	//   - lights: packed lights
	//   - volumes: packed volume regions
	//   - voxels: density bytes, four per u32 word
	//
	// Returns:
	//   - error: ErrNotInitialized, ErrShutdown or a device error
	UploadScene(spheres, ellipsoids, materials, lights, volumes, voxels []byte) error

	// RenderFrame records and submits one dispatch of the kernel. It blocks only while the
	// frame that previously used the same slot is still in flight.
	//
	// Parameters:
	//   - params: the per-frame uniform block
	//
	// Returns:
	//   - error: ErrNotInitialized, ErrShutdown, a fence wait timeout or a device error
	RenderFrame(params scene.GPUFrameParams) error

	// Present waits for the latest frame and blits the output image to the surface.
	// A no-op when headless or before the first frame.
	//
	// Returns:
	//   - error: a fence wait timeout or a surface error
	Present() error

	// Readback waits until the device is idle and copies the output image to the host.
	//
	// Returns:
	//   - *common.PixelBuffer: the tightly packed RGBA pixels
	//   - error: if no frame was rendered yet or the copy failed
	Readback() (*common.PixelBuffer, error)

	// ReloadKernel replaces the compute pipeline with a newly linked kernel once every frame in
	// flight has finished. The current kernel stays in use on failure.
	//
	// Parameters:
	//   - link: the new link result, its resource layout must match the current kernel
	//
	// Returns:
	//   - error: if the layout changed or the pipeline could not be created
	ReloadKernel(link *shader.LinkResult) error

	// Resize recreates the output image and reconfigures the surface for a new size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: if the image could not be recreated
	Resize(width, height int) error

	// Size returns the output image size.
	//
	// Returns:
	//   - width: in pixels
	//   - height: in pixels
	Size() (width, height int)

	// Headless reports whether the renderer has no presentation surface.
	Headless() bool

	// FramesInFlight returns the number of frame slots.
	FramesInFlight() int

	// FrameCount returns the number of frames submitted so far.
	FrameCount() uint64

	// Link returns the link result of the kernel in use.
	Link() *shader.LinkResult

	// LastFenceWait returns how long the latest RenderFrame blocked on its slot's fence.
	LastFenceWait() time.Duration

	// Shutdown waits for the device to go idle and releases everything Initialize created, in
	// reverse order. Safe to call more than once and after a failed Initialize.
	Shutdown()
}

var _ Renderer = &renderer{}

// NewRenderer creates an uninitialized Renderer. Without WithSurfaceDescriptor it renders headless.
//
// Parameters:
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer, ready for Initialize
func NewRenderer(options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:             &sync.Mutex{},
		framesInFlight: 2,
		presentMode:    PresentModeVSync,
		fenceTimeout:   10 * time.Second,
		logger:         log.Default(),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.surfaceDescriptor == nil {
		r.headless = true
	}
	return r
}

func (r *renderer) ready() error {
	switch r.state {
	case stateNew:
		return ErrNotInitialized
	case stateShutdown:
		return ErrShutdown
	}
	return nil
}

func (r *renderer) waitContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.fenceTimeout)
}

func (r *renderer) Initialize(ctx context.Context, width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case stateReady:
		return errors.New("renderer already initialized")
	case stateShutdown:
		return ErrShutdown
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid output size %dx%d", width, height)
	}
	if r.framesInFlight < 1 {
		return fmt.Errorf("frames in flight must be at least 1, got %d", r.framesInFlight)
	}

	if err := r.initialize(ctx, width, height); err != nil {
		r.release()
		return err
	}
	r.state = stateReady

	r.logger.Printf("[Renderer] initialized %dx%d, %d frames in flight, %d surface shaders, headless=%v",
		width, height, r.framesInFlight, r.link.Index.Len(), r.headless)
	return nil
}

func (r *renderer) initialize(ctx context.Context, width, height int) error {
	if r.backend == nil {
		desc := r.surfaceDescriptor
		if r.headless {
			desc = nil
		}
		r.backend = NewWGPURendererBackend(desc, r.forceFallbackAdapter, r.logger)
	}
	r.backend.SetPresentMode(r.presentMode)
	if err := r.backend.Open(ctx); err != nil {
		return fmt.Errorf("opening device: %w", err)
	}
	r.headless = r.backend.Headless()
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		return fmt.Errorf("configuring surface: %w", err)
	}

	if r.link == nil {
		link, err := shader.NewLinker(shader.WithLogger(r.logger)).LinkContext(ctx)
		if err != nil {
			return err
		}
		r.link = link
	}
	plan, err := planBindings(r.link.Kernel)
	if err != nil {
		return fmt.Errorf("reading kernel layout: %w", err)
	}
	r.plan = plan
	r.width, r.height = width, height
	kernel := r.link.Kernel

	slots := make([]*slotResources, r.framesInFlight)
	for i := range slots {
		params := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("Frame Params %d", i), plan.paramsGroup)
		slots[i] = &slotResources{params: params}
		if err := r.backend.InitBindGroup(params, kernel.BindGroupLayoutDescriptor(plan.paramsGroup),
			map[int]uint64{plan.paramsBinding: plan.paramsSize}); err != nil {
			for _, s := range slots[:i+1] {
				s.params.Release()
			}
			return fmt.Errorf("creating frame slot %d: %w", i, err)
		}
	}
	ring, err := frame.NewRing(slots, frame.WithLogger(r.logger))
	if err != nil {
		return err
	}
	r.ring = ring

	sceneProvider, err := r.newSceneProvider(plan.minSize)
	if err != nil {
		return err
	}
	r.sceneProvider = sceneProvider

	if err := r.createOutput(width, height); err != nil {
		return err
	}

	kp := pipeline.NewPipeline(kernelPipelineKey, pipeline.PipelineTypeCompute, pipeline.WithShader(kernel))
	if err := r.backend.RegisterComputePipeline(kp); err != nil {
		return fmt.Errorf("creating kernel pipeline: %w", err)
	}
	r.kernel = kp

	if !r.headless {
		blitShader, err := shader.NewShader("blit", shader.ShaderTypeRender, shader.BlitSource)
		if err != nil {
			return err
		}
		r.blitPlan, err = planBlit(blitShader)
		if err != nil {
			return err
		}
		bp := pipeline.NewPipeline(blitPipelineKey, pipeline.PipelineTypeRender, pipeline.WithShader(blitShader))
		if err := r.backend.RegisterRenderPipeline(bp); err != nil {
			return fmt.Errorf("creating blit pipeline: %w", err)
		}
		r.blit = bp
		if err := r.createBlitProvider(); err != nil {
			return err
		}
	}

	r.tracker = frame.NewImageTracker()
	return nil
}

// newSceneProvider creates the scene bind group with buffers of at least the given sizes.
func (r *renderer) newSceneProvider(sizes map[int]uint64) (bind_group_provider.BindGroupProvider, error) {
	p := bind_group_provider.NewBindGroupProvider("Scene", r.plan.sceneGroup)
	if err := r.backend.InitBindGroup(p, r.link.Kernel.BindGroupLayoutDescriptor(r.plan.sceneGroup), sizes); err != nil {
		p.Release()
		return nil, fmt.Errorf("creating scene buffers: %w", err)
	}
	return p, nil
}

// createOutput creates the output image and the kernel's output bind group.
func (r *renderer) createOutput(width, height int) error {
	img, err := r.backend.CreateOutputImage(width, height)
	if err != nil {
		return err
	}

	out := bind_group_provider.NewBindGroupProvider("Output Image", r.plan.outputGroup,
		bind_group_provider.WithTextureView(r.plan.outputBinding, img.View))
	if err := r.backend.InitBindGroup(out, r.link.Kernel.BindGroupLayoutDescriptor(r.plan.outputGroup), nil); err != nil {
		out.Release()
		img.Release()
		return fmt.Errorf("binding output image: %w", err)
	}
	r.image, r.outputProvider = img, out
	return nil
}

// createBlitProvider binds the output image and a sampler for the present blit.
func (r *renderer) createBlitProvider() error {
	p := bind_group_provider.NewBindGroupProvider("Blit Source", r.blitPlan.group,
		bind_group_provider.WithTextureView(r.blitPlan.sourceBinding, r.image.View))
	if err := r.backend.InitSampler(p, r.blitPlan.samplerBinding); err != nil {
		p.Release()
		return err
	}
	if err := r.backend.InitBindGroup(p, r.blit.Shader().BindGroupLayoutDescriptor(r.blitPlan.group), nil); err != nil {
		p.Release()
		return fmt.Errorf("binding blit source: %w", err)
	}
	r.blitProvider = p
	return nil
}

func (r *renderer) UploadScene(spheres, ellipsoids, materials, lights, volumes, voxels []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ready(); err != nil {
		return err
	}

	ctx, cancel := r.waitContext()
	defer cancel()
	if err := r.ring.WaitAll(ctx); err != nil {
		return fmt.Errorf("draining frames before upload: %w", err)
	}

	blobs := map[shader.AnnotationArg][]byte{
		shader.AnnotationArgSphere:         spheres,
		shader.AnnotationArgEllipsoid:      ellipsoids,
		shader.AnnotationArgMaterial:       materials,
		shader.AnnotationArgLight:          lights,
		shader.AnnotationArgVolumetricData: volumes,
		shader.AnnotationArgVoxels:         voxels,
	}

	sizes := make(map[int]uint64, len(r.plan.scene))
	grow := false
	for key, binding := range r.plan.scene {
		need := max(uint64(len(bind_group_provider.PadData(blobs[key]))), r.plan.minSize[binding])
		sizes[binding] = max(need, r.sceneProvider.BufferSize(binding))
		if need > r.sceneProvider.BufferSize(binding) {
			grow = true
		}
	}

	target := r.sceneProvider
	if grow {
		next, err := r.newSceneProvider(sizes)
		if err != nil {
			return err
		}
		target = next
	}

	writes := make([]bind_group_provider.BufferWrite, 0, len(sceneKeys))
	for _, key := range sceneKeys {
		binding, ok := r.plan.scene[key]
		if !ok || len(blobs[key]) == 0 {
			continue
		}
		writes = append(writes, bind_group_provider.BufferWrite{Provider: target, Binding: binding, Data: blobs[key]})
	}
	if err := r.backend.WriteBuffers(writes); err != nil {
		if target != r.sceneProvider {
			target.Release()
		}
		return fmt.Errorf("writing scene buffers: %w", err)
	}

	if target != r.sceneProvider {
		r.sceneProvider.Release()
		r.sceneProvider = target
	}
	return nil
}

// workgroups returns the dispatch size covering the output image with the kernel's workgroup size.
func (r *renderer) workgroups() [3]uint32 {
	size := r.link.Kernel.WorkgroupSize()
	x, y := max(size[0], 1), max(size[1], 1)
	return [3]uint32{
		(uint32(r.width) + x - 1) / x,
		(uint32(r.height) + y - 1) / y,
		1,
	}
}

// dispatchGroups orders the providers of a slot by group index.
func (r *renderer) dispatchGroups(slot *slotResources) []bind_group_provider.BindGroupProvider {
	groups := make([]bind_group_provider.BindGroupProvider, r.plan.groupCount)
	groups[r.plan.sceneGroup] = r.sceneProvider
	groups[r.plan.paramsGroup] = slot.params
	groups[r.plan.outputGroup] = r.outputProvider
	return groups
}

func (r *renderer) RenderFrame(params scene.GPUFrameParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ready(); err != nil {
		return err
	}

	ctx, cancel := r.waitContext()
	defer cancel()
	slot, err := r.ring.Begin(ctx, r.frame)
	if err != nil {
		return err
	}

	abort := func(err error) error {
		if abortErr := r.ring.Abort(slot); abortErr != nil {
			return errors.Join(err, abortErr)
		}
		return err
	}

	if _, err := r.tracker.Transition(frame.ImageComputeWrite); err != nil {
		return abort(err)
	}
	write := bind_group_provider.BufferWrite{
		Provider: slot.Resources.params,
		Binding:  r.plan.paramsBinding,
		Data:     params.Marshal(),
	}
	if err := r.backend.WriteBuffers([]bind_group_provider.BufferWrite{write}); err != nil {
		return abort(fmt.Errorf("writing frame params: %w", err))
	}

	fence, err := r.backend.Dispatch(r.kernel, r.dispatchGroups(slot.Resources), r.workgroups())
	if err != nil {
		return abort(fmt.Errorf("dispatching frame %d: %w", r.frame, err))
	}
	if err := r.ring.Submit(slot, fence); err != nil {
		return err
	}
	r.tracker.SetWriter(fence)
	r.frame++
	return nil
}

func (r *renderer) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ready(); err != nil {
		return err
	}
	if r.headless {
		return nil
	}
	last := r.ring.Last()
	if last == nil {
		return nil
	}

	ctx, cancel := r.waitContext()
	defer cancel()
	if err := last.Fence().Wait(ctx); err != nil {
		return fmt.Errorf("waiting for frame %d: %w", last.Frame(), err)
	}
	r.ring.Poll()

	if _, err := r.tracker.Transition(frame.ImageSampled); err != nil {
		return err
	}
	return r.backend.Blit(r.blit, r.blitProvider)
}

func (r *renderer) Readback() (*common.PixelBuffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ready(); err != nil {
		return nil, err
	}

	ctx, cancel := r.waitContext()
	defer cancel()
	if err := r.ring.WaitAll(ctx); err != nil {
		return nil, err
	}

	prev := r.tracker.Usage()
	if prev == frame.ImageUndefined {
		return nil, errors.New("readback before any frame was rendered")
	}
	if _, err := r.tracker.Transition(frame.ImageTransferSrc); err != nil {
		return nil, err
	}
	defer func() {
		if _, err := r.tracker.Transition(prev); err != nil {
			r.logger.Printf("[Renderer] restoring output image usage: %v", err)
		}
	}()

	data, stride, err := r.backend.ReadImage(ctx, r.image)
	if err != nil {
		return nil, fmt.Errorf("reading output image: %w", err)
	}
	return common.UnpadRows(data, r.image.Width, r.image.Height, stride)
}

func (r *renderer) ReloadKernel(link *shader.LinkResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ready(); err != nil {
		return err
	}
	if link == nil || link.Kernel == nil {
		return errors.New("reload needs a linked kernel")
	}

	plan, err := planBindings(link.Kernel)
	if err != nil {
		return fmt.Errorf("reading kernel layout: %w", err)
	}
	if !reflect.DeepEqual(plan, r.plan) {
		return errors.New("reloaded kernel changes the resource layout")
	}

	ctx, cancel := r.waitContext()
	defer cancel()
	if err := r.ring.WaitAll(ctx); err != nil {
		return fmt.Errorf("draining frames before reload: %w", err)
	}

	next := pipeline.NewPipeline(kernelPipelineKey, pipeline.PipelineTypeCompute, pipeline.WithShader(link.Kernel))
	if err := r.backend.RegisterComputePipeline(next); err != nil {
		next.Release()
		return fmt.Errorf("creating kernel pipeline: %w", err)
	}
	r.kernel.Release()
	r.kernel = next
	r.link = link

	r.logger.Printf("[Renderer] kernel reloaded with %d surface shaders", link.Index.Len())
	return nil
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ready(); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid output size %dx%d", width, height)
	}
	if width == r.width && height == r.height {
		return nil
	}

	ctx, cancel := r.waitContext()
	defer cancel()
	if err := r.ring.WaitAll(ctx); err != nil {
		return fmt.Errorf("draining frames before resize: %w", err)
	}
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		return err
	}

	oldImage, oldOutput, oldBlit := r.image, r.outputProvider, r.blitProvider
	if err := r.createOutput(width, height); err != nil {
		return err
	}
	if !r.headless {
		if err := r.createBlitProvider(); err != nil {
			r.outputProvider.Release()
			r.image.Release()
			r.image, r.outputProvider, r.blitProvider = oldImage, oldOutput, oldBlit
			return err
		}
		oldBlit.Release()
	}
	oldOutput.Release()
	oldImage.Release()

	r.width, r.height = width, height
	r.tracker.Reset()
	return nil
}

func (r *renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) Headless() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headless
}

func (r *renderer) FramesInFlight() int {
	return r.framesInFlight
}

func (r *renderer) FrameCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

func (r *renderer) Link() *shader.LinkResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.link
}

func (r *renderer) LastFenceWait() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ring == nil {
		return 0
	}
	return r.ring.LastWait()
}

func (r *renderer) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == stateShutdown {
		return
	}

	ctx, cancel := r.waitContext()
	defer cancel()
	if r.ring != nil {
		if err := r.ring.WaitAll(ctx); err != nil {
			r.logger.Printf("[Renderer] shutdown: %v", err)
		}
	}
	if r.backend != nil {
		if err := r.backend.WaitIdle(ctx); err != nil {
			r.logger.Printf("[Renderer] shutdown: %v", err)
		}
	}
	r.release()
	r.state = stateShutdown
}

// release frees every created object in reverse creation order, then closes the backend.
func (r *renderer) release() {
	if r.blitProvider != nil {
		r.blitProvider.Release()
		r.blitProvider = nil
	}
	if r.blit != nil {
		r.blit.Release()
		r.blit = nil
	}
	if r.kernel != nil {
		r.kernel.Release()
		r.kernel = nil
	}
	if r.outputProvider != nil {
		r.outputProvider.Release()
		r.outputProvider = nil
	}
	if r.image != nil {
		r.image.Release()
		r.image = nil
	}
	if r.sceneProvider != nil {
		r.sceneProvider.Release()
		r.sceneProvider = nil
	}
	if r.ring != nil {
		slots := r.ring.Slots()
		for i := len(slots) - 1; i >= 0; i-- {
			slots[i].Resources.params.Release()
		}
		r.ring = nil
	}
	if r.backend != nil {
		r.backend.Close()
		r.backend = nil
	}
}
