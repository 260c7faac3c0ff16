package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/capture"
	"github.com/Carmen-Shannon/oxy-trace/engine/profiler"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
)

// engine implements the Engine interface.
// Coordinates the tick, render and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	errMu sync.Mutex
	err   error

	window   window.Window
	renderer renderer.Renderer
	scene    scene.Scene
	camera   camera.Camera
	linker   shader.Linker

	rendererOptions []renderer.RendererBuilderOption

	width, height int

	hotReload bool
	debounce  time.Duration
	watcher   *shader.Watcher

	frames       int
	capturePath  string
	captureEvery int

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(frame uint64)

	paused atomic.Bool

	// Requests raised by window callbacks and served by the render goroutine
	reloadRequested  atomic.Bool
	captureRequested atomic.Bool
	pendingResize    atomic.Pointer[[2]int]

	logger *log.Logger
}

// Engine is the main entry point for the path tracer.
// It orchestrates the tick loop, the render loop, window management and shader hot reload.
type Engine interface {
	// Run initializes the renderer, uploads the scene and renders until the window closes, Quit is
	// called, ctx ends or, when headless, the configured number of frames is done.
	//
	// Parameters:
	//   - ctx: bounds initialization and stops the loops when done
	//
	// Returns:
	//   - error: the first fatal error, nil on a clean exit
	Run(ctx context.Context) error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Window returns the window, nil when headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer, nil before Run when none was supplied.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Scene returns the rendered scene.
	//
	// Returns:
	//   - scene.Scene: the scene
	Scene() scene.Scene

	// Camera returns the camera frames are rendered from.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// The tick callback and the camera orbit advance at this rate.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each submitted frame.
	//
	// Parameters:
	//   - callback: function receiving the number of the frame just submitted
	SetRenderCallback(callback func(frame uint64))

	// RequestReload relinks the kernel before the next frame.
	RequestReload()

	// RequestCapture saves the output image after the next frame.
	RequestCapture()

	// SetPaused stops or resumes the camera orbit.
	//
	// Parameters:
	//   - paused: true to hold the camera still
	SetPaused(paused bool)
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: if no scene or camera was supplied
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		engineTickRate:  time.Second / 60,
		width:           800,
		height:          600,
		frames:          1,
		logger:          log.Default(),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.scene == nil {
		return nil, errors.New("engine needs a scene")
	}
	if e.camera == nil {
		return nil, errors.New("engine needs a camera")
	}
	if e.linker == nil {
		e.linker = shader.NewLinker(shader.WithLogger(e.logger))
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	if e.window != nil {
		e.width, e.height = e.window.Width(), e.window.Height()
		e.window.SetResizeCallback(func(width, height int) {
			e.pendingResize.Store(&[2]int{width, height})
		})
		e.window.SetKeyDownCallback(func(key uint32) {
			switch key {
			case window.KeyR:
				e.RequestReload()
			case window.KeyP:
				e.RequestCapture()
			case window.KeySpace:
				e.SetPaused(!e.paused.Load())
			}
		})
	}

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}
	defer e.shutdown()

	if err := e.initialize(ctx); err != nil {
		return err
	}
	if e.window == nil {
		return e.runHeadless(ctx)
	}
	return e.runWindowed(ctx)
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// fail records the first fatal error and stops the engine.
func (e *engine) fail(err error) {
	e.errMu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.errMu.Unlock()
	e.signalQuit()
}

func (e *engine) firstError() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

func (e *engine) stopped() bool {
	select {
	case <-e.quitChannel:
		return true
	default:
		return false
	}
}

// initialize links the kernel, creates and initializes the renderer and uploads the scene.
func (e *engine) initialize(ctx context.Context) error {
	if e.renderer == nil {
		link, err := e.linker.LinkContext(ctx)
		if err != nil {
			return err
		}
		opts := append([]renderer.RendererBuilderOption{
			renderer.WithLinkResult(link),
			renderer.WithLogger(e.logger),
		}, e.rendererOptions...)
		if e.window != nil {
			opts = append(opts, renderer.WithSurfaceDescriptor(e.window.SurfaceDescriptor()))
		}
		e.renderer = renderer.NewRenderer(opts...)
	}

	if err := e.renderer.Initialize(ctx, e.width, e.height); err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	e.camera.SetAspect(float32(e.width) / float32(e.height))

	if err := e.upload(e.renderer.Link()); err != nil {
		return err
	}

	if e.hotReload && e.linker.ModuleDir() != "" {
		w, err := shader.NewWatcher(e.linker.ModuleDir(), "", e.debounce, e.logger)
		if err != nil {
			e.logger.Printf("[Engine] hot reload disabled: %v", err)
		} else {
			e.watcher = w
		}
	}
	return nil
}

// upload packs the scene against the kernel's shader indices and writes it to the GPU.
func (e *engine) upload(link *shader.LinkResult) error {
	packed, err := e.scene.Prepare(link.Index)
	if err != nil {
		return fmt.Errorf("preparing scene: %w", err)
	}
	if err := e.renderer.UploadScene(packed.Spheres, packed.Ellipsoids, packed.Materials,
		packed.Lights, packed.Volumes, packed.Voxels); err != nil {
		return fmt.Errorf("uploading scene: %w", err)
	}
	e.logger.Printf("[Engine] uploaded %d spheres, %d ellipsoids, %d lights, %d volumes, %d materials",
		packed.NumSpheres, packed.NumEllipsoids, packed.NumLights, packed.NumVolumes, len(packed.MaterialList))
	return nil
}

// reload relinks the kernel. A failed link or pipeline keeps the current kernel running.
func (e *engine) reload(ctx context.Context) error {
	link, err := e.linker.LinkContext(ctx)
	if err != nil {
		e.logger.Printf("[Engine] reload failed, keeping current kernel: %v", err)
		return nil
	}
	if err := e.renderer.ReloadKernel(link); err != nil {
		e.logger.Printf("[Engine] reload failed, keeping current kernel: %v", err)
		return nil
	}
	return e.upload(link)
}

// frame renders one frame at animation time t and serves pending requests.
func (e *engine) frame(ctx context.Context, t float32) error {
	if size := e.pendingResize.Swap(nil); size != nil {
		if err := e.renderer.Resize(size[0], size[1]); err != nil {
			return fmt.Errorf("resizing to %dx%d: %w", size[0], size[1], err)
		}
		e.camera.SetAspect(float32(size[0]) / float32(size[1]))
	}

	reload := e.reloadRequested.Swap(false)
	if e.watcher != nil {
		select {
		case names, ok := <-e.watcher.Changes():
			if ok {
				e.logger.Printf("[Engine] surface shaders changed: %v", names)
				reload = true
			}
		default:
		}
	}
	if reload {
		if err := e.reload(ctx); err != nil {
			return err
		}
	}

	params := e.scene.FrameParams(e.camera, t)
	if err := e.renderer.RenderFrame(params); err != nil {
		return err
	}
	if err := e.renderer.Present(); err != nil {
		return err
	}
	n := e.renderer.FrameCount()

	if e.profilingEnabled.Load() {
		e.profiler.Tick(e.renderer.LastFenceWait())
	}
	if e.renderCallback != nil {
		e.renderCallback(n)
	}

	due := e.captureEvery > 0 && n%uint64(e.captureEvery) == 0
	if e.captureRequested.Swap(false) || due {
		return e.capture(n)
	}
	return nil
}

// capture reads the output image back and writes it to the capture path.
func (e *engine) capture(frame uint64) error {
	if e.capturePath == "" {
		e.logger.Printf("[Engine] capture requested but no capture path is configured")
		return nil
	}
	pixels, err := e.renderer.Readback()
	if err != nil {
		return fmt.Errorf("reading back frame %d: %w", frame, err)
	}
	path := capture.FramePath(e.capturePath, frame)
	if err := capture.Save(path, pixels); err != nil {
		return err
	}
	e.logger.Printf("[Engine] saved frame %d to %s", frame, path)
	return nil
}

// runHeadless renders the configured number of frames on the calling goroutine. Ticks are
// simulated, one per frame, so captures are reproducible.
func (e *engine) runHeadless(ctx context.Context) error {
	dt := float32(e.engineTickRate.Seconds())
	for i := 0; i < e.frames; i++ {
		if e.stopped() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			e.tick(dt)
		}
		if err := e.frame(ctx, float32(i)*dt); err != nil {
			return err
		}
	}
	if e.captureEvery == 0 && e.capturePath != "" && e.renderer.FrameCount() > 0 {
		return e.capture(e.renderer.FrameCount())
	}
	return nil
}

// runWindowed runs the tick and render goroutines while the calling goroutine pumps window
// messages.
func (e *engine) runWindowed(ctx context.Context) error {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender(ctx)
	go e.handleQuit(ctx)

	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
	return e.firstError()
}

// tick advances the camera orbit by one step and fires the tick callback.
func (e *engine) tick(dt float32) {
	if ctrl := e.camera.Controller(); ctrl != nil && !e.paused.Load() {
		ctrl.Advance(1)
	}
	if e.tickCallback != nil {
		e.tickCallback(dt)
	}
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Listens for dynamic rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			e.tick(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the render loop in its own goroutine. Any frame error is fatal.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender(ctx context.Context) {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("[Engine] render goroutine recovered from panic: %v", r)
			e.fail(fmt.Errorf("render panic: %v", r))
		}
	}()

	start := time.Now()
	for !e.stopped() {
		if err := e.frame(ctx, float32(time.Since(start).Seconds())); err != nil {
			e.fail(err)
			return
		}
	}
}

// handleQuit closes the window once the engine is told to stop from anywhere but the window.
func (e *engine) handleQuit(ctx context.Context) {
	defer e.wg.Done()
	select {
	case <-e.quitChannel:
	case <-ctx.Done():
		e.signalQuit()
	}
	e.window.RequestClose()
}

// shutdown releases the watcher, the renderer and the window.
func (e *engine) shutdown() {
	e.signalQuit()
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			e.logger.Printf("[Engine] closing watcher: %v", err)
		}
	}
	if e.renderer != nil {
		e.renderer.Shutdown()
	}
	if e.window != nil {
		if err := e.window.Close(); err != nil {
			e.logger.Printf("[Engine] closing window: %v", err)
		}
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.running.Load() && e.window != nil {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(frame uint64)) {
	e.renderCallback = callback
}

func (e *engine) RequestReload() {
	e.reloadRequested.Store(true)
}

func (e *engine) RequestCapture() {
	e.captureRequested.Store(true)
}

func (e *engine) SetPaused(paused bool) {
	e.paused.Store(paused)
}
