package scene

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/light"
	"github.com/Carmen-Shannon/oxy-trace/engine/primitive"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-trace/engine/volume"
)

// marshalChunk is the number of entities one worker task packs.
const marshalChunk = 256

// MaxTraceDepth is the largest bounce count FrameParams sends to the kernel.
const MaxTraceDepth = 64

// Packed holds every GPU storage buffer payload of a prepared scene.
// Blobs may be empty; the renderer allocates at least one element per buffer.
type Packed struct {
	Spheres    []byte
	Ellipsoids []byte
	Materials  []byte
	Lights     []byte
	Volumes    []byte

	// Voxels is the density data of the scene's field packed four bytes per u32 word.
	Voxels []byte

	// MaterialList is the interned material list in index order.
	MaterialList []material.Material

	NumSpheres    int
	NumEllipsoids int
	NumLights     int
	NumVolumes    int
}

// Scene holds the entities of a path traced scene, the arena their materials live in and the
// per-scene render settings.
//
// Scenes are built on one goroutine and prepared once per scene change, immediately before upload.
// Thread-safe for concurrent access.
type Scene interface {
	// Arena returns the material arena entity handles refer to.
	//
	// Returns:
	//   - *material.Arena: the arena
	Arena() *material.Arena

	// AddMaterial stores a material in the scene's arena.
	//
	// Parameters:
	//   - m: the material value
	//
	// Returns:
	//   - material.Handle: the handle to reference it with
	AddMaterial(m material.Material) material.Handle

	// AddSphere appends a sphere to the scene.
	//
	// Parameters:
	//   - s: the sphere
	AddSphere(s primitive.Sphere)

	// AddEllipsoid appends an ellipsoid to the scene.
	//
	// Parameters:
	//   - e: the ellipsoid
	AddEllipsoid(e primitive.Ellipsoid)

	// AddLight appends a point light to the scene.
	//
	// Parameters:
	//   - l: the light
	AddLight(l light.Light)

	// AddVolume appends a density region to the scene. Every region must share the same Field.
	//
	// Parameters:
	//   - r: the region
	AddVolume(r volume.Region)

	// Spheres returns the spheres in insertion order.
	Spheres() []primitive.Sphere

	// Ellipsoids returns the ellipsoids in insertion order.
	Ellipsoids() []primitive.Ellipsoid

	// Lights returns the lights in insertion order.
	Lights() []light.Light

	// Volumes returns the density regions in insertion order.
	Volumes() []volume.Region

	// Background returns the sky gradient colors.
	//
	// Returns:
	//   - top: color at the zenith
	//   - bottom: color at the horizon
	Background() (top, bottom common.Vec3)

	// SetBackground replaces the sky gradient colors.
	//
	// Parameters:
	//   - top: color at the zenith
	//   - bottom: color at the horizon
	SetBackground(top, bottom common.Vec3)

	// MaxDepth returns the recursion limit for reflected and transmitted rays.
	//
	// Returns:
	//   - int: the maximum trace depth
	MaxDepth() int

	// SetMaxDepth replaces the recursion limit. FrameParams clamps it to [0, MaxTraceDepth].
	//
	// Parameters:
	//   - depth: the maximum trace depth
	SetMaxDepth(depth int)

	// Prepare interns every material referenced by the scene and packs all entities into GPU buffers.
	// Materials are interned in the order spheres, ellipsoids, volumes, lights.
	//
	// Parameters:
	//   - resolver: maps surface shader identifiers to kernel indices, may be nil
	//
	// Returns:
	//   - *Packed: the buffer payloads
	//   - error: if a handle is unknown or the regions reference different fields
	Prepare(resolver material.ShaderIndexResolver) (*Packed, error)

	// FrameParams builds the per-frame uniform for the given camera and time.
	//
	// Parameters:
	//   - cam: the camera, its matrices are refreshed first
	//   - t: the animation time in seconds
	//
	// Returns:
	//   - GPUFrameParams: the uniform block
	FrameParams(cam camera.Camera, t float32) GPUFrameParams
}

type scene struct {
	mu *sync.RWMutex

	arena    *material.Arena
	registry *Registry

	spheres    []primitive.Sphere
	ellipsoids []primitive.Ellipsoid
	lights     []light.Light
	volumes    []volume.Region

	bgTop    common.Vec3
	bgBottom common.Vec3
	maxDepth int

	logger *log.Logger

	// marshalPool runs the entity to packed-record map. Each task owns a disjoint output range.
	marshalPool    worker.DynamicWorkerPool
	marshalWorkers int
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates an empty Scene with the default sky gradient and a trace depth of 5.
//
// Parameters:
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:             &sync.RWMutex{},
		arena:          material.NewArena(),
		registry:       NewRegistry(),
		bgTop:          common.Vec3{0.4, 0.45, 1.0},
		bgBottom:       common.Vec3{1, 1, 1},
		maxDepth:       5,
		logger:         log.Default(),
		marshalWorkers: max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(s)
	}

	// Queue size of 256 covers chunked marshal tasks for scenes far larger than the demo.
	s.marshalPool = worker.NewDynamicWorkerPool(s.marshalWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Arena() *material.Arena {
	return s.arena
}

func (s *scene) AddMaterial(m material.Material) material.Handle {
	return s.arena.Add(m)
}

func (s *scene) AddSphere(sp primitive.Sphere) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spheres = append(s.spheres, sp)
}

func (s *scene) AddEllipsoid(e primitive.Ellipsoid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ellipsoids = append(s.ellipsoids, e)
}

func (s *scene) AddLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *scene) AddVolume(r volume.Region) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volumes = append(s.volumes, r)
}

func (s *scene) Spheres() []primitive.Sphere {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]primitive.Sphere(nil), s.spheres...)
}

func (s *scene) Ellipsoids() []primitive.Ellipsoid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]primitive.Ellipsoid(nil), s.ellipsoids...)
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]light.Light(nil), s.lights...)
}

func (s *scene) Volumes() []volume.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]volume.Region(nil), s.volumes...)
}

func (s *scene) Background() (top, bottom common.Vec3) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bgTop, s.bgBottom
}

func (s *scene) SetBackground(top, bottom common.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bgTop = top
	s.bgBottom = bottom
}

func (s *scene) MaxDepth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxDepth
}

func (s *scene) SetMaxDepth(depth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxDepth = depth
}

func (s *scene) Prepare(resolver material.ShaderIndexResolver) (*Packed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var field *volume.Field
	for i, r := range s.volumes {
		if r.Field() == nil {
			return nil, fmt.Errorf("volume %d has no density field", i)
		}
		if field != nil && r.Field() != field {
			return nil, fmt.Errorf("volume %d references a second density field, only one is supported", i)
		}
		field = r.Field()
	}

	s.registry.Reset()
	mats, err := s.registry.InternAll(s.arena,
		Entities(s.spheres),
		Entities(s.ellipsoids),
		Entities(s.volumes),
		Entities(s.lights),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to intern materials: %w", err)
	}

	p := &Packed{
		MaterialList:  mats,
		NumSpheres:    len(s.spheres),
		NumEllipsoids: len(s.ellipsoids),
		NumLights:     len(s.lights),
		NumVolumes:    len(s.volumes),
	}

	// Phase 1 (parallel): every container is split into chunks, each chunk writes its own range.
	// A WaitGroup provides the barrier.
	var wg sync.WaitGroup
	taskID := 0
	submit := func(n, stride int, pack func(i int) []byte) []byte {
		out := make([]byte, n*stride)
		for start := 0; start < n; start += marshalChunk {
			end := min(start+marshalChunk, n)
			lo, id := start, taskID
			taskID++
			wg.Add(1)
			s.marshalPool.SubmitTask(worker.Task{
				ID: id,
				Do: func() (any, error) {
					defer wg.Done()
					for i := lo; i < end; i++ {
						copy(out[i*stride:(i+1)*stride], pack(i))
					}
					return nil, nil
				},
			})
		}
		return out
	}

	p.Spheres = submit(len(s.spheres), 32, func(i int) []byte {
		g := s.spheres[i].ToGPU()
		return g.Marshal()
	})
	p.Ellipsoids = submit(len(s.ellipsoids), 64, func(i int) []byte {
		g := s.ellipsoids[i].ToGPU()
		return g.Marshal()
	})
	p.Lights = submit(len(s.lights), 32, func(i int) []byte {
		g := s.lights[i].ToGPU()
		return g.Marshal()
	})
	p.Volumes = submit(len(s.volumes), 64, func(i int) []byte {
		g := s.volumes[i].ToGPU()
		return g.Marshal()
	})
	wg.Wait()

	// Phase 2 (serial): material packing logs unknown shader identifiers, keep the log order stable.
	p.Materials = make([]byte, 0, len(mats)*80)
	for _, m := range mats {
		g := material.PackWithLogger(m, resolver, s.logger)
		p.Materials = append(p.Materials, g.Marshal()...)
	}

	if field != nil {
		p.Voxels = field.PackedWords()
	}

	s.logger.Printf("[Scene] prepared %d spheres, %d ellipsoids, %d lights, %d volumes, %d materials",
		p.NumSpheres, p.NumEllipsoids, p.NumLights, p.NumVolumes, len(mats))
	return p, nil
}

func (s *scene) FrameParams(cam camera.Camera, t float32) GPUFrameParams {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cam.Update()
	return GPUFrameParams{
		CameraMatrix:  cam.InverseViewProjectionMatrix(),
		CameraPos:     cam.Position(),
		Time:          t,
		NumSpheres:    int32(len(s.spheres)),
		NumEllipsoids: int32(len(s.ellipsoids)),
		NumLights:     int32(len(s.lights)),
		NumVolumes:    int32(len(s.volumes)),
		MaxDepth:      int32(common.Clamp(s.maxDepth, 0, MaxTraceDepth)),
		BgColorTop:    s.bgTop,
		BgColorBottom: s.bgBottom,
	}
}
