package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/light"
	"github.com/Carmen-Shannon/oxy-trace/engine/primitive"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/Carmen-Shannon/oxy-trace/engine/volume"
	"gopkg.in/yaml.v3"
)

type sceneFile struct {
	MaxDepth   *int                    `yaml:"max_depth"`
	Background *backgroundSpec         `yaml:"background"`
	Camera     *cameraSpec             `yaml:"camera"`
	Materials  map[string]materialSpec `yaml:"materials"`
	Spheres    []sphereSpec            `yaml:"spheres"`
	Ellipsoids []ellipsoidSpec         `yaml:"ellipsoids"`
	Lights     []lightSpec             `yaml:"lights"`
	Volumes    []volumeSpec            `yaml:"volumes"`
}

type backgroundSpec struct {
	Top    common.Vec3 `yaml:"top"`
	Bottom common.Vec3 `yaml:"bottom"`
}

type cameraSpec struct {
	Position common.Vec3  `yaml:"position"`
	Target   common.Vec3  `yaml:"target"`
	Up       *common.Vec3 `yaml:"up"`
	Fov      float32      `yaml:"fov"`
	Near     float32      `yaml:"near"`
	Far      float32      `yaml:"far"`
	Orbit    *orbitSpec   `yaml:"orbit"`
}

type orbitSpec struct {
	Pivot  common.Vec3 `yaml:"pivot"`
	Radius float32     `yaml:"radius"`
	Angle  float32     `yaml:"angle"`
	Speed  float32     `yaml:"speed"`
}

type materialSpec struct {
	Kind             string       `yaml:"kind"`
	Color            *common.Vec3 `yaml:"color"`
	Ambient          *float32     `yaml:"ambient"`
	Diffuse          *float32     `yaml:"diffuse"`
	Specular         *float32     `yaml:"specular"`
	Shininess        *float32     `yaml:"shininess"`
	Reflectivity     *float32     `yaml:"reflectivity"`
	Transparency     *float32     `yaml:"transparency"`
	Emissive         *common.Vec3 `yaml:"emissive"`
	EmissiveStrength *float32     `yaml:"emissive_strength"`
	ScatterColor     *common.Vec3 `yaml:"scatter_color"`
	AbsorptionCoeff  *float32     `yaml:"absorption"`
	SurfaceShader    string       `yaml:"surface_shader"`
}

type sphereSpec struct {
	Center   common.Vec3 `yaml:"center"`
	Radius   float32     `yaml:"radius"`
	Material string      `yaml:"material"`
}

type ellipsoidSpec struct {
	Center   common.Vec3  `yaml:"center"`
	Radii    common.Vec3  `yaml:"radii"`
	Color    *common.Vec3 `yaml:"color"`
	Rotation *[4]float32  `yaml:"rotation"`
	Material string       `yaml:"material"`
}

type lightSpec struct {
	Position  common.Vec3  `yaml:"position"`
	Color     *common.Vec3 `yaml:"color"`
	Intensity *float32     `yaml:"intensity"`
	Material  string       `yaml:"material"`
}

type volumeSpec struct {
	Dat      string      `yaml:"dat"`
	Raw      string      `yaml:"raw"`
	Position common.Vec3 `yaml:"position"`
	Scale    float32     `yaml:"scale"`
	Material string      `yaml:"material"`
}

func (l *loader) loadScene(path string) (*LoadedScene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	var sf sceneFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse scene file %s: %w", path, err)
	}
	base := filepath.Dir(path)

	var opts []scene.SceneBuilderOption
	if sf.MaxDepth != nil {
		opts = append(opts, scene.WithMaxDepth(*sf.MaxDepth))
	}
	if sf.Background != nil {
		opts = append(opts, scene.WithBackground(sf.Background.Top, sf.Background.Bottom))
	}
	opts = append(opts, scene.WithLogger(l.logger))
	sc := scene.NewScene(opts...)

	// Materials are added in name order so handles are stable across loads.
	names := make([]string, 0, len(sf.Materials))
	for name := range sf.Materials {
		names = append(names, name)
	}
	sort.Strings(names)
	handles := make(map[string]material.Handle, len(names))
	for _, name := range names {
		m, err := buildMaterial(sf.Materials[name])
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", name, err)
		}
		handles[name] = sc.AddMaterial(m)
	}
	lookup := func(kind string, i int, name string, optional bool) (material.Handle, error) {
		if name == "" && optional {
			return material.NoHandle, nil
		}
		h, ok := handles[name]
		if !ok {
			return material.NoHandle, fmt.Errorf("%s %d references unknown material %q", kind, i, name)
		}
		return h, nil
	}

	for i, s := range sf.Spheres {
		h, err := lookup("sphere", i, s.Material, false)
		if err != nil {
			return nil, err
		}
		sc.AddSphere(primitive.NewSphere(s.Center, s.Radius, h))
	}
	for i, e := range sf.Ellipsoids {
		h, err := lookup("ellipsoid", i, e.Material, false)
		if err != nil {
			return nil, err
		}
		var eopts []primitive.EllipsoidBuilderOption
		if e.Color != nil {
			eopts = append(eopts, primitive.WithColor(*e.Color))
		}
		if e.Rotation != nil {
			eopts = append(eopts, primitive.WithRotation(*e.Rotation))
		}
		sc.AddEllipsoid(primitive.NewEllipsoid(e.Center, e.Radii, h, eopts...))
	}
	for i, ls := range sf.Lights {
		h, err := lookup("light", i, ls.Material, true)
		if err != nil {
			return nil, err
		}
		lopts := []light.LightBuilderOption{
			light.WithPosition(ls.Position[0], ls.Position[1], ls.Position[2]),
			light.WithMaterial(h),
		}
		if ls.Color != nil {
			lopts = append(lopts, light.WithColor(ls.Color[0], ls.Color[1], ls.Color[2]))
		}
		if ls.Intensity != nil {
			lopts = append(lopts, light.WithIntensity(*ls.Intensity))
		}
		sc.AddLight(light.NewLight(lopts...))
	}
	for i, v := range sf.Volumes {
		h, err := lookup("volume", i, v.Material, false)
		if err != nil {
			return nil, err
		}
		raw := v.Raw
		if raw != "" {
			raw = resolvePath(base, raw)
		}
		scale := v.Scale
		if scale == 0 {
			scale = 1
		}
		field, err := l.LoadVolume(resolvePath(base, v.Dat), raw, v.Position, scale)
		if err != nil {
			return nil, fmt.Errorf("volume %d: %w", i, err)
		}
		sc.AddVolume(volume.NewRegion(field, h))
	}

	return &LoadedScene{Scene: sc, Camera: buildCamera(sf.Camera)}, nil
}

func buildMaterial(ms materialSpec) (material.Material, error) {
	color := [3]float32{1, 1, 1}
	if ms.Color != nil {
		color = *ms.Color
	}
	get := func(p *float32, def float32) float32 {
		if p != nil {
			return *p
		}
		return def
	}

	var m material.Material
	switch strings.ToLower(ms.Kind) {
	case "", "default":
		m = material.Default()
		m.Color = color
	case "diffuse":
		m = material.Diffuse(color, get(ms.Diffuse, .7), get(ms.Ambient, .1))
	case "specular":
		m = material.SpecularMat(color, get(ms.Specular, .5), get(ms.Shininess, 32), get(ms.Reflectivity, 0))
	case "mirror":
		m = material.Mirror(color, get(ms.Reflectivity, .7))
	case "emissive":
		m = material.Emissive(color, get(ms.EmissiveStrength, 1))
	case "volumetric":
		scatter := [3]float32{}
		if ms.ScatterColor != nil {
			scatter = *ms.ScatterColor
		}
		m = material.Volumetric(scatter, get(ms.AbsorptionCoeff, 0))
	default:
		return material.Material{}, fmt.Errorf("unknown material kind %q", ms.Kind)
	}

	// Explicit fields override the named constructor's values.
	m.Ambient = get(ms.Ambient, m.Ambient)
	m.Diffuse = get(ms.Diffuse, m.Diffuse)
	m.Specular = get(ms.Specular, m.Specular)
	m.Shininess = get(ms.Shininess, m.Shininess)
	m.Reflectivity = get(ms.Reflectivity, m.Reflectivity)
	m.Transparency = get(ms.Transparency, m.Transparency)
	m.EmissiveStrength = get(ms.EmissiveStrength, m.EmissiveStrength)
	m.AbsorptionCoeff = get(ms.AbsorptionCoeff, m.AbsorptionCoeff)
	if ms.Emissive != nil {
		m.Emissive = *ms.Emissive
	}
	if ms.ScatterColor != nil {
		m.ScatterColor = *ms.ScatterColor
	}
	m.SurfaceShader = ms.SurfaceShader
	return m, nil
}

func buildCamera(cs *cameraSpec) camera.Camera {
	if cs == nil {
		return camera.NewCamera(camera.WithController(camera.NewCameraController()))
	}
	ctrlOpts := []camera.CameraControllerOption{
		camera.WithPosition(cs.Position),
		camera.WithTarget(cs.Target),
	}
	if cs.Orbit != nil {
		ctrlOpts = append(ctrlOpts, camera.WithOrbitPath(cs.Orbit.Pivot, cs.Orbit.Radius, cs.Orbit.Angle, cs.Orbit.Speed))
	}
	camOpts := []camera.CameraBuilderOption{
		camera.WithController(camera.NewCameraController(ctrlOpts...)),
	}
	if cs.Fov > 0 {
		camOpts = append(camOpts, camera.WithFov(common.Radians(cs.Fov)))
	}
	if cs.Near > 0 && cs.Far > cs.Near {
		camOpts = append(camOpts, camera.WithClipPlanes(cs.Near, cs.Far))
	}
	if cs.Up != nil {
		camOpts = append(camOpts, camera.WithUp(cs.Up[0], cs.Up[1], cs.Up[2]))
	}
	return camera.NewCamera(camOpts...)
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
