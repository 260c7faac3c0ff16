package loader

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestParseMetadata(t *testing.T) {
	md, err := ParseMetadata(strings.NewReader(
		"ObjectFileName:\twalnut.raw\nTaggedFileName: ---\nResolution:  4 3 2\nSliceThickness: 0.1 0.2 0.3\nFormat: UCHAR\nnot a pair\n"))
	require.NoError(t, err)
	assert.Equal(t, [3]int{4, 3, 2}, md.Resolution)
	assert.InDelta(t, .3, md.SliceThickness[2], 1e-6)
	assert.Equal(t, "walnut.raw", md.ObjectFileName)
	assert.Equal(t, "UCHAR", md.Format)
	assert.Equal(t, "---", md.Extra["TaggedFileName"])
}

func TestParseMetadataMissingKeys(t *testing.T) {
	_, err := ParseMetadata(strings.NewReader("SliceThickness: 1 1 1\n"))
	assert.True(t, errors.Is(err, ErrVolumeMetadata))

	_, err = ParseMetadata(strings.NewReader("Resolution: 1 1 1\n"))
	assert.True(t, errors.Is(err, ErrVolumeMetadata))

	_, err = ParseMetadata(strings.NewReader("Resolution: 1 x 1\nSliceThickness: 1 1 1\n"))
	assert.True(t, errors.Is(err, ErrVolumeMetadata))
}

func TestLoadVolumeShortReadIsZeroPadded(t *testing.T) {
	dir := t.TempDir()
	dat := writeFile(t, dir, "v.dat", []byte("Resolution: 2 2 2\nSliceThickness: 1 1 1\n"))
	raw := writeFile(t, dir, "v.raw", []byte{9, 8, 7})

	var logs bytes.Buffer
	l := NewLoader(WithLogger(log.New(&logs, "", 0)))
	f, err := l.LoadVolume(dat, raw, common.Vec3{}, 1)
	require.NoError(t, err)

	assert.Equal(t, []byte{9, 8, 7, 0, 0, 0, 0, 0}, f.Data())
	assert.Contains(t, logs.String(), "read 3 bytes, expected 8")
}

func TestLoadVolumeMissingRawLogsAndZeroes(t *testing.T) {
	dir := t.TempDir()
	dat := writeFile(t, dir, "v.dat", []byte("Resolution: 1 1 2\nSliceThickness: 1 1 1\n"))

	var logs bytes.Buffer
	l := NewLoader(WithLogger(log.New(&logs, "", 0)))
	f, err := l.LoadVolume(dat, filepath.Join(dir, "missing.raw"), common.Vec3{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0}, f.Data())
	assert.Contains(t, logs.String(), "failed to open density data")
}

func TestLoadVolumeObjectFileNameFallbackAndCache(t *testing.T) {
	dir := t.TempDir()
	dat := writeFile(t, dir, "v.dat", []byte("ObjectFileName: blob.raw\nResolution: 2 1 1\nSliceThickness: 1 1 1\n"))
	writeFile(t, dir, "blob.raw", []byte{1, 2})

	l := NewLoader(WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	f1, err := l.LoadVolume(dat, "", common.Vec3{1, 2, 3}, .5)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, f1.Data())

	f2, err := l.LoadVolume(dat, "", common.Vec3{1, 2, 3}, .5)
	require.NoError(t, err)
	assert.Same(t, f1, f2)
	assert.Len(t, l.Fields(), 1)
}

func TestLoadVolumeBadMetadata(t *testing.T) {
	dir := t.TempDir()
	dat := writeFile(t, dir, "v.dat", []byte("Format: UCHAR\n"))
	_, err := NewLoader().LoadVolume(dat, "", common.Vec3{}, 1)
	assert.True(t, errors.Is(err, ErrVolumeMetadata))
}

const testScene = `
max_depth: 4
background:
  top: [0.4, 0.45, 1.0]
  bottom: [1, 1, 1]
camera:
  position: [0, 1.5, 6]
  target: [2, 1.5, 0]
  fov: 60
  orbit:
    pivot: [2, 1.5, 6]
    radius: 3
    speed: 0.0055
materials:
  red:
    kind: diffuse
    color: [0.8, 0.2, 0.2]
    diffuse: 0.7
    ambient: 0.1
    specular: 0.3
    shininess: 32
    surface_shader: toon.wgsl
  glass:
    kind: mirror
    color: [0.9, 0.9, 0.9]
    reflectivity: 0.9
  smoke:
    kind: volumetric
    scatter_color: [0.8, 0.6, 0.4]
    absorption: 8
spheres:
  - {center: [0, 0, -1], radius: 0.5, material: red}
  - {center: [0.5, 0.3, -0.5], radius: 0.2, material: glass}
ellipsoids:
  - {center: [-2, 0.8, -1], radii: [0.5, 0.8, 0.3], color: [0.8, 0.4, 0.8], material: glass}
lights:
  - {position: [2, 2, 1], color: [1, 0.9, 0.8], intensity: 1}
volumes:
  - {dat: v.dat, position: [1.5, 1, -0.5], scale: 0.001, material: smoke}
`

func TestLoadScene(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "v.dat", []byte("ObjectFileName: v.raw\nResolution: 2 2 2\nSliceThickness: 1 1 1\n"))
	writeFile(t, dir, "v.raw", make([]byte, 8))
	path := writeFile(t, dir, "scene.yaml", []byte(testScene))

	ls, err := NewLoader(WithLogger(log.New(&bytes.Buffer{}, "", 0))).LoadScene(path)
	require.NoError(t, err)

	sc := ls.Scene
	assert.Len(t, sc.Spheres(), 2)
	assert.Len(t, sc.Ellipsoids(), 1)
	assert.Len(t, sc.Lights(), 1)
	assert.Len(t, sc.Volumes(), 1)
	assert.Equal(t, 4, sc.MaxDepth())
	assert.Equal(t, 3, sc.Arena().Len())

	red, ok := sc.Arena().Get(sc.Spheres()[0].MaterialHandle())
	require.True(t, ok)
	assert.Equal(t, float32(.3), red.Specular)
	assert.Equal(t, "toon.wgsl", red.SurfaceShader)
	assert.Equal(t, material.NoHandle, sc.Lights()[0].MaterialHandle())

	assert.InDelta(t, common.Radians(60), ls.Camera.Fov(), 1e-6)
	assert.InDelta(t, 5, ls.Camera.Position()[0], 1e-5)

	p, err := sc.Prepare(nil)
	require.NoError(t, err)
	assert.Len(t, p.MaterialList, 3)
}

func TestLoadSceneUnknownMaterial(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scene.yaml", []byte("spheres:\n  - {center: [0, 0, 0], radius: 1, material: nope}\n"))
	_, err := NewLoader().LoadScene(path)
	assert.ErrorContains(t, err, "nope")
}
