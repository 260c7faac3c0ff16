package shader

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreProcessorGeneratesDeclarations(t *testing.T) {
	pp := NewPreProcessor()
	src := strings.Join([]string{
		"//@oxy:include sphere",
		"//@oxy:include sphere",
		"//@oxy:group 0 0 storage_read spheres array<sphere>",
		"//@oxy:group 1 0 storage_uniform params frame_params",
		"//@oxy:provider 2 0 output_image",
		"@group(2) @binding(0) var img: texture_storage_2d<rgba8unorm, write>;",
	}, "\n")

	out, err := pp.Process(src)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "struct Sphere {"))
	assert.Contains(t, out, "@group(0) @binding(0) var<storage, read> spheres: array<Sphere>;")
	assert.Contains(t, out, "@group(1) @binding(0) var<uniform> params: FrameParams;")
	assert.NotContains(t, out, "@oxy:")

	decls := pp.Declarations()
	require.Len(t, decls, 3)
	assert.Equal(t, AnnotationTypeBindingGroup, decls[0].Type)
	assert.Equal(t, 0, *decls[0].Group)
	assert.Equal(t, AnnotationArgSphere, decls[0].StructKey())
	assert.Equal(t, AnnotationArgFrameParams, decls[1].StructKey())
	assert.Equal(t, AnnotationTypeProvider, decls[2].Type)
	assert.Equal(t, AnnotationArgOutputImage, decls[2].StructKey())
	assert.Equal(t, 5, decls[2].Line)
}

func TestPreProcessorRejectsMalformedAnnotations(t *testing.T) {
	cases := map[string]string{
		"unknown type":      "//@oxy:include camera",
		"unknown space":     "//@oxy:group 0 0 storage_private spheres array<sphere>",
		"bad group":         "//@oxy:group x 0 storage_read spheres array<sphere>",
		"short group":       "//@oxy:group 0 0 storage_read spheres",
		"unknown provider":  "//@oxy:provider 0 0 shadow",
		"unknown directive": "//@oxy:bind 0 0",
		"empty":             "//@oxy:",
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewPreProcessor().Process("fn f() {}\n" + line)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestPreProcessorIgnoresPrefixOutsideComments(t *testing.T) {
	out, err := NewPreProcessor().Process(`let s = "@oxy:include sphere";`)
	require.NoError(t, err)
	assert.Equal(t, `let s = "@oxy:include sphere";`, out)
}

func TestNewShaderRender(t *testing.T) {
	s, err := NewShader("blit", ShaderTypeRender, BlitSource)
	require.NoError(t, err)

	assert.Equal(t, "vs_main", s.EntryPoint(wgpu.ShaderStageVertex))
	assert.Equal(t, "fs_main", s.EntryPoint(wgpu.ShaderStageFragment))
	assert.Equal(t, "", s.EntryPoint(wgpu.ShaderStageCompute))
	assert.Equal(t, [3]uint32{0, 0, 0}, s.WorkgroupSize())

	layout := s.BindGroupLayoutDescriptor(0)
	require.Len(t, layout.Entries, 2)
	assert.Equal(t, wgpu.TextureViewDimension2D, layout.Entries[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, layout.Entries[0].Texture.SampleType)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, layout.Entries[1].Sampler.Type)
	assert.Equal(t, wgpu.ShaderStageFragment, layout.Entries[1].Visibility)
	assert.Len(t, s.Declarations(), 2)
	assert.Equal(t, "blit", s.Module().Label)
}

func TestNewShaderErrors(t *testing.T) {
	_, err := NewShader("empty", ShaderTypeCompute, "")
	assert.Error(t, err)

	_, err = NewShader("noentry", ShaderTypeCompute, "fn f() {}")
	assert.ErrorContains(t, err, "@compute")

	_, err = NewShader("half", ShaderTypeRender, "@vertex fn vs() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }")
	assert.ErrorContains(t, err, "@fragment")

	_, err = NewShader("bad", ShaderTypeCompute, "//@oxy:include nothing\n@compute @workgroup_size(1) fn main() {}")
	assert.ErrorContains(t, err, "pre-process")
}

func TestKernelStorageTextureLayout(t *testing.T) {
	s, err := NewShader("k", ShaderTypeCompute, KernelTemplate)
	require.NoError(t, err)

	out := s.BindGroupLayoutDescriptor(2)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, out.Entries[0].StorageTexture.Format)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, out.Entries[0].StorageTexture.Access)
	assert.Equal(t, wgpu.TextureViewDimension2D, out.Entries[0].StorageTexture.ViewDimension)

	scene := s.BindGroupLayoutDescriptor(0)
	require.Len(t, scene.Entries, 6)
	for _, e := range scene.Entries {
		assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, e.Buffer.Type)
	}
	assert.Equal(t, wgpu.BufferBindingTypeUniform, s.BindGroupLayoutDescriptor(1).Entries[0].Buffer.Type)
}

func TestParseWorkgroupSize(t *testing.T) {
	assert.Equal(t, [3]uint32{64, 1, 1}, parseWorkgroupSize("@compute @workgroup_size(64) fn main() {}"))
	assert.Equal(t, [3]uint32{8, 4, 2}, parseWorkgroupSize("@compute @workgroup_size(8, 4, 2) fn main() {}"))
	assert.Equal(t, [3]uint32{1, 1, 1}, parseWorkgroupSize("// @workgroup_size(16)\nfn main() {}"))
}

func TestResolveTypeLayoutArrays(t *testing.T) {
	known := map[string]wgslTypeLayout{"Thing": {size: 20, align: 16}}

	l, ok := resolveTypeLayout("array<Thing>", known)
	require.True(t, ok)
	assert.Equal(t, uint64(32), l.size)

	l, ok = resolveTypeLayout("array<vec3<f32>, 4>", known)
	require.True(t, ok)
	assert.Equal(t, uint64(64), l.size)

	_, ok = resolveTypeLayout("Unknown", known)
	assert.False(t, ok)
}

func TestStripComments(t *testing.T) {
	src := "a /* b /* nested */ c */ d // tail\ne"
	assert.Equal(t, "a  d \ne", stripComments(src))
}

func TestExtractEntryName(t *testing.T) {
	cases := []struct {
		name string
		code string
		want string
		ok   bool
	}{
		{"simple", moduleCode("shade"), "shade", true},
		{"helper first", "fn helper(x: f32) -> f32 { return x; }\nfn shade(d: SurfaceShaderData) -> SurfaceShaderResult {}", "shade", true},
		{"spacing", "fn   spaced (d: SurfaceShaderData) -> SurfaceShaderResult {}", "spaced", true},
		{"marker in comment", "// -> SurfaceShaderResult\nfn f() {}", "", false},
		{"no fn", "let x -> SurfaceShaderResult", "", false},
		{"none", "fn f() -> f32 { return 1.0; }", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractEntryName(tc.code, DefaultEntryMarker)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIndexMapZeroValue(t *testing.T) {
	var m IndexMap
	idx, ok := m.Resolve("a.wgsl")
	assert.False(t, ok)
	assert.Equal(t, DefaultIndex, idx)
	assert.Equal(t, 0, m.Len())

	m = NewIndexMap([]string{"x.wgsl"})
	_, ok = m.Resolve("")
	assert.False(t, ok)
	names := m.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"x.wgsl"}, m.Names())
}
