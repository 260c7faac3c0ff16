package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("blit", PipelineTypeRender)

	assert.Equal(t, "blit", p.PipelineKey())
	assert.Equal(t, PipelineTypeRender, p.Type())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, p.Topology())
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
	assert.Equal(t, wgpu.FrontFaceCCW, p.FrontFace())
	assert.Equal(t, wgpu.ColorWriteMaskAll, p.WriteMask())
	assert.Nil(t, p.BlendState())
	assert.Nil(t, p.Shader())
	assert.False(t, p.Created())
}

func TestPipelineOptions(t *testing.T) {
	s, err := shader.NewShader("blit", shader.ShaderTypeRender, shader.BlitSource)
	require.NoError(t, err)
	blend := &wgpu.BlendState{}

	p := NewPipeline("blit", PipelineTypeRender,
		WithShader(s),
		WithCullMode(wgpu.CullModeBack),
		WithTopology(wgpu.PrimitiveTopologyTriangleStrip),
		WithFrontFace(wgpu.FrontFaceCW),
		WithWriteMask(wgpu.ColorWriteMaskRed),
		WithBlendState(blend),
	)

	assert.Same(t, s, p.Shader())
	assert.Equal(t, wgpu.CullModeBack, p.CullMode())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleStrip, p.Topology())
	assert.Equal(t, wgpu.FrontFaceCW, p.FrontFace())
	assert.Equal(t, wgpu.ColorWriteMaskRed, p.WriteMask())
	assert.Same(t, blend, p.BlendState())
}

func TestPipelineReleaseWithoutGPUObjects(t *testing.T) {
	p := NewPipeline("kernel", PipelineTypeCompute)
	p.SetBindGroupLayouts([]*wgpu.BindGroupLayout{nil, nil})
	assert.Len(t, p.BindGroupLayouts(), 2)

	p.Release()
	p.Release()
	assert.Nil(t, p.BindGroupLayouts())
	assert.False(t, p.Created())
	assert.Nil(t, p.Pipeline().(*wgpu.ComputePipeline))
}
