package pipeline

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates the path tracing kernel pipeline.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment entry points, used for
	// the present blit.
	PipelineTypeRender
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineType PipelineType
	pipelineKey  string

	// shader is required before the backend can create the GPU pipeline.
	shader shader.Shader

	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline

	// bindGroupLayouts are created alongside the GPU pipeline, indexed by group.
	bindGroupLayouts []*wgpu.BindGroupLayout

	// Render state. Compute pipelines carry the defaults but never read them.
	topology   wgpu.PrimitiveTopology
	cullMode   wgpu.CullMode
	frontFace  wgpu.FrontFace
	writeMask  wgpu.ColorWriteMask
	blendState *wgpu.BlendState
}

// Pipeline wraps one GPU pipeline together with the parsed shader it was built from and the bind
// group layouts of its pipeline layout.
type Pipeline interface {
	// Type returns the type of the pipeline.
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key used as the GPU object label.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader returns the parsed shader the pipeline is built from.
	//
	// Returns:
	//   - shader.Shader: the shader, or nil if none was set
	Shader() shader.Shader

	// Pipeline returns the underlying pipeline object, either *wgpu.RenderPipeline or *wgpu.ComputePipeline.
	// The caller type asserts the returned value.
	//
	// Returns:
	//   - any: the underlying pipeline object
	Pipeline() any

	// Created reports whether the backend has created the GPU pipeline.
	//
	// Returns:
	//   - bool: true once SetComputePipeline or SetRenderPipeline was called with a non-nil pipeline
	Created() bool

	// BindGroupLayouts returns the layouts of the pipeline layout, indexed by group.
	//
	// Returns:
	//   - []*wgpu.BindGroupLayout: the layouts, nil before creation
	BindGroupLayouts() []*wgpu.BindGroupLayout

	// Topology returns the primitive topology of a render pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the topology, TriangleList by default
	Topology() wgpu.PrimitiveTopology

	// CullMode returns the cull mode of a render pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode, None by default
	CullMode() wgpu.CullMode

	// FrontFace returns the front face winding order of a render pipeline.
	//
	// Returns:
	//   - wgpu.FrontFace: the winding, CCW by default
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask of a render pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the mask, All by default
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state of a render pipeline.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state, or nil when blending is off
	BlendState() *wgpu.BlendState

	// SetRenderPipeline stores the created render pipeline.
	//
	// Parameters:
	//   - p: the WebGPU render pipeline
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// SetComputePipeline stores the created compute pipeline.
	//
	// Parameters:
	//   - p: the WebGPU compute pipeline
	SetComputePipeline(p *wgpu.ComputePipeline)

	// SetBindGroupLayouts stores the layouts created for the pipeline layout.
	//
	// Parameters:
	//   - layouts: the layouts indexed by group
	SetBindGroupLayouts(layouts []*wgpu.BindGroupLayout)

	// Release releases the GPU pipeline and its bind group layouts. Safe to call more than once.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a Pipeline of the given type. The GPU object is created later by the
// renderer backend.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		pipelineType: pipelineType,
		topology:     wgpu.PrimitiveTopologyTriangleList,
		cullMode:     wgpu.CullModeNone,
		frontFace:    wgpu.FrontFaceCCW,
		writeMask:    wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) Pipeline() any {
	switch p.pipelineType {
	case PipelineTypeRender:
		return p.renderPipeline
	case PipelineTypeCompute:
		return p.computePipeline
	default:
		return nil
	}
}

func (p *pipeline) Created() bool {
	switch p.pipelineType {
	case PipelineTypeRender:
		return p.renderPipeline != nil
	case PipelineTypeCompute:
		return p.computePipeline != nil
	default:
		return false
	}
}

func (p *pipeline) BindGroupLayouts() []*wgpu.BindGroupLayout {
	return p.bindGroupLayouts
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}

func (p *pipeline) SetBindGroupLayouts(layouts []*wgpu.BindGroupLayout) {
	p.bindGroupLayouts = layouts
}

func (p *pipeline) Release() {
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	for i := len(p.bindGroupLayouts) - 1; i >= 0; i-- {
		if p.bindGroupLayouts[i] != nil {
			p.bindGroupLayouts[i].Release()
		}
	}
	p.bindGroupLayouts = nil
}
