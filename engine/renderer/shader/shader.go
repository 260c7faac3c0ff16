package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies whether a shader module holds a compute kernel or a render pair.
type ShaderType int

const (
	// ShaderTypeCompute indicates a module with a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeRender indicates a module with both a @vertex and a @fragment entry point.
	ShaderTypeRender
)

// shader is the implementation of the Shader interface.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindings                   []Binding
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	workGroupSize              [3]uint32
	entryPoints                map[wgpu.ShaderStage]string
	module                     *wgpu.ShaderModuleDescriptor
	format                     BinaryFormat

	pp PreProcessor
}

// Shader defines a pre-processed and parsed WGSL module. It exposes the source, entry
// points, bind group layouts and @oxy: declarations the renderer needs to build
// pipelines and bind its resources.
type Shader interface {
	// Key retrieves the unique identifier for this shader.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source.
	//
	// Returns:
	//   - string: the WGSL source with all annotations expanded
	Source() string

	// ShaderType returns whether this is a compute or render module.
	//
	// Returns:
	//   - ShaderType: ShaderTypeCompute or ShaderTypeRender
	ShaderType() ShaderType

	// EntryPoint returns the entry point name for the given stage.
	//
	// Parameters:
	//   - stage: wgpu.ShaderStageCompute, wgpu.ShaderStageVertex or wgpu.ShaderStageFragment
	//
	// Returns:
	//   - string: the entry point name, or empty if the stage has none
	EntryPoint(stage wgpu.ShaderStage) string

	// WorkgroupSize returns the compute workgroup dimensions. Render modules return [0, 0, 0].
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Bindings returns all parsed resource declarations sorted by group and binding.
	//
	// Returns:
	//   - []Binding: the parsed bindings
	Bindings() []Binding

	// BindGroupLayoutDescriptor retrieves the layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if the group is unused
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves every parsed layout descriptor keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// GroupCount returns one past the highest group index in use.
	//
	// Returns:
	//   - int: the number of bind group slots the pipeline layout needs
	GroupCount() int

	// Module returns the shader module descriptor handed to the device. It carries the WGSL
	// source until SetBinary installs a SPIR-V binary.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the module descriptor labelled with the shader key
	Module() *wgpu.ShaderModuleDescriptor

	// Format reports which code the module descriptor carries.
	//
	// Returns:
	//   - BinaryFormat: FormatWGSL or FormatSPIRV
	Format() BinaryFormat

	// SetBinary installs compiled code as the module the device loads. SPIR-V replaces the
	// WGSL descriptor; any other format keeps the WGSL source. Reflection data always comes
	// from the WGSL source.
	//
	// Parameters:
	//   - code: the compiled module
	//   - format: the format of code
	SetBinary(code []byte, format BinaryFormat)

	// Declarations returns the group and provider annotations found while pre-processing.
	//
	// Returns:
	//   - []Annotation: the declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and parses WGSL source into a Shader.
//
// Parameters:
//   - key: a unique identifier for the shader, used as the module label
//   - shaderType: compute or render
//   - source: the WGSL source, which may contain @oxy: annotations
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if the source is empty, an annotation is malformed, or a required entry point is missing
func NewShader(key string, shaderType ShaderType, source string) (Shader, error) {
	if source == "" {
		return nil, fmt.Errorf("shader %s: empty source", key)
	}
	s := &shader{
		key:         key,
		shaderType:  shaderType,
		entryPoints: make(map[wgpu.ShaderStage]string),
		pp:          NewPreProcessor(),
	}

	processed, err := s.pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: pre-process: %w", key, err)
	}
	s.source = processed
	s.module = &wgpu.ShaderModuleDescriptor{
		Label:          key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: s.source},
	}
	s.format = FormatWGSL

	var visibility wgpu.ShaderStage
	switch shaderType {
	case ShaderTypeCompute:
		visibility = wgpu.ShaderStageCompute
		entry := parseEntryPoint(s.source, wgpu.ShaderStageCompute)
		if entry == "" {
			return nil, fmt.Errorf("shader %s: no @compute entry point", key)
		}
		s.entryPoints[wgpu.ShaderStageCompute] = entry
		s.workGroupSize = parseWorkgroupSize(s.source)
	case ShaderTypeRender:
		visibility = wgpu.ShaderStageFragment
		for _, stage := range []wgpu.ShaderStage{wgpu.ShaderStageVertex, wgpu.ShaderStageFragment} {
			entry := parseEntryPoint(s.source, stage)
			if entry == "" {
				return nil, fmt.Errorf("shader %s: missing %s entry point", key, stageName(stage))
			}
			s.entryPoints[stage] = entry
		}
	default:
		return nil, fmt.Errorf("shader %s: unknown shader type %d", key, shaderType)
	}

	s.bindings = parseBindings(s.source)
	s.bindGroupLayoutDescriptors = bindGroupLayouts(s.bindings, visibility)
	return s, nil
}

func stageName(stage wgpu.ShaderStage) string {
	switch stage {
	case wgpu.ShaderStageVertex:
		return "@vertex"
	case wgpu.ShaderStageFragment:
		return "@fragment"
	default:
		return "@compute"
	}
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint(stage wgpu.ShaderStage) string {
	return s.entryPoints[stage]
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) GroupCount() int {
	n := 0
	for _, b := range s.bindings {
		n = max(n, b.Group+1)
	}
	return n
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Format() BinaryFormat {
	return s.format
}

func (s *shader) SetBinary(code []byte, format BinaryFormat) {
	if format != FormatSPIRV || len(code) == 0 {
		s.module = &wgpu.ShaderModuleDescriptor{
			Label:          s.key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: s.source},
		}
		s.format = FormatWGSL
		return
	}
	s.module = &wgpu.ShaderModuleDescriptor{
		Label:           s.key,
		SPIRVDescriptor: &wgpu.ShaderModuleSPIRVDescriptor{Code: append([]byte(nil), code...)},
	}
	s.format = FormatSPIRV
}

func (s *shader) Declarations() []Annotation {
	return s.pp.Declarations()
}
