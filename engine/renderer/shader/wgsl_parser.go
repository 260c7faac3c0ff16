package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// Binding is a single resource declaration parsed from WGSL source.
type Binding struct {
	Group   int
	Binding int

	// Name is the WGSL variable name.
	Name string

	// AddressSpace is the var<> qualifier, e.g. "uniform" or "storage, read". Empty for handle types.
	AddressSpace string

	// Type is the declared WGSL type, e.g. "array<Sphere>" or "texture_storage_2d<rgba8unorm, write>".
	Type string

	// MinSize is the minimum binding size in bytes for buffer bindings. For runtime-sized
	// arrays this is the element stride. Zero when unknown or for handle types.
	MinSize uint64
}

// IsBuffer reports whether the binding is a uniform or storage buffer.
func (b Binding) IsBuffer() bool {
	return b.AddressSpace != ""
}

var wgslSampledViewMap = map[string]wgpu.TextureViewDimension{
	"texture_1d":       wgpu.TextureViewDimension1D,
	"texture_2d":       wgpu.TextureViewDimension2D,
	"texture_2d_array": wgpu.TextureViewDimension2DArray,
	"texture_3d":       wgpu.TextureViewDimension3D,
}

var wgslSampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var wgslStorageTextureDimMap = map[string]wgpu.TextureViewDimension{
	"texture_storage_1d":       wgpu.TextureViewDimension1D,
	"texture_storage_2d":       wgpu.TextureViewDimension2D,
	"texture_storage_2d_array": wgpu.TextureViewDimension2DArray,
	"texture_storage_3d":       wgpu.TextureViewDimension3D,
}

var wgslStorageAccessMap = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

// wgslTexelFormatMap covers the storage texel formats the kernel can write.
var wgslTexelFormatMap = map[string]wgpu.TextureFormat{
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"rgba8snorm":  wgpu.TextureFormatRGBA8Snorm,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
	"r32float":    wgpu.TextureFormatR32Float,
	"bgra8unorm":  wgpu.TextureFormatBGRA8Unorm,
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// fieldRegex matches a struct field: optional attributes, name, colon, type
	fieldRegex = regexp.MustCompile(`^(?:@\w+(?:\([^)]*\))?\s*)*(\w+)\s*:\s*(.+)$`)

	computeEntryRegex  = regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`)
	vertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name and type
	// from declarations like: @group(1) @binding(0) var<uniform> params: FrameParams;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseBindings extracts every @group/@binding declaration from WGSL source, sorted by
// group then binding. Buffer bindings carry a MinSize resolved from the struct
// definitions present in the same source.
//
// Parameters:
//   - source: the WGSL source, comments allowed
//
// Returns:
//   - []Binding: the parsed declarations
func parseBindings(source string) []Binding {
	cleaned := stripComments(source)
	sizes := computeStructSizes(parseStructBlocks(cleaned))

	var bindings []Binding
	for _, m := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		b := Binding{
			Group:        group,
			Binding:      binding,
			AddressSpace: strings.TrimSpace(m[3]),
			Name:         strings.TrimSpace(m[4]),
			Type:         strings.TrimSpace(m[5]),
		}
		if b.IsBuffer() {
			if layout, ok := resolveTypeLayout(b.Type, sizes); ok {
				b.MinSize = layout.size
			}
		}
		bindings = append(bindings, b)
	}

	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].Group != bindings[j].Group {
			return bindings[i].Group < bindings[j].Group
		}
		return bindings[i].Binding < bindings[j].Binding
	})
	return bindings
}

// bindGroupLayouts groups parsed bindings into layout descriptors keyed by group index.
func bindGroupLayouts(bindings []Binding, visibility wgpu.ShaderStage) map[int]wgpu.BindGroupLayoutDescriptor {
	entries := make(map[int][]wgpu.BindGroupLayoutEntry)
	for _, b := range bindings {
		entries[b.Group] = append(entries[b.Group], layoutEntry(b, visibility))
	}
	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(entries))
	for g, e := range entries {
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: e}
	}
	return result
}

// layoutEntry classifies a binding into the matching wgpu layout entry kind.
func layoutEntry(b Binding, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    uint32(b.Binding),
		Visibility: visibility,
	}

	if b.IsBuffer() {
		switch {
		case b.AddressSpace == "uniform":
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		case strings.Contains(b.AddressSpace, "read_write"):
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		default:
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		}
		entry.Buffer.MinBindingSize = b.MinSize
		return entry
	}

	base, params := splitTypeParams(b.Type)
	switch {
	case b.Type == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case strings.HasPrefix(base, "texture_storage_"):
		entry.StorageTexture.ViewDimension = wgslStorageTextureDimMap[base]
		format, access, _ := strings.Cut(params, ",")
		entry.StorageTexture.Format = wgslTexelFormatMap[strings.TrimSpace(format)]
		entry.StorageTexture.Access = wgslStorageAccessMap[strings.TrimSpace(access)]
	case strings.HasPrefix(base, "texture_"):
		entry.Texture.ViewDimension = wgslSampledViewMap[base]
		entry.Texture.SampleType = wgslSampleTypeMap[params]
	}
	return entry
}

// parseWorkgroupSize extracts the @workgroup_size dimensions from WGSL source.
// Omitted dimensions default to 1. Returns [1, 1, 1] when no attribute is present.
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - [3]uint32: the workgroup size as [x, y, z]
func parseWorkgroupSize(source string) [3]uint32 {
	result := [3]uint32{1, 1, 1}
	match := workgroupSizeRegex.FindStringSubmatch(stripComments(source))
	if match == nil {
		return result
	}
	for i := 0; i < 3; i++ {
		if match[i+1] == "" {
			continue
		}
		if v, err := strconv.ParseUint(match[i+1], 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}
	return result
}

// setWorkgroupSize rewrites the x and y dimensions of the first @workgroup_size attribute.
func setWorkgroupSize(source string, x, y uint32) string {
	loc := workgroupSizeRegex.FindStringIndex(source)
	if loc == nil {
		return source
	}
	z := parseWorkgroupSize(source[loc[0]:loc[1]])[2]
	return source[:loc[0]] + fmt.Sprintf("@workgroup_size(%d, %d, %d)", x, y, z) + source[loc[1]:]
}

// parseEntryPoint returns the name of the first function tagged with the given stage
// attribute, or an empty string if there is none.
func parseEntryPoint(source string, stage wgpu.ShaderStage) string {
	var re *regexp.Regexp
	switch stage {
	case wgpu.ShaderStageCompute:
		re = computeEntryRegex
	case wgpu.ShaderStageVertex:
		re = vertexEntryRegex
	case wgpu.ShaderStageFragment:
		re = fragmentEntryRegex
	default:
		return ""
	}
	if match := re.FindStringSubmatch(stripComments(source)); match != nil {
		return match[1]
	}
	return ""
}

type parsedField struct {
	name     string
	typeName string
	builtin  bool
}

type parsedStruct struct {
	name   string
	fields []parsedField
}

// parseStructBlocks finds all struct blocks in comment-free WGSL source.
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		ps := parsedStruct{name: m[1]}
		for _, raw := range splitAtTopLevelCommas(m[2]) {
			raw = strings.TrimSpace(raw)
			fm := fieldRegex.FindStringSubmatch(raw)
			if fm == nil {
				continue
			}
			ps.fields = append(ps.fields, parsedField{
				name:     fm[1],
				typeName: strings.TrimSpace(fm[2]),
				builtin:  strings.Contains(raw, "@builtin"),
			})
		}
		structs = append(structs, ps)
	}
	return structs
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32").
func splitTypeParams(typeName string) (string, string) {
	base, params, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return base, strings.TrimSpace(strings.TrimSuffix(params, ">"))
}

// splitAtTopLevelCommas splits a struct body at commas outside angle brackets, so
// array<T, N> stays in one piece.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripComments removes line comments and nested block comments from WGSL source.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			case depth == 0 && source[i] == '/' && source[i+1] == '/':
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
