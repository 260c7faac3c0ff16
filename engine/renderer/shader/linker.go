package shader

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// KernelTemplate is the built-in path tracing kernel with surface shading placeholders.
//
//go:embed assets/raytrace.wgsl
var KernelTemplate string

// BlitSource is the fullscreen-triangle render shader used to present the output image.
//
//go:embed assets/blit.wgsl
var BlitSource string

const (
	placeholderModules  = "// SURFACE_SHADERS_PLACEHOLDER"
	placeholderDispatch = "// SURFACE_SHADER_DISPATCH_PLACEHOLDER"
	placeholderEmissive = "// SURFACE_SHADER_DISPATCH_FOR_SPHERE_EMISSIVE"
)

// ladder names the kernel variables a dispatch ladder selects on, writes and passes.
type ladder struct {
	index  string
	result string
	data   string
	indent string
}

var (
	generalLadder  = ladder{index: "shaderFunctionIndex", result: "shaderResult", data: "shaderData", indent: "        "}
	emissiveLadder = ladder{index: "sphereShaderIndex", result: "sphereShaderResult", data: "sphereShaderData", indent: "                "}
)

// LinkResult is the output of a link: the composed kernel, its compiled binary and the
// index map materials pack against.
type LinkResult struct {
	// Source is the composed and pre-processed WGSL kernel.
	Source string

	// Binary is the compiled kernel in Format.
	Binary []byte
	Format BinaryFormat

	// Index maps module identifiers to dispatch indices.
	Index IndexMap

	// Modules lists the linked modules in index order.
	Modules []Module

	EntryPoint    string
	WorkgroupSize [3]uint32

	// Kernel is the parsed kernel, carrying bindings and declarations for pipeline creation
	// and the compiled module the device loads.
	Kernel Shader
}

// linker is the implementation of the Linker interface.
type linker struct {
	moduleDir    string
	template     string
	templatePath string
	marker       string
	ext          string
	compiler     Compiler
	workgroup    [2]uint32
	logger       *log.Logger
}

// Linker composes the kernel template with the surface shading modules found in a
// directory, assigns every module a dispatch index, and compiles the result.
type Linker interface {
	// Link composes and compiles the kernel.
	//
	// Returns:
	//   - *LinkResult: the composed source, binary, index map and modules
	//   - error: a read failure of an existing directory or template, or a compile failure wrapping ErrCompile
	Link() (*LinkResult, error)

	// LinkContext is Link with a context bounding the compile step.
	//
	// Parameters:
	//   - ctx: the context passed to the compiler
	//
	// Returns:
	//   - *LinkResult: the composed source, binary, index map and modules
	//   - error: as for Link
	LinkContext(ctx context.Context) (*LinkResult, error)

	// ModuleDir returns the directory modules are read from.
	//
	// Returns:
	//   - string: the module directory, empty when none is configured
	ModuleDir() string
}

var _ Linker = &linker{}

// NewLinker creates a Linker with the provided options applied. Without options it links
// the built-in template with no modules through the device compiler.
//
// Parameters:
//   - options: variadic list of LinkerBuilderOption functions
//
// Returns:
//   - Linker: the configured linker
func NewLinker(options ...LinkerBuilderOption) Linker {
	l := &linker{
		template: KernelTemplate,
		marker:   DefaultEntryMarker,
		ext:      DefaultModuleExtension,
		compiler: DeviceCompiler{},
		logger:   log.Default(),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *linker) ModuleDir() string {
	return l.moduleDir
}

func (l *linker) Link() (*LinkResult, error) {
	return l.LinkContext(context.Background())
}

func (l *linker) LinkContext(ctx context.Context) (*LinkResult, error) {
	template := l.template
	if l.templatePath != "" {
		data, err := os.ReadFile(l.templatePath)
		if err != nil {
			return nil, fmt.Errorf("read kernel template: %w", err)
		}
		template = string(data)
	}

	modules, err := l.discover()
	if err != nil {
		return nil, err
	}

	composed := l.compose(template, modules)
	if l.workgroup[0] > 0 && l.workgroup[1] > 0 {
		composed = setWorkgroupSize(composed, l.workgroup[0], l.workgroup[1])
	}

	kernel, err := NewShader("raytrace", ShaderTypeCompute, composed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}

	bin, format, err := l.compiler.Compile(ctx, kernel.Source())
	if err != nil {
		if !errors.Is(err, ErrCompile) {
			err = fmt.Errorf("%w: %v", ErrCompile, err)
		}
		return nil, err
	}
	kernel.SetBinary(bin, format)

	names := make([]string, len(modules))
	for i, m := range modules {
		names[i] = m.Name
	}
	l.logger.Printf("[Linker] linked %d surface shaders (%s)", len(modules), format)

	return &LinkResult{
		Source:        kernel.Source(),
		Binary:        bin,
		Format:        format,
		Index:         NewIndexMap(names),
		Modules:       modules,
		EntryPoint:    kernel.EntryPoint(wgpu.ShaderStageCompute),
		WorkgroupSize: kernel.WorkgroupSize(),
		Kernel:        kernel,
	}, nil
}

// discover reads the module directory and assigns indices to every module with an entry
// marker. Skipped modules take no index.
func (l *linker) discover() ([]Module, error) {
	if l.moduleDir == "" {
		return nil, nil
	}
	files, found, err := readModuleFiles(l.moduleDir, l.ext)
	if err != nil {
		return nil, err
	}
	if !found {
		l.logger.Printf("[Linker] surface shader directory not found: %s, using default shading only", l.moduleDir)
		return nil, nil
	}

	modules := make([]Module, 0, len(files))
	for _, f := range files {
		fn, ok := extractEntryName(f.code, l.marker)
		if !ok {
			l.logger.Printf("[Linker] skipping %s: no function declared with %q", f.name, l.marker)
			continue
		}
		modules = append(modules, Module{
			Name:     f.name,
			Path:     f.path,
			Index:    len(modules) + 1,
			Function: fn,
			Code:     f.code,
		})
	}
	return modules, nil
}

// compose substitutes the module code and both dispatch ladders into the template.
func (l *linker) compose(template string, modules []Module) string {
	var code strings.Builder
	for _, m := range modules {
		fmt.Fprintf(&code, "// Shader Index %d - %s\n%s\n\n", m.Index, m.Name, m.Code)
	}

	out := template
	for _, sub := range []struct {
		placeholder string
		text        string
	}{
		{placeholderModules, code.String()},
		{placeholderDispatch, buildLadder(generalLadder, modules)},
		{placeholderEmissive, buildLadder(emissiveLadder, modules)},
	} {
		if !strings.Contains(out, sub.placeholder) {
			l.logger.Printf("[Linker] placeholder %s not found in kernel template", sub.placeholder)
			continue
		}
		out = strings.Replace(out, sub.placeholder, sub.text, 1)
	}
	return out
}

// buildLadder emits one mutually exclusive branch per module joined by " else ".
func buildLadder(ld ladder, modules []Module) string {
	branches := make([]string, len(modules))
	for i, m := range modules {
		branches[i] = fmt.Sprintf("if (%s == %d) {\n%s    %s = %s(%s);\n%s}", ld.index, m.Index, ld.indent, ld.result, m.Function, ld.data, ld.indent)
	}
	return strings.Join(branches, " else ")
}
