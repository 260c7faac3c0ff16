package shader

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogpu/naga"
)

// ErrCompile wraps every failure to turn a linked kernel into a loadable binary.
var ErrCompile = errors.New("shader compile failed")

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// BinaryFormat identifies the encoding of a compiled kernel.
type BinaryFormat int

const (
	// FormatWGSL is WGSL text handed to the device's own compiler.
	FormatWGSL BinaryFormat = iota

	// FormatSPIRV is a SPIR-V binary.
	FormatSPIRV
)

func (f BinaryFormat) String() string {
	switch f {
	case FormatSPIRV:
		return "spirv"
	default:
		return "wgsl"
	}
}

// Compiler turns composed kernel source into a binary the device can load.
type Compiler interface {
	// Compile compiles WGSL source.
	//
	// Parameters:
	//   - ctx: bounds the compile; compilers that cannot be interrupted check it before starting
	//   - source: the fully composed and pre-processed WGSL source
	//
	// Returns:
	//   - []byte: the compiled binary
	//   - BinaryFormat: the encoding of the binary
	//   - error: an error wrapping ErrCompile on failure
	Compile(ctx context.Context, source string) ([]byte, BinaryFormat, error)
}

// NagaCompiler compiles WGSL to SPIR-V with the naga cross-compiler. When ArtifactDir is
// set, the composed source and the binary are written there as <ArtifactName>.wgsl and
// <ArtifactName>.spv.
type NagaCompiler struct {
	ArtifactDir  string
	ArtifactName string

	// compile defaults to naga.Compile.
	compile func(string) ([]byte, error)
}

var _ Compiler = &NagaCompiler{}

// NewNagaCompiler creates a NagaCompiler writing artifacts to artifactDir, or none when empty.
func NewNagaCompiler(artifactDir string) *NagaCompiler {
	return &NagaCompiler{
		ArtifactDir:  artifactDir,
		ArtifactName: "raytrace.linked",
		compile:      naga.Compile,
	}
}

func (c *NagaCompiler) Compile(ctx context.Context, source string) ([]byte, BinaryFormat, error) {
	if err := ctx.Err(); err != nil {
		return nil, FormatSPIRV, fmt.Errorf("%w: %v", ErrCompile, err)
	}
	compile := c.compile
	if compile == nil {
		compile = naga.Compile
	}

	if err := c.writeArtifact(".wgsl", []byte(source)); err != nil {
		return nil, FormatSPIRV, err
	}
	spirv, err := compile(source)
	if err != nil {
		return nil, FormatSPIRV, fmt.Errorf("%w: naga: %v", ErrCompile, err)
	}
	if len(spirv) < 20 || len(spirv)%4 != 0 || binary.LittleEndian.Uint32(spirv) != spirvMagic {
		return nil, FormatSPIRV, fmt.Errorf("%w: naga produced %d bytes without a SPIR-V header", ErrCompile, len(spirv))
	}
	if err := c.writeArtifact(".spv", spirv); err != nil {
		return nil, FormatSPIRV, err
	}
	return spirv, FormatSPIRV, nil
}

func (c *NagaCompiler) writeArtifact(ext string, data []byte) error {
	if c.ArtifactDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.ArtifactDir, 0o755); err != nil {
		return fmt.Errorf("%w: artifact dir: %v", ErrCompile, err)
	}
	name := c.ArtifactName
	if name == "" {
		name = "raytrace.linked"
	}
	if err := os.WriteFile(filepath.Join(c.ArtifactDir, name+ext), data, 0o644); err != nil {
		return fmt.Errorf("%w: write artifact: %v", ErrCompile, err)
	}
	return nil
}

// DeviceCompiler passes WGSL through unchanged. The device validates and compiles it when
// the shader module is created.
type DeviceCompiler struct{}

var _ Compiler = DeviceCompiler{}

func (DeviceCompiler) Compile(ctx context.Context, source string) ([]byte, BinaryFormat, error) {
	if err := ctx.Err(); err != nil {
		return nil, FormatWGSL, fmt.Errorf("%w: %v", ErrCompile, err)
	}
	if source == "" {
		return nil, FormatWGSL, fmt.Errorf("%w: empty source", ErrCompile)
	}
	return []byte(source), FormatWGSL, nil
}

// CompilerByName returns the compiler selected by a configuration value: "naga" or "device".
func CompilerByName(name, artifactDir string) (Compiler, error) {
	switch name {
	case "", "naga":
		return NewNagaCompiler(artifactDir), nil
	case "device":
		return DeviceCompiler{}, nil
	default:
		return nil, fmt.Errorf("unknown shader compiler %q", name)
	}
}
