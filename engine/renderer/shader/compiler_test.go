package shader

import (
	"context"
	"encoding/binary"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSPIRV() []byte {
	out := make([]byte, 20)
	binary.LittleEndian.PutUint32(out, spirvMagic)
	return out
}

func TestNagaCompilerWritesArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "compiled")
	c := NewNagaCompiler(dir)
	c.compile = func(string) ([]byte, error) { return fakeSPIRV(), nil }

	bin, format, err := c.Compile(context.Background(), "// kernel")
	require.NoError(t, err)
	assert.Equal(t, FormatSPIRV, format)
	assert.Equal(t, fakeSPIRV(), bin)

	src, err := os.ReadFile(filepath.Join(dir, "raytrace.linked.wgsl"))
	require.NoError(t, err)
	assert.Equal(t, "// kernel", string(src))
	spv, err := os.ReadFile(filepath.Join(dir, "raytrace.linked.spv"))
	require.NoError(t, err)
	assert.Equal(t, bin, spv)
}

func TestNagaCompilerRejectsBadOutput(t *testing.T) {
	c := NewNagaCompiler("")
	c.compile = func(string) ([]byte, error) { return []byte{1, 2, 3, 4}, nil }
	_, _, err := c.Compile(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrCompile))

	c.compile = func(string) ([]byte, error) { return nil, errors.New("parse error at 1:1") }
	_, _, err = c.Compile(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrCompile))
	assert.ErrorContains(t, err, "parse error")
}

func TestNagaCompilerCompilesMinimalKernel(t *testing.T) {
	bin, format, err := NewNagaCompiler("").Compile(context.Background(), "@compute @workgroup_size(1)\nfn main() {}\n")
	require.NoError(t, err)
	assert.Equal(t, FormatSPIRV, format)
	assert.Equal(t, uint32(spirvMagic), binary.LittleEndian.Uint32(bin))
}

func TestDeviceCompiler(t *testing.T) {
	bin, format, err := DeviceCompiler{}.Compile(context.Background(), "src")
	require.NoError(t, err)
	assert.Equal(t, FormatWGSL, format)
	assert.Equal(t, []byte("src"), bin)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = DeviceCompiler{}.Compile(ctx, "src")
	assert.True(t, errors.Is(err, ErrCompile))
}

func TestCompilerByName(t *testing.T) {
	c, err := CompilerByName("device", "")
	require.NoError(t, err)
	assert.IsType(t, DeviceCompiler{}, c)

	c, err = CompilerByName("", "out")
	require.NoError(t, err)
	require.IsType(t, &NagaCompiler{}, c)
	assert.Equal(t, "out", c.(*NagaCompiler).ArtifactDir)

	_, err = CompilerByName("glslc", "")
	assert.Error(t, err)
}

func TestWatcherCoalescesChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, "", 50*time.Millisecond, log.New(os.Stderr, "", 0))
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, dir, "a.wgsl", moduleCode("alpha"))
	writeFile(t, dir, "a.wgsl", moduleCode("alpha2"))
	writeFile(t, dir, "readme.md", "ignored")

	select {
	case names := <-w.Changes():
		assert.Equal(t, []string{"a.wgsl"}, names)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	require.NoError(t, w.Close())
	_, open := <-w.Changes()
	assert.False(t, open)
	assert.NoError(t, w.Close())
}

func TestNewWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), "", 0, nil)
	assert.Error(t, err)
}
