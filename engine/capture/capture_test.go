package capture

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func testPixels() *common.PixelBuffer {
	p := common.NewPixelBuffer(2, 2)
	copy(p.Pix, []byte{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 10, 20, 30, 128,
	})
	return p
}

func TestWritePPM(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePPM(&buf, testPixels()))

	want := append([]byte("P6\n2 2\n255\n"),
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 10, 20, 30)
	assert.Equal(t, want, buf.Bytes())
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]Format{
		"out.ppm":     FormatPPM,
		"a/b/out.PNG": FormatPNG,
		"frame.bmp":   FormatBMP,
		"frame.tif":   FormatTIFF,
		"frame.tiff":  FormatTIFF,
	}
	for path, want := range cases {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatFromPath("frame.jpg")
	assert.Error(t, err)
}

func TestSaveRoundTripsThroughDecoders(t *testing.T) {
	dir := t.TempDir()
	src := testPixels()

	require.NoError(t, Save(filepath.Join(dir, "nested", "out.png"), src))
	f, err := os.Open(filepath.Join(dir, "nested", "out.png"))
	require.NoError(t, err)
	img, err := png.Decode(f)
	f.Close()
	require.NoError(t, err)
	r, g, b, _ := img.At(1, 0).RGBA()
	assert.Equal(t, [3]uint32{0, 0xffff, 0}, [3]uint32{r, g, b})

	require.NoError(t, Save(filepath.Join(dir, "out.bmp"), src))
	f, err = os.Open(filepath.Join(dir, "out.bmp"))
	require.NoError(t, err)
	img, err = bmp.Decode(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())

	require.NoError(t, Save(filepath.Join(dir, "out.tiff"), src))
	f, err = os.Open(filepath.Join(dir, "out.tiff"))
	require.NoError(t, err)
	img, err = tiff.Decode(f)
	f.Close()
	require.NoError(t, err)
	r, _, _, _ = img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)

	require.NoError(t, Save(filepath.Join(dir, "out.ppm"), src))
	data, err := os.ReadFile(filepath.Join(dir, "out.ppm"))
	require.NoError(t, err)
	assert.Len(t, data, len("P6\n2 2\n255\n")+12)
}

func TestSaveRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, Save(filepath.Join(dir, "out.gif"), testPixels()))
	assert.Error(t, Save(filepath.Join(dir, "out.png"), &common.PixelBuffer{Width: 2, Height: 2}))
}

func TestFramePath(t *testing.T) {
	assert.Equal(t, "out/frame_0007.png", FramePath("out/frame_%04d.png", 7))
	assert.Equal(t, "render.ppm", FramePath("render.ppm", 7))
}
