// Package capture writes read back frames to image files.
package capture

import (
	"bufio"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format is an image file format Save can write.
type Format string

const (
	FormatPPM  Format = "ppm"
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// FormatFromPath picks the format from a file extension.
//
// Parameters:
//   - path: the output file path
//
// Returns:
//   - Format: the matching format
//   - error: if the extension is not supported
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ppm":
		return FormatPPM, nil
	case ".png":
		return FormatPNG, nil
	case ".bmp":
		return FormatBMP, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	}
	return "", fmt.Errorf("unsupported capture format %q", filepath.Ext(path))
}

// Save writes pixels to path in the format its extension names. Parent directories are created.
//
// Parameters:
//   - path: the output file path
//   - pixels: the image to write
//
// Returns:
//   - error: if the format is unsupported, the image is malformed or the file cannot be written
func Save(path string, pixels *common.PixelBuffer) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if err := pixels.Validate(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating capture directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating capture file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := Encode(w, format, pixels); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode writes pixels to w in the given format.
//
// Parameters:
//   - w: the destination
//   - format: the image format
//   - pixels: the image to write
//
// Returns:
//   - error: from the encoder
func Encode(w io.Writer, format Format, pixels *common.PixelBuffer) error {
	switch format {
	case FormatPPM:
		return WritePPM(w, pixels)
	case FormatPNG:
		return png.Encode(w, pixels.Image())
	case FormatBMP:
		return bmp.Encode(w, pixels.Image())
	case FormatTIFF:
		return tiff.Encode(w, pixels.Image(), &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("unsupported capture format %q", format)
}

// WritePPM writes a binary P6 PPM. Alpha is dropped.
//
// Parameters:
//   - w: the destination
//   - pixels: the image to write
//
// Returns:
//   - error: from w
func WritePPM(w io.Writer, pixels *common.PixelBuffer) error {
	if _, err := fmt.Fprintf(w, "P6\n%d %d\n255\n", pixels.Width, pixels.Height); err != nil {
		return err
	}
	rgb := make([]byte, pixels.Width*3)
	for y := 0; y < pixels.Height; y++ {
		row := pixels.Pix[y*pixels.Width*4 : (y+1)*pixels.Width*4]
		for x := 0; x < pixels.Width; x++ {
			copy(rgb[x*3:x*3+3], row[x*4:x*4+3])
		}
		if _, err := w.Write(rgb); err != nil {
			return err
		}
	}
	return nil
}

// FramePath expands a capture path for one frame. A path with a %d verb gets the frame number,
// any other path is returned unchanged.
//
// Parameters:
//   - pattern: the configured capture path
//   - frame: the frame number
//
// Returns:
//   - string: the file path
func FramePath(pattern string, frame uint64) string {
	if strings.Contains(pattern, "%") {
		return fmt.Sprintf(pattern, frame)
	}
	return pattern
}
