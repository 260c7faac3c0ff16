// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"
	"image"
	"image/color"
)

// PixelBuffer holds a tightly packed RGBA8 image read back from the GPU.
// Row padding required by the copy alignment has already been stripped.
type PixelBuffer struct {
	// Width is the image width in pixels.
	Width int

	// Height is the image height in pixels.
	Height int

	// Pix holds Width*Height*4 bytes in RGBA order, rows top to bottom.
	Pix []byte
}

// NewPixelBuffer allocates a zeroed PixelBuffer of the given dimensions.
//
// Parameters:
//   - width: image width in pixels
//   - height: image height in pixels
//
// Returns:
//   - *PixelBuffer: the allocated buffer
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
}

// Validate checks that the pixel slice matches the declared dimensions.
func (p *PixelBuffer) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("invalid pixel buffer dimensions %dx%d", p.Width, p.Height)
	}
	if len(p.Pix) != p.Width*p.Height*4 {
		return fmt.Errorf("pixel buffer holds %d bytes, want %d", len(p.Pix), p.Width*p.Height*4)
	}
	return nil
}

// RGBAAt returns the color of the pixel at (x, y).
func (p *PixelBuffer) RGBAAt(x, y int) color.RGBA {
	i := (y*p.Width + x) * 4
	return color.RGBA{R: p.Pix[i], G: p.Pix[i+1], B: p.Pix[i+2], A: p.Pix[i+3]}
}

// Image wraps the pixel data in an *image.RGBA without copying.
func (p *PixelBuffer) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    p.Pix,
		Stride: p.Width * 4,
		Rect:   image.Rect(0, 0, p.Width, p.Height),
	}
}

// UnpadRows copies rows of width*4 bytes out of a buffer whose rows are paddedStride bytes apart.
//
// Parameters:
//   - padded: the source bytes with padded rows
//   - width: image width in pixels
//   - height: image height in pixels
//   - paddedStride: the byte distance between consecutive source rows
//
// Returns:
//   - *PixelBuffer: the tightly packed image
//   - error: if padded is too short for the given layout
func UnpadRows(padded []byte, width, height, paddedStride int) (*PixelBuffer, error) {
	row := width * 4
	if paddedStride < row {
		return nil, fmt.Errorf("padded stride %d smaller than row size %d", paddedStride, row)
	}
	if height > 0 && len(padded) < paddedStride*(height-1)+row {
		return nil, fmt.Errorf("readback holds %d bytes, need %d", len(padded), paddedStride*(height-1)+row)
	}
	out := NewPixelBuffer(width, height)
	for y := 0; y < height; y++ {
		copy(out.Pix[y*row:(y+1)*row], padded[y*paddedStride:y*paddedStride+row])
	}
	return out, nil
}
