package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/volume"
)

// ErrVolumeMetadata reports a .dat file without the keys needed to size the voxel grid.
var ErrVolumeMetadata = errors.New("volume metadata incomplete")

// Metadata is the parsed content of a volume .dat descriptor.
type Metadata struct {
	// Resolution is the voxel count per axis.
	Resolution [3]int

	// SliceThickness is the voxel extent per axis in asset units.
	SliceThickness [3]float32

	// ObjectFileName is the raw blob the descriptor points at, if present.
	ObjectFileName string

	// Format is the sample format string, e.g. UCHAR. Only single byte samples are supported.
	Format string

	// Extra holds every other key verbatim.
	Extra map[string]string
}

// ParseMetadata reads "Key: value" lines. Lines without a colon are ignored.
// Resolution and SliceThickness are required.
//
// Parameters:
//   - r: the descriptor text
//
// Returns:
//   - *Metadata: the parsed descriptor
//   - error: wraps ErrVolumeMetadata when a required key is missing or malformed
func ParseMetadata(r io.Reader) (*Metadata, error) {
	md := &Metadata{Extra: make(map[string]string)}
	var haveRes, haveThick bool

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Resolution":
			f := strings.Fields(value)
			if len(f) < 3 {
				return nil, fmt.Errorf("%w: resolution %q needs three integers", ErrVolumeMetadata, value)
			}
			for i := 0; i < 3; i++ {
				n, err := strconv.Atoi(f[i])
				if err != nil || n < 0 {
					return nil, fmt.Errorf("%w: resolution %q: bad component %q", ErrVolumeMetadata, value, f[i])
				}
				md.Resolution[i] = n
			}
			haveRes = true
		case "SliceThickness":
			f := strings.Fields(value)
			if len(f) < 3 {
				return nil, fmt.Errorf("%w: slice thickness %q needs three numbers", ErrVolumeMetadata, value)
			}
			for i := 0; i < 3; i++ {
				v, err := strconv.ParseFloat(f[i], 32)
				if err != nil {
					return nil, fmt.Errorf("%w: slice thickness %q: bad component %q", ErrVolumeMetadata, value, f[i])
				}
				md.SliceThickness[i] = float32(v)
			}
			haveThick = true
		case "ObjectFileName":
			md.ObjectFileName = value
		case "Format":
			md.Format = value
		default:
			md.Extra[key] = value
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read volume metadata: %w", err)
	}
	if !haveRes {
		return nil, fmt.Errorf("%w: missing Resolution", ErrVolumeMetadata)
	}
	if !haveThick {
		return nil, fmt.Errorf("%w: missing SliceThickness", ErrVolumeMetadata)
	}
	return md, nil
}

// loadVolume is the volume backend used by the Loader.
func (l *loader) loadVolume(datPath, rawPath string, position common.Vec3, scale float32) (*volume.Field, error) {
	f, err := os.Open(datPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume metadata: %w", err)
	}
	md, err := ParseMetadata(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", datPath, err)
	}

	if rawPath == "" {
		if md.ObjectFileName == "" {
			return nil, fmt.Errorf("%s: %w: no raw path given and no ObjectFileName", datPath, ErrVolumeMetadata)
		}
		rawPath = filepath.Join(filepath.Dir(datPath), md.ObjectFileName)
	}
	if md.Format != "" && !strings.EqualFold(md.Format, "UCHAR") {
		l.logger.Printf("[Volume] %s declares format %q, reading samples as unsigned bytes", datPath, md.Format)
	}

	expected := md.Resolution[0] * md.Resolution[1] * md.Resolution[2]
	data := make([]byte, expected)

	raw, err := os.Open(rawPath)
	if err != nil {
		l.logger.Printf("[Volume] failed to open density data %s: %v, density is zero", rawPath, err)
	} else {
		n, readErr := io.ReadFull(raw, data)
		raw.Close()
		switch {
		case readErr == nil:
		case errors.Is(readErr, io.ErrUnexpectedEOF), errors.Is(readErr, io.EOF):
			l.logger.Printf("[Volume] short read from %s: read %d bytes, expected %d", rawPath, n, expected)
			clear(data[n:])
		default:
			return nil, fmt.Errorf("failed to read density data %s: %w", rawPath, readErr)
		}
	}

	field := volume.NewField(position, scale, md.Resolution, md.SliceThickness, data)
	v0, v1 := field.Bounds()
	l.logger.Printf("[Volume] loaded %s resolution %v bounds %v to %v", datPath, md.Resolution, v0, v1)
	return field, nil
}
