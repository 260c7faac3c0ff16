// Package loader reads scene assets from disk: volume descriptors with their raw density blobs, and YAML
// scene files that assemble materials, primitives, lights, volumes and the camera into a ready scene.
package loader

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/Carmen-Shannon/oxy-trace/engine/volume"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	logger *log.Logger

	fieldCache map[string]*volume.Field
}

// LoadedScene is the result of loading a scene file.
type LoadedScene struct {
	// Scene holds the entities and render settings.
	Scene scene.Scene

	// Camera is configured from the file's camera block; its aspect ratio must be set by the caller.
	Camera camera.Camera
}

// Loader defines the public-facing interface for loading scene assets.
// Density fields are cached by their source paths and placement so several regions can share one field.
type Loader interface {
	// LoadVolume reads a .dat descriptor and its raw density blob into a field.
	// A missing raw file or a short read is logged and the remaining density is zero.
	//
	// Parameters:
	//   - datPath: the descriptor path
	//   - rawPath: the density blob path, empty to use the descriptor's ObjectFileName
	//   - position: the world-space minimum corner
	//   - scale: the world scale applied to the slice thickness
	//
	// Returns:
	//   - *volume.Field: the loaded field
	//   - error: if the descriptor cannot be read or lacks Resolution/SliceThickness
	LoadVolume(datPath, rawPath string, position common.Vec3, scale float32) (*volume.Field, error)

	// LoadScene reads a YAML scene file. Relative asset paths resolve against the file's directory.
	//
	// Parameters:
	//   - path: the scene file path
	//
	// Returns:
	//   - *LoadedScene: the scene and camera
	//   - error: if the file cannot be parsed or references unknown materials
	LoadScene(path string) (*LoadedScene, error)

	// Fields returns a copy of the field cache keyed by source and placement.
	//
	// Returns:
	//   - map[string]*volume.Field: the cached fields
	Fields() map[string]*volume.Field
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the provided options applied.
//
// Parameters:
//   - options: variadic list of LoaderBuilderOption functions
//
// Returns:
//   - Loader: the configured loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		logger:     log.Default(),
		fieldCache: make(map[string]*volume.Field),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// LoadVolume loads a density field with a default Loader.
//
// Parameters:
//   - datPath: the descriptor path
//   - rawPath: the density blob path, empty to use the descriptor's ObjectFileName
//   - position: the world-space minimum corner
//   - scale: the world scale applied to the slice thickness
//
// Returns:
//   - *volume.Field: the loaded field
//   - error: if the descriptor cannot be used
func LoadVolume(datPath, rawPath string, position common.Vec3, scale float32) (*volume.Field, error) {
	return NewLoader().LoadVolume(datPath, rawPath, position, scale)
}

func (l *loader) LoadVolume(datPath, rawPath string, position common.Vec3, scale float32) (*volume.Field, error) {
	key := fmt.Sprintf("%s|%s|%v|%g", filepath.Clean(datPath), rawPath, position, scale)

	l.mu.RLock()
	cached, ok := l.fieldCache[key]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	f, err := l.loadVolume(datPath, rawPath, position, scale)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.fieldCache[key]; ok {
		return existing, nil
	}
	l.fieldCache[key] = f
	return f, nil
}

func (l *loader) LoadScene(path string) (*LoadedScene, error) {
	return l.loadScene(path)
}

func (l *loader) Fields() map[string]*volume.Field {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]*volume.Field, len(l.fieldCache))
	for k, v := range l.fieldCache {
		out[k] = v
	}
	return out
}
