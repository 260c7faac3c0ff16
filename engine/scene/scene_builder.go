package scene

import (
	"log"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/material"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithArena uses an existing material arena instead of a fresh one.
//
// Parameters:
//   - a: the arena, ignored when nil
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithArena(a *material.Arena) SceneBuilderOption {
	return func(s *scene) {
		if a != nil {
			s.arena = a
		}
	}
}

// WithBackground sets the sky gradient colors.
//
// Parameters:
//   - top: color at the zenith
//   - bottom: color at the horizon
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBackground(top, bottom common.Vec3) SceneBuilderOption {
	return func(s *scene) {
		s.bgTop = top
		s.bgBottom = bottom
	}
}

// WithMaxDepth sets the recursion limit for secondary rays.
func WithMaxDepth(depth int) SceneBuilderOption {
	return func(s *scene) {
		s.maxDepth = depth
	}
}

// WithMarshalWorkers sets the number of worker goroutines used to pack entities in Prepare.
// Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMarshalWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.marshalWorkers = n
	}
}

// WithLogger routes the scene's log lines to l.
func WithLogger(l *log.Logger) SceneBuilderOption {
	return func(s *scene) {
		if l != nil {
			s.logger = l
		}
	}
}
