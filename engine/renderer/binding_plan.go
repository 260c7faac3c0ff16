package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
)

// sceneKeys are the kernel declarations filled from the uploaded scene, in upload argument order.
var sceneKeys = []shader.AnnotationArg{
	shader.AnnotationArgSphere,
	shader.AnnotationArgEllipsoid,
	shader.AnnotationArgMaterial,
	shader.AnnotationArgLight,
	shader.AnnotationArgVolumetricData,
	shader.AnnotationArgVoxels,
}

// bindingPlan says which kernel group and binding each renderer resource lives at. It is read from
// the kernel's @oxy: declarations so the WGSL stays the single source of the layout.
type bindingPlan struct {
	sceneGroup int
	// scene maps a declaration key to its binding in sceneGroup.
	scene map[shader.AnnotationArg]int
	// minSize is the smallest allocation of each scene binding, one element for arrays.
	minSize map[int]uint64

	paramsGroup   int
	paramsBinding int
	paramsSize    uint64

	outputGroup   int
	outputBinding int

	groupCount int
}

// planBindings reads the resource layout out of a parsed kernel.
//
// Parameters:
//   - kernel: the parsed compute kernel
//
// Returns:
//   - bindingPlan: the layout
//   - error: if the frame params or output image are not declared, scene buffers span several
//     groups, two resources share a group, or a group is left unbound
func planBindings(kernel shader.Shader) (bindingPlan, error) {
	plan := bindingPlan{
		sceneGroup:  -1,
		paramsGroup: -1,
		outputGroup: -1,
		scene:       make(map[shader.AnnotationArg]int),
		minSize:     make(map[int]uint64),
		groupCount:  kernel.GroupCount(),
	}

	sizes := make(map[[2]int]uint64)
	for _, b := range kernel.Bindings() {
		sizes[[2]int{b.Group, b.Binding}] = b.MinSize
	}

	for _, d := range kernel.Declarations() {
		if d.Group == nil || d.Binding == nil {
			continue
		}
		group, binding := *d.Group, *d.Binding
		key := d.StructKey()

		switch {
		case key == shader.AnnotationArgFrameParams:
			if plan.paramsGroup >= 0 {
				return plan, fmt.Errorf("line %d: frame params declared twice", d.Line)
			}
			plan.paramsGroup, plan.paramsBinding = group, binding
			plan.paramsSize = sizes[[2]int{group, binding}]
		case key == shader.AnnotationArgOutputImage:
			if plan.outputGroup >= 0 {
				return plan, fmt.Errorf("line %d: output image declared twice", d.Line)
			}
			plan.outputGroup, plan.outputBinding = group, binding
		case isSceneKey(key):
			if plan.sceneGroup >= 0 && plan.sceneGroup != group {
				return plan, fmt.Errorf("line %d: scene buffer %s in group %d, expected group %d", d.Line, key, group, plan.sceneGroup)
			}
			plan.sceneGroup = group
			plan.scene[key] = binding
			plan.minSize[binding] = sizes[[2]int{group, binding}]
		default:
			return plan, fmt.Errorf("line %d: kernel declares unsupported resource %s", d.Line, key)
		}
	}

	if plan.paramsGroup < 0 {
		return plan, fmt.Errorf("kernel does not declare %s", shader.AnnotationArgFrameParams)
	}
	if plan.outputGroup < 0 {
		return plan, fmt.Errorf("kernel does not declare %s", shader.AnnotationArgOutputImage)
	}
	if plan.sceneGroup < 0 {
		return plan, fmt.Errorf("kernel declares no scene buffers")
	}
	if plan.sceneGroup == plan.paramsGroup || plan.sceneGroup == plan.outputGroup || plan.paramsGroup == plan.outputGroup {
		return plan, fmt.Errorf("scene, frame params and output image must use separate groups (%d, %d, %d)",
			plan.sceneGroup, plan.paramsGroup, plan.outputGroup)
	}
	if plan.groupCount != 3 {
		return plan, fmt.Errorf("kernel uses %d bind groups, expected 3", plan.groupCount)
	}
	return plan, nil
}

func isSceneKey(key shader.AnnotationArg) bool {
	for _, k := range sceneKeys {
		if k == key {
			return true
		}
	}
	return false
}

// blitPlan locates the sampled image and sampler of the present blit.
type blitPlan struct {
	group          int
	sourceBinding  int
	samplerBinding int
}

// planBlit reads the blit shader's provider declarations.
//
// Parameters:
//   - blit: the parsed blit shader
//
// Returns:
//   - blitPlan: the layout
//   - error: if the source or sampler is missing or they sit in different groups
func planBlit(blit shader.Shader) (blitPlan, error) {
	plan := blitPlan{group: -1, sourceBinding: -1, samplerBinding: -1}
	for _, d := range blit.Declarations() {
		if d.Group == nil || d.Binding == nil {
			continue
		}
		switch d.StructKey() {
		case shader.AnnotationArgBlitSource:
			plan.sourceBinding = *d.Binding
		case shader.AnnotationArgBlitSampler:
			plan.samplerBinding = *d.Binding
		default:
			continue
		}
		if plan.group >= 0 && plan.group != *d.Group {
			return plan, fmt.Errorf("line %d: blit source and sampler must share a group", d.Line)
		}
		plan.group = *d.Group
	}
	if plan.sourceBinding < 0 || plan.samplerBinding < 0 {
		return plan, fmt.Errorf("blit shader must declare %s and %s", shader.AnnotationArgBlitSource, shader.AnnotationArgBlitSampler)
	}
	return plan, nil
}
