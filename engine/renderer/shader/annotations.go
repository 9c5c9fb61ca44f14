package shader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
)

// Annotations are WGSL line comments of the form //@oxy:<type> <args...>. They let shaders
// share the record structs of engine/model instead of restating them:
//
//	//@oxy:include meshlet
//	//@oxy:group 0 0 storage_read meshlets array<meshlet>
//	//@oxy:inject visibility
const annotationPrefix = "@oxy:"

// AnnotationType is the directive of an annotation.
type AnnotationType string

const (
	// annotationTypeInclude is replaced by the WGSL definition of a record struct.
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup is replaced by a @group/@binding var declaration. Arguments:
	// group, binding, address space, variable name and record type or array<record type>.
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeInject is replaced by source the shader's owner registered for a slot.
	AnnotationTypeInject AnnotationType = "inject"
)

// AnnotationArg is a keyword argument of an annotation.
type AnnotationArg string

// Record types, each backed by a GPU record in engine/model and its embedded WGSL.
const (
	AnnotationArgMeshlet         AnnotationArg = "meshlet"
	AnnotationArgMesh            AnnotationArg = "mesh"
	AnnotationArgMeshInstance    AnnotationArg = "mesh_instance"
	AnnotationArgDrawCommand     AnnotationArg = "draw_command"
	AnnotationArgDrawCounts      AnnotationArg = "draw_counts"
	AnnotationArgDrawCountsView  AnnotationArg = "draw_counts_view"
	AnnotationArgDrawArgs        AnnotationArg = "draw_args"
	AnnotationArgVisibleMeshlet  AnnotationArg = "visible_meshlet"
	AnnotationArgFrameUniforms   AnnotationArg = "frame_uniforms"
	AnnotationArgVertexAttribute AnnotationArg = "vertex_attribute"
)

// Injection slots.
const (
	// AnnotationArgVisibility is the slot of fn is_visible(instance: MeshInstance, mesh: Mesh) -> bool.
	AnnotationArgVisibility AnnotationArg = "visibility"

	// AnnotationArgConePasses is the slot of const CONE_CULLED_PASSES: u32, a bit per render pass.
	AnnotationArgConePasses AnnotationArg = "cone_passes"
)

// recordType is the WGSL struct behind a record type argument.
type recordType struct {
	source string
	name   string
}

var recordTypes = map[AnnotationArg]recordType{
	AnnotationArgMeshlet:         {model.GPUMeshletSource, "Meshlet"},
	AnnotationArgMesh:            {model.GPUMeshSource, "Mesh"},
	AnnotationArgMeshInstance:    {model.GPUMeshInstanceSource, "MeshInstance"},
	AnnotationArgDrawCommand:     {model.GPUDrawCommandSource, "DrawCommand"},
	AnnotationArgDrawCounts:      {model.GPUDrawCountsSource, "DrawCounts"},
	AnnotationArgDrawCountsView:  {model.GPUDrawCountsViewSource, "DrawCountsView"},
	AnnotationArgDrawArgs:        {model.GPUDrawArgsSource, "DrawArgs"},
	AnnotationArgVisibleMeshlet:  {model.GPUVisibleMeshletSource, "VisibleMeshlet"},
	AnnotationArgFrameUniforms:   {model.GPUFrameUniformsSource, "FrameUniforms"},
	AnnotationArgVertexAttribute: {model.GPUVertexAttributeSource, "VertexAttribute"},
}

// addressSpaces maps address space arguments to their var declaration prefix.
var addressSpaces = map[AnnotationArg]string{
	"storage_uniform":    "var<uniform>",
	"storage_read":       "var<storage, read>",
	"storage_read_write": "var<storage, read_write>",
}

var injectionSlots = map[AnnotationArg]bool{
	AnnotationArgVisibility: true,
	AnnotationArgConePasses: true,
}

// Annotation is one parsed annotation line.
type Annotation struct {
	Type AnnotationType

	// Args are the keyword arguments: the record type for include, the address space,
	// variable name and type for group, the slot for inject.
	Args []AnnotationArg

	// Line is 1-based.
	Line int

	// Group and Binding are set for group annotations.
	Group   int
	Binding int
}

// wgslType resolves the type argument of a group annotation, e.g. array<meshlet> to
// array<Meshlet>.
func wgslType(arg AnnotationArg) (string, bool) {
	if inner, ok := strings.CutPrefix(string(arg), "array<"); ok {
		rt, ok := recordTypes[AnnotationArg(strings.TrimSuffix(inner, ">"))]
		return "array<" + rt.name + ">", ok
	}
	rt, ok := recordTypes[arg]
	return rt.name, ok
}

// parseAnnotation parses a source line. Lines without the prefix yield nil and no error.
//
// Parameters:
//   - line: the WGSL source line
//   - lineNum: the 1-based line number used in errors
//
// Returns:
//   - *Annotation: the annotation, or nil for ordinary lines
//   - error: a description of a malformed annotation
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	_, body, ok := strings.Cut(strings.TrimSpace(line), annotationPrefix)
	if !ok {
		return nil, nil
	}
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}
	fail := func(format string, args ...any) (*Annotation, error) {
		return nil, fmt.Errorf("line %d: "+format, append([]any{lineNum}, args...)...)
	}

	a := &Annotation{Type: AnnotationType(fields[0]), Line: lineNum}
	args := fields[1:]
	switch a.Type {
	case annotationTypeInclude:
		if len(args) != 1 {
			return fail("@oxy include annotation requires exactly one argument")
		}
		if _, ok := recordTypes[AnnotationArg(args[0])]; !ok {
			return fail("unknown struct type %q in @oxy include annotation", args[0])
		}

	case AnnotationTypeBindingGroup:
		if len(args) != 5 {
			return fail("@oxy group annotation requires exactly five arguments (group, binding, address space, var name, type)")
		}
		var err error
		if a.Group, err = strconv.Atoi(args[0]); err != nil {
			return fail("invalid group number %q in @oxy group annotation: %v", args[0], err)
		}
		if a.Binding, err = strconv.Atoi(args[1]); err != nil {
			return fail("invalid binding number %q in @oxy group annotation: %v", args[1], err)
		}
		if _, ok := addressSpaces[AnnotationArg(args[2])]; !ok {
			return fail("unknown address space %q in @oxy group annotation", args[2])
		}
		if _, ok := wgslType(AnnotationArg(args[4])); !ok {
			if strings.HasPrefix(args[4], "array<") {
				return fail("unknown array element type %q in @oxy group annotation", args[4])
			}
			return fail("unknown struct type %q in @oxy group annotation", args[4])
		}
		args = args[2:]

	case AnnotationTypeInject:
		if len(args) != 1 {
			return fail("@oxy inject annotation requires exactly one argument")
		}
		if !injectionSlots[AnnotationArg(args[0])] {
			return fail("unknown injection slot %q in @oxy inject annotation", args[0])
		}

	default:
		return fail("unknown @oxy annotation type %q", fields[0])
	}

	for _, arg := range args {
		a.Args = append(a.Args, AnnotationArg(arg))
	}
	return a, nil
}
