package shader

import (
	"strconv"
	"strings"
)

// TypeLayout is the size and alignment of a WGSL type in host-shareable memory.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
type TypeLayout struct {
	Size  uint64
	Align uint64
}

// FieldLayout is the placement of one struct member.
type FieldLayout struct {
	Name   string
	Offset uint64
	Size   uint64
}

// StructLayout is the host-shareable layout of a WGSL struct. A trailing runtime-sized array
// counts as one element.
type StructLayout struct {
	Name   string
	Size   uint64
	Align  uint64
	Fields []FieldLayout
}

// Field returns the layout of the named member.
//
// Parameters:
//   - name: the member name
//
// Returns:
//   - FieldLayout: the member's offset and size
//   - bool: false if the struct has no such member
func (l StructLayout) Field(name string) (FieldLayout, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldLayout{}, false
}

// structField is a member as written in the source.
type structField struct {
	name     string
	typeName string
	builtin  bool
}

// shorthandScalars maps the suffix of predeclared aliases such as vec3f or mat4x4h to their
// component type.
var shorthandScalars = map[byte]string{'f': "f32", 'i': "i32", 'u': "u32", 'h': "f16"}

// alignUp rounds v up to a multiple of align, which must be a power of two.
func alignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

func scalarLayout(name string) (TypeLayout, bool) {
	switch name {
	case "f32", "i32", "u32", "bool":
		return TypeLayout{4, 4}, true
	case "f16":
		return TypeLayout{2, 2}, true
	}
	return TypeLayout{}, false
}

// vectorLayout returns the layout of an n-component vector. vec3 aligns like vec4.
func vectorLayout(n int, component TypeLayout) TypeLayout {
	size := uint64(n) * component.Size
	if n == 2 {
		return TypeLayout{size, size}
	}
	return TypeLayout{size, 4 * component.Size}
}

// splitGeneric splits "vec3<f32>" into "vec3" and "f32".
func splitGeneric(t string) (head, arg string, ok bool) {
	open := strings.IndexByte(t, '<')
	if open < 0 || !strings.HasSuffix(t, ">") {
		return t, "", false
	}
	return strings.TrimSpace(t[:open]), strings.TrimSpace(t[open+1 : len(t)-1]), true
}

// dimension decodes a single digit vector or matrix dimension.
func dimension(b byte) (int, bool) {
	n := int(b) - '0'
	return n, n >= 2 && n <= 4
}

// layoutResolver computes type layouts on demand. Structs are resolved recursively and
// memoized; a struct that refers to itself does not resolve.
type layoutResolver struct {
	declared map[string][]structField
	resolved map[string]StructLayout
	visiting map[string]bool
}

func newLayoutResolver(declared map[string][]structField) *layoutResolver {
	return &layoutResolver{
		declared: declared,
		resolved: make(map[string]StructLayout, len(declared)),
		visiting: make(map[string]bool),
	}
}

// typeLayout resolves a scalar, vector, matrix, atomic, array or declared struct type.
// A runtime-sized array resolves to the layout of one element.
func (r *layoutResolver) typeLayout(t string) (TypeLayout, bool) {
	t = strings.TrimSpace(t)
	if l, ok := scalarLayout(t); ok {
		return l, true
	}

	head, arg, generic := splitGeneric(t)
	if !generic {
		if n := len(t); n > 1 && (strings.HasPrefix(t, "vec") || strings.HasPrefix(t, "mat")) {
			if component, ok := shorthandScalars[t[n-1]]; ok {
				return r.typeLayout(t[:n-1] + "<" + component + ">")
			}
		}
		s, ok := r.structLayout(t)
		return TypeLayout{s.Size, s.Align}, ok
	}

	switch {
	case head == "atomic":
		return scalarLayout(arg)

	case head == "array":
		parts := splitTopLevel(arg, ',')
		elem, ok := r.typeLayout(parts[0])
		if !ok {
			return TypeLayout{}, false
		}
		count := uint64(1)
		if len(parts) == 2 {
			n, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
			if err != nil {
				return TypeLayout{}, false
			}
			count = n
		}
		return TypeLayout{count * alignUp(elem.Size, elem.Align), elem.Align}, true

	case len(head) == 4 && strings.HasPrefix(head, "vec"):
		n, ok := dimension(head[3])
		component, scalar := scalarLayout(arg)
		if !ok || !scalar {
			return TypeLayout{}, false
		}
		return vectorLayout(n, component), true

	case len(head) == 6 && strings.HasPrefix(head, "mat") && head[4] == 'x':
		cols, okCols := dimension(head[3])
		rows, okRows := dimension(head[5])
		component, scalar := scalarLayout(arg)
		if !okCols || !okRows || !scalar {
			return TypeLayout{}, false
		}
		column := vectorLayout(rows, component)
		return TypeLayout{uint64(cols) * alignUp(column.Size, column.Align), column.Align}, true
	}
	return TypeLayout{}, false
}

// structLayout places each non-builtin member at the next offset aligned for its type and
// rounds the size up to the largest member alignment.
func (r *layoutResolver) structLayout(name string) (StructLayout, bool) {
	if l, ok := r.resolved[name]; ok {
		return l, true
	}
	fields, ok := r.declared[name]
	if !ok || r.visiting[name] {
		return StructLayout{}, false
	}
	r.visiting[name] = true
	defer delete(r.visiting, name)

	l := StructLayout{Name: name, Align: 1}
	var offset uint64
	for _, f := range fields {
		if f.builtin {
			continue
		}
		fl, ok := r.typeLayout(f.typeName)
		if !ok {
			return StructLayout{}, false
		}
		offset = alignUp(offset, fl.Align)
		l.Fields = append(l.Fields, FieldLayout{Name: f.name, Offset: offset, Size: fl.Size})
		offset += fl.Size
		l.Align = max(l.Align, fl.Align)
	}
	l.Size = alignUp(offset, l.Align)
	r.resolved[name] = l
	return l, true
}

// all resolves every declared struct, skipping those that cannot be laid out.
func (r *layoutResolver) all() map[string]StructLayout {
	for name := range r.declared {
		r.structLayout(name)
	}
	return r.resolved
}
