package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// structRegex captures a struct's name and body.
	structRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// memberRegex captures a member's attributes, name and type.
	memberRegex = regexp.MustCompile(`^((?:@\w+(?:\([^)]*\))?\s*)*)(\w+)\s*:\s*(.+)$`)

	// entryRegex captures the stage attribute and name of each entry point.
	entryRegex = regexp.MustCompile(`@(vertex|fragment|compute)\b[^{;]*?\bfn\s+(\w+)`)

	// workgroupSizeRegex captures 1-3 dimensions of @workgroup_size(x[, y[, z]]).
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindingRegex captures group, binding, address space, name and type of declarations like
	// @group(0) @binding(3) var<uniform> frame: FrameUniforms;
	bindingRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// stageAttributes maps entry point attributes to shader types.
var stageAttributes = map[string]ShaderType{
	"vertex":   ShaderTypeVertex,
	"fragment": ShaderTypeFragment,
	"compute":  ShaderTypeCompute,
}

// reflection is the metadata extracted from one WGSL source.
type reflection struct {
	entryPoints   map[ShaderType]string
	workgroupSize [3]uint32
	structs       map[string]StructLayout
	groups        map[int]wgpu.BindGroupLayoutDescriptor
	varNames      map[int]map[int]string
}

// reflectWGSL extracts entry points, the workgroup size, struct layouts and bind group
// layouts from WGSL source. Every binding entry gets the given stage visibility and buffer
// bindings get the size of their bound type as MinBindingSize.
//
// Parameters:
//   - source: the WGSL source
//   - visibility: the shader stage of the bindings
//
// Returns:
//   - reflection: the extracted metadata
func reflectWGSL(source string, visibility wgpu.ShaderStage) reflection {
	src := stripComments(source)
	resolver := newLayoutResolver(declaredStructs(src))

	ref := reflection{
		entryPoints:   make(map[ShaderType]string),
		workgroupSize: workgroupSize(src),
		structs:       resolver.all(),
		groups:        make(map[int]wgpu.BindGroupLayoutDescriptor),
		varNames:      make(map[int]map[int]string),
	}

	for _, m := range entryRegex.FindAllStringSubmatch(src, -1) {
		stage := stageAttributes[m[1]]
		if _, seen := ref.entryPoints[stage]; !seen {
			ref.entryPoints[stage] = m[2]
		}
	}

	entries := make(map[int][]wgpu.BindGroupLayoutEntry)
	for _, m := range bindingRegex.FindAllStringSubmatch(src, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])

		entry := bufferEntry(uint32(binding), visibility, strings.TrimSpace(m[3]))
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if l, ok := resolver.typeLayout(m[5]); ok && l.Size > 0 {
				entry.Buffer.MinBindingSize = l.Size
			}
		}
		entries[group] = append(entries[group], entry)

		if ref.varNames[group] == nil {
			ref.varNames[group] = make(map[int]string)
		}
		ref.varNames[group][binding] = m[4]
	}
	for group, list := range entries {
		sort.Slice(list, func(i, j int) bool { return list[i].Binding < list[j].Binding })
		ref.groups[group] = wgpu.BindGroupLayoutDescriptor{Entries: list}
	}
	return ref
}

// declaredStructs collects the members of every struct in comment-free source.
func declaredStructs(src string) map[string][]structField {
	declared := make(map[string][]structField)
	for _, m := range structRegex.FindAllStringSubmatch(src, -1) {
		var fields []structField
		for _, member := range splitTopLevel(m[2], ',') {
			fm := memberRegex.FindStringSubmatch(strings.TrimSpace(member))
			if fm == nil {
				continue
			}
			fields = append(fields, structField{
				name:     fm[2],
				typeName: strings.TrimSpace(fm[3]),
				builtin:  strings.Contains(fm[1], "@builtin"),
			})
		}
		declared[m[1]] = fields
	}
	return declared
}

// workgroupSize returns the first @workgroup_size in the source. Missing dimensions are 1.
func workgroupSize(src string) [3]uint32 {
	size := [3]uint32{1, 1, 1}
	m := workgroupSizeRegex.FindStringSubmatch(src)
	if m == nil {
		return size
	}
	for i, dim := range m[1:] {
		if v, err := strconv.ParseUint(dim, 10, 32); err == nil {
			size[i] = uint32(v)
		}
	}
	return size
}

// bufferEntry builds the layout entry of a buffer declaration. A declaration without a
// uniform or storage address space yields an undefined buffer type.
func bufferEntry(binding uint32, visibility wgpu.ShaderStage, addressSpace string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}
	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage") && strings.Contains(addressSpace, "read_write"):
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	}
	return entry
}

// stripComments removes line comments and nested block comments in a single pass.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		c := source[i]
		var next byte
		if i+1 < len(source) {
			next = source[i+1]
		}
		switch {
		case c == '/' && next == '*':
			depth++
			i++
		case c == '*' && next == '/' && depth > 0:
			depth--
			i++
		case depth > 0:
		case c == '/' && next == '/':
			for i < len(source) && source[i] != '\n' {
				i++
			}
			if i < len(source) {
				sb.WriteByte('\n')
			}
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// splitTopLevel splits s at sep characters outside angle brackets, so array<T, 6> stays
// whole.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
