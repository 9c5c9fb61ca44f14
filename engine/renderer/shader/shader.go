package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType is the pipeline stage of a shader's entry point.
type ShaderType int

const (
	// ShaderTypeCompute is a shader with a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is a shader with a @vertex entry point.
	ShaderTypeVertex

	// ShaderTypeFragment is a shader with a @fragment entry point, paired with a vertex shader.
	ShaderTypeFragment
)

// stage returns the bind group visibility of the shader type.
func (t ShaderType) stage() wgpu.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	default:
		return wgpu.ShaderStageCompute
	}
}

// Shader is processed WGSL source together with what was reflected from it: the entry point,
// bind group layouts, binding names, struct layouts and, for compute shaders, the workgroup size.
type Shader interface {
	// Key is the unique name of the shader. It also labels the shader module.
	Key() string

	// Source returns the WGSL after includes and injections were spliced in.
	Source() string

	// ShaderType returns the stage the shader was created for.
	ShaderType() ShaderType

	// EntryPoint returns the name of the first entry point declared for the shader's stage.
	EntryPoint() string

	// WorkgroupSize returns the @workgroup_size of a compute shader, [1, 1, 1] when the
	// attribute is missing and zero for other stages.
	WorkgroupSize() [3]uint32

	// Module returns the descriptor the backend compiles the shader module from.
	Module() *wgpu.ShaderModuleDescriptor

	// BindGroupLayoutDescriptor returns the reflected layout of one group.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the layout, empty if the group is unused
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors returns every reflected layout keyed by group index.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName returns the variable declared at a group and binding.
	//
	// Parameters:
	//   - group: the @group index
	//   - binding: the @binding index
	//
	// Returns:
	//   - string: the variable name, empty if nothing is bound there
	BindGroupVarName(group, binding int) string

	// BindingOf looks up the binding index of a named variable.
	//
	// Parameters:
	//   - group: the @group index
	//   - varName: the variable name
	//
	// Returns:
	//   - int: the binding index, -1 if not found
	//   - bool: whether the variable is declared in the group
	BindingOf(group int, varName string) (int, bool)

	// BindGroupVarNames returns every binding's variable name keyed by group then binding.
	BindGroupVarNames() map[int]map[int]string

	// StructLayout returns the host-shareable layout of a struct declared in the processed
	// source, including structs pulled in by @oxy:include.
	//
	// Parameters:
	//   - name: the WGSL struct name
	//
	// Returns:
	//   - StructLayout: the size, alignment and member offsets
	//   - bool: false if no such struct is declared or it cannot be laid out
	StructLayout(name string) (StructLayout, bool)

	// Declarations returns the @oxy:group annotations in source order.
	Declarations() []Annotation
}

type shader struct {
	key        string
	shaderType ShaderType
	source     string
	module     *wgpu.ShaderModuleDescriptor
	entryPoint string
	ref        reflection

	pp PreProcessor
}

var _ Shader = &shader{}

// NewShader processes and reflects WGSL source. Injections registered through options are
// spliced in first, so the reflected layouts cover bindings used by injected code. Source that
// fails to process is a programming error and panics.
//
// Parameters:
//   - key: the unique shader name
//   - shaderType: the stage of the entry point
//   - source: the raw WGSL, usually an embedded asset
//   - options: options applied before processing
//
// Returns:
//   - Shader: the processed shader
func NewShader(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) Shader {
	if source == "" {
		panic(fmt.Sprintf("shader: %s has no source", key))
	}
	s := &shader{
		key:        key,
		shaderType: shaderType,
		pp:         NewPreProcessor(),
	}
	for _, opt := range options {
		opt(s)
	}

	processed, err := s.pp.Process(source)
	if err != nil {
		panic(fmt.Sprintf("shader: failed to pre-process shader source %q: %v", key, err))
	}
	s.source = processed
	s.module = &wgpu.ShaderModuleDescriptor{
		Label:          key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: processed},
	}
	s.ref = reflectWGSL(processed, shaderType.stage())
	s.entryPoint = s.ref.entryPoints[shaderType]
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	if s.shaderType != ShaderTypeCompute {
		return [3]uint32{}
	}
	return s.ref.workgroupSize
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.ref.groups[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.ref.groups
}

func (s *shader) BindGroupVarName(group, binding int) string {
	return s.ref.varNames[group][binding]
}

func (s *shader) BindingOf(group int, varName string) (int, bool) {
	for binding, name := range s.ref.varNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) BindGroupVarNames() map[int]map[int]string {
	return s.ref.varNames
}

func (s *shader) StructLayout(name string) (StructLayout, bool) {
	l, ok := s.ref.structs[name]
	return l, ok
}

func (s *shader) Declarations() []Annotation {
	return s.pp.Declarations()
}
