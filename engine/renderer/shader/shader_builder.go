package shader

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithInjection registers WGSL source for an @oxy:inject slot in the shader.
//
// Parameters:
//   - slot: the injection slot name, e.g. AnnotationArgVisibility
//   - source: the WGSL source spliced in at the slot
//
// Returns:
//   - ShaderBuilderOption: a function that registers the injection on the shader's pre-processor
func WithInjection(slot AnnotationArg, source string) ShaderBuilderOption {
	return func(s *shader) {
		s.pp.Inject(slot, source)
	}
}
