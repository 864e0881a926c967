package shader

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithPreProcessor sets the pre-processor that expands the source before reflection.
// Without it includes cannot be resolved and any #include line is an error.
//
// Parameters:
//   - pp: the pre-processor to use
//
// Returns:
//   - ShaderBuilderOption: a function that sets the pre-processor for this shader
func WithPreProcessor(pp PreProcessor) ShaderBuilderOption {
	return func(s *shader) {
		s.pp = pp
	}
}
