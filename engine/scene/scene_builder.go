package scene

import "github.com/Carmen-Shannon/oxy-meshlet/engine/meshlet"

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName sets the scene's identifier used in logs.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithStore sets the meshlet store the scene builds into. The scene does not close it.
//
// Parameters:
//   - store: the meshlet store
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithStore(store meshlet.Store) SceneBuilderOption {
	return func(s *scene) {
		s.store = store
	}
}

// WithVisibility sets the instance visibility predicate compiled into the cull pass.
//
// Parameters:
//   - test: the predicate
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithVisibility(test VisibilityTest) SceneBuilderOption {
	return func(s *scene) {
		if test != nil {
			s.visibility = test
		}
	}
}

// WithFramesInFlight sets the number of per-frame buffer slots. Values below 1 are raised to 1.
//
// Parameters:
//   - n: the number of frames the CPU may record ahead of the GPU
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithFramesInFlight(n int) SceneBuilderOption {
	return func(s *scene) {
		s.framesInFlight = max(n, 1)
	}
}
