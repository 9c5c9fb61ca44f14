package model

// MeshBuilderOption is a functional option for configuring a Mesh via NewMesh.
type MeshBuilderOption func(*Mesh)

// WithParts is an option builder that sets the material parts of the Mesh.
//
// Parameters:
//   - parts: the material-indexed index ranges
//
// Returns:
//   - MeshBuilderOption: a function that applies the parts option to a mesh
func WithParts(parts ...MeshPart) MeshBuilderOption {
	return func(m *Mesh) {
		m.Parts = parts
	}
}

// WithAlphaMode is an option builder that sets a single part covering the whole index
// buffer with the given alpha mode.
//
// Parameters:
//   - mode: the alpha mode of the mesh
//
// Returns:
//   - MeshBuilderOption: a function that applies the alpha mode option to a mesh
func WithAlphaMode(mode AlphaMode) MeshBuilderOption {
	return func(m *Mesh) {
		m.Parts = []MeshPart{{IndexCount: uint32(len(m.Indices)), AlphaMode: mode}}
	}
}

// WithTransforms is an option builder that sets the scene placements of the Mesh.
//
// Parameters:
//   - transforms: the column-major model matrices, one per placement
//
// Returns:
//   - MeshBuilderOption: a function that applies the transforms option to a mesh
func WithTransforms(transforms ...[16]float32) MeshBuilderOption {
	return func(m *Mesh) {
		m.Transforms = transforms
	}
}
