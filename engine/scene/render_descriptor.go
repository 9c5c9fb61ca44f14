package scene

// RenderDescriptor carries the per-frame inputs of Render.
type RenderDescriptor struct {
	// DepthPyramidIndex selects the occlusion source a later occlusion test reads. It is
	// forwarded into the draw counts record unchanged.
	DepthPyramidIndex uint32

	// LatePass marks the re-test pass of two-phase occlusion culling.
	LatePass bool

	// ViewProj is the column-major view-projection matrix of the frame.
	ViewProj [16]float32

	// CameraPosition is the world-space eye position used by cone culling.
	CameraPosition [3]float32
}
