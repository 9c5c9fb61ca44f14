package camera

// CameraBuilderOption configures a camera before its first matrix update.
type CameraBuilderOption func(*cameraImpl)

// WithLens replaces the whole projection. A non-positive aspect keeps the current one.
//
// Parameters:
//   - lens: the projection settings
//
// Returns:
//   - CameraBuilderOption: a function that sets the lens
func WithLens(lens Lens) CameraBuilderOption {
	return func(c *cameraImpl) {
		if lens.Aspect <= 0 {
			lens.Aspect = c.lens.Aspect
		}
		c.lens = lens
	}
}

// WithAspect sets the initial aspect ratio; non-positive values are ignored.
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if aspect > 0 {
			c.lens.Aspect = aspect
		}
	}
}

// WithDepthRange sets the near and far plane distances. Scenes larger than the default range
// need a larger far plane or their far instances are clipped and frustum-culled.
func WithDepthRange(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lens.Near, c.lens.Far = near, far
	}
}

// WithController attaches the controller whose pose Update samples.
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
