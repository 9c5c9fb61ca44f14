// Package camera computes the view-projection matrix and eye position of a frame from an orbit
// controller.
package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-meshlet/common"
)

// Lens is the perspective projection of a camera.
type Lens struct {
	// FovY is the vertical field of view in radians.
	FovY float32

	// Aspect is width / height.
	Aspect float32

	// Near and Far bound the depth range; both are positive and Near < Far.
	Near float32
	Far  float32
}

// DefaultLens is a 45 degree field of view with a square aspect and a 0.1 to 500 depth range.
func DefaultLens() Lens {
	return Lens{FovY: 45 * math.Pi / 180, Aspect: 1, Near: 0.1, Far: 500}
}

// Camera turns the pose of a CameraController into the matrices a frame is rendered and
// culled with. The matrices only change when Update or a setter runs, so a frame reads one
// consistent snapshot.
type Camera interface {
	// Lens returns the current projection settings.
	Lens() Lens

	// Aspect returns width / height.
	Aspect() float32

	// Position returns the eye position captured by the last Update.
	//
	// Returns:
	//   - [3]float32: world-space eye position
	Position() [3]float32

	// ViewProjectionMatrix returns projection * view in column-major order, with clip depth
	// in [0, 1]. Frustum planes are extracted from it.
	//
	// Returns:
	//   - [16]float32: the combined matrix
	ViewProjectionMatrix() [16]float32

	// Controller returns the attached controller, or nil.
	Controller() CameraController

	// Update samples the controller pose and recomputes the matrices.
	Update()

	// SetAspect changes the aspect ratio. Non-positive values are ignored so a minimized
	// window leaves the last valid projection in place.
	//
	// Parameters:
	//   - aspect: width / height
	SetAspect(aspect float32)
}

type cameraImpl struct {
	mu sync.Mutex

	lens Lens
	up   [3]float32

	controller CameraController

	eye      [3]float32
	view     [16]float32
	viewProj [16]float32
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera with DefaultLens and +Y up.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		lens: DefaultLens(),
		up:   [3]float32{0, 1, 0},
	}
	common.Identity(c.view[:])
	for _, option := range options {
		option(c)
	}
	c.recompute()
	return c
}

func (c *cameraImpl) Lens() Lens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lens
}

func (c *cameraImpl) Aspect() float32 {
	return c.Lens().Aspect
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProj
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recompute()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lens.Aspect = aspect
	c.recompute()
}

// recompute rebuilds the matrices. Without a controller the view stays at its last value.
// Caller must hold the mutex.
func (c *cameraImpl) recompute() {
	if c.controller != nil {
		c.eye = c.controller.Position()
		common.LookAt(c.view[:], c.eye, c.controller.Target(), c.up)
	}
	var proj [16]float32
	common.Perspective(proj[:], c.lens.FovY, c.lens.Aspect, c.lens.Near, c.lens.Far)
	common.Mul4(c.viewProj[:], proj[:], c.view[:])
}
