package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-meshlet/common"
	"github.com/chewxy/math32"
)

// orbitController is the implementation of CameraController.
type orbitController struct {
	mu *sync.Mutex

	position [3]float32
	target   [3]float32

	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed       float32 // radians per key step
	autoOrbitSpeed   float32 // radians per second
	mouseSensitivity float32 // radians per pixel
	zoomSpeed        float32
}

var _ CameraController = &orbitController{}

// NewCameraController creates an orbit controller looking at the origin from 60 units away
// and 30 degrees above the ground plane.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &orbitController{
		mu:        &sync.Mutex{},
		radius:    60.0,
		elevation: float32(math.Pi / 6),

		minRadius:    2.0,
		maxRadius:    400.0,
		minElevation: -float32(math.Pi/2 - 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),

		orbitSpeed:       0.05,
		mouseSensitivity: 0.005,
		zoomSpeed:        2.0,
	}
	for _, option := range options {
		option(cc)
	}
	cc.clamp()
	cc.updatePosition()
	return cc
}

// clamp applies the radius and elevation bounds. Caller must hold the mutex.
func (cc *orbitController) clamp() {
	cc.radius = math32.Min(math32.Max(cc.radius, cc.minRadius), cc.maxRadius)
	cc.elevation = math32.Min(math32.Max(cc.elevation, cc.minElevation), cc.maxElevation)
}

// updatePosition recomputes the eye from the spherical coordinates. Caller must hold the mutex.
func (cc *orbitController) updatePosition() {
	cosElev, sinElev := math32.Cos(cc.elevation), math32.Sin(cc.elevation)
	cosAzim, sinAzim := math32.Cos(cc.azimuth), math32.Sin(cc.azimuth)
	cc.position = common.Add3(cc.target, [3]float32{
		cc.radius * cosElev * sinAzim,
		cc.radius * sinElev,
		cc.radius * cosElev * cosAzim,
	})
}

func (cc *orbitController) Position() [3]float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *orbitController) Target() [3]float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *orbitController) SetTarget(target [3]float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.updatePosition()
}

func (cc *orbitController) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *orbitController) SetRadius(radius float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = radius
	cc.clamp()
	cc.updatePosition()
}

func (cc *orbitController) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *orbitController) SetAzimuth(azimuth float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth = azimuth
	cc.updatePosition()
}

func (cc *orbitController) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *orbitController) SetElevation(elevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.elevation = elevation
	cc.clamp()
	cc.updatePosition()
}

func (cc *orbitController) Orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.orbit(dAzimuth, dElevation)
}

// orbit is Orbit with the mutex held. The azimuth wraps to [0, 2π).
func (cc *orbitController) orbit(dAzimuth, dElevation float32) {
	cc.azimuth = math32.Mod(cc.azimuth+dAzimuth, 2*math32.Pi)
	if cc.azimuth < 0 {
		cc.azimuth += 2 * math32.Pi
	}
	cc.elevation += dElevation
	cc.clamp()
	cc.updatePosition()
}

func (cc *orbitController) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius -= delta * cc.zoomSpeed
	cc.clamp()
	cc.updatePosition()
}

func (cc *orbitController) Drag(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.orbit(-dx*cc.mouseSensitivity, dy*cc.mouseSensitivity)
}

func (cc *orbitController) HandleKey(keyCode uint32) bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	switch keyCode {
	case common.KeyA, common.KeyLeft:
		cc.orbit(-cc.orbitSpeed, 0)
	case common.KeyD, common.KeyRight:
		cc.orbit(cc.orbitSpeed, 0)
	case common.KeyW, common.KeyUp:
		cc.orbit(0, cc.orbitSpeed)
	case common.KeyS, common.KeyDown:
		cc.orbit(0, -cc.orbitSpeed)
	case common.KeyE:
		cc.radius -= cc.zoomSpeed
		cc.clamp()
		cc.updatePosition()
	case common.KeyQ:
		cc.radius += cc.zoomSpeed
		cc.clamp()
		cc.updatePosition()
	default:
		return false
	}
	return true
}

func (cc *orbitController) Advance(dt float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.autoOrbitSpeed == 0 || dt <= 0 {
		return
	}
	cc.orbit(cc.autoOrbitSpeed*dt, 0)
}
