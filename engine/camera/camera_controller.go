package camera

// CameraController owns the eye and target of a camera. The eye orbits the target on a sphere
// described by radius, azimuth and elevation.
type CameraController interface {
	// Position returns the world-space eye position.
	Position() [3]float32

	// Target returns the world-space look-at point.
	Target() [3]float32

	// SetTarget moves the pivot point and recomputes the eye position.
	SetTarget(target [3]float32)

	// Radius returns the distance between eye and target.
	Radius() float32

	// SetRadius sets the orbit radius, clamped to the radius bounds.
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle around the Y axis in radians.
	Azimuth() float32

	// SetAzimuth sets the horizontal angle in radians.
	SetAzimuth(azimuth float32)

	// Elevation returns the vertical angle above the horizontal plane in radians.
	Elevation() float32

	// SetElevation sets the vertical angle, clamped to the elevation bounds.
	SetElevation(elevation float32)

	// Orbit rotates the eye around the target by the given angles.
	//
	// Parameters:
	//   - dAzimuth: horizontal rotation in radians
	//   - dElevation: vertical rotation in radians
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves the eye toward the target. Positive delta zooms in.
	//
	// Parameters:
	//   - delta: zoom amount, scaled by the zoom speed
	Zoom(delta float32)

	// Drag orbits by a cursor movement, scaled by the mouse sensitivity.
	//
	// Parameters:
	//   - dx, dy: cursor delta in pixels
	Drag(dx, dy float32)

	// HandleKey applies one orbit or zoom step for a movement key.
	//
	// Parameters:
	//   - keyCode: a common.Key* code
	//
	// Returns:
	//   - bool: true if the key moved the camera
	HandleKey(keyCode uint32) bool

	// Advance applies the automatic orbit for an elapsed time. It does nothing when the
	// auto-orbit speed is zero.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Advance(dt float32)
}
