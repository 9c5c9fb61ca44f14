package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-meshlet/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clip(m [16]float32, p [3]float32) [4]float32 {
	var out [4]float32
	for r := range 4 {
		out[r] = m[r]*p[0] + m[4+r]*p[1] + m[8+r]*p[2] + m[12+r]
	}
	return out
}

func TestControllerDefaults(t *testing.T) {
	cc := NewCameraController()
	pos := cc.Position()

	assert.InDelta(t, 0, pos[0], 1e-4)
	assert.InDelta(t, 30, pos[1], 1e-3)
	assert.InDelta(t, 60*math.Cos(math.Pi/6), pos[2], 1e-3)
	assert.Equal(t, [3]float32{}, cc.Target())
}

func TestControllerClamps(t *testing.T) {
	cc := NewCameraController(WithRadiusBounds(5, 50))

	cc.SetRadius(1000)
	assert.Equal(t, float32(50), cc.Radius())
	cc.Zoom(100)
	assert.Equal(t, float32(5), cc.Radius())

	cc.SetElevation(10)
	assert.Less(t, cc.Elevation(), float32(math.Pi/2))
}

func TestControllerKeysAndDrag(t *testing.T) {
	cc := NewCameraController(WithOrbitSpeed(0.1), WithZoomSpeed(1))

	assert.True(t, cc.HandleKey(common.KeyD))
	assert.InDelta(t, 0.1, cc.Azimuth(), 1e-6)

	assert.True(t, cc.HandleKey(common.KeyLeft))
	assert.True(t, cc.HandleKey(common.KeyLeft))
	assert.InDelta(t, 2*math.Pi-0.1, cc.Azimuth(), 1e-5)

	r := cc.Radius()
	assert.True(t, cc.HandleKey(common.KeyE))
	assert.Equal(t, r-1, cc.Radius())

	assert.False(t, cc.HandleKey(common.KeySpace))

	elev := cc.Elevation()
	cc.Drag(0, 20)
	assert.Greater(t, cc.Elevation(), elev)
}

func TestControllerAdvance(t *testing.T) {
	still := NewCameraController()
	still.Advance(1)
	assert.Zero(t, still.Azimuth())

	spinning := NewCameraController(WithAutoOrbit(0.5))
	spinning.Advance(2)
	assert.InDelta(t, 1, spinning.Azimuth(), 1e-6)
}

func TestCameraProjectsTargetToCenter(t *testing.T) {
	cc := NewCameraController(WithTarget([3]float32{4, 0, -2}), WithRadius(20))
	c := NewCamera(WithController(cc), WithAspect(16.0/9.0))

	assert.Equal(t, cc.Position(), c.Position())

	p := clip(c.ViewProjectionMatrix(), cc.Target())
	require.Greater(t, p[3], float32(0))
	assert.InDelta(t, 0, p[0]/p[3], 1e-4)
	assert.InDelta(t, 0, p[1]/p[3], 1e-4)
	assert.Greater(t, p[2]/p[3], float32(0))
	assert.Less(t, p[2]/p[3], float32(1))

	vp := c.ViewProjectionMatrix()
	frustum := common.ExtractFrustumFromMatrix(vp[:])
	assert.True(t, frustum.SphereVisible(cc.Target(), 1))
	behind := common.Add3(cc.Position(), common.Sub3(cc.Position(), cc.Target()))
	assert.False(t, frustum.SphereVisible(behind, 1))
}

func TestCameraUpdateFollowsController(t *testing.T) {
	cc := NewCameraController()
	c := NewCamera(WithController(cc))
	before := c.ViewProjectionMatrix()

	cc.Orbit(0.5, 0)
	assert.Equal(t, before, c.ViewProjectionMatrix())

	c.Update()
	assert.NotEqual(t, before, c.ViewProjectionMatrix())
	assert.Equal(t, cc.Position(), c.Position())
}

func TestCameraSetAspectIgnoresZero(t *testing.T) {
	c := NewCamera(WithAspect(2))
	c.SetAspect(0)
	assert.Equal(t, float32(2), c.Aspect())

	c.SetAspect(1.5)
	assert.Equal(t, float32(1.5), c.Aspect())
}

func TestCameraLens(t *testing.T) {
	c := NewCamera()
	assert.Equal(t, DefaultLens(), c.Lens())

	c = NewCamera(WithLens(Lens{FovY: 1, Near: 1, Far: 10}), WithDepthRange(0.5, 20))
	lens := c.Lens()
	assert.Equal(t, float32(1), lens.FovY)
	assert.Equal(t, float32(1), lens.Aspect)
	assert.Equal(t, float32(0.5), lens.Near)
	assert.Equal(t, float32(20), lens.Far)
}
