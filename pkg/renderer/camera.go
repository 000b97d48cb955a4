package renderer

import (
	"math"
	"math/rand"

	"github.com/df07/go-multiview-renderer/pkg/core"
)

// CameraConfig describes a pinhole camera by its world transform and optics
type CameraConfig struct {
	World         core.Mat4 // Camera-to-world transform; the camera looks down its local -Z
	Width         int       // Image width in pixels
	Height        int       // Image height in pixels
	LensMM        float64   // Focal length in millimetres
	SensorWidthMM float64   // Sensor size along the larger image dimension
}

// Camera generates primary rays for rendering
type Camera struct {
	origin                  core.Vec3
	right, up, forward      core.Vec3
	halfWidth, halfHeight   float64
	imageWidth, imageHeight int
}

// NewCamera builds a camera; the sensor fits the larger image dimension
func NewCamera(config CameraConfig) *Camera {
	location, rotation, _ := config.World.Decompose()

	halfFov := math.Atan(config.SensorWidthMM / 2 / config.LensMM)
	halfWidth := math.Tan(halfFov)
	halfHeight := halfWidth
	aspect := float64(config.Width) / float64(config.Height)
	if aspect >= 1 {
		halfHeight = halfWidth / aspect
	} else {
		halfWidth = halfHeight * aspect
	}

	return &Camera{
		origin:      location,
		right:       rotation.Column(0),
		up:          rotation.Column(1),
		forward:     rotation.Column(2).Negate(),
		halfWidth:   halfWidth,
		halfHeight:  halfHeight,
		imageWidth:  config.Width,
		imageHeight: config.Height,
	}
}

// HorizontalFOV returns the horizontal field of view in radians
func (c *Camera) HorizontalFOV() float64 {
	return 2 * math.Atan(c.halfWidth)
}

// GetRay returns a jittered ray through pixel (i, j); j = 0 is the top row
func (c *Camera) GetRay(i, j int, random *rand.Rand) core.Ray {
	u := (float64(i)+random.Float64())/float64(c.imageWidth)*2 - 1
	v := 1 - (float64(j)+random.Float64())/float64(c.imageHeight)*2
	return c.rayThrough(u, v)
}

// rayThrough returns the ray through normalized device coordinates u, v in [-1, 1]
func (c *Camera) rayThrough(u, v float64) core.Ray {
	direction := c.forward.
		Add(c.right.Multiply(u * c.halfWidth)).
		Add(c.up.Multiply(v * c.halfHeight))
	return core.NewRay(c.origin, direction.Normalize())
}
