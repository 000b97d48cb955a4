package dataset

import (
	"math"
	"math/rand"
	"time"

	"github.com/df07/go-multiview-renderer/pkg/core"
)

const (
	thetaJitter  = math.Pi / 50 // Azimuth jitter around the evenly spaced angle
	phiBand      = math.Pi / 18 // Polar band half-width around the equator
	radiusJitter = 0.1
)

// CameraSample is one randomized camera position on the viewing sphere
type CameraSample struct {
	Position core.Vec3
	Theta    float64 // Azimuth in radians
	Phi      float64 // Polar angle from +Z in radians
	Radius   float64 // Jittered distance from the origin
}

// CameraSampler draws near-equatorial camera positions spread evenly in azimuth
type CameraSampler struct {
	random *rand.Rand
}

// NewCameraSampler creates a sampler drawing from random; nil seeds one from the clock
func NewCameraSampler(random *rand.Rand) *CameraSampler {
	if random == nil {
		random = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &CameraSampler{random: random}
}

// Sample returns the camera position for view i of n at the given nominal radius
func (s *CameraSampler) Sample(i, n int, radius float64) CameraSample {
	theta := float64(i)/float64(n)*2*math.Pi + s.uniform(-thetaJitter, thetaJitter)
	phi := s.uniform(math.Pi/2-phiBand, math.Pi/2+phiBand)
	r := radius + s.uniform(-radiusJitter, radiusJitter)

	return CameraSample{
		Position: core.NewVec3(
			r*math.Sin(phi)*math.Cos(theta),
			r*math.Sin(phi)*math.Sin(theta),
			r*math.Cos(phi),
		),
		Theta:  theta,
		Phi:    phi,
		Radius: r,
	}
}

// Place samples view i of n and aims the host camera from there at the origin
func (s *CameraSampler) Place(host SceneHost, i, n int, radius float64) CameraSample {
	sample := s.Sample(i, n, radius)
	host.SetCameraPose(sample.Position, core.Vec3{})
	return sample
}

func (s *CameraSampler) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.random.Float64()
}
