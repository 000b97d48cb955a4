package dataset

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-multiview-renderer/pkg/core"
)

func TestCameraSampleRanges(t *testing.T) {
	sampler := NewCameraSampler(rand.New(rand.NewSource(1)))
	tests := []struct {
		n      int
		radius float64
	}{
		{8, 1.2},
		{12, 1.5},
		{1, 2.0},
		{36, 1.2},
	}

	for _, tt := range tests {
		for i := 0; i < tt.n; i++ {
			for draw := 0; draw < 50; draw++ {
				s := sampler.Sample(i, tt.n, tt.radius)

				base := 2 * math.Pi * float64(i) / float64(tt.n)
				require.LessOrEqual(t, math.Abs(s.Theta-base), math.Pi/50+1e-12)
				require.GreaterOrEqual(t, s.Phi, math.Pi/2-math.Pi/18)
				require.LessOrEqual(t, s.Phi, math.Pi/2+math.Pi/18)
				require.LessOrEqual(t, math.Abs(s.Radius-tt.radius), 0.1+1e-12)

				require.InDelta(t, s.Radius, s.Position.Length(), 1e-9)
				require.InDelta(t, s.Radius*math.Cos(s.Phi), s.Position.Z, 1e-9)
				require.InDelta(t, s.Radius*math.Sin(s.Phi)*math.Cos(s.Theta), s.Position.X, 1e-9)
				require.InDelta(t, s.Radius*math.Sin(s.Phi)*math.Sin(s.Theta), s.Position.Y, 1e-9)
			}
		}
	}
}

func TestCameraSampleStaysNearEquator(t *testing.T) {
	sampler := NewCameraSampler(rand.New(rand.NewSource(7)))
	limit := 1.3 * math.Sin(math.Pi/18)
	for i := 0; i < 1000; i++ {
		s := sampler.Sample(i%8, 8, 1.2)
		assert.LessOrEqual(t, math.Abs(s.Position.Z), limit+1e-12)
	}
}

func TestCameraSamplerJitters(t *testing.T) {
	sampler := NewCameraSampler(rand.New(rand.NewSource(3)))
	a := sampler.Sample(0, 8, 1.2)
	b := sampler.Sample(0, 8, 1.2)
	assert.NotEqual(t, a.Position, b.Position)
}

func TestCameraSamplerDefaultSource(t *testing.T) {
	s := NewCameraSampler(nil).Sample(2, 4, 1.2)
	assert.InDelta(t, math.Pi, s.Theta, math.Pi/50)
}

func TestPlaceAimsAtOrigin(t *testing.T) {
	host := newFakeHost(core.NewAABB(core.Vec3{}, core.NewVec3(1, 1, 1)))
	sampler := NewCameraSampler(rand.New(rand.NewSource(11)))

	for i := 0; i < 8; i++ {
		s := sampler.Place(host, i, 8, 1.2)
		location, rotation, _ := host.CameraWorldMatrix().Decompose()
		assert.InDelta(t, 0, location.Subtract(s.Position).Length(), 1e-12)

		forward := rotation.Column(2).Negate()
		assert.InDelta(t, 1, forward.Dot(s.Position.Negate().Normalize()), 1e-9)
	}
}
