package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-multiview-renderer/pkg/core"
	"github.com/df07/go-multiview-renderer/pkg/material"
)

func TestTriangleHit(t *testing.T) {
	mat := material.NewLambertian("test", material.DefaultAlbedo)
	tri := NewTriangle(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), mat)

	tests := []struct {
		name  string
		ray   core.Ray
		hit   bool
		wantT float64
	}{
		{"through interior", core.NewRay(core.NewVec3(0.2, 0.2, 1), core.NewVec3(0, 0, -1)), true, 1},
		{"from behind", core.NewRay(core.NewVec3(0.2, 0.2, -2), core.NewVec3(0, 0, 1)), true, 2},
		{"outside edge", core.NewRay(core.NewVec3(0.8, 0.8, 1), core.NewVec3(0, 0, -1)), false, 0},
		{"parallel", core.NewRay(core.NewVec3(0.2, 0.2, 1), core.NewVec3(1, 0, 0)), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec material.HitRecord
			got := tri.Hit(tt.ray, 0.001, math.Inf(1), &rec)
			if got != tt.hit {
				t.Fatalf("Hit = %v, want %v", got, tt.hit)
			}
			if !got {
				return
			}
			if math.Abs(rec.T-tt.wantT) > 1e-9 {
				t.Errorf("T = %v, want %v", rec.T, tt.wantT)
			}
			if rec.Normal.Dot(tt.ray.Direction) >= 0 {
				t.Errorf("normal %v should face the ray", rec.Normal)
			}
			if rec.Material != mat {
				t.Error("hit record lost the material")
			}
		})
	}
}

func TestDegenerateTriangle(t *testing.T) {
	tri := NewTriangle(core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 1), core.NewVec3(2, 2, 2), nil)
	if !tri.IsDegenerate() {
		t.Error("collinear triangle should be degenerate")
	}
}

// TestBVHMatchesBruteForce checks the BVH against testing every triangle
func TestBVHMatchesBruteForce(t *testing.T) {
	random := rand.New(rand.NewSource(42))
	mat := material.NewLambertian("test", material.DefaultAlbedo)
	randomPoint := func() core.Vec3 {
		return core.NewVec3(random.Float64()*4-2, random.Float64()*4-2, random.Float64()*4-2)
	}

	var shapes []Shape
	for i := 0; i < 200; i++ {
		center := randomPoint()
		shapes = append(shapes, NewTriangle(
			center,
			center.Add(core.NewVec3(random.Float64()*0.3, 0, random.Float64()*0.3)),
			center.Add(core.NewVec3(0, random.Float64()*0.3, random.Float64()*0.3)),
			mat,
		))
	}
	bvh := NewBVH(shapes)

	for i := 0; i < 500; i++ {
		ray := core.NewRay(randomPoint().Multiply(2), randomPoint().Normalize())

		var bvhRec material.HitRecord
		bvhHit := bvh.Hit(ray, 0.001, math.Inf(1), &bvhRec)

		var bruteRec material.HitRecord
		bruteHit := false
		closest := math.Inf(1)
		for _, s := range shapes {
			var rec material.HitRecord
			if s.Hit(ray, 0.001, closest, &rec) {
				bruteHit = true
				closest = rec.T
				bruteRec = rec
			}
		}

		if bvhHit != bruteHit {
			t.Fatalf("ray %d: bvh hit %v, brute force %v", i, bvhHit, bruteHit)
		}
		if bvhHit && math.Abs(bvhRec.T-bruteRec.T) > 1e-9 {
			t.Fatalf("ray %d: bvh T %v, brute force T %v", i, bvhRec.T, bruteRec.T)
		}
	}
}

func TestEmptyBVH(t *testing.T) {
	bvh := NewBVH(nil)
	var rec material.HitRecord
	if bvh.Hit(core.NewRay(core.Vec3{}, core.NewVec3(0, 0, 1)), 0, math.Inf(1), &rec) {
		t.Error("empty BVH should never report a hit")
	}
}
