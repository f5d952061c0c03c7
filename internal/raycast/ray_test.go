package raycast

import (
	gomath "math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/mesh"
	"github.com/Faultbox/provelslice/pkg/math"
)

func TestIntersectAABB(t *testing.T) {
	box := AABB{Min: r3.Vec{X: -1, Y: -1, Z: -1}, Max: r3.Vec{X: 1, Y: 1, Z: 1}}

	tests := []struct {
		name  string
		ray   Ray
		wantT float64
		hit   bool
	}{
		{"front", Ray{Origin: r3.Vec{X: -5}, Direction: r3.Vec{X: 1}}, 4, true},
		{"inside returns exit", Ray{Direction: r3.Vec{Y: 1}}, 1, true},
		{"behind", Ray{Origin: r3.Vec{X: 5}, Direction: r3.Vec{X: 1}}, 0, false},
		{"parallel outside", Ray{Origin: r3.Vec{Y: 2}, Direction: r3.Vec{X: 1}}, 0, false},
		{"parallel on face", Ray{Origin: r3.Vec{X: -5, Y: 1}, Direction: r3.Vec{X: 1}}, 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := tt.ray.IntersectAABB(box)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if hit && gomath.Abs(got-tt.wantT) > 1e-12 {
				t.Errorf("t = %v, want %v", got, tt.wantT)
			}
		})
	}
}

func TestIntersectTriangle(t *testing.T) {
	tri := mesh.Triangle{{X: 0, Y: -1, Z: -1}, {X: 0, Y: 1, Z: -1}, {X: 0, Y: 0, Z: 1}}

	tests := []struct {
		name string
		ray  Ray
		want float64
		hit  bool
	}{
		{"front face", Ray{Origin: r3.Vec{X: -2}, Direction: r3.Vec{X: 1}}, 2, true},
		{"back face", Ray{Origin: r3.Vec{X: 3}, Direction: r3.Vec{X: -1}}, 3, true},
		{"miss", Ray{Origin: r3.Vec{X: -2, Y: 5}, Direction: r3.Vec{X: 1}}, 0, false},
		{"pointing away", Ray{Origin: r3.Vec{X: 2}, Direction: r3.Vec{X: 1}}, 0, false},
		{"parallel", Ray{Origin: r3.Vec{X: 1}, Direction: r3.Vec{Y: 1}}, 0, false},
		{"on edge", Ray{Origin: r3.Vec{X: -1, Y: 0, Z: -1}, Direction: r3.Vec{X: 1}}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := tt.ray.IntersectTriangle(tri)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if hit && gomath.Abs(got-tt.want) > 1e-12 {
				t.Errorf("t = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildEmpty(t *testing.T) {
	if _, err := Build(&mesh.Mesh{}); err != ErrNoTriangles {
		t.Errorf("err = %v, want ErrNoTriangles", err)
	}
	degenerate := mesh.FromPositions([]float32{0, 0, 0, 1, 0, 0, 2, 0, 0})
	if _, err := Build(degenerate); err != ErrNoTriangles {
		t.Errorf("err = %v, want ErrNoTriangles", err)
	}
}

func TestCylinderHits(t *testing.T) {
	const radius = 39.0
	m := mesh.Cylinder(radius, 40, 720, math.AxisY)
	bvh, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if bvh.Len() != m.Len() {
		t.Errorf("Len = %d, want %d", bvh.Len(), m.Len())
	}

	// Chord sag for 720 segments is below 4e-4.
	const tol = 1e-3
	for i := 0; i < 36; i++ {
		a := 2 * gomath.Pi * float64(i) / 36
		r := Ray{
			Origin:    r3.Vec{Y: 17.5},
			Direction: r3.Vec{X: gomath.Cos(a), Z: gomath.Sin(a)},
		}

		far, ok := bvh.Farthest(r)
		if !ok {
			t.Fatalf("angle %d: no hit", i)
		}
		if d := gomath.Hypot(far.Point.X, far.Point.Z); gomath.Abs(d-radius) > tol {
			t.Errorf("angle %d: radius = %v, want %v", i, d, radius)
		}
		if gomath.Abs(far.Point.Y-17.5) > 1e-9 {
			t.Errorf("angle %d: height = %v", i, far.Point.Y)
		}
	}
}

func TestHitOrdering(t *testing.T) {
	// Two parallel quads at x=2 and x=5.
	m := mesh.FromPositions([]float32{
		2, -1, -1, 2, 1, -1, 2, 0, 1,
		5, -1, -1, 5, 1, -1, 5, 0, 1,
	})
	bvh, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	r := Ray{Direction: r3.Vec{X: 1}}
	hits := bvh.Intersect(r, nil)
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].Distance != 2 || hits[1].Distance != 5 {
		t.Errorf("distances = %v, %v", hits[0].Distance, hits[1].Distance)
	}

	near, _ := bvh.Nearest(r)
	far, _ := bvh.Farthest(r)
	if near.Distance != 2 || far.Distance != 5 {
		t.Errorf("nearest = %v, farthest = %v", near.Distance, far.Distance)
	}

	if _, ok := bvh.Farthest(Ray{Direction: r3.Vec{X: -1}}); ok {
		t.Error("expected miss for ray pointing away")
	}
}

func TestBVHMatchesBruteForce(t *testing.T) {
	m := mesh.Cylinder(10, 30, 48, math.AxisZ)
	bvh, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for i := 0; i < 20; i++ {
		a := float64(i) * 0.37
		r := Ray{
			Origin:    r3.Vec{Z: 3 + float64(i)},
			Direction: r3.Vec{X: gomath.Cos(a), Y: gomath.Sin(a), Z: 0.1},
		}

		want := 0
		for _, tri := range m.Triangles {
			if _, ok := r.IntersectTriangle(tri); ok {
				want++
			}
		}
		if got := len(bvh.Intersect(r, nil)); got != want {
			t.Errorf("ray %d: hits = %d, brute force = %d", i, got, want)
		}
	}
}
