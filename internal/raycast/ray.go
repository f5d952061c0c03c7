// Package raycast intersects rays with triangle meshes. A bounding volume
// hierarchy keeps per-ray cost logarithmic in the triangle count.
package raycast

import (
	gomath "math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/mesh"
)

const (
	// parallelEpsilon rejects rays (nearly) parallel to a triangle plane.
	parallelEpsilon = 1e-12
	// edgeEpsilon widens barycentric bounds so rays grazing a shared edge
	// still register a hit.
	edgeEpsilon = 1e-9
	// minDistance ignores hits at the ray origin.
	minDistance = 1e-9
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    r3.Vec
	Direction r3.Vec
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Direction))
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min r3.Vec
	Max r3.Vec
}

// EmptyAABB returns an inverted box that any Extend call replaces.
func EmptyAABB() AABB {
	inf := gomath.Inf(1)
	return AABB{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// Extend grows the box to contain p.
func (b AABB) Extend(p r3.Vec) AABB {
	b.Min = r3.Vec{X: gomath.Min(b.Min.X, p.X), Y: gomath.Min(b.Min.Y, p.Y), Z: gomath.Min(b.Min.Z, p.Z)}
	b.Max = r3.Vec{X: gomath.Max(b.Max.X, p.X), Y: gomath.Max(b.Max.Y, p.Y), Z: gomath.Max(b.Max.Z, p.Z)}
	return b
}

// Union returns the smallest box containing both boxes.
func (b AABB) Union(o AABB) AABB {
	return b.Extend(o.Min).Extend(o.Max)
}

// Centroid returns the box center.
func (b AABB) Centroid() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// LongestAxis returns 0, 1 or 2 for the widest extent.
func (b AABB) LongestAxis() int {
	d := r3.Sub(b.Max, b.Min)
	switch {
	case d.X >= d.Y && d.X >= d.Z:
		return 0
	case d.Y >= d.Z:
		return 1
	default:
		return 2
	}
}

func triangleBounds(t mesh.Triangle) AABB {
	return EmptyAABB().Extend(t[0]).Extend(t[1]).Extend(t[2])
}

// slab clips the interval [tmin, tmax] against one axis of a box.
func slab(origin, dir, lo, hi, tmin, tmax float64) (float64, float64, bool) {
	if dir == 0 {
		if origin < lo || origin > hi {
			return 0, 0, false
		}
		return tmin, tmax, true
	}
	t1 := (lo - origin) / dir
	t2 := (hi - origin) / dir
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	if t1 > tmin {
		tmin = t1
	}
	if t2 < tmax {
		tmax = t2
	}
	return tmin, tmax, tmax >= tmin
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box AABB) (t float64, hit bool) {
	tmin, tmax, ok := r.clipAABB(box)
	if !ok {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

func (r Ray) clipAABB(box AABB) (float64, float64, bool) {
	tmin, tmax := gomath.Inf(-1), gomath.Inf(1)
	var ok bool

	if tmin, tmax, ok = slab(r.Origin.X, r.Direction.X, box.Min.X, box.Max.X, tmin, tmax); !ok {
		return 0, 0, false
	}
	if tmin, tmax, ok = slab(r.Origin.Y, r.Direction.Y, box.Min.Y, box.Max.Y, tmin, tmax); !ok {
		return 0, 0, false
	}
	if tmin, tmax, ok = slab(r.Origin.Z, r.Direction.Z, box.Min.Z, box.Max.Z, tmin, tmax); !ok {
		return 0, 0, false
	}
	if tmax < 0 {
		return 0, 0, false
	}
	return tmin, tmax, true
}

// IntersectTriangle runs a two-sided Möller–Trumbore test and returns the
// ray parameter of the hit.
func (r Ray) IntersectTriangle(tri mesh.Triangle) (float64, bool) {
	e1 := r3.Sub(tri[1], tri[0])
	e2 := r3.Sub(tri[2], tri[0])

	p := r3.Cross(r.Direction, e2)
	det := r3.Dot(e1, p)
	if gomath.Abs(det) < parallelEpsilon {
		return 0, false
	}
	inv := 1 / det

	s := r3.Sub(r.Origin, tri[0])
	u := r3.Dot(s, p) * inv
	if u < -edgeEpsilon || u > 1+edgeEpsilon {
		return 0, false
	}

	q := r3.Cross(s, e1)
	v := r3.Dot(r.Direction, q) * inv
	if v < -edgeEpsilon || u+v > 1+edgeEpsilon {
		return 0, false
	}

	t := r3.Dot(e2, q) * inv
	if t < minDistance {
		return 0, false
	}
	return t, true
}
