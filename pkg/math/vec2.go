package math

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec2 is a point or direction in the horizontal build plane.
type Vec2 struct {
	X, Y float64
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

// Scale returns v * scalar.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Length returns the magnitude.
func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Normalize returns a unit vector, or the zero vector for zero input.
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Distance returns the distance to another point.
func (v Vec2) Distance(other Vec2) float64 {
	return v.Sub(other).Length()
}

// Angle returns atan2(Y, X).
func (v Vec2) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// Horizontal projects p onto the plane perpendicular to up. The first
// horizontal axis maps to X and the second to Y.
func Horizontal(p r3.Vec, up Axis) Vec2 {
	a, b := up.Horizontal()
	return Vec2{Component(p, a), Component(p, b)}
}

// Lift places a horizontal point back into 3D at the given height.
func Lift(h Vec2, height float64, up Axis) r3.Vec {
	a, b := up.Horizontal()
	var p r3.Vec
	p = WithComponent(p, a, h.X)
	p = WithComponent(p, b, h.Y)
	return WithComponent(p, up, height)
}
