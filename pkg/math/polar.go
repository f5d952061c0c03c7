package math

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Polar is a horizontal offset from a center in polar form.
type Polar struct {
	R     float64 // Radius
	Theta float64 // Angle in radians, atan2 convention
}

// ToPolar converts p to polar form about center.
func ToPolar(p, center Vec2) Polar {
	d := p.Sub(center)
	return Polar{R: d.Length(), Theta: d.Angle()}
}

// Cartesian converts back to a horizontal point about center.
func (p Polar) Cartesian(center Vec2) Vec2 {
	return Vec2{
		X: center.X + p.R*math.Cos(p.Theta),
		Y: center.Y + p.R*math.Sin(p.Theta),
	}
}

// HorizontalDistance returns the distance from p to the vertical line
// through axisPoint, measured in the plane perpendicular to up.
func HorizontalDistance(p, axisPoint r3.Vec, up Axis) float64 {
	return Horizontal(p, up).Distance(Horizontal(axisPoint, up))
}
