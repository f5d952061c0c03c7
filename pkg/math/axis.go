// Package math provides the axis, polar and placement helpers used to
// position and slice socket meshes.
package math

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrUnknownAxis is returned when an axis designation cannot be parsed.
var ErrUnknownAxis = errors.New("unknown axis")

// Axis names one of the three world axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String returns the lowercase axis letter.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis parses "x", "y" or "z" (case-insensitive).
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAxis, s)
}

// ParseUpAxis parses a vertical axis designation. Only "y" and "z" are
// valid build directions.
func ParseUpAxis(s string) (Axis, error) {
	a, err := ParseAxis(s)
	if err != nil {
		return 0, err
	}
	if a == AxisX {
		return 0, fmt.Errorf("%w: %q cannot be the vertical axis", ErrUnknownAxis, s)
	}
	return a, nil
}

// Flip returns the other vertical candidate: y becomes z and z becomes y.
// X is returned unchanged.
func (a Axis) Flip() Axis {
	switch a {
	case AxisY:
		return AxisZ
	case AxisZ:
		return AxisY
	default:
		return a
	}
}

// Horizontal returns the two axes spanning the plane perpendicular to a.
// For a Y-up world this is (X, Z), for Z-up it is (X, Y).
func (a Axis) Horizontal() (Axis, Axis) {
	switch a {
	case AxisX:
		return AxisY, AxisZ
	case AxisZ:
		return AxisX, AxisY
	default:
		return AxisX, AxisZ
	}
}

// Component returns the coordinate of v along a.
func Component(v r3.Vec, a Axis) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// WithComponent returns v with its coordinate along a replaced by val.
func WithComponent(v r3.Vec, a Axis, val float64) r3.Vec {
	switch a {
	case AxisX:
		v.X = val
	case AxisY:
		v.Y = val
	default:
		v.Z = val
	}
	return v
}
