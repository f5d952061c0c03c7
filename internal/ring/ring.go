// Package ring defines the point rings produced by slicing and consumed by
// every later toolpath stage.
package ring

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Ring is the ordered set of toolpath points at one target height. Index
// position corresponds to a fixed angular step.
type Ring []r3.Vec

// Levels is a bottom-to-top sequence of rings.
type Levels []Ring

// Clone returns a deep copy so a stage can adjust points without touching
// its input.
func (l Levels) Clone() Levels {
	if l == nil {
		return nil
	}
	out := make(Levels, len(l))
	for i, r := range l {
		out[i] = append(Ring(nil), r...)
	}
	return out
}

// PointCount returns the total number of points across all rings.
func (l Levels) PointCount() int {
	n := 0
	for _, r := range l {
		n += len(r)
	}
	return n
}

// Uniform reports whether every ring has the same number of points.
func (l Levels) Uniform() bool {
	for i := 1; i < len(l); i++ {
		if len(l[i]) != len(l[0]) {
			return false
		}
	}
	return true
}

// Length returns the summed distance between consecutive points.
func (r Ring) Length() float64 {
	var d float64
	for i := 1; i < len(r); i++ {
		d += r3.Norm(r3.Sub(r[i], r[i-1]))
	}
	return d
}
