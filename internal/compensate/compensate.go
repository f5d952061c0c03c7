// Package compensate scales ring radii to offset material shrinkage and
// nozzle clearance.
package compensate

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/logger"
	"github.com/Faultbox/provelslice/internal/ring"
	"github.com/Faultbox/provelslice/pkg/math"
)

// Params describes one compensation pass.
type Params struct {
	// Center is the reference point of the vertical axis.
	Center r3.Vec
	Up     math.Axis
	// ShrinkPercent is the expected material shrinkage.
	ShrinkPercent float64
	// Offset is added to every radius before scaling, normally half the
	// nozzle width.
	Offset float64
}

// Radius applies r' = (r + offset) * (1 + shrink/100).
func (p Params) Radius(r float64) float64 {
	return (r + p.Offset) * (1 + p.ShrinkPercent/100)
}

// Adjust returns a new sequence with every point moved radially about the
// center. Heights are unchanged.
func Adjust(levels ring.Levels, p Params) ring.Levels {
	out := levels.Clone()
	if p.ShrinkPercent == 0 && p.Offset == 0 {
		return out
	}

	axis := math.Horizontal(p.Center, p.Up)
	for _, r := range out {
		for i, pt := range r {
			pol := math.ToPolar(math.Horizontal(pt, p.Up), axis)
			pol.R = p.Radius(pol.R)
			r[i] = math.Lift(pol.Cartesian(axis), math.Component(pt, p.Up), p.Up)
		}
	}

	logger.Named("compensate").Debug("adjusted rings",
		zap.Int("rings", len(out)),
		zap.Float64("shrink_percent", p.ShrinkPercent),
		zap.Float64("offset", p.Offset))
	return out
}
