// Package blend limits the outward step between vertically adjacent rings
// so a single-wall spiral never overhangs unsupported.
package blend

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/logger"
	"github.com/Faultbox/provelslice/internal/ring"
	"github.com/Faultbox/provelslice/pkg/math"
)

// Strategy selects how an overhanging lower point is rebuilt.
type Strategy int

const (
	// Clamp places the lower point half the tolerance inside the upper one.
	Clamp Strategy = iota
	// Merge scales the upper point toward the center by MergeFraction.
	Merge
)

func (s Strategy) String() string {
	if s == Merge {
		return "merge"
	}
	return "clamp"
}

// ParseStrategy converts "clamp" or "merge" to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clamp":
		return Clamp, nil
	case "merge":
		return Merge, nil
	default:
		return Clamp, fmt.Errorf("unknown blend strategy %q", s)
	}
}

// Options configures a blend pass.
type Options struct {
	Tolerance     float64
	Strategy      Strategy
	MergeFraction float64
	// Center is any point on the vertical axis.
	Center r3.Vec
	Up     math.Axis
}

// DefaultOptions returns a 0.5mm clamp about the origin with Y up.
func DefaultOptions() Options {
	return Options{
		Tolerance:     0.5,
		Strategy:      Clamp,
		MergeFraction: 0.925,
		Up:            math.AxisY,
	}
}

// Blend walks from the middle ring down to the second ring and pulls each
// lower point outward when the ring above it steps out by more than the
// tolerance. Only the index range present in both rings is compared. The
// input is not modified; the number of moved points is returned alongside
// the result.
func Blend(levels ring.Levels, opts Options) (ring.Levels, int) {
	out := levels.Clone()
	if len(out) < 2 {
		return out, 0
	}

	moved := 0
	start := (len(out) - 1) / 2
	for k := start; k >= 1; k-- {
		upper, lower := out[k], out[k-1]
		n := min(len(upper), len(lower))
		for j := 0; j < n; j++ {
			ru := math.HorizontalDistance(upper[j], opts.Center, opts.Up)
			rl := math.HorizontalDistance(lower[j], opts.Center, opts.Up)
			if ru-rl <= opts.Tolerance {
				continue
			}
			lower[j] = opts.adjust(upper[j], lower[j])
			moved++
		}
	}

	logger.Named("blend").Debug("blended rings",
		zap.Stringer("strategy", opts.Strategy),
		zap.Int("rings", len(out)),
		zap.Int("moved", moved))
	return out, moved
}

func (o Options) adjust(upper, lower r3.Vec) r3.Vec {
	height := math.Component(lower, o.Up)
	hu := math.Horizontal(upper, o.Up)

	switch o.Strategy {
	case Merge:
		c := math.Horizontal(o.Center, o.Up)
		h := c.Add(hu.Sub(c).Scale(o.MergeFraction))
		return math.Lift(h, height, o.Up)
	default:
		hl := math.Horizontal(lower, o.Up)
		dir := hu.Sub(hl)
		if dir.Length() == 0 {
			return lower
		}
		h := hu.Sub(dir.Normalize().Scale(o.Tolerance / 2))
		return math.Lift(h, height, o.Up)
	}
}
