// Package trim removes ring points that lie above a user-drawn trim line
// around the socket rim.
package trim

import (
	gomath "math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/logger"
	"github.com/Faultbox/provelslice/internal/ring"
	"github.com/Faultbox/provelslice/pkg/math"
)

type sample struct {
	angle  float64
	height float64
}

// Line is a closed height profile indexed by angle about the vertical axis.
type Line struct {
	samples []sample
	center  math.Vec2
	up      math.Axis
}

// New builds a trim line from points around the axis through center.
func New(points []r3.Vec, center r3.Vec, up math.Axis) *Line {
	l := &Line{center: math.Horizontal(center, up), up: up}
	for _, p := range points {
		l.samples = append(l.samples, sample{
			angle:  l.angleOf(p),
			height: math.Component(p, up),
		})
	}
	sort.Slice(l.samples, func(i, j int) bool { return l.samples[i].angle < l.samples[j].angle })
	return l
}

// Active reports whether the line has enough points to trim anything.
func (l *Line) Active() bool {
	return l != nil && len(l.samples) >= 2
}

func (l *Line) angleOf(p r3.Vec) float64 {
	return math.Horizontal(p, l.up).Sub(l.center).Angle()
}

// HeightAt linearly interpolates the line height at angle, wrapping past
// ±π. An empty line is infinitely high.
func (l *Line) HeightAt(angle float64) float64 {
	switch len(l.samples) {
	case 0:
		return gomath.Inf(1)
	case 1:
		return l.samples[0].height
	}

	for angle > gomath.Pi {
		angle -= 2 * gomath.Pi
	}
	for angle < -gomath.Pi {
		angle += 2 * gomath.Pi
	}

	lo, hi := -1, -1
	for i, s := range l.samples {
		if s.angle <= angle {
			lo = i
		}
		if s.angle >= angle && hi == -1 {
			hi = i
		}
	}
	if lo == -1 {
		lo = len(l.samples) - 1
	}
	if hi == -1 {
		hi = 0
	}

	a, b := l.samples[lo], l.samples[hi]
	if lo == hi || a.angle == b.angle {
		return a.height
	}

	span := b.angle - a.angle
	offset := angle - a.angle
	if span < 0 {
		span += 2 * gomath.Pi
	}
	if offset < 0 {
		offset += 2 * gomath.Pi
	}
	return a.height + offset/span*(b.height-a.height)
}

// Above reports whether p lies above the line.
func (l *Line) Above(p r3.Vec) bool {
	if !l.Active() {
		return false
	}
	return math.Component(p, l.up) > l.HeightAt(l.angleOf(p))
}

// Filter returns levels without the points above the line. Rings left
// empty are removed.
func (l *Line) Filter(levels ring.Levels) ring.Levels {
	if !l.Active() {
		return levels.Clone()
	}

	out := make(ring.Levels, 0, len(levels))
	removed := 0
	for _, r := range levels {
		kept := make(ring.Ring, 0, len(r))
		for _, p := range r {
			if l.Above(p) {
				removed++
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) > 0 {
			out = append(out, kept)
		}
	}

	logger.Named("trim").Debug("trimmed rings",
		zap.Int("removed_points", removed),
		zap.Int("rings_before", len(levels)),
		zap.Int("rings_after", len(out)))
	return out
}
