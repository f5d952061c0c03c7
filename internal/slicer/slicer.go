// Package slicer casts rays outward from the vertical axis of a socket mesh
// and gathers the farthest wall hits into one ring per layer height.
package slicer

import (
	"errors"
	"fmt"
	gomath "math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/logger"
	"github.com/Faultbox/provelslice/internal/mesh"
	"github.com/Faultbox/provelslice/internal/raycast"
	"github.com/Faultbox/provelslice/internal/ring"
	"github.com/Faultbox/provelslice/pkg/math"
)

// Segment count limits.
const (
	MinSegments     = 3
	MaxSegments     = 512
	DefaultSegments = 128
)

var (
	// ErrEmptyMesh is returned when there is nothing to slice.
	ErrEmptyMesh = errors.New("mesh has no triangles")
	// ErrInvalidLayerHeight is returned for a non-positive layer height.
	ErrInvalidLayerHeight = errors.New("layer height must be positive")
	// ErrInvalidSegments is returned for a segment count outside [3, 512].
	ErrInvalidSegments = errors.New("segment count out of range")
)

// NormalizeSegments maps a user-supplied segment count into [3, 512].
// Non-finite or too-small values fall back to the default and fractions are
// floored.
func NormalizeSegments(n float64) int {
	if gomath.IsNaN(n) || gomath.IsInf(n, 0) || n < MinSegments {
		return DefaultSegments
	}
	if n > MaxSegments {
		return MaxSegments
	}
	return int(gomath.Floor(n))
}

// Params controls one extraction run.
type Params struct {
	LayerHeight float64
	Segments    int
	Up          math.Axis
	// Clearance is added to the height of every hit.
	Clearance float64
	// MinCoverage is the fraction of Segments a ring must reach for the
	// sweep to continue. Zero disables the stop rule.
	MinCoverage float64
	// MaxConsecutiveMisses ends the sweep when exceeded within one ring.
	MaxConsecutiveMisses int
	// SpiralRamp raises each cast by i/N of a layer so a ring climbs one
	// full layer per revolution.
	SpiralRamp bool
}

// DefaultParams returns the settings used for cup printing.
func DefaultParams() Params {
	return Params{
		LayerHeight:          1,
		Segments:             DefaultSegments,
		Up:                   math.AxisY,
		MinCoverage:          0.95,
		MaxConsecutiveMisses: 3,
	}
}

// Validate checks the parameters before any ray is cast.
func (p Params) Validate() error {
	if !(p.LayerHeight > 0) || gomath.IsInf(p.LayerHeight, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidLayerHeight, p.LayerHeight)
	}
	if p.Segments < MinSegments || p.Segments > MaxSegments {
		return fmt.Errorf("%w: %d", ErrInvalidSegments, p.Segments)
	}
	if p.Up == math.AxisX {
		return fmt.Errorf("%w: x cannot be the vertical axis", math.ErrUnknownAxis)
	}
	return nil
}

// Extractor slices one mesh. It owns the spatial index built over the mesh.
type Extractor struct {
	params Params
	index  *raycast.BVH
	bounds r3.Box
	center r3.Vec
	log    *zap.Logger
}

// NewExtractor validates p and builds the spatial index for m.
func NewExtractor(m *mesh.Mesh, p Params) (*Extractor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if m.Empty() {
		return nil, ErrEmptyMesh
	}

	index, err := raycast.Build(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmptyMesh, err)
	}

	return &Extractor{
		params: p,
		index:  index,
		bounds: m.Bounds(),
		center: m.Center(),
		log:    logger.Named("slicer"),
	}, nil
}

// Center returns the bounding-box center used as the cast origin.
func (e *Extractor) Center() r3.Vec {
	return e.center
}

// Extract sweeps from the lowest to the highest point of the mesh. Sparse
// rings below the first full ring are skipped. progress, when non-nil,
// receives a non-decreasing fraction before each ring.
func (e *Extractor) Extract(progress func(float64)) ring.Levels {
	p := e.params
	up := p.Up
	lo := math.Component(e.bounds.Min, up)
	hi := math.Component(e.bounds.Max, up)
	span := hi - lo
	axis := math.Horizontal(e.center, up)

	required := int(gomath.Floor(float64(p.Segments) * p.MinCoverage))
	step := 2 * gomath.Pi / float64(p.Segments)

	var levels ring.Levels
	for k := 0; ; k++ {
		h := lo + float64(k)*p.LayerHeight
		if h >= hi {
			break
		}
		if progress != nil {
			progress(fraction(h-lo, span))
		}

		r := make(ring.Ring, 0, p.Segments-1)
		misses, worstRun := 0, 0
		for i := 1; i < p.Segments; i++ {
			height := h
			if p.SpiralRamp {
				height += float64(i) / float64(p.Segments) * p.LayerHeight
			}

			a := -float64(i) * step
			dir := math.Lift(math.Vec2{X: gomath.Cos(a), Y: gomath.Sin(a)}, 0, up)
			ray := raycast.Ray{Origin: math.Lift(axis, height, up), Direction: dir}

			hit, ok := e.index.Farthest(ray)
			if !ok {
				misses++
				if misses > worstRun {
					worstRun = misses
				}
				e.log.Debug("ray missed mesh",
					zap.Float64("height", height),
					zap.Int("angle", i))
				continue
			}
			misses = 0

			pt := math.WithComponent(hit.Point, up, math.Component(hit.Point, up)+p.Clearance)
			r = append(r, pt)
		}

		if dropped := p.Segments - 1 - len(r); dropped > 0 {
			e.log.Warn("ring has missing samples",
				zap.Int("level", k),
				zap.Float64("height", h),
				zap.Int("missing", dropped))
		}

		if p.MinCoverage > 0 && (len(r) < required || worstRun > p.MaxConsecutiveMisses) {
			// A tapered or rounded base has partial rings below the first
			// full one. Only a sparse ring above accepted rings ends the sweep.
			if len(levels) == 0 {
				e.log.Debug("skipping sparse base ring",
					zap.Int("level", k),
					zap.Int("points", len(r)),
					zap.Int("required", required))
				continue
			}
			e.log.Info("stopping at sparse ring",
				zap.Int("level", k),
				zap.Int("points", len(r)),
				zap.Int("required", required),
				zap.Int("consecutive_misses", worstRun))
			break
		}
		levels = append(levels, r)
	}

	if progress != nil {
		progress(1)
	}
	e.log.Info("extracted rings",
		zap.Int("rings", len(levels)),
		zap.Int("points", levels.PointCount()))
	return levels
}

// fraction returns done/total rounded up to two decimals, clamped to [0, 1].
func fraction(done, total float64) float64 {
	if total <= 0 {
		return 0
	}
	f := gomath.Ceil(done/total*100) / 100
	return gomath.Min(gomath.Max(f, 0), 1)
}

// Extract is a convenience wrapper that builds an extractor and runs it.
func Extract(m *mesh.Mesh, p Params) (ring.Levels, error) {
	e, err := NewExtractor(m, p)
	if err != nil {
		return nil, err
	}
	return e.Extract(nil), nil
}
