// Package pipeline wires slicing, compensation, blending, feedrate
// estimation and emission into one run.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/blend"
	"github.com/Faultbox/provelslice/internal/compensate"
	"github.com/Faultbox/provelslice/internal/feedrate"
	"github.com/Faultbox/provelslice/internal/gcode"
	"github.com/Faultbox/provelslice/internal/logger"
	"github.com/Faultbox/provelslice/internal/mesh"
	"github.com/Faultbox/provelslice/internal/ring"
	"github.com/Faultbox/provelslice/internal/slicer"
	"github.com/Faultbox/provelslice/internal/trim"
	"github.com/Faultbox/provelslice/pkg/math"
)

// ErrNoLevels is returned when slicing (or trimming) leaves no rings.
var ErrNoLevels = errors.New("no rings to print")

// Params is the immutable configuration of one run. Every stage reads its
// settings from here.
type Params struct {
	Placement mesh.Placement
	Slice     slicer.Params

	ShrinkPercent float64
	NozzleOffset  float64

	Blend blend.Options

	// TrimLine points are in placed coordinates: after Placement has
	// rotated, aligned and offset the mesh, before clearance is added.
	TrimLine []r3.Vec

	SecondsPerLayer float64
	// BaselineFeedrate overrides the averaged per-level feedrate for the
	// print time estimate and constant-feedrate output.
	BaselineFeedrate float64
	// PerLevelFeedrate emits each ring at its own feedrate.
	PerLevelFeedrate bool

	Emit       gcode.Options
	Transition *gcode.Transition

	ProgressBuffer int
}

// Up returns the vertical axis of the run.
func (p Params) Up() math.Axis {
	return p.Slice.Up
}

// Result holds every intermediate sequence and the emitted program.
type Result struct {
	Center      r3.Vec
	Raw         ring.Levels
	Compensated ring.Levels
	Blended     ring.Levels
	Final       ring.Levels
	Moved       int

	Feedrates      []int
	Summary        feedrate.Summary
	GlobalFeedrate float64
	PrintTime      time.Duration
	PrintTimeText  string

	Program *gcode.Program
}

// Run places m, slices it and finishes the remaining stages synchronously.
func Run(m *mesh.Mesh, p Params) (*Result, error) {
	placed := m.Place(p.Placement)
	ex, err := slicer.NewExtractor(placed, p.Slice)
	if err != nil {
		return nil, fmt.Errorf("slicing: %w", err)
	}
	return Finish(ex.Extract(nil), ex.Center(), p)
}

// Start places m and slices it on a background task. Pass the Done
// message's Levels and Center to Finish.
func Start(m *mesh.Mesh, p Params) *slicer.Task {
	placed := m.Place(p.Placement)
	return slicer.Start(placed.Positions(), p.Slice, p.ProgressBuffer)
}

// Finish runs every stage after extraction.
func Finish(levels ring.Levels, center r3.Vec, p Params) (*Result, error) {
	if len(levels) == 0 {
		return nil, ErrNoLevels
	}
	log := logger.Named("pipeline")
	up := p.Up()

	res := &Result{Center: center, Raw: levels}

	res.Compensated = compensate.Adjust(levels, compensate.Params{
		Center:        center,
		Up:            up,
		ShrinkPercent: p.ShrinkPercent,
		Offset:        p.NozzleOffset,
	})

	bo := p.Blend
	bo.Center = center
	bo.Up = up
	res.Blended, res.Moved = blend.Blend(res.Compensated, bo)

	res.Final = res.Blended
	if len(p.TrimLine) > 0 {
		// Ring heights carry the clearance; lift the line to match.
		pts := make([]r3.Vec, len(p.TrimLine))
		for i, pt := range p.TrimLine {
			pts[i] = math.WithComponent(pt, up, math.Component(pt, up)+p.Slice.Clearance)
		}
		res.Final = trim.New(pts, center, up).Filter(res.Blended)
		if len(res.Final) == 0 {
			return nil, fmt.Errorf("trim line removed every point: %w", ErrNoLevels)
		}
	}

	res.Feedrates = feedrate.PerLevel(res.Final, p.Slice.Segments, p.SecondsPerLayer)
	res.Summary = feedrate.Summarize(res.Feedrates)
	res.GlobalFeedrate = feedrate.Global(p.BaselineFeedrate, res.Feedrates)
	res.PrintTime = feedrate.PrintTime(res.Final, res.GlobalFeedrate)
	res.PrintTimeText = feedrate.FormatDuration(res.PrintTime)

	eo := p.Emit
	eo.Up = up
	eo.EstimatedTime = res.PrintTimeText
	eo.Feedrate = res.GlobalFeedrate
	eo.Feedrates = nil
	if p.PerLevelFeedrate {
		eo.Feedrates = res.Feedrates
	}
	if p.Transition != nil {
		tr := *p.Transition
		if tr.Feedrate == 0 {
			r := tr.Ring(eo.ToWorld(eo.Start()), up)
			if f := feedrate.PerLevel(ring.Levels{r}, tr.Segments, p.SecondsPerLayer); len(f) > 0 {
				tr.Feedrate = f[0]
			}
		}
		eo.Transition = &tr
	}
	res.Program = gcode.Emit(res.Final, eo)

	log.Info("pipeline finished",
		zap.Int("rings", len(res.Final)),
		zap.Int("points", res.Final.PointCount()),
		zap.Int("blended_points", res.Moved),
		zap.Float64("feedrate_min", res.Summary.Min),
		zap.Float64("feedrate_max", res.Summary.Max),
		zap.String("print_time", res.PrintTimeText))
	return res, nil
}

// DefaultParams returns a run with no shrink, no offset and Y up.
func DefaultParams() Params {
	return Params{
		Slice:            slicer.DefaultParams(),
		Blend:            blend.DefaultOptions(),
		SecondsPerLayer:  12,
		PerLevelFeedrate: true,
		Emit:             gcode.DefaultOptions(),
		ProgressBuffer:   16,
	}
}
