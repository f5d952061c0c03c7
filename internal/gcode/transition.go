package gcode

import (
	gomath "math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/feedrate"
	"github.com/Faultbox/provelslice/internal/ring"
	"github.com/Faultbox/provelslice/pkg/math"
)

// Transition describes the ramped layer that bonds the socket to the cup
// rim. It sweeps one revolution from StartingHeight to
// StartingHeight+LayerHeight.
type Transition struct {
	Center         r3.Vec
	Segments       int
	LayerHeight    float64
	StartingHeight float64
	// Offset is added to every output height.
	Offset    float64
	LineWidth float64
	// Extrusion supplies the material terms; Distance, LayerHeight and
	// LineWidth are filled in per move.
	Extrusion feedrate.Extrusion
	Feedrate  int
}

// Point is one transition sample with the bead height deposited there.
type Point struct {
	Position    r3.Vec
	LayerHeight float64
}

// Points walks one revolution clockwise from start around the center.
func (t Transition) Points(start r3.Vec, up math.Axis) []Point {
	if t.Segments < 2 {
		return nil
	}
	center := math.Horizontal(t.Center, up)
	pol := math.ToPolar(math.Horizontal(start, up), center)
	step := 2 * gomath.Pi / float64(t.Segments)
	dy := t.LayerHeight / float64(t.Segments-1)

	out := make([]Point, t.Segments)
	for i := range out {
		h := t.StartingHeight + float64(i)*dy
		p := math.Polar{R: pol.R, Theta: pol.Theta - float64(i)*step}
		out[i] = Point{
			Position:    math.Lift(p.Cartesian(center), t.Offset+h, up),
			LayerHeight: h,
		}
	}
	return out
}

// Ring returns the positions of Points as a ring.
func (t Transition) Ring(start r3.Vec, up math.Axis) ring.Ring {
	pts := t.Points(start, up)
	r := make(ring.Ring, len(pts))
	for i, p := range pts {
		r[i] = p.Position
	}
	return r
}

// Lines renders the transition as G-code. The first point is a travel move.
func (t Transition) Lines(start r3.Vec, opts Options) []string {
	p := &Program{}
	t.emit(p, start, opts)
	return p.Lines()
}

func (t Transition) emit(p *Program, start r3.Vec, opts Options) r3.Vec {
	pts := t.Points(start, opts.Up)
	if len(pts) == 0 {
		return start
	}

	p.Append(";##Cup transition layer")
	feed := formatNumber(float64(t.Feedrate), 0)
	first := opts.ToMachine(pts[0].Position)
	p.Appendf("G1 X%s Y%s Z%s F%s",
		formatNumber(first.X, 2), formatNumber(first.Y, 2), formatNumber(first.Z, 2), feed)

	prev := pts[0].Position
	for _, pt := range pts[1:] {
		x := t.Extrusion
		x.Distance = r3.Norm(r3.Sub(pt.Position, prev))
		x.LayerHeight = pt.LayerHeight
		x.LineWidth = t.LineWidth
		p.Append(move(opts.ToMachine(pt.Position), feedrate.VolumetricExtrusion(x), feed))
		prev = pt.Position
	}
	return prev
}
