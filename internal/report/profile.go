// Package report renders diagnostic views of a slicing run: a radius
// profile image and a per-level feedrate chart.
package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Faultbox/provelslice/internal/ring"
	"github.com/Faultbox/provelslice/pkg/math"
)

// Series is one named ring sequence on the profile plot.
type Series struct {
	Name   string
	Levels ring.Levels
}

var palette = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
}

// Profile returns one (mean radius, height) point per non-empty ring. Height
// is the mean height of the ring's points.
func Profile(levels ring.Levels, center r3.Vec, up math.Axis) plotter.XYs {
	pts := make(plotter.XYs, 0, len(levels))
	for _, r := range levels {
		if len(r) == 0 {
			continue
		}
		radii := make([]float64, len(r))
		heights := make([]float64, len(r))
		for i, p := range r {
			radii[i] = math.HorizontalDistance(p, center, up)
			heights[i] = math.Component(p, up)
		}
		pts = append(pts, plotter.XY{X: stat.Mean(radii, nil), Y: stat.Mean(heights, nil)})
	}
	return pts
}

// ProfilePlot builds a radius-versus-height plot with one line per series.
func ProfilePlot(title string, center r3.Vec, up math.Axis, series ...Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Mean radius (mm)"
	p.Y.Label.Text = "Height (mm)"

	for i, s := range series {
		pts := Profile(s.Levels, center, up)
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.Name, err)
		}
		line.Color = palette[i%len(palette)]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteProfilePNG renders the profile plot as a PNG to w.
func WriteProfilePNG(w io.Writer, title string, center r3.Vec, up math.Axis, series ...Series) error {
	p, err := ProfilePlot(title, center, up, series...)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(6*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveProfilePNG renders the profile plot to path. The format follows the
// file extension.
func SaveProfilePNG(path, title string, center r3.Vec, up math.Axis, series ...Series) error {
	p, err := ProfilePlot(title, center, up, series...)
	if err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 8*vg.Inch, path)
}
