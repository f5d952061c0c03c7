// Package feedrate derives per-ring feedrates, whole-print duration and
// extrusion volumes from ring geometry.
package feedrate

import (
	"fmt"
	gomath "math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/Faultbox/provelslice/internal/ring"
)

// LevelDistances returns the travel length of each ring scaled up to a full
// revolution of segments+1 samples. Rings with fewer than two points have
// zero length.
func LevelDistances(levels ring.Levels, segments int) []float64 {
	out := make([]float64, len(levels))
	for i, r := range levels {
		if len(r) < 2 {
			continue
		}
		out[i] = r.Length() * float64(segments+1) / float64(len(r))
	}
	return out
}

// PerLevel returns the feedrate in mm/min that completes each ring in
// secondsPerLayer.
func PerLevel(levels ring.Levels, segments int, secondsPerLayer float64) []int {
	dists := LevelDistances(levels, segments)
	out := make([]int, len(dists))
	if secondsPerLayer <= 0 {
		return out
	}
	for i, d := range dists {
		out[i] = int(gomath.Round(d * 60 / secondsPerLayer))
	}
	return out
}

// Summary holds statistics over per-level feedrates.
type Summary struct {
	Mean float64
	Min  float64
	Max  float64
}

// Summarize computes mean, min and max. Empty input yields the zero value.
func Summarize(perLevel []int) Summary {
	if len(perLevel) == 0 {
		return Summary{}
	}
	f := make([]float64, len(perLevel))
	for i, v := range perLevel {
		f[i] = float64(v)
	}
	return Summary{
		Mean: stat.Mean(f, nil),
		Min:  floats.Min(f),
		Max:  floats.Max(f),
	}
}

// Global returns the feedrate used for the whole-print estimate: the
// baseline when positive, otherwise the mean of the per-level feedrates.
func Global(baseline float64, perLevel []int) float64 {
	if baseline > 0 {
		return baseline
	}
	return Summarize(perLevel).Mean
}

// PathLength sums the distance between consecutive points of every ring
// plus one transit from the last point of a ring to the first point of the
// next non-empty ring.
func PathLength(levels ring.Levels) float64 {
	var total float64
	var last *r3.Vec
	for _, r := range levels {
		if len(r) == 0 {
			continue
		}
		if last != nil {
			total += r3.Norm(r3.Sub(r[0], *last))
		}
		total += r.Length()
		last = &r[len(r)-1]
	}
	return total
}

// PrintTime estimates the print duration at a single feedrate in mm/min,
// rounded up to the whole second. Fewer than two rings or a non-positive
// feedrate yields zero.
func PrintTime(levels ring.Levels, feedrate float64) time.Duration {
	if len(levels) < 2 || !(feedrate > 0) {
		return 0
	}
	seconds := PathLength(levels) / feedrate * 60
	return time.Duration(gomath.Ceil(seconds)) * time.Second
}

// FormatDuration renders d as "Xh Ym Zs".
func FormatDuration(d time.Duration) string {
	total := int64(d.Round(time.Second) / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%dh %dm %ds", total/3600, total/60%60, total%60)
}

// Estimate returns the formatted print time.
func Estimate(levels ring.Levels, feedrate float64) string {
	return FormatDuration(PrintTime(levels, feedrate))
}
