package feedrate

import (
	gomath "math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/ring"
)

func TestPerLevel(t *testing.T) {
	tests := []struct {
		name     string
		levels   ring.Levels
		segments int
		seconds  float64
		want     []int
	}{
		{
			name:     "ten millimetres",
			levels:   ring.Levels{{{}, {X: 10}}},
			segments: 64,
			seconds:  8,
			want:     []int{2438},
		},
		{
			name:     "three four five",
			levels:   ring.Levels{{{}, {X: 3, Y: 4}}},
			segments: 64,
			seconds:  8,
			want:     []int{1219},
		},
		{
			name:     "single point",
			levels:   ring.Levels{{{X: 4}}, {}},
			segments: 64,
			seconds:  8,
			want:     []int{0, 0},
		},
		{
			name:     "zero seconds",
			levels:   ring.Levels{{{}, {X: 10}}},
			segments: 64,
			seconds:  0,
			want:     []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PerLevel(tt.levels, tt.segments, tt.seconds))
		})
	}
}

func TestUndersampledRingScalesUp(t *testing.T) {
	full := ring.Ring{{}, {X: 1}, {X: 2}, {X: 3}}
	half := ring.Ring{{}, {X: 1}}
	d := LevelDistances(ring.Levels{full, half}, 3)
	assert.InDelta(t, 3*4.0/4, d[0], 1e-12)
	assert.InDelta(t, 1*4.0/2, d[1], 1e-12)
}

func TestPrintTime(t *testing.T) {
	levels := ring.Levels{
		{{}, {X: 1, Y: 1, Z: 1}},
		{{X: 2, Y: 2, Z: 2}, {X: 3, Y: 3, Z: 3}},
	}
	assert.InDelta(t, 3*gomath.Sqrt(3), PathLength(levels), 1e-12)

	// 3√3 mm at 1 mm/min is 311.77 s.
	d := PrintTime(levels, 1)
	assert.Equal(t, 312*time.Second, d)

	assert.Equal(t, 6*time.Second, PrintTime(levels, 60))
	assert.Equal(t, "0h 5m 12s", FormatDuration(d))
}

func TestPrintTimeDegenerate(t *testing.T) {
	one := ring.Levels{{{}, {X: 100}}}
	assert.Equal(t, "0h 0m 0s", Estimate(one, 60))
	assert.Equal(t, "0h 0m 0s", Estimate(nil, 60))

	two := ring.Levels{{{}, {X: 1}}, {{X: 2}}}
	assert.Equal(t, "0h 0m 0s", Estimate(two, 0))
}

func TestPathLengthSkipsEmptyRings(t *testing.T) {
	levels := ring.Levels{{{}, {X: 1}}, {}, {{X: 4}}}
	assert.InDelta(t, 4, PathLength(levels), 1e-12)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0h 0m 0s"},
		{59 * time.Second, "0h 0m 59s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
		{26 * time.Hour, "26h 0m 0s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}

func TestGlobal(t *testing.T) {
	assert.Equal(t, 1500.0, Global(1500, []int{1, 2, 3}))
	assert.InDelta(t, 2000, Global(0, []int{1000, 2000, 3000}), 1e-12)
	assert.Zero(t, Global(0, nil))

	s := Summarize([]int{1200, 900, 1500})
	assert.Equal(t, Summary{Mean: 1200, Min: 900, Max: 1500}, s)
}

func TestVolumetricExtrusion(t *testing.T) {
	e := Extrusion{
		Distance:           10,
		LayerHeight:        0.2,
		LineWidth:          0.4,
		GramsPerRevolution: 0.05,
		Density:            1.24,
		EPerRevolution:     1,
		OutputFactor:       1,
	}
	assert.InDelta(t, 19.84, VolumetricExtrusion(e), 1e-9)

	e.OutputFactor = 1.5
	assert.InDelta(t, 29.76, VolumetricExtrusion(e), 1e-9)

	for _, zero := range []func(*Extrusion){
		func(e *Extrusion) { e.Distance = 0 },
		func(e *Extrusion) { e.LayerHeight = 0 },
		func(e *Extrusion) { e.LineWidth = 0 },
		func(e *Extrusion) { e.Density = 0 },
		func(e *Extrusion) { e.GramsPerRevolution = 0 },
	} {
		c := e
		zero(&c)
		assert.Zero(t, VolumetricExtrusion(c))
	}
}

func TestRingLengthUsesAllAxes(t *testing.T) {
	r := ring.Ring{{}, r3.Vec{X: 2, Y: 3, Z: 6}}
	assert.InDelta(t, 7, r.Length(), 1e-12)
}
