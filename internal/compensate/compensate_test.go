package compensate

import (
	gomath "math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/ring"
	"github.com/Faultbox/provelslice/pkg/math"
)

func sample() ring.Levels {
	return ring.Levels{
		{{X: 12, Y: 1, Z: 2}, {X: 2, Y: 1, Z: 12}, {X: -8, Y: 1, Z: 2}},
		{{X: 13, Y: 2, Z: 2}, {X: 2, Y: 2, Z: 13}},
	}
}

func TestIdentity(t *testing.T) {
	in := sample()
	out := Adjust(in, Params{Center: r3.Vec{X: 2, Z: 2}, Up: math.AxisY})

	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("identity adjust changed points (-in +out):\n%s", diff)
	}
	out[0][0].X = 100
	assert.Equal(t, 12.0, in[0][0].X, "output shares storage with input")
}

func TestShrinkAndOffset(t *testing.T) {
	center := r3.Vec{X: 2, Z: 2}
	p := Params{Center: center, Up: math.AxisY, ShrinkPercent: 2.6, Offset: 2.5}
	out := Adjust(sample(), p)

	// Radius 10 becomes (10 + 2.5) * 1.026.
	want := ring.Levels{
		{{X: 2 + 12.825, Y: 1, Z: 2}, {X: 2, Y: 1, Z: 2 + 12.825}, {X: 2 - 12.825, Y: 1, Z: 2}},
		{{X: 2 + 13.851, Y: 2, Z: 2}, {X: 2, Y: 2, Z: 2 + 13.851}},
	}
	if diff := cmp.Diff(want, out, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Adjust mismatch (-want +got):\n%s", diff)
	}
}

func TestPreservesAngle(t *testing.T) {
	p := Params{Up: math.AxisZ, ShrinkPercent: 5, Offset: 1}
	in := ring.Levels{{{X: 3, Y: 4, Z: 7}}}
	out := Adjust(in, p)

	got := out[0][0]
	assert.InDelta(t, gomath.Atan2(4, 3), gomath.Atan2(got.Y, got.X), 1e-12)
	assert.InDelta(t, 6*1.05, gomath.Hypot(got.X, got.Y), 1e-12)
	assert.Equal(t, 7.0, got.Z)
}

func TestRadius(t *testing.T) {
	p := Params{ShrinkPercent: 10, Offset: 1}
	assert.InDelta(t, 12.1, p.Radius(10), 1e-12)
}

func TestEmpty(t *testing.T) {
	assert.Empty(t, Adjust(nil, Params{ShrinkPercent: 3}))
}
