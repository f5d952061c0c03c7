package ring

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestCloneIsIndependent(t *testing.T) {
	src := Levels{{{X: 1}, {X: 2}}, {{Y: 1}}}
	dst := src.Clone()
	dst[0][0].X = 99

	if src[0][0].X != 1 {
		t.Errorf("clone shares storage with source: %v", src[0][0])
	}
	if dst.PointCount() != 3 {
		t.Errorf("PointCount = %d, want 3", dst.PointCount())
	}
}

func TestCloneNil(t *testing.T) {
	var l Levels
	if l.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestUniform(t *testing.T) {
	if !(Levels{{{}, {}}, {{}, {}}}).Uniform() {
		t.Error("equal ring sizes should be uniform")
	}
	if (Levels{{{}, {}}, {{}}}).Uniform() {
		t.Error("mismatched ring sizes should not be uniform")
	}
}

func TestRingLength(t *testing.T) {
	r := Ring{{}, {X: 3, Y: 4}, {X: 3, Y: 4, Z: 2}}
	if got := r.Length(); got != 7 {
		t.Errorf("Length = %v, want 7", got)
	}
	if got := (Ring{r3.Vec{X: 1}}).Length(); got != 0 {
		t.Errorf("single point Length = %v, want 0", got)
	}
}
