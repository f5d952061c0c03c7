package gcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/provelslice/internal/ring"
)

func TestReadProgram(t *testing.T) {
	o := fixedOptions()
	o.EstimatedTime = "0h 5m 12s"

	empty, err := ReadProgram(strings.NewReader(Emit(nil, o).String()))
	require.NoError(t, err)
	assert.Zero(t, empty.Levels)
	assert.True(t, empty.HasTeardown)
	assert.Equal(t, "0h 5m 12s", empty.EstimatedTime)
	assert.Equal(t, "cp1", empty.Material)

	levels := ring.Levels{
		{{X: 42, Y: 43, Z: 0}, {X: 42, Y: 43, Z: 4}},
		{{X: 42, Y: 44, Z: 4}, {X: 42, Y: 44, Z: 0}},
	}
	full, err := ReadProgram(strings.NewReader(Emit(levels, o).String()))
	require.NoError(t, err)

	assert.Equal(t, 2, full.Levels)
	assert.Equal(t, empty.MotionLines+5, full.MotionLines)
	assert.InDelta(t, empty.Extrusion+1.5+3.08+1+3.08, full.Extrusion, 1e-9)
	assert.Equal(t, 6000.0, full.MaxFeedrate)
	assert.Equal(t, 17.0, full.MinZ)
	assert.Equal(t, 70.0, full.MaxZ)
}

func TestReadProgramBadWord(t *testing.T) {
	_, err := ReadProgram(strings.NewReader("G1 X1\nG1 Xabc"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadProgramComments(t *testing.T) {
	s, err := ReadProgram(strings.NewReader("; only comments\nM107 ; fan\n\nG1 E5 ; no move\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, s.Lines)
	assert.Zero(t, s.MotionLines)
	assert.Equal(t, 5.0, s.Extrusion)
	assert.Zero(t, s.MinZ)
}
