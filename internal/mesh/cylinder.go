package mesh

import (
	gomath "math"

	"github.com/Faultbox/provelslice/pkg/math"
)

// Cylinder generates a closed cylinder of the given radius whose axis runs
// along up from height 0 to height. Side vertices sit at angles 2πk/segments.
func Cylinder(radius, height float64, segments int, up math.Axis) *Mesh {
	if segments < 3 {
		segments = 3
	}

	rim := make([]math.Vec2, segments)
	for k := range rim {
		a := 2 * gomath.Pi * float64(k) / float64(segments)
		rim[k] = math.Vec2{X: radius * gomath.Cos(a), Y: radius * gomath.Sin(a)}
	}

	m := &Mesh{Triangles: make([]Triangle, 0, segments*4)}
	bottomCenter := math.Lift(math.Vec2{}, 0, up)
	topCenter := math.Lift(math.Vec2{}, height, up)

	for k := 0; k < segments; k++ {
		n := (k + 1) % segments
		b0 := math.Lift(rim[k], 0, up)
		b1 := math.Lift(rim[n], 0, up)
		t0 := math.Lift(rim[k], height, up)
		t1 := math.Lift(rim[n], height, up)

		m.Triangles = append(m.Triangles,
			Triangle{b0, b1, t1},
			Triangle{b0, t1, t0},
			Triangle{bottomCenter, b1, b0},
			Triangle{topCenter, t0, t1},
		)
	}
	return m
}
