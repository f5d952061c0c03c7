// Package mesh holds triangle soups loaded from STL files or generated for
// tests, plus the placement transforms applied before slicing.
package mesh

import (
	gomath "math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/logger"
	"github.com/Faultbox/provelslice/pkg/math"
)

// degenerateArea is the cross-product magnitude below which a triangle is
// treated as having no surface.
const degenerateArea = 1e-12

// Triangle is three vertex positions in world space.
type Triangle [3]r3.Vec

// Normal returns the unnormalized face normal.
func (t Triangle) Normal() r3.Vec {
	return r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
}

// Degenerate reports whether the triangle has (near) zero area.
func (t Triangle) Degenerate() bool {
	return r3.Norm(t.Normal()) < degenerateArea
}

// Centroid returns the average of the three vertices.
func (t Triangle) Centroid() r3.Vec {
	return r3.Scale(1.0/3.0, r3.Add(r3.Add(t[0], t[1]), t[2]))
}

// Mesh is an immutable triangle soup. Operations that change geometry
// return a new Mesh.
type Mesh struct {
	Triangles []Triangle
}

// FromPositions builds a mesh from a flat x,y,z buffer where every nine
// values form one triangle. A trailing partial triangle is dropped.
func FromPositions(positions []float32) *Mesh {
	n := len(positions) / 9
	if rem := len(positions) % 9; rem != 0 {
		logger.Warn("position buffer has trailing partial triangle",
			zap.Int("values", len(positions)),
			zap.Int("dropped", rem))
	}

	m := &Mesh{Triangles: make([]Triangle, 0, n)}
	for i := 0; i < n; i++ {
		var tri Triangle
		for j := 0; j < 3; j++ {
			o := i*9 + j*3
			tri[j] = r3.Vec{
				X: float64(positions[o]),
				Y: float64(positions[o+1]),
				Z: float64(positions[o+2]),
			}
		}
		m.Triangles = append(m.Triangles, tri)
	}
	return m
}

// Positions flattens the mesh back into an x,y,z buffer.
func (m *Mesh) Positions() []float32 {
	out := make([]float32, 0, len(m.Triangles)*9)
	for _, tri := range m.Triangles {
		for _, v := range tri {
			out = append(out, float32(v.X), float32(v.Y), float32(v.Z))
		}
	}
	return out
}

// Len returns the number of triangles.
func (m *Mesh) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Triangles)
}

// Empty reports whether the mesh has no triangles.
func (m *Mesh) Empty() bool {
	return m.Len() == 0
}

// Bounds returns the axis-aligned bounding box. An empty mesh returns the
// zero box.
func (m *Mesh) Bounds() r3.Box {
	if m.Empty() {
		return r3.Box{}
	}

	b := r3.Box{
		Min: r3.Vec{X: gomath.Inf(1), Y: gomath.Inf(1), Z: gomath.Inf(1)},
		Max: r3.Vec{X: gomath.Inf(-1), Y: gomath.Inf(-1), Z: gomath.Inf(-1)},
	}
	for _, tri := range m.Triangles {
		for _, v := range tri {
			updateBounds(&b, v)
		}
	}
	return b
}

func updateBounds(b *r3.Box, v r3.Vec) {
	b.Min.X = gomath.Min(b.Min.X, v.X)
	b.Min.Y = gomath.Min(b.Min.Y, v.Y)
	b.Min.Z = gomath.Min(b.Min.Z, v.Z)
	b.Max.X = gomath.Max(b.Max.X, v.X)
	b.Max.Y = gomath.Max(b.Max.Y, v.Y)
	b.Max.Z = gomath.Max(b.Max.Z, v.Z)
}

// Center returns the midpoint of the bounding box.
func (m *Mesh) Center() r3.Vec {
	b := m.Bounds()
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Degenerate returns the number of zero-area triangles.
func (m *Mesh) Degenerate() int {
	n := 0
	for _, tri := range m.Triangles {
		if tri.Degenerate() {
			n++
		}
	}
	return n
}

// Transform returns a copy with every vertex multiplied by mat.
func (m *Mesh) Transform(mat math.Mat4) *Mesh {
	out := &Mesh{Triangles: make([]Triangle, len(m.Triangles))}
	for i, tri := range m.Triangles {
		for j, v := range tri {
			out.Triangles[i][j] = mat.TransformPoint(v)
		}
	}
	return out
}

// Translate returns a copy moved by offset.
func (m *Mesh) Translate(offset r3.Vec) *Mesh {
	return m.Transform(math.Translate(offset))
}
