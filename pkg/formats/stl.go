// Package formats reads and writes mesh files as flat triangle position
// buffers.
package formats

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	gomath "math"
	"os"

	"github.com/hschendel/stl"

	"github.com/Faultbox/provelslice/pkg/encoding"
)

// STL format errors.
var (
	ErrEmptySTL         = errors.New("stl contains no triangles")
	ErrInvalidPositions = errors.New("position count is not a multiple of 9")
)

// STL is a decoded STL file.
type STL struct {
	Name  string
	ASCII bool
	// Positions holds 9 floats per triangle, vertices in file order.
	Positions []float32
}

// Triangles returns the triangle count.
func (s *STL) Triangles() int {
	return len(s.Positions) / 9
}

// ReadSTL decodes an ASCII or binary STL.
func ReadSTL(r io.Reader) (*STL, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading stl: %w", err)
	}
	return ParseSTL(data)
}

// ParseSTL decodes an STL held in memory.
func ParseSTL(data []byte) (*STL, error) {
	solid, err := stl.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing stl: %w", err)
	}
	if len(solid.Triangles) == 0 {
		return nil, ErrEmptySTL
	}

	s := &STL{
		Name:      solid.Name,
		ASCII:     solid.IsAscii,
		Positions: make([]float32, 0, len(solid.Triangles)*9),
	}
	if !s.ASCII && len(solid.BinaryHeader) > 0 {
		s.Name = encoding.HeaderName(solid.BinaryHeader)
	}
	for _, t := range solid.Triangles {
		for _, v := range t.Vertices {
			s.Positions = append(s.Positions, v[0], v[1], v[2])
		}
	}
	return s, nil
}

// LoadSTL reads an STL file from disk.
func LoadSTL(path string) (*STL, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := ReadSTL(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// WriteSTL encodes positions as an STL named name. Facet normals are
// computed from the winding.
func WriteSTL(w io.Writer, name string, positions []float32, ascii bool) error {
	if len(positions)%9 != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPositions, len(positions))
	}

	solid := &stl.Solid{
		Name:      name,
		IsAscii:   ascii,
		Triangles: make([]stl.Triangle, len(positions)/9),
	}
	if !ascii {
		solid.BinaryHeader = encoding.Header(name)
	}
	for i := range solid.Triangles {
		p := positions[i*9 : i*9+9]
		t := &solid.Triangles[i]
		t.Vertices[0] = stl.Vec3{p[0], p[1], p[2]}
		t.Vertices[1] = stl.Vec3{p[3], p[4], p[5]}
		t.Vertices[2] = stl.Vec3{p[6], p[7], p[8]}
		t.Normal = facetNormal(t.Vertices)
	}
	return solid.WriteAll(w)
}

// SaveSTL writes an STL file to disk.
func SaveSTL(path, name string, positions []float32, ascii bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSTL(f, name, positions, ascii); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func facetNormal(v [3]stl.Vec3) stl.Vec3 {
	ax, ay, az := float64(v[1][0]-v[0][0]), float64(v[1][1]-v[0][1]), float64(v[1][2]-v[0][2])
	bx, by, bz := float64(v[2][0]-v[0][0]), float64(v[2][1]-v[0][1]), float64(v[2][2]-v[0][2])
	nx, ny, nz := ay*bz-az*by, az*bx-ax*bz, ax*by-ay*bx
	l := gomath.Sqrt(nx*nx + ny*ny + nz*nz)
	if l == 0 {
		return stl.Vec3{}
	}
	return stl.Vec3{float32(nx / l), float32(ny / l), float32(nz / l)}
}
