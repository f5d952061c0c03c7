package formats

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hschendel/stl"
)

// tetrahedron with outward-facing windings
var tetra = []float32{
	0, 0, 0, 0, 1, 0, 1, 0, 0,
	0, 0, 0, 1, 0, 0, 0, 0, 1,
	0, 0, 0, 0, 0, 1, 0, 1, 0,
	1, 0, 0, 0, 1, 0, 0, 0, 1,
}

func TestSTLRoundTrip(t *testing.T) {
	for _, ascii := range []bool{false, true} {
		var buf bytes.Buffer
		if err := WriteSTL(&buf, "tetra", tetra, ascii); err != nil {
			t.Fatalf("WriteSTL(ascii=%v): %v", ascii, err)
		}

		s, err := ReadSTL(&buf)
		if err != nil {
			t.Fatalf("ReadSTL(ascii=%v): %v", ascii, err)
		}
		if s.ASCII != ascii {
			t.Errorf("ASCII = %v, want %v", s.ASCII, ascii)
		}
		if s.Name != "tetra" {
			t.Errorf("Name = %q, want tetra", s.Name)
		}
		if s.Triangles() != 4 {
			t.Fatalf("Triangles = %d, want 4", s.Triangles())
		}
		for i := range tetra {
			if s.Positions[i] != tetra[i] {
				t.Fatalf("position %d = %v, want %v", i, s.Positions[i], tetra[i])
			}
		}
	}
}

func TestReadASCII(t *testing.T) {
	src := `solid plate
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 10 0 0
      vertex 0 10 0
    endloop
  endfacet
endsolid plate
`
	s, err := ReadSTL(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadSTL: %v", err)
	}
	if !s.ASCII || s.Name != "plate" || s.Triangles() != 1 {
		t.Errorf("unexpected STL: %+v", s)
	}
	if s.Positions[3] != 10 {
		t.Errorf("second vertex x = %v", s.Positions[3])
	}
}

func TestReadEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSTL(&buf, "empty", nil, false); err != nil {
		t.Fatalf("WriteSTL: %v", err)
	}
	if _, err := ReadSTL(&buf); !errors.Is(err, ErrEmptySTL) {
		t.Errorf("expected ErrEmptySTL, got %v", err)
	}
	if _, err := ReadSTL(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestWriteInvalidPositions(t *testing.T) {
	err := WriteSTL(&bytes.Buffer{}, "bad", tetra[:8], false)
	if !errors.Is(err, ErrInvalidPositions) {
		t.Errorf("expected ErrInvalidPositions, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tetra.stl")
	if err := SaveSTL(path, "tetra", tetra, false); err != nil {
		t.Fatalf("SaveSTL: %v", err)
	}
	s, err := LoadSTL(path)
	if err != nil {
		t.Fatalf("LoadSTL: %v", err)
	}
	if s.Triangles() != 4 {
		t.Errorf("Triangles = %d", s.Triangles())
	}

	if _, err := LoadSTL(filepath.Join(t.TempDir(), "missing.stl")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFacetNormal(t *testing.T) {
	n := facetNormal([3]stl.Vec3{{0, 0, 0}, {0, 1, 0}, {1, 0, 0}})
	if n != (stl.Vec3{0, 0, -1}) {
		t.Errorf("normal = %v, want (0,0,-1)", n)
	}
	if n := facetNormal([3]stl.Vec3{{1, 1, 1}, {1, 1, 1}, {2, 2, 2}}); n != (stl.Vec3{}) {
		t.Errorf("degenerate normal = %v", n)
	}
}
