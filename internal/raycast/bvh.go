package raycast

import (
	"errors"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/logger"
	"github.com/Faultbox/provelslice/internal/mesh"
)

// ErrNoTriangles is returned when a mesh has nothing to intersect.
var ErrNoTriangles = errors.New("mesh has no usable triangles")

const leafSize = 4

// Hit is one ray-triangle intersection.
type Hit struct {
	Point    r3.Vec
	Distance float64
	Triangle int
}

type node struct {
	box         AABB
	left, right int // child node indices, -1 for leaves
	start, n    int // triangle range in order, leaves only
}

// BVH is an immutable bounding volume hierarchy over a mesh. It is safe for
// concurrent queries.
type BVH struct {
	tris  []mesh.Triangle
	order []int
	nodes []node
}

// Build constructs a hierarchy over the non-degenerate triangles of m.
func Build(m *mesh.Mesh) (*BVH, error) {
	b := &BVH{}
	for _, tri := range m.Triangles {
		if tri.Degenerate() {
			continue
		}
		b.tris = append(b.tris, tri)
	}
	if len(b.tris) == 0 {
		return nil, ErrNoTriangles
	}
	if skipped := m.Len() - len(b.tris); skipped > 0 {
		logger.Debug("skipped degenerate triangles", zap.Int("count", skipped))
	}

	b.order = make([]int, len(b.tris))
	centroids := make([]r3.Vec, len(b.tris))
	boxes := make([]AABB, len(b.tris))
	for i, tri := range b.tris {
		b.order[i] = i
		centroids[i] = tri.Centroid()
		boxes[i] = triangleBounds(tri)
	}

	b.build(0, len(b.order), centroids, boxes)
	return b, nil
}

func (b *BVH) build(start, end int, centroids []r3.Vec, boxes []AABB) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, node{left: -1, right: -1})

	box := EmptyAABB()
	cbox := EmptyAABB()
	for _, t := range b.order[start:end] {
		box = box.Union(boxes[t])
		cbox = cbox.Extend(centroids[t])
	}

	if end-start <= leafSize {
		b.nodes[idx] = node{box: box, left: -1, right: -1, start: start, n: end - start}
		return idx
	}

	axis := cbox.LongestAxis()
	part := b.order[start:end]
	sort.Slice(part, func(i, j int) bool {
		return component(centroids[part[i]], axis) < component(centroids[part[j]], axis)
	})
	mid := start + (end-start)/2

	left := b.build(start, mid, centroids, boxes)
	right := b.build(mid, end, centroids, boxes)
	b.nodes[idx] = node{box: box, left: left, right: right}
	return idx
}

func component(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Len returns the number of indexed triangles.
func (b *BVH) Len() int {
	return len(b.tris)
}

// Bounds returns the box around every indexed triangle.
func (b *BVH) Bounds() AABB {
	return b.nodes[0].box
}

// Intersect appends every hit along r to dst, ordered by distance.
func (b *BVH) Intersect(r Ray, dst []Hit) []Hit {
	start := len(dst)
	b.visit(r, func(tri int, t float64) {
		dst = append(dst, Hit{Point: r.At(t), Distance: t, Triangle: tri})
	})
	hits := dst[start:]
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return dst
}

// Farthest returns the hit with the greatest distance along r. For a ray
// cast outward from inside a closed surface this is the outer wall.
func (b *BVH) Farthest(r Ray) (Hit, bool) {
	best := Hit{Distance: -1}
	b.visit(r, func(tri int, t float64) {
		if t > best.Distance {
			best = Hit{Distance: t, Triangle: tri}
		}
	})
	if best.Distance < 0 {
		return Hit{}, false
	}
	best.Point = r.At(best.Distance)
	return best, true
}

// Nearest returns the closest hit along r.
func (b *BVH) Nearest(r Ray) (Hit, bool) {
	found := false
	var best Hit
	b.visit(r, func(tri int, t float64) {
		if !found || t < best.Distance {
			best = Hit{Distance: t, Triangle: tri}
			found = true
		}
	})
	if !found {
		return Hit{}, false
	}
	best.Point = r.At(best.Distance)
	return best, true
}

func (b *BVH) visit(r Ray, fn func(tri int, t float64)) {
	stack := make([]int, 0, 64)
	stack = append(stack, 0)
	for len(stack) > 0 {
		n := &b.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		if _, _, ok := r.clipAABB(n.box); !ok {
			continue
		}
		if n.left < 0 {
			for _, ti := range b.order[n.start : n.start+n.n] {
				if t, ok := r.IntersectTriangle(b.tris[ti]); ok {
					fn(ti, t)
				}
			}
			continue
		}
		stack = append(stack, n.left, n.right)
	}
}
