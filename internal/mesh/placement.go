package mesh

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/logger"
	"github.com/Faultbox/provelslice/pkg/math"
)

// Placement positions a socket on the cup before slicing.
type Placement struct {
	// Rotation in degrees about X, Y and Z, applied in that order.
	Rotation r3.Vec
	// Offset is added after rotation and alignment.
	Offset r3.Vec
	// Up is the vertical axis of the mesh.
	Up math.Axis
	// LockDepth is how far the socket base sinks below the cup rim.
	LockDepth float64
	// AutoAlign recenters the mesh on the vertical axis and drops its base
	// to the lock depth.
	AutoAlign bool
}

// Place applies rotation, optional auto-alignment and offset.
func (m *Mesh) Place(p Placement) *Mesh {
	out := m
	if p.Rotation != (r3.Vec{}) {
		out = out.Transform(math.EulerDegrees(p.Rotation.X, p.Rotation.Y, p.Rotation.Z))
	}
	if p.AutoAlign {
		out = out.AutoAlign(p.Up, p.LockDepth)
	}
	if p.Offset != (r3.Vec{}) {
		out = out.Translate(p.Offset)
	}
	return out
}

// AutoAlign centers the mesh horizontally on the origin and, when its base
// sits below zero, lifts it so that only lockDepth remains below.
func (m *Mesh) AutoAlign(up math.Axis, lockDepth float64) *Mesh {
	if m.Empty() {
		return m
	}

	b := m.Bounds()
	center := r3.Scale(0.5, r3.Add(b.Min, b.Max))
	offset := r3.Scale(-1, center)
	offset = math.WithComponent(offset, up, 0)

	if base := math.Component(b.Min, up); base < 0 {
		offset = math.WithComponent(offset, up, -base-lockDepth)
	}

	logger.Debug("auto-aligned mesh",
		zap.Float64("dx", offset.X),
		zap.Float64("dy", offset.Y),
		zap.Float64("dz", offset.Z))
	return m.Translate(offset)
}
