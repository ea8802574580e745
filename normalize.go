package deform

import (
	"fmt"

	"github.com/soypat/deform/mesh"
	"github.com/soypat/glgl/math/ms3"
)

// ErrEmptyMesh is returned when normalizing or baking a mesh without vertices.
var ErrEmptyMesh = mesh.ErrEmpty

// NormalizedMesh is a mesh centered on the origin of its bounding box paired
// with the bounding box measured right after centering.
type NormalizedMesh struct {
	Mesh mesh.Mesh
	// OriginalBounds is the reference box for scale resolution and the height
	// frame. It is never recomputed from deformed positions.
	OriginalBounds ms3.Box
}

// Normalize returns a copy of m translated so that its bounding box center
// is at the origin, with recomputed normals. m is not modified.
func Normalize(m mesh.Mesh) (NormalizedMesh, error) {
	if err := m.Validate(); err != nil {
		return NormalizedMesh{}, fmt.Errorf("normalize: %w", err)
	}
	bb, err := mesh.Bounds(m.Positions)
	if err != nil {
		return NormalizedMesh{}, fmt.Errorf("normalize: %w", err)
	}
	center := bb.Center()
	nm := m.Clone()
	for i, p := range nm.Positions {
		nm.Positions[i] = ms3.Sub(p, center)
	}
	original, err := mesh.Bounds(nm.Positions)
	if err != nil {
		return NormalizedMesh{}, fmt.Errorf("normalize: %w", err)
	}
	nm.RecomputeNormals()
	return NormalizedMesh{Mesh: nm, OriginalBounds: original}, nil
}

// Frame returns the height frame of the normalized mesh's original bounds.
func (nm NormalizedMesh) Frame() HeightFrame {
	return NewHeightFrame(nm.OriginalBounds)
}

// Size returns the size of the original bounding box.
func (nm NormalizedMesh) Size() ms3.Vec {
	return nm.OriginalBounds.Size()
}
