// Package mesh defines the indexed triangle mesh shared by the deformation
// core and its loaders/exporters, together with the derived attributes
// (bounding box, bounding sphere, vertex normals) that are recomputed after
// positions change.
package mesh

import (
	"errors"
	"fmt"

	"github.com/soypat/deform/internal/d3"
	"github.com/soypat/glgl/math/ms3"
)

// ErrEmpty is returned by operations that need at least one vertex.
var ErrEmpty = errors.New("mesh has no vertices")

// Mesh is an indexed triangle mesh. Topology (Indices) is fixed once the
// mesh is built; deformation only ever rewrites Positions and Normals.
type Mesh struct {
	Positions []ms3.Vec
	// Normals is either empty or has one normal per position.
	Normals []ms3.Vec
	Indices [][3]uint32
}

// NumVertices returns the amount of vertex positions in the mesh.
func (m Mesh) NumVertices() int { return len(m.Positions) }

// NumTriangles returns the amount of indexed triangles in the mesh.
func (m Mesh) NumTriangles() int { return len(m.Indices) }

// Validate checks the mesh is structurally sound: it has vertices, normals
// (if present) match the positions, every index is in range and every
// position is finite.
func (m Mesh) Validate() error {
	nv := len(m.Positions)
	if nv == 0 {
		return ErrEmpty
	}
	if len(m.Normals) != 0 && len(m.Normals) != nv {
		return fmt.Errorf("mesh has %d normals for %d positions", len(m.Normals), nv)
	}
	for i, tri := range m.Indices {
		for _, vi := range tri {
			if int(vi) >= nv {
				return fmt.Errorf("triangle %d references vertex %d out of %d", i, vi, nv)
			}
		}
	}
	for i, p := range m.Positions {
		if !d3.Finite(p) {
			return fmt.Errorf("inf/NaN mesh position %d", i)
		}
	}
	return nil
}

// Clone returns a deep copy of the mesh that shares no memory with m.
func (m Mesh) Clone() Mesh {
	c := Mesh{
		Positions: append([]ms3.Vec(nil), m.Positions...),
		Indices:   append([][3]uint32(nil), m.Indices...),
	}
	if len(m.Normals) > 0 {
		c.Normals = append([]ms3.Vec(nil), m.Normals...)
	}
	return c
}

// Triangles appends the triangles of the mesh to dst and returns the result.
func (m Mesh) Triangles(dst []ms3.Triangle) []ms3.Triangle {
	for _, tri := range m.Indices {
		dst = append(dst, ms3.Triangle{
			m.Positions[tri[0]],
			m.Positions[tri[1]],
			m.Positions[tri[2]],
		})
	}
	return dst
}

// Bounds returns the axis aligned bounding box enclosing all positions.
func Bounds(positions []ms3.Vec) (ms3.Box, error) {
	if len(positions) == 0 {
		return ms3.Box{}, ErrEmpty
	}
	bb := d3.EmptyBox()
	for _, p := range positions {
		bb = d3.Include(bb, p)
	}
	return bb, nil
}
