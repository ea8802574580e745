package mesh

import (
	"math"

	"github.com/soypat/deform/internal/d3"
	"github.com/soypat/glgl/math/ms3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Sphere is a bounding sphere.
type Sphere struct {
	Center ms3.Vec
	Radius float32
}

// BoundingSphere returns a sphere centered on the bounding box center of
// bb whose radius reaches the farthest position.
func BoundingSphere(positions []ms3.Vec, bb ms3.Box) Sphere {
	c := d3.ToR3(bb.Center())
	var maxDist2 float64
	for _, p := range positions {
		maxDist2 = math.Max(maxDist2, r3.Norm2(r3.Sub(d3.ToR3(p), c)))
	}
	return Sphere{Center: bb.Center(), Radius: float32(math.Sqrt(maxDist2))}
}

// Contains reports whether p lies within the sphere with tol of slack.
func (s Sphere) Contains(p ms3.Vec, tol float32) bool {
	return ms3.Norm(ms3.Sub(p, s.Center)) <= s.Radius+tol
}

// VertexNormals computes area weighted vertex normals for the indexed
// triangles and stores them in dst, which is grown to len(positions) if
// needed. Accumulation is done in float64. Vertices not referenced by any
// non-degenerate triangle get the +Y normal.
func VertexNormals(dst []ms3.Vec, positions []ms3.Vec, indices [][3]uint32) []ms3.Vec {
	acc := make([]r3.Vec, len(positions))
	for _, tri := range indices {
		a := d3.ToR3(positions[tri[0]])
		b := d3.ToR3(positions[tri[1]])
		c := d3.ToR3(positions[tri[2]])
		// Cross product magnitude is twice the triangle area: weights by area.
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		acc[tri[0]] = r3.Add(acc[tri[0]], n)
		acc[tri[1]] = r3.Add(acc[tri[1]], n)
		acc[tri[2]] = r3.Add(acc[tri[2]], n)
	}
	if cap(dst) < len(positions) {
		dst = make([]ms3.Vec, len(positions))
	}
	dst = dst[:len(positions)]
	for i, n := range acc {
		norm := r3.Norm(n)
		if norm < 1e-20 {
			dst[i] = ms3.Vec{Y: 1}
			continue
		}
		dst[i] = d3.FromR3(r3.Scale(1/norm, n))
	}
	return dst
}

// RecomputeNormals overwrites the normals of m with freshly computed vertex
// normals. The Normals slice is reused when it has the capacity.
func (m *Mesh) RecomputeNormals() {
	m.Normals = VertexNormals(m.Normals, m.Positions, m.Indices)
}
