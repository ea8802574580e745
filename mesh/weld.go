package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/glgl/math/ms3"
)

// FromTriangles builds an indexed mesh from a triangle soup such as the
// contents of an STL file. Vertices closer than tol on every axis are
// merged into a single vertex. If tol is zero only bit-identical vertices are
// merged. Normals are left empty.
func FromTriangles(triangles []ms3.Triangle, tol float32) (Mesh, error) {
	if len(triangles) == 0 {
		return Mesh{}, ErrEmpty
	} else if tol < 0 {
		return Mesh{}, errors.New("negative vertex weld tolerance")
	}
	if len(triangles) > math.MaxUint32/3 {
		return Mesh{}, fmt.Errorf("%d triangles exceed mesh index range", len(triangles))
	}
	m := Mesh{
		Positions: make([]ms3.Vec, 0, len(triangles)/2+3),
		Indices:   make([][3]uint32, len(triangles)),
	}
	// Vertex index cache keyed by position in tolerance space.
	cache := make(map[[3]int64]uint32, len(triangles)/2+3)
	key := func(v ms3.Vec) [3]int64 {
		if tol == 0 {
			return [3]int64{
				int64(math.Float32bits(v.X)),
				int64(math.Float32bits(v.Y)),
				int64(math.Float32bits(v.Z)),
			}
		}
		ri := 1 / float64(tol)
		return [3]int64{
			int64(math.Round(float64(v.X) * ri)),
			int64(math.Round(float64(v.Y) * ri)),
			int64(math.Round(float64(v.Z) * ri)),
		}
	}
	for i, tri := range triangles {
		for j, vert := range tri {
			k := key(vert)
			vi, ok := cache[k]
			if !ok {
				vi = uint32(len(m.Positions))
				cache[k] = vi
				m.Positions = append(m.Positions, vert)
			}
			m.Indices[i][j] = vi
		}
	}
	return m, nil
}
