// Package meshio reads and writes mesh files. It is the file boundary of
// the deformation engine: the core packages never import it.
//
// STL is read and written natively. OBJ, PLY and 3DS files are decoded
// with fauxgl.
package meshio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/fauxgl"
	"github.com/soypat/deform/mesh"
	"github.com/soypat/glgl/math/ms3"
)

// ErrUnsupportedExtension is returned by Load for files it cannot decode.
var ErrUnsupportedExtension = errors.New("unsupported mesh file extension")

// WeldTolerance is the distance under which Load merges vertices of
// triangle soups into a single indexed vertex.
const WeldTolerance = 1e-6

// Extensions lists the file extensions accepted by Load.
var Extensions = []string{".stl", ".obj", ".ply", ".3ds"}

// Load reads the mesh file at path choosing the decoder by file extension.
func Load(path string) (mesh.Mesh, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var (
		fm  *fauxgl.Mesh
		err error
	)
	switch ext {
	case ".stl":
		fp, err := os.Open(path)
		if err != nil {
			return mesh.Mesh{}, err
		}
		defer fp.Close()
		m, err := ReadSTL(fp, WeldTolerance)
		if err != nil {
			return mesh.Mesh{}, fmt.Errorf("%s: %w", path, err)
		}
		return m, nil
	case ".obj":
		fm, err = fauxgl.LoadOBJ(path)
	case ".ply":
		fm, err = fauxgl.LoadPLY(path)
	case ".3ds":
		fm, err = fauxgl.Load3DS(path)
	default:
		return mesh.Mesh{}, fmt.Errorf("%w %q", ErrUnsupportedExtension, ext)
	}
	if err != nil {
		return mesh.Mesh{}, fmt.Errorf("%s: %w", path, err)
	}
	m, err := FromFauxgl(fm, WeldTolerance)
	if err != nil {
		return mesh.Mesh{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// FromFauxgl converts a fauxgl triangle soup into an indexed mesh, merging
// vertices closer than weldTol. Lines of fm are ignored.
func FromFauxgl(fm *fauxgl.Mesh, weldTol float32) (mesh.Mesh, error) {
	if fm == nil || len(fm.Triangles) == 0 {
		return mesh.Mesh{}, mesh.ErrEmpty
	}
	tris := make([]ms3.Triangle, len(fm.Triangles))
	for i, t := range fm.Triangles {
		tris[i] = ms3.Triangle{
			fromFauxglVec(t.V1.Position),
			fromFauxglVec(t.V2.Position),
			fromFauxglVec(t.V3.Position),
		}
	}
	return mesh.FromTriangles(tris, weldTol)
}

// ToFauxgl returns m as a fauxgl mesh, for use with the fauxgl renderer.
func ToFauxgl(m mesh.Mesh) *fauxgl.Mesh {
	tris := make([]*fauxgl.Triangle, len(m.Indices))
	for i, idx := range m.Indices {
		tris[i] = fauxgl.NewTriangleForPoints(
			toFauxglVec(m.Positions[idx[0]]),
			toFauxglVec(m.Positions[idx[1]]),
			toFauxglVec(m.Positions[idx[2]]),
		)
	}
	return fauxgl.NewTriangleMesh(tris)
}

func fromFauxglVec(v fauxgl.Vector) ms3.Vec {
	return ms3.Vec{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

func toFauxglVec(v ms3.Vec) fauxgl.Vector {
	return fauxgl.V(float64(v.X), float64(v.Y), float64(v.Z))
}
