package d3

import (
	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
	"gonum.org/v1/gonum/spatial/r3"
)

// float32 vector helpers missing from ms3 and conversions to
// the float64 gonum types used for accumulation.

func Elem(sides float32) ms3.Vec {
	return ms3.Vec{X: sides, Y: sides, Z: sides}
}

func EqualWithin(a, b ms3.Vec, tol float32) bool {
	return math32.Abs(a.X-b.X) <= tol &&
		math32.Abs(a.Y-b.Y) <= tol &&
		math32.Abs(a.Z-b.Z) <= tol
}

func MulElem(a, b ms3.Vec) ms3.Vec {
	return ms3.Vec{X: a.X * b.X, Y: a.Y * b.Y, Z: a.Z * b.Z}
}

// Finite reports whether all components are neither NaN nor infinite.
func Finite(a ms3.Vec) bool {
	return !(math32.IsNaN(a.X) || math32.IsInf(a.X, 0) ||
		math32.IsNaN(a.Y) || math32.IsInf(a.Y, 0) ||
		math32.IsNaN(a.Z) || math32.IsInf(a.Z, 0))
}

func ToR3(a ms3.Vec) r3.Vec {
	return r3.Vec{X: float64(a.X), Y: float64(a.Y), Z: float64(a.Z)}
}

func FromR3(a r3.Vec) ms3.Vec {
	return ms3.Vec{X: float32(a.X), Y: float32(a.Y), Z: float32(a.Z)}
}
