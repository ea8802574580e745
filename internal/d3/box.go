package d3

import (
	"math"

	"github.com/soypat/glgl/math/ms3"
)

// EmptyBox returns an inverted box that any Include call will collapse
// onto the included point.
func EmptyBox() ms3.Box {
	return ms3.Box{
		Min: Elem(math.MaxFloat32),
		Max: Elem(-math.MaxFloat32),
	}
}

// Include enlarges a 3d box to include a point.
func Include(a ms3.Box, v ms3.Vec) ms3.Box {
	return ms3.Box{
		Min: ms3.MinElem(a.Min, v),
		Max: ms3.MaxElem(a.Max, v),
	}
}

// BoxEqual test the equality of 3d boxes.
func BoxEqual(a, b ms3.Box, tol float32) bool {
	return EqualWithin(a.Min, b.Min, tol) && EqualWithin(a.Max, b.Max, tol)
}

// Contains checks if the 3d box contains the given vector (considering bounds as inside)
// allowing for tol of slack on every side.
func Contains(a ms3.Box, v ms3.Vec, tol float32) bool {
	return a.Min.X-tol <= v.X && a.Min.Y-tol <= v.Y && a.Min.Z-tol <= v.Z &&
		v.X <= a.Max.X+tol && v.Y <= a.Max.Y+tol && v.Z <= a.Max.Z+tol
}
