// Package gleval evaluates the deformation over vertex batches on the host
// or on the GPU. Both evaluators implement [deform.Evaluator] and can be
// passed to [deform.BakeWith].
package gleval

import (
	"github.com/chewxy/math32"
	"github.com/soypat/deform"
	"github.com/soypat/glgl/math/ms3"
)

// Evaluator evaluates the deformation over pos positions storing deformed
// and scaled results in dst. pos and dst must be of same length.
type Evaluator = deform.Evaluator

var (
	_ Evaluator = (*CPU)(nil)
	_ Evaluator = (*GPU)(nil)
)

// Compare returns the index of the first position at which a and b differ by
// more than tol along any axis and the largest difference found.
// idx is -1 if no position exceeds tol.
func Compare(a, b []ms3.Vec, tol float32) (idx int, maxDiff float32) {
	idx = -1
	for i := range min(len(a), len(b)) {
		d := ms3.Sub(a[i], b[i])
		diff := max(math32.Abs(d.X), math32.Abs(d.Y), math32.Abs(d.Z))
		if diff > maxDiff {
			maxDiff = diff
		}
		if idx < 0 && diff > tol {
			idx = i
		}
	}
	return idx, maxDiff
}
