package deform

import (
	"github.com/soypat/deform/internal/d3"
	"github.com/soypat/glgl/math/ms3"
)

// degenerateSize is the smallest original bounding box size along an axis
// for which a target dimension can be resolved.
const degenerateSize = 1e-6

// Axes is a set of X, Y and Z axes stored as bits.
type Axes uint8

const (
	AxisX Axes = 1 << iota
	AxisY
	AxisZ
)

func (a Axes) X() bool { return a&AxisX != 0 }
func (a Axes) Y() bool { return a&AxisY != 0 }
func (a Axes) Z() bool { return a&AxisZ != 0 }

// String returns the set axes as lowercase letters, i.e: "xz".
func (a Axes) String() string {
	b := make([]byte, 0, 3)
	if a.X() {
		b = append(b, 'x')
	}
	if a.Y() {
		b = append(b, 'y')
	}
	if a.Z() {
		b = append(b, 'z')
	}
	return string(b)
}

// TargetDims holds optional absolute sizes per axis in mesh units.
// A non-positive value means the axis has no target.
type TargetDims struct {
	X, Y, Z float32
}

// Set returns the axes that have a target.
func (t TargetDims) Set() Axes {
	var a Axes
	if t.X > 0 {
		a |= AxisX
	}
	if t.Y > 0 {
		a |= AxisY
	}
	if t.Z > 0 {
		a |= AxisZ
	}
	return a
}

// ScaleSpec describes the user's scaling intent: a multiplicative scale and
// optional absolute target dimensions.
type ScaleSpec struct {
	UserScale ms3.Vec
	Target    TargetDims
}

// DefaultScaleSpec returns a unit scale with no target dimensions.
func DefaultScaleSpec() ScaleSpec {
	return ScaleSpec{UserScale: d3.Elem(1)}
}

// ResolveScale returns the effective per-axis scale of spec relative to a
// mesh whose original bounding box size is originalSize.
// For an axis with a target the scale is target/originalSize*userScale,
// otherwise it is userScale. Axes with a target whose original size is
// (nearly) zero cannot be resolved: they fall back to userScale and are
// returned in skipped.
func ResolveScale(originalSize ms3.Vec, spec ScaleSpec) (scale ms3.Vec, skipped Axes) {
	scale = spec.UserScale
	set := spec.Target.Set()
	resolve := func(axis Axes, target, size float32, dst *float32) {
		if set&axis == 0 {
			return
		}
		if size < degenerateSize {
			skipped |= axis
			return
		}
		*dst = target / size * *dst
	}
	resolve(AxisX, spec.Target.X, originalSize.X, &scale.X)
	resolve(AxisY, spec.Target.Y, originalSize.Y, &scale.Y)
	resolve(AxisZ, spec.Target.Z, originalSize.Z, &scale.Z)
	return scale, skipped
}
