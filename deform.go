// Package deform implements the per-vertex shape modifiers (taper, twist,
// bend) and the mesh level operations built on them: normalization, scale
// resolution and baking.
//
// The formula in [Deform] is the single definition of the deformation. The
// GLSL emitted by package glbuild is a line-by-line transcription of it in
// float32 arithmetic, so preview and export agree to rendering precision.
package deform

import (
	"github.com/chewxy/math32"
	"github.com/soypat/deform/internal/d3"
	"github.com/soypat/glgl/math/ms3"
)

// heightEpsilon is the floor applied to the height of a frame so
// flat meshes never divide by zero.
const heightEpsilon = 1e-6

// Params are the shape modifier values. The zero value applies no deformation.
type Params struct {
	// Twist is the rotation in radians about the vertical (Y) axis reached at
	// the top of the frame. Rotation grows linearly from zero at the bottom.
	Twist float32
	// Bend is the rotation in radians about the X axis spanned between the
	// bottom and top of the frame, centered at mid-height.
	Bend float32
	// Taper scales X and Z linearly with height: 1-Taper at the bottom,
	// 1 at mid-height and 1+Taper at the top. Useful range is about [-1, 1].
	Taper float32
}

// IsZero reports whether the parameters leave positions unchanged.
func (p Params) IsZero() bool { return p == Params{} }

// HeightFrame maps a Y coordinate to a normalized height.
type HeightFrame struct {
	MinY   float32
	Height float32
}

// NewHeightFrame returns the frame spanning the Y extent of bb. Height is
// floored at a small epsilon for flat meshes.
func NewHeightFrame(bb ms3.Box) HeightFrame {
	return HeightFrame{
		MinY:   bb.Min.Y,
		Height: math32.Max(bb.Max.Y-bb.Min.Y, heightEpsilon),
	}
}

// H returns the normalized height of y, 0 at MinY and 1 at MinY+Height.
// Values outside the frame are not clamped.
func (f HeightFrame) H(y float32) float32 {
	return (y - f.MinY) / f.Height
}

// Deform applies taper, twist and bend, in that order, to p.
func Deform(p ms3.Vec, f HeightFrame, prm Params) ms3.Vec {
	h := f.H(p.Y)

	// Taper in XZ, factor 1 at mid-height.
	taperFactor := 1 + prm.Taper*(h-0.5)*2
	x := p.X * taperFactor
	z := p.Z * taperFactor

	// Twist about Y.
	angle := prm.Twist * h
	c, s := math32.Cos(angle), math32.Sin(angle)
	x, z = x*c-z*s, x*s+z*c

	// Bend in the YZ plane about the frame's mid-height.
	bendAngle := (h - 0.5) * prm.Bend
	yc := (h - 0.5) * f.Height
	cb, sb := math32.Cos(bendAngle), math32.Sin(bendAngle)
	zb := z*cb - yc*sb
	yb := z*sb + yc*cb
	return ms3.Vec{X: x, Y: yb + f.MinY + f.Height*0.5, Z: zb}
}

// DeformScaled applies Deform to p followed by a per-axis scale.
// This is the complete per-vertex computation of both bake and preview.
func DeformScaled(p ms3.Vec, u Uniforms) ms3.Vec {
	return d3.MulElem(Deform(p, u.Frame(), u.Params()), u.Scale)
}

// Uniforms is the live parameter set consumed by the rendering stage.
// Field names mirror the GLSL uniforms uTwist, uBend, uTaper, uMinY,
// uHeight and uScale.
type Uniforms struct {
	Twist  float32
	Bend   float32
	Taper  float32
	MinY   float32
	Height float32
	Scale  ms3.Vec
}

// IdentityUniforms returns uniforms that leave positions unchanged.
func IdentityUniforms() Uniforms {
	return Uniforms{Height: 1, Scale: d3.Elem(1)}
}

// NewUniforms packs modifier parameters, frame and effective scale.
func NewUniforms(prm Params, f HeightFrame, scale ms3.Vec) Uniforms {
	return Uniforms{
		Twist:  prm.Twist,
		Bend:   prm.Bend,
		Taper:  prm.Taper,
		MinY:   f.MinY,
		Height: f.Height,
		Scale:  scale,
	}
}

// Frame returns the height frame stored in u.
func (u Uniforms) Frame() HeightFrame { return HeightFrame{MinY: u.MinY, Height: u.Height} }

// Params returns the modifier parameters stored in u.
func (u Uniforms) Params() Params { return Params{Twist: u.Twist, Bend: u.Bend, Taper: u.Taper} }
