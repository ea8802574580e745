// Package glbuild generates the GLSL source of the deformation stage.
//
// There is a single template. It always declares the six deformation
// uniforms and always contains the complete deformPosition function, so
// enabling or disabling a modifier is done by uniform values alone and the
// program never needs to be recompiled while parameters change.
package glbuild

import (
	"bytes"
	"io"
	"strconv"

	"github.com/soypat/deform"
	"github.com/soypat/glgl/math/ms3"
)

// Version identifies the revision of the deformation template. Programs
// generated by different versions may not be interchangeable.
const Version = "deform/2"

// Uniform names as declared in generated programs.
const (
	UniformTwist  = "uTwist"
	UniformBend   = "uBend"
	UniformTaper  = "uTaper"
	UniformMinY   = "uMinY"
	UniformHeight = "uHeight"
	UniformScale  = "uScale"
)

// UniformNames lists every uniform of the template in declaration order.
var UniformNames = [6]string{UniformTwist, UniformBend, UniformTaper, UniformMinY, UniformHeight, UniformScale}

// deformBody is a transcription of deform.Deform in GLSL float arithmetic.
// Keep both in sync: stage order is taper, twist, bend.
const deformBody = `	float h = (p.y - uMinY) / uHeight;
	float taperFactor = 1.0 + uTaper*(h - 0.5)*2.0;
	float x = p.x*taperFactor;
	float z = p.z*taperFactor;
	float angle = uTwist*h;
	float c = cos(angle);
	float s = sin(angle);
	float xt = x*c - z*s;
	z = x*s + z*c;
	x = xt;
	float bendAngle = (h - 0.5)*uBend;
	float yc = (h - 0.5)*uHeight;
	float cb = cos(bendAngle);
	float sb = sin(bendAngle);
	float zb = z*cb - yc*sb;
	float yb = z*sb + yc*cb;
	return vec3(x, yb + uMinY + uHeight*0.5, zb);
`

// AppendUniformDecls appends the declarations of the six deformation
// uniforms to b, initialized to the identity transform, and returns the result.
func AppendUniformDecls(b []byte) []byte {
	id := deform.IdentityUniforms()
	b = appendUniformFloat(b, UniformTwist, id.Twist)
	b = appendUniformFloat(b, UniformBend, id.Bend)
	b = appendUniformFloat(b, UniformTaper, id.Taper)
	b = appendUniformFloat(b, UniformMinY, id.MinY)
	b = appendUniformFloat(b, UniformHeight, id.Height)
	b = append(b, "uniform "...)
	b = AppendVec3Decl(b, UniformScale, id.Scale)
	return b
}

func appendUniformFloat(b []byte, name string, v float32) []byte {
	b = append(b, "uniform "...)
	return AppendFloatDecl(b, name, v)
}

// AppendDeformFuncs appends the GLSL functions deformPosition and
// deformScaled to b and returns the result. The uniforms must be declared
// beforehand, see [AppendUniformDecls].
func AppendDeformFuncs(b []byte) []byte {
	b = append(b, "vec3 deformPosition(vec3 p) {\n"...)
	b = append(b, deformBody...)
	b = append(b, "}\n\n"...)
	b = append(b, "vec3 deformScaled(vec3 p) {\n\treturn deformPosition(p)*"...)
	b = append(b, UniformScale...)
	b = append(b, ";\n}\n\n"...)
	return b
}

func appendHeader(b []byte, glslVersion string) []byte {
	b = append(b, "#version "...)
	b = append(b, glslVersion...)
	b = append(b, "\n// "...)
	b = append(b, Version...)
	b = append(b, '\n')
	return b
}

// WriteVertexShader writes a vertex stage that deforms and scales
// aPosition (location 0) and projects it with uMVP. The untouched aNormal
// (location 1) is forwarded as vNormal.
func WriteVertexShader(w io.Writer) (int, error) {
	b := make([]byte, 0, 2048)
	b = appendHeader(b, "330 core")
	b = AppendUniformDecls(b)
	b = append(b, `uniform mat4 uMVP;
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;
out vec3 vNormal;

`...)
	b = AppendDeformFuncs(b)
	b = append(b, `void main() {
	gl_Position = uMVP*vec4(deformScaled(aPosition), 1.0);
	vNormal = aNormal;
}
`...)
	return w.Write(b)
}

// WriteComputeProgram writes a compute program in glgl combined format
// that reads positions from image unit 0 and stores deformed and scaled
// positions to image unit 1, one invocation per texel.
func WriteComputeProgram(w io.Writer) (int, error) {
	b := make([]byte, 0, 2048)
	b = append(b, "#shader compute\n"...)
	b = appendHeader(b, "430")
	b = append(b, `layout(local_size_x = 1, local_size_y = 1, local_size_z = 1) in;
layout(rgba32f, binding = 0) uniform image2D in_pos;
layout(rgba32f, binding = 1) uniform image2D out_pos;
`...)
	b = AppendUniformDecls(b)
	b = append(b, '\n')
	b = AppendDeformFuncs(b)
	b = append(b, `void main() {
	ivec2 texel = ivec2(gl_GlobalInvocationID.xy);
	vec3 p = imageLoad(in_pos, texel).rgb;
	imageStore(out_pos, texel, vec4(deformScaled(p), 1.0));
}
`...)
	return w.Write(b)
}

func AppendVec3Decl(b []byte, name string, v ms3.Vec) []byte {
	b = append(b, "vec3 "...)
	b = append(b, name...)
	b = append(b, "=vec3("...)
	arr := v.Array()
	b = AppendFloats(b, arr[:], ',')
	b = append(b, ')', ';', '\n')
	return b
}

func AppendFloatDecl(b []byte, name string, v float32) []byte {
	b = append(b, "float "...)
	b = append(b, name...)
	b = append(b, '=')
	b = AppendFloat(b, v)
	b = append(b, ';', '\n')
	return b
}

// AppendFloat appends v in fixed point notation with trailing zeros trimmed.
// The decimal point is always kept so the result is a GLSL float literal.
func AppendFloat(b []byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', 6, 32)
	idx := bytes.IndexByte(b[start:], '.')
	// Finally trim zeroes.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

// AppendFloats appends the values of s separated by sep. A zero sep
// appends no separator.
func AppendFloats(b []byte, s []float32, sep byte) []byte {
	for i, v := range s {
		b = AppendFloat(b, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}
