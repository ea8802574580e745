package gleval

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-gl/gl/all-core/gl"
	"github.com/soypat/deform"
	"github.com/soypat/deform/glbuild"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// DefaultMaxTextureWidth is the texture row length used when GPU.MaxTextureWidth
// is not set. Every GL 4.3 implementation supports it.
const DefaultMaxTextureWidth = 1 << 14

// GPU evaluates the deformation with a compute program. A GL 4.3 or newer
// context must be current on the calling OS thread for the lifetime of GPU.
type GPU struct {
	// MaxTextureWidth limits the width of position textures. Batches longer
	// than it are laid out in several rows.
	MaxTextureWidth int

	prog glgl.Program
	// uniform locations in glbuild.UniformNames order.
	locs [6]int32
	// padded staging buffers.
	in, out []ms3.Vec
}

// NewGPU compiles the glgl combined source read from source, usually
// written by [glbuild.WriteComputeProgram], and looks up its deformation uniforms.
func NewGPU(source io.Reader) (*GPU, error) {
	combinedSource, err := glgl.ParseCombined(source)
	if err != nil {
		return nil, err
	}
	glprog, err := glgl.CompileProgram(combinedSource)
	if err != nil {
		return nil, errors.New(string(combinedSource.Compute) + "\n" + err.Error())
	}
	g := &GPU{prog: glprog}
	glprog.Bind()
	id, err := currentProgram()
	if err != nil {
		return nil, err
	}
	for i, name := range glbuild.UniformNames {
		loc := gl.GetUniformLocation(id, gl.Str(name+"\x00"))
		if loc < 0 {
			return nil, fmt.Errorf("uniform %s not found in compute program", name)
		}
		g.locs[i] = loc
	}
	return g, nil
}

func (g *GPU) Evaluate(pos, dst []ms3.Vec, u deform.Uniforms) error {
	if len(pos) != len(dst) {
		return deform.ErrLengthMismatch
	}
	if len(pos) == 0 {
		return nil
	}
	maxWidth := g.MaxTextureWidth
	if maxWidth <= 0 {
		maxWidth = DefaultMaxTextureWidth
	}
	width := min(len(pos), maxWidth)
	height := (len(pos) + width - 1) / width
	size := width * height
	if cap(g.in) < size {
		g.in = make([]ms3.Vec, size)
		g.out = make([]ms3.Vec, size)
	}
	in, out := g.in[:size], g.out[:size]
	copy(in, pos)
	clear(in[len(pos):])

	g.prog.Bind()
	g.setUniforms(u)
	posCfg := glgl.TextureImgConfig{
		Type:           glgl.Texture2D,
		Width:          width,
		Height:         height,
		Access:         glgl.ReadOnly,
		Format:         gl.RGB,
		MinFilter:      gl.NEAREST,
		MagFilter:      gl.NEAREST,
		Xtype:          gl.FLOAT,
		InternalFormat: gl.RGBA32F,
		ImageUnit:      0,
	}
	inTex, err := glgl.NewTextureFromImage(posCfg, in)
	if err != nil {
		return err
	}
	defer inTex.Delete()
	outCfg := posCfg
	outCfg.Access = glgl.WriteOnly
	outCfg.ImageUnit = 1
	outTex, err := glgl.NewTextureFromImage(outCfg, out)
	if err != nil {
		return err
	}
	defer outTex.Delete()
	err = g.prog.RunCompute(width, height, 1)
	if err != nil {
		return err
	}
	err = glgl.GetImage(out, outTex, outCfg)
	if err != nil {
		return err
	}
	copy(dst, out)
	return nil
}

func (g *GPU) setUniforms(u deform.Uniforms) {
	gl.Uniform1f(g.locs[0], u.Twist)
	gl.Uniform1f(g.locs[1], u.Bend)
	gl.Uniform1f(g.locs[2], u.Taper)
	gl.Uniform1f(g.locs[3], u.MinY)
	gl.Uniform1f(g.locs[4], u.Height)
	gl.Uniform3f(g.locs[5], u.Scale.X, u.Scale.Y, u.Scale.Z)
}

func currentProgram() (uint32, error) {
	var id int32
	gl.GetIntegerv(gl.CURRENT_PROGRAM, &id)
	if id <= 0 {
		return 0, errors.New("no GL program bound")
	}
	return uint32(id), nil
}
