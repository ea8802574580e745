// Package snapshot renders still images of meshes on the CPU. It is the
// headless counterpart of the live preview and is used to inspect bakes
// without a GPU.
package snapshot

import (
	"errors"
	"image"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/deform/mesh"
	"github.com/soypat/deform/meshio"
	"github.com/soypat/glgl/math/ms3"
)

// View configures the camera and output image of Render.
type View struct {
	// Width and Height of the output image in pixels.
	Width, Height int
	// Supersampling factor. The scene is rendered Supersample times larger
	// and downsampled for antialiasing. Values below 1 are treated as 1.
	Supersample int
	// Vertical field of view in degrees.
	Fovy float64
	// where the camera/eye located at (point)
	Eye ms3.Vec
	// what position (point) to look at
	LookAt ms3.Vec
	// which way is up (direction)
	Up         ms3.Vec
	Near, Far  float64
	Light      ms3.Vec
	Color      string
	Background string
}

// DefaultView looks at the mesh from the +X+Y+Z octant with Y up.
func DefaultView() View {
	return View{
		Width:       640,
		Height:      480,
		Supersample: 2,
		Fovy:        30,
		Eye:         ms3.Vec{X: 3, Y: 2, Z: 3},
		Up:          ms3.Vec{Y: 1},
		Near:        1,
		Far:         10,
		Light:       ms3.Vec{X: -0.75, Y: 1, Z: 0.25},
		Color:       "#468966",
		Background:  "#FFF8E3",
	}
}

// Render draws m fitted inside a bi-unit cube centered at the origin with a
// Phong shader. m is not modified.
func Render(m mesh.Mesh, view View) (image.Image, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.NumTriangles() == 0 {
		return nil, errors.New("mesh has no triangles to render")
	}
	if view.Width <= 0 || view.Height <= 0 {
		return nil, errors.New("invalid snapshot image size")
	}
	if view.Near <= 0 || view.Far <= view.Near {
		return nil, errors.New("invalid snapshot clip planes")
	}
	scale := max(view.Supersample, 1)
	var (
		eye    = fauxglVec(view.Eye)
		center = fauxglVec(view.LookAt)
		up     = fauxglVec(view.Up)
		light  = fauxglVec(view.Light).Normalize()
		color  = fauxgl.HexColor(view.Color)
	)

	fm := meshio.ToFauxgl(m)
	// fit mesh in a bi-unit cube centered at the origin
	fm.BiUnitCube()
	context := fauxgl.NewContext(view.Width*scale, view.Height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor(view.Background))
	aspect := float64(view.Width) / float64(view.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(view.Fovy, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	context.Shader = shader
	context.DrawMesh(fm)
	// downsample image for antialiasing
	img := context.Image()
	if scale > 1 {
		img = resize.Resize(uint(view.Width), uint(view.Height), img, resize.Bilinear)
	}
	return img, nil
}

// SavePNG writes img to a PNG file at path.
func SavePNG(path string, img image.Image) error {
	return fauxgl.SavePNG(path, img)
}

func fauxglVec(v ms3.Vec) fauxgl.Vector {
	return fauxgl.V(float64(v.X), float64(v.Y), float64(v.Z))
}
