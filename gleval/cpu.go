package gleval

import (
	"context"

	"github.com/soypat/deform"
	"github.com/soypat/glgl/math/ms3"
)

// CPU evaluates the deformation on the host.
type CPU struct {
	// Workers limits the amount of goroutines used. Zero means GOMAXPROCS.
	Workers int
}

func (c *CPU) Evaluate(pos, dst []ms3.Vec, u deform.Uniforms) error {
	return deform.DeformVertices(context.Background(), pos, dst, u, c.Workers)
}
