package deform

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/soypat/deform/mesh"
	"github.com/soypat/glgl/math/ms3"
	"golang.org/x/sync/errgroup"
)

// ErrLengthMismatch is returned by evaluators when input and output position
// buffers differ in length.
var ErrLengthMismatch = errors.New("mismatched position buffer lengths")

// minChunk is the smallest amount of vertices handed to a single goroutine.
const minChunk = 4096

// Evaluator evaluates DeformScaled over a batch of positions, storing results
// in dst. Implementations may run on the host or on a GPU.
type Evaluator interface {
	Evaluate(pos, dst []ms3.Vec, u Uniforms) error
}

// BakedMesh is a deformed and scaled mesh with freshly computed derived
// attributes. It shares no memory with the mesh it was baked from.
type BakedMesh struct {
	Mesh   mesh.Mesh
	Bounds ms3.Box
	Sphere mesh.Sphere
}

// Bake deforms and scales every vertex of nm on the host and returns the
// result as a new mesh. nm is not modified. Work is split among goroutines.
func Bake(ctx context.Context, nm NormalizedMesh, prm Params, scale ms3.Vec) (BakedMesh, error) {
	return bake(ctx, nm, prm, scale, func(pos, dst []ms3.Vec, u Uniforms) error {
		return DeformVertices(ctx, pos, dst, u, 0)
	})
}

// BakeWith is like Bake but delegates the per-vertex evaluation to ev.
func BakeWith(ctx context.Context, nm NormalizedMesh, prm Params, scale ms3.Vec, ev Evaluator) (BakedMesh, error) {
	if ev == nil {
		return BakedMesh{}, errors.New("nil evaluator")
	}
	return bake(ctx, nm, prm, scale, ev.Evaluate)
}

func bake(ctx context.Context, nm NormalizedMesh, prm Params, scale ms3.Vec, eval func(pos, dst []ms3.Vec, u Uniforms) error) (BakedMesh, error) {
	src := nm.Mesh
	if err := src.Validate(); err != nil {
		return BakedMesh{}, fmt.Errorf("bake: %w", err)
	}
	// Frame from the undeformed normalized positions, never from a previous result.
	bb, err := mesh.Bounds(src.Positions)
	if err != nil {
		return BakedMesh{}, fmt.Errorf("bake: %w", err)
	}
	u := NewUniforms(prm, NewHeightFrame(bb), scale)
	out := mesh.Mesh{
		Positions: make([]ms3.Vec, len(src.Positions)),
		Indices:   append([][3]uint32(nil), src.Indices...),
	}
	if err := eval(src.Positions, out.Positions, u); err != nil {
		return BakedMesh{}, fmt.Errorf("bake: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return BakedMesh{}, err
	}
	out.RecomputeNormals()
	outBB, err := mesh.Bounds(out.Positions)
	if err != nil {
		return BakedMesh{}, fmt.Errorf("bake: %w", err)
	}
	return BakedMesh{
		Mesh:   out,
		Bounds: outBB,
		Sphere: mesh.BoundingSphere(out.Positions, outBB),
	}, nil
}

// DeformVertices stores DeformScaled(pos[i], u) in dst[i] for every i.
// Vertices are processed in chunks by up to workers goroutines; if workers
// is not positive GOMAXPROCS is used. Each goroutine writes a disjoint
// section of dst. Cancelling ctx stops chunks that have not started.
func DeformVertices(ctx context.Context, pos, dst []ms3.Vec, u Uniforms, workers int) error {
	if len(pos) != len(dst) {
		return ErrLengthMismatch
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	n := len(pos)
	if n <= minChunk || workers == 1 {
		deformRange(pos, dst, u)
		return ctx.Err()
	}
	chunk := max(minChunk, (n+workers-1)/workers)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			deformRange(pos[start:end], dst[start:end], u)
			return nil
		})
	}
	return g.Wait()
}

func deformRange(pos, dst []ms3.Vec, u Uniforms) {
	for i, p := range pos {
		dst[i] = DeformScaled(p, u)
	}
}
