// Package session holds the currently loaded mesh of an interactive
// editing session and serves the live preview parameters and bakes for it.
package session

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/soypat/deform"
	"github.com/soypat/deform/mesh"
	"github.com/soypat/glgl/math/ms3"
	"go.uber.org/zap"
)

var (
	// ErrNoMesh is returned when an operation needs a loaded mesh.
	ErrNoMesh = errors.New("no mesh loaded")
	// ErrStaleMesh is returned by Bake when a different mesh was loaded while
	// the bake was in progress. The result must be discarded.
	ErrStaleMesh = errors.New("mesh replaced during bake")
)

// loaded pairs a normalized mesh with the generation it was loaded as.
// It is never modified after being published.
type loaded struct {
	gen uint64
	nm  deform.NormalizedMesh
}

// Workspace owns the normalized mesh and its original bounding box. Loading
// a mesh replaces both as a single unit. Methods are safe for concurrent use.
type Workspace struct {
	log     *zap.Logger
	current atomic.Pointer[loaded]
	gens    atomic.Uint64
	// Evaluator used by Bake. If nil bakes run on the host.
	Evaluator deform.Evaluator
}

// New returns an empty workspace. A nil logger disables logging.
func New(log *zap.Logger) *Workspace {
	if log == nil {
		log = zap.NewNop()
	}
	return &Workspace{log: log}
}

// Load normalizes m and makes it the current mesh, discarding the previous
// one. It returns the new generation. m is not retained.
func (w *Workspace) Load(m mesh.Mesh) (uint64, error) {
	nm, err := deform.Normalize(m)
	if err != nil {
		return 0, err
	}
	l := &loaded{gen: w.gens.Add(1), nm: nm}
	w.current.Store(l)
	size := nm.Size()
	w.log.Info("mesh loaded",
		zap.Uint64("generation", l.gen),
		zap.Int("vertices", nm.Mesh.NumVertices()),
		zap.Int("triangles", nm.Mesh.NumTriangles()),
		zap.Float32("sizeX", size.X),
		zap.Float32("sizeY", size.Y),
		zap.Float32("sizeZ", size.Z),
	)
	return l.gen, nil
}

// Current returns the current normalized mesh and its generation.
// The returned mesh must not be modified.
func (w *Workspace) Current() (deform.NormalizedMesh, uint64, error) {
	l := w.current.Load()
	if l == nil {
		return deform.NormalizedMesh{}, 0, ErrNoMesh
	}
	return l.nm, l.gen, nil
}

// Generation returns the generation of the current mesh, 0 if none is loaded.
func (w *Workspace) Generation() uint64 {
	l := w.current.Load()
	if l == nil {
		return 0
	}
	return l.gen
}

// Uniforms returns the live preview parameters of the current mesh for prm
// and spec. The height frame and scale are derived from the original
// bounding box, never from a deformed result.
func (w *Workspace) Uniforms(prm deform.Params, spec deform.ScaleSpec) (deform.Uniforms, error) {
	l := w.current.Load()
	if l == nil {
		return deform.IdentityUniforms(), ErrNoMesh
	}
	scale := w.resolve(l, spec)
	return deform.NewUniforms(prm, l.nm.Frame(), scale), nil
}

// Bake deforms and scales the current mesh. If another mesh is loaded before
// the bake completes ErrStaleMesh is returned along with no result.
func (w *Workspace) Bake(ctx context.Context, prm deform.Params, spec deform.ScaleSpec) (deform.BakedMesh, error) {
	l := w.current.Load()
	if l == nil {
		return deform.BakedMesh{}, ErrNoMesh
	}
	scale := w.resolve(l, spec)
	var (
		baked deform.BakedMesh
		err   error
	)
	if w.Evaluator != nil {
		baked, err = deform.BakeWith(ctx, l.nm, prm, scale, w.Evaluator)
	} else {
		baked, err = deform.Bake(ctx, l.nm, prm, scale)
	}
	if err != nil {
		return deform.BakedMesh{}, err
	}
	if cur := w.current.Load(); cur == nil || cur.gen != l.gen {
		w.log.Warn("discarding stale bake", zap.Uint64("generation", l.gen))
		return deform.BakedMesh{}, ErrStaleMesh
	}
	size := baked.Bounds.Size()
	w.log.Debug("bake done",
		zap.Uint64("generation", l.gen),
		zap.Float32("sizeX", size.X),
		zap.Float32("sizeY", size.Y),
		zap.Float32("sizeZ", size.Z),
	)
	return baked, nil
}

func (w *Workspace) resolve(l *loaded, spec deform.ScaleSpec) ms3.Vec {
	scale, skipped := deform.ResolveScale(l.nm.Size(), spec)
	if skipped != 0 {
		w.log.Warn("target dimension ignored on degenerate axis",
			zap.Stringer("axes", skipped),
			zap.Uint64("generation", l.gen),
		)
	}
	return scale
}
