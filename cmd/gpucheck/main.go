// Command gpucheck compares the GPU compute evaluation of the deformation
// against the host evaluation. It needs a display capable of an OpenGL 4.6
// context.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"

	"github.com/chewxy/math32"
	"github.com/soypat/deform"
	"github.com/soypat/deform/glbuild"
	"github.com/soypat/deform/gleval"
	"github.com/soypat/deform/internal/logger"
	"github.com/soypat/deform/meshio"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"go.uber.org/zap"
)

const tol = 1e-4

func init() {
	runtime.LockOSThread() // For GL.
}

func main() {
	meshPath := flag.String("mesh", "", "Also bake this mesh file on CPU and GPU and compare")
	n := flag.Int("n", 100_000, "Amount of random positions per parameter set")
	flag.Parse()
	if err := logger.Init("info", ""); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()

	_, terminate, err := glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "gpucheck",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	if err != nil {
		logger.Log.Fatal("FAIL to start GLFW", zap.Error(err))
	}
	defer terminate()

	var source bytes.Buffer
	if _, err := glbuild.WriteComputeProgram(&source); err != nil {
		logger.Log.Fatal("FAIL writing compute program", zap.Error(err))
	}
	gpu, err := gleval.NewGPU(&source)
	if err != nil {
		logger.Log.Fatal("FAIL compiling compute program", zap.Error(err))
	}
	err = testRandomPositions(gpu, *n)
	if err != nil {
		logger.Log.Fatal("FAIL comparing CPU/GPU deformation", zap.Error(err))
	}
	if *meshPath != "" {
		err = testMeshBake(gpu, *meshPath)
		if err != nil {
			logger.Log.Fatal("FAIL comparing CPU/GPU bake", zap.Error(err))
		}
	}
	logger.Info("PASS", zap.String("template", glbuild.Version))
}

var paramSets = []deform.Params{
	{},
	{Twist: math32.Pi},
	{Bend: math32.Pi / 2},
	{Taper: -0.8},
	{Twist: -4, Bend: 1, Taper: 0.5},
}

func testRandomPositions(gpu *gleval.GPU, n int) error {
	rng := rand.New(rand.NewSource(1))
	pos := make([]ms3.Vec, n)
	for i := range pos {
		pos[i] = ms3.Vec{X: 2 * (rng.Float32() - .5), Y: 2 * (rng.Float32() - .5), Z: 2 * (rng.Float32() - .5)}
	}
	frame := deform.HeightFrame{MinY: -1, Height: 2}
	cpu := &gleval.CPU{}
	dstCPU := make([]ms3.Vec, n)
	dstGPU := make([]ms3.Vec, n)
	for _, prm := range paramSets {
		logger.Sugar.Infof("begin evaluating %+v", prm)
		u := deform.NewUniforms(prm, frame, ms3.Vec{X: 1, Y: 2, Z: 0.5})
		if err := cpu.Evaluate(pos, dstCPU, u); err != nil {
			return err
		}
		if err := gpu.Evaluate(pos, dstGPU, u); err != nil {
			return err
		}
		if err := cmpPositions(pos, dstCPU, dstGPU); err != nil {
			return fmt.Errorf("params %+v: %w", prm, err)
		}
	}
	return nil
}

func testMeshBake(gpu *gleval.GPU, path string) error {
	m, err := meshio.Load(path)
	if err != nil {
		return err
	}
	nm, err := deform.Normalize(m)
	if err != nil {
		return err
	}
	ctx := context.Background()
	scale, _ := deform.ResolveScale(nm.Size(), deform.DefaultScaleSpec())
	for _, prm := range paramSets {
		want, err := deform.Bake(ctx, nm, prm, scale)
		if err != nil {
			return err
		}
		got, err := deform.BakeWith(ctx, nm, prm, scale, gpu)
		if err != nil {
			return err
		}
		// Tolerance relative to mesh size.
		meshTol := tol * max(1, ms3.Norm(want.Bounds.Size()))
		if idx, diff := gleval.Compare(want.Mesh.Positions, got.Mesh.Positions, meshTol); idx >= 0 {
			return fmt.Errorf("bake %+v: vertex %d differs by %g", prm, idx, diff)
		}
		logger.Info("bake matches", zap.String("mesh", path), zap.Int("vertices", nm.Mesh.NumVertices()))
	}
	return nil
}

func cmpPositions(pos, pcpu, pgpu []ms3.Vec) error {
	mismatches := 0
	var mismatchErr error
	for i := range pcpu {
		idx, diff := gleval.Compare(pcpu[i:i+1], pgpu[i:i+1], tol)
		if idx < 0 {
			continue
		}
		mismatches++
		if mismatchErr == nil {
			mismatchErr = errors.New("cpu vs. gpu position mismatch")
		}
		logger.Sugar.Warnf("mismatch: pos=%+v cpu=%+v gpu=%+v (diff=%f)", pos[i], pcpu[i], pgpu[i], diff)
		if mismatches > 8 {
			logger.Warn("too many mismatches")
			return mismatchErr
		}
	}
	return mismatchErr
}
