package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/soypat/deform/glbuild"
	"github.com/soypat/deform/gleval"
	"github.com/soypat/deform/internal/config"
	"github.com/soypat/deform/internal/logger"
	"github.com/soypat/deform/matter"
	"github.com/soypat/deform/mesh"
	"github.com/soypat/deform/meshio"
	"github.com/soypat/deform/session"
	"github.com/soypat/deform/snapshot"
	"go.uber.org/zap"
)

type options struct {
	input        string
	output       string
	snapshot     string
	vertexShader string
	saveConfig   string
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	m, err := meshio.Load(opts.input)
	if err != nil {
		return err
	}
	ws := session.New(logger.Named("session"))
	ws.Evaluator = &gleval.CPU{Workers: cfg.Export.Workers}
	if _, err := ws.Load(m); err != nil {
		return err
	}
	prm := cfg.Modifiers.Params()
	material, err := matter.ByName(cfg.Scale.Material)
	if err != nil {
		return err
	}
	spec := material.Compensate(cfg.Scale.Spec())
	if material.Shrink != 0 {
		logger.Info("compensating material shrinkage", zap.String("material", material.Name), zap.Float32("factor", material.Factor()))
	}
	u, err := ws.Uniforms(prm, spec)
	if err != nil {
		return err
	}
	logger.Debug("live parameters",
		zap.Float32("twist", u.Twist),
		zap.Float32("bend", u.Bend),
		zap.Float32("taper", u.Taper),
		zap.Float32("minY", u.MinY),
		zap.Float32("height", u.Height),
		zap.Float32s("scale", []float32{u.Scale.X, u.Scale.Y, u.Scale.Z}),
	)
	baked, err := ws.Bake(ctx, prm, spec)
	if err != nil {
		return err
	}
	size := baked.Bounds.Size()
	logger.Info("baked",
		zap.Int("vertices", baked.Mesh.NumVertices()),
		zap.Int("triangles", baked.Mesh.NumTriangles()),
		zap.Float32s("size", []float32{size.X, size.Y, size.Z}),
		zap.Float32("radius", baked.Sphere.Radius),
	)

	output := opts.output
	if output == "" {
		output = defaultOutput(opts.input)
	}
	if err := export(output, cfg.Export, baked.Mesh); err != nil {
		return err
	}
	logger.Info("exported", zap.String("path", output), zap.String("format", cfg.Export.Format))

	if opts.snapshot != "" {
		if err := writeSnapshot(opts.snapshot, cfg.Snapshot, baked.Mesh); err != nil {
			return err
		}
		logger.Info("snapshot written", zap.String("path", opts.snapshot))
	}
	if opts.vertexShader != "" {
		var buf bytes.Buffer
		if _, err := glbuild.WriteVertexShader(&buf); err != nil {
			return err
		}
		if err := os.WriteFile(opts.vertexShader, buf.Bytes(), 0644); err != nil {
			return err
		}
		logger.Info("vertex shader written", zap.String("path", opts.vertexShader), zap.String("template", glbuild.Version))
	}
	if opts.saveConfig != "" {
		if err := cfg.SaveTo(opts.saveConfig); err != nil {
			return err
		}
	}
	return nil
}

func export(path string, cfg config.ExportConfig, m mesh.Mesh) (err error) {
	if path == "-" {
		return writeMesh(os.Stdout, cfg, m)
	}
	var fp *os.File
	fp, err = os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fp.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path) // Do not leave a truncated STL behind.
		}
	}()
	return writeMesh(fp, cfg, m)
}

func writeMesh(w io.Writer, cfg config.ExportConfig, m mesh.Mesh) (err error) {
	switch cfg.Format {
	case config.FormatASCII:
		_, err = meshio.WriteASCIISTL(w, cfg.SolidName, m)
	case config.FormatBinary:
		_, err = meshio.WriteBinarySTL(w, m)
	default:
		err = errors.New("unknown export format " + cfg.Format)
	}
	return err
}

func writeSnapshot(path string, cfg config.SnapshotConfig, m mesh.Mesh) error {
	view := snapshot.DefaultView()
	view.Width, view.Height = cfg.Width, cfg.Height
	view.Supersample = cfg.Supersample
	view.Color, view.Background = cfg.Color, cfg.Background
	img, err := snapshot.Render(m, view)
	if err != nil {
		return err
	}
	return snapshot.SavePNG(path, img)
}

func extensionsNoDot() []string {
	exts := make([]string, len(meshio.Extensions))
	for i, ext := range meshio.Extensions {
		exts[i] = strings.TrimPrefix(ext, ".")
	}
	return exts
}
