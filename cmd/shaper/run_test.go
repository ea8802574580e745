package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soypat/deform/internal/config"
	"github.com/soypat/deform/mesh"
	"github.com/soypat/deform/meshio"
	"github.com/soypat/glgl/math/ms3"
)

func prism() mesh.Mesh {
	return mesh.Mesh{
		Positions: []ms3.Vec{
			{X: 0, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 2},
			{X: 0, Y: 6, Z: 0}, {X: 2, Y: 6, Z: 0}, {X: 0, Y: 6, Z: 2},
		},
		Indices: [][3]uint32{
			{0, 1, 2}, {3, 5, 4},
			{0, 3, 1}, {1, 3, 4},
			{1, 4, 2}, {2, 4, 5},
			{2, 5, 0}, {0, 5, 3},
		},
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "prism.stl")
	if err := meshio.CreateSTL(input, prism()); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Modifiers.TwistDeg = 90
	cfg.Scale.Target = [3]float32{0, 12, 0}
	cfg.Snapshot.Width, cfg.Snapshot.Height = 64, 48
	opts := options{
		input:        input,
		snapshot:     filepath.Join(dir, "prism.png"),
		vertexShader: filepath.Join(dir, "deform.vert"),
		saveConfig:   filepath.Join(dir, "shaper.yaml"),
	}
	if err := run(context.Background(), cfg, opts); err != nil {
		t.Fatal(err)
	}
	out, err := meshio.Load(defaultOutput(input))
	if err != nil {
		t.Fatal(err)
	}
	if out.NumVertices() != 6 || out.NumTriangles() != 8 {
		t.Errorf("got %d vertices and %d triangles", out.NumVertices(), out.NumTriangles())
	}
	bb, err := mesh.Bounds(out.Positions)
	if err != nil {
		t.Fatal(err)
	}
	if h := bb.Size().Y; h < 12-1e-4 || h > 12+1e-4 {
		t.Errorf("target height not applied: %g", h)
	}
	for _, path := range []string{opts.snapshot, opts.vertexShader, opts.saveConfig} {
		if _, err := os.Stat(path); err != nil {
			t.Error(err)
		}
	}
	saved, err := config.Load(opts.saveConfig, nil)
	if err != nil {
		t.Fatal(err)
	}
	if *saved != *cfg {
		t.Errorf("saved config %+v differs from %+v", saved, cfg)
	}
}

func TestRunASCII(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "prism.stl")
	if err := meshio.CreateSTL(input, prism()); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Export.Format = config.FormatASCII
	cfg.Export.SolidName = "prism"
	output := filepath.Join(dir, "out.stl")
	if err := run(context.Background(), cfg, options{input: input, output: output}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "solid prism\n") {
		t.Errorf("not an ASCII STL:\n%.40s", data)
	}
}

func TestRunMissingInput(t *testing.T) {
	err := run(context.Background(), config.Default(), options{input: filepath.Join(t.TempDir(), "none.stl")})
	if err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestExportFailureRemovesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.stl")
	// Invalid solid name fails after the file has been created.
	cfg := config.ExportConfig{Format: config.FormatASCII, SolidName: "two\nlines"}
	if err := export(path, cfg, prism()); err == nil {
		t.Fatal("expected export error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("partial output left on disk: %v", err)
	}
	if err := export(filepath.Join(dir, "missing", "out.stl"), config.ExportConfig{Format: config.FormatBinary}, prism()); err == nil {
		t.Error("expected error exporting into missing directory")
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteMeshPropagatesErrors(t *testing.T) {
	for _, format := range []string{config.FormatBinary, config.FormatASCII, "obj"} {
		err := writeMesh(failingWriter{}, config.ExportConfig{Format: format, SolidName: "p"}, prism())
		if err == nil {
			t.Errorf("%s: expected write error", format)
		}
	}
}

func TestDefaultOutput(t *testing.T) {
	if got := defaultOutput("dir/model.obj"); got != "dir/model_shaped.stl" {
		t.Errorf("got %q", got)
	}
}
