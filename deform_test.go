package deform_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/deform"
	"github.com/soypat/deform/internal/d3"
	"github.com/soypat/deform/mesh"
	"github.com/soypat/glgl/math/ms3"
)

// unitCube returns the 8 vertex cube with corners at ±0.5 and 12 triangles.
func unitCube() mesh.Mesh {
	var pos []ms3.Vec
	for i := 0; i < 8; i++ {
		pos = append(pos, ms3.Vec{
			X: float32(i&1) - 0.5,
			Y: float32(i>>1&1) - 0.5,
			Z: float32(i>>2&1) - 0.5,
		})
	}
	return mesh.Mesh{
		Positions: pos,
		Indices: [][3]uint32{
			{0, 2, 1}, {1, 2, 3}, // -Z
			{4, 5, 6}, {5, 7, 6}, // +Z
			{0, 1, 4}, {1, 5, 4}, // -Y
			{2, 6, 3}, {3, 6, 7}, // +Y
			{0, 4, 2}, {2, 4, 6}, // -X
			{1, 3, 5}, {3, 7, 5}, // +X
		},
	}
}

func randomMesh(rng *rand.Rand, n int, offset ms3.Vec) mesh.Mesh {
	m := mesh.Mesh{Positions: make([]ms3.Vec, n)}
	for i := range m.Positions {
		m.Positions[i] = ms3.Add(offset, ms3.Vec{
			X: 4 * (rng.Float32() - 0.5),
			Y: 10 * (rng.Float32() - 0.5),
			Z: 2 * (rng.Float32() - 0.5),
		})
	}
	for i := 0; i+2 < n; i += 3 {
		m.Indices = append(m.Indices, [3]uint32{uint32(i), uint32(i + 1), uint32(i + 2)})
	}
	return m
}

func TestDeformIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	frame := deform.HeightFrame{MinY: -3, Height: 7}
	for i := 0; i < 1000; i++ {
		p := ms3.Vec{X: 20 * (rng.Float32() - .5), Y: 20 * (rng.Float32() - .5), Z: 20 * (rng.Float32() - .5)}
		got := deform.Deform(p, frame, deform.Params{})
		if !d3.EqualWithin(got, p, 1e-5) {
			t.Fatalf("zero params changed %v to %v", p, got)
		}
	}
}

func TestHeightFrame(t *testing.T) {
	bb := ms3.Box{Min: ms3.Vec{X: -1, Y: -2, Z: -1}, Max: ms3.Vec{X: 1, Y: 6, Z: 1}}
	f := deform.NewHeightFrame(bb)
	if f.MinY != -2 || f.Height != 8 {
		t.Fatalf("unexpected frame %+v", f)
	}
	if h := f.H(f.MinY); h != 0 {
		t.Errorf("bottom maps to h=%g, want 0", h)
	}
	if h := f.H(f.MinY + f.Height); h != 1 {
		t.Errorf("top maps to h=%g, want 1", h)
	}
	if h := f.H(f.MinY + 2*f.Height); h != 2 {
		t.Errorf("points above the frame must extrapolate, got h=%g", h)
	}
	flat := deform.NewHeightFrame(ms3.Box{Max: ms3.Vec{X: 1, Z: 1}})
	if flat.Height <= 0 {
		t.Fatalf("flat mesh frame height must be positive, got %g", flat.Height)
	}
	if h := flat.H(0); h != 0 || math32.IsNaN(h) {
		t.Errorf("flat frame h=%g", h)
	}
}

func TestTaperMidHeight(t *testing.T) {
	f := deform.HeightFrame{MinY: -1, Height: 2}
	p := ms3.Vec{X: 0.7, Y: 0, Z: -0.3} // h = 0.5
	for _, taper := range []float32{-1, -0.5, 0.25, 1, 3} {
		got := deform.Deform(p, f, deform.Params{Taper: taper})
		if !d3.EqualWithin(got, p, 1e-6) {
			t.Errorf("taper=%g moved mid-height point %v to %v", taper, p, got)
		}
	}
	// At the top the taper factor is 1+taper.
	top := ms3.Vec{X: 1, Y: 1, Z: 2}
	got := deform.Deform(top, f, deform.Params{Taper: 0.5})
	want := ms3.Vec{X: 1.5, Y: 1, Z: 3}
	if !d3.EqualWithin(got, want, 1e-6) {
		t.Errorf("top taper: got %v, want %v", got, want)
	}
}

func TestTwistAtBottom(t *testing.T) {
	f := deform.HeightFrame{MinY: -1, Height: 2}
	p := ms3.Vec{X: 0.4, Y: -1, Z: 0.9} // h = 0
	for _, twist := range []float32{-10, -math32.Pi, 0.1, 2 * math32.Pi, 37} {
		got := deform.Deform(p, f, deform.Params{Twist: twist})
		if !d3.EqualWithin(got, p, 1e-6) {
			t.Errorf("twist=%g moved bottom point %v to %v", twist, p, got)
		}
	}
}

func TestBendTop(t *testing.T) {
	f := deform.HeightFrame{MinY: -0.5, Height: 1}
	// Top center point with bend=π rotates by π/2 about the frame center.
	got := deform.Deform(ms3.Vec{Y: 0.5}, f, deform.Params{Bend: math32.Pi})
	want := ms3.Vec{Z: -0.5}
	if !d3.EqualWithin(got, want, 1e-6) {
		t.Errorf("bend top: got %v, want %v", got, want)
	}
	// Bend keeps the distance to the frame center in the YZ plane.
	p := ms3.Vec{X: 0.2, Y: 0.3, Z: 0.4}
	got = deform.Deform(p, f, deform.Params{Bend: 1.3})
	r0 := math32.Hypot(p.Y, p.Z)
	r1 := math32.Hypot(got.Y, got.Z)
	if math32.Abs(r0-r1) > 1e-6 || got.X != p.X {
		t.Errorf("bend is not a rotation: %v -> %v", p, got)
	}
}

// deform64 is a float64 transcription of the formula used as reference.
func deform64(p [3]float64, minY, height, twist, bend, taper float64) [3]float64 {
	h := (p[1] - minY) / height
	tf := 1 + taper*(h-0.5)*2
	x, z := p[0]*tf, p[2]*tf
	a := twist * h
	x, z = x*math.Cos(a)-z*math.Sin(a), x*math.Sin(a)+z*math.Cos(a)
	ba := (h - 0.5) * bend
	yc := (h - 0.5) * height
	zb := z*math.Cos(ba) - yc*math.Sin(ba)
	yb := z*math.Sin(ba) + yc*math.Cos(ba)
	return [3]float64{x, yb + minY + height*0.5, zb}
}

func TestDeformMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	const tol = 1e-4
	for i := 0; i < 2000; i++ {
		prm := deform.Params{
			Twist: 4 * (rng.Float32() - 0.5),
			Bend:  2 * (rng.Float32() - 0.5),
			Taper: 2 * (rng.Float32() - 0.5),
		}
		f := deform.HeightFrame{MinY: -rng.Float32() * 3, Height: 0.5 + 3*rng.Float32()}
		p := ms3.Vec{X: 2 * (rng.Float32() - .5), Y: f.MinY + f.Height*rng.Float32(), Z: 2 * (rng.Float32() - .5)}
		got := deform.Deform(p, f, prm)
		want := deform64([3]float64{float64(p.X), float64(p.Y), float64(p.Z)},
			float64(f.MinY), float64(f.Height), float64(prm.Twist), float64(prm.Bend), float64(prm.Taper))
		if math.Abs(float64(got.X)-want[0]) > tol || math.Abs(float64(got.Y)-want[1]) > tol || math.Abs(float64(got.Z)-want[2]) > tol {
			t.Fatalf("p=%v prm=%+v frame=%+v: got %v, want %v", p, prm, f, got, want)
		}
	}
}

func TestResolveScale(t *testing.T) {
	for _, test := range []struct {
		name    string
		size    ms3.Vec
		spec    deform.ScaleSpec
		want    ms3.Vec
		skipped deform.Axes
	}{
		{
			name: "targets",
			size: ms3.Vec{X: 10, Y: 20, Z: 30},
			spec: deform.ScaleSpec{UserScale: d3.Elem(1), Target: deform.TargetDims{X: 20, Y: 20, Z: 60}},
			want: ms3.Vec{X: 2, Y: 1, Z: 2},
		},
		{
			name: "no targets",
			size: ms3.Vec{X: 10, Y: 20, Z: 30},
			spec: deform.ScaleSpec{UserScale: ms3.Vec{X: 1, Y: 2, Z: 3}},
			want: ms3.Vec{X: 1, Y: 2, Z: 3},
		},
		{
			name: "partial target with user scale",
			size: ms3.Vec{X: 4, Y: 20, Z: 30},
			spec: deform.ScaleSpec{UserScale: ms3.Vec{X: 0.5, Y: 2, Z: 1}, Target: deform.TargetDims{X: 8}},
			want: ms3.Vec{X: 1, Y: 2, Z: 1},
		},
		{
			name:    "degenerate axis falls back",
			size:    ms3.Vec{X: 10, Y: 0, Z: 30},
			spec:    deform.ScaleSpec{UserScale: ms3.Vec{X: 1, Y: 3, Z: 1}, Target: deform.TargetDims{X: 5, Y: 7}},
			want:    ms3.Vec{X: 0.5, Y: 3, Z: 1},
			skipped: deform.AxisY,
		},
		{
			name: "negative target is unset",
			size: ms3.Vec{X: 10, Y: 10, Z: 10},
			spec: deform.ScaleSpec{UserScale: d3.Elem(1), Target: deform.TargetDims{Z: -5}},
			want: d3.Elem(1),
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, skipped := deform.ResolveScale(test.size, test.spec)
			if !d3.EqualWithin(got, test.want, 1e-6) {
				t.Errorf("got scale %v, want %v", got, test.want)
			}
			if skipped != test.skipped {
				t.Errorf("got skipped axes %q, want %q", skipped, test.skipped)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	src := randomMesh(rng, 300, ms3.Vec{X: 100, Y: -40, Z: 7})
	before := src.Clone()
	nm, err := deform.Normalize(src)
	if err != nil {
		t.Fatal(err)
	}
	center := nm.OriginalBounds.Center()
	if !d3.EqualWithin(center, ms3.Vec{}, 1e-4) {
		t.Errorf("normalized bounds centered at %v", center)
	}
	if len(nm.Mesh.Normals) != nm.Mesh.NumVertices() {
		t.Errorf("normals not recomputed: %d for %d vertices", len(nm.Mesh.Normals), nm.Mesh.NumVertices())
	}
	for i := range src.Positions {
		if src.Positions[i] != before.Positions[i] {
			t.Fatal("normalize mutated its input")
		}
	}
	// Re-normalizing is a no-op.
	again, err := deform.Normalize(nm.Mesh)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range again.Mesh.Positions {
		if !d3.EqualWithin(p, nm.Mesh.Positions[i], 1e-4) {
			t.Fatalf("renormalize moved vertex %d from %v to %v", i, nm.Mesh.Positions[i], p)
		}
	}
	if _, err := deform.Normalize(mesh.Mesh{}); !errors.Is(err, deform.ErrEmptyMesh) {
		t.Errorf("want ErrEmptyMesh, got %v", err)
	}
}

func TestBakeUnitCubeTwist(t *testing.T) {
	nm, err := deform.Normalize(unitCube())
	if err != nil {
		t.Fatal(err)
	}
	baked, err := deform.Bake(context.Background(), nm, deform.Params{Twist: math32.Pi}, d3.Elem(1))
	if err != nil {
		t.Fatal(err)
	}
	const tol = 1e-5
	for i, p := range nm.Mesh.Positions {
		got := baked.Mesh.Positions[i]
		var want ms3.Vec
		switch p.Y {
		case 0.5: // Top face, h=1: rotated by 180 degrees in XZ.
			want = ms3.Vec{X: -p.X, Y: p.Y, Z: -p.Z}
		case -0.5: // Bottom face, h=0: unchanged.
			want = p
		default:
			t.Fatalf("unexpected cube vertex %v", p)
		}
		if !d3.EqualWithin(got, want, tol) {
			t.Errorf("vertex %d: got %v, want %v", i, got, want)
		}
	}
	if baked.Mesh.NumTriangles() != nm.Mesh.NumTriangles() {
		t.Error("bake changed topology")
	}
	for i := range baked.Mesh.Indices {
		if baked.Mesh.Indices[i] != nm.Mesh.Indices[i] {
			t.Fatal("bake changed index buffer")
		}
	}
}

func TestBakeDoesNotMutate(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	nm, err := deform.Normalize(randomMesh(rng, 3*5000, ms3.Vec{}))
	if err != nil {
		t.Fatal(err)
	}
	before := nm.Mesh.Clone()
	baked, err := deform.Bake(context.Background(), nm, deform.Params{Twist: 1, Bend: 0.5, Taper: -0.3}, ms3.Vec{X: 2, Y: 0.5, Z: 1})
	if err != nil {
		t.Fatal(err)
	}
	for i := range before.Positions {
		if before.Positions[i] != nm.Mesh.Positions[i] || before.Normals[i] != nm.Mesh.Normals[i] {
			t.Fatalf("bake mutated input vertex %d", i)
		}
	}
	baked.Mesh.Positions[0].X = 1e6
	if nm.Mesh.Positions[0].X == 1e6 {
		t.Fatal("baked mesh aliases input")
	}
}

func TestBakeBoundsEnclose(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	nm, err := deform.Normalize(randomMesh(rng, 3*3000, ms3.Vec{}))
	if err != nil {
		t.Fatal(err)
	}
	scale, _ := deform.ResolveScale(nm.Size(), deform.ScaleSpec{UserScale: d3.Elem(1), Target: deform.TargetDims{X: 50}})
	baked, err := deform.Bake(context.Background(), nm, deform.Params{Twist: 2, Bend: -0.7, Taper: 0.4}, scale)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range baked.Mesh.Positions {
		if !d3.Contains(baked.Bounds, p, 1e-5) {
			t.Fatalf("vertex %d %v outside baked bounds %v", i, p, baked.Bounds)
		}
		if !baked.Sphere.Contains(p, 1e-4) {
			t.Fatalf("vertex %d %v outside baked sphere %+v", i, p, baked.Sphere)
		}
	}
	if len(baked.Mesh.Normals) != baked.Mesh.NumVertices() {
		t.Error("baked normals not computed")
	}
}

func TestDeformVerticesParallel(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	m := randomMesh(rng, 50_000, ms3.Vec{})
	u := deform.NewUniforms(deform.Params{Twist: 3, Bend: 1, Taper: 0.2}, deform.HeightFrame{MinY: -5, Height: 10}, ms3.Vec{X: 1, Y: 2, Z: 3})
	serial := make([]ms3.Vec, len(m.Positions))
	parallel := make([]ms3.Vec, len(m.Positions))
	ctx := context.Background()
	if err := deform.DeformVertices(ctx, m.Positions, serial, u, 1); err != nil {
		t.Fatal(err)
	}
	if err := deform.DeformVertices(ctx, m.Positions, parallel, u, 8); err != nil {
		t.Fatal(err)
	}
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("vertex %d: serial %v != parallel %v", i, serial[i], parallel[i])
		}
	}
	if err := deform.DeformVertices(ctx, m.Positions, parallel[1:], u, 1); !errors.Is(err, deform.ErrLengthMismatch) {
		t.Errorf("want ErrLengthMismatch, got %v", err)
	}
}

func TestBakeCancelled(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	nm, err := deform.Normalize(randomMesh(rng, 3*10000, ms3.Vec{}))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = deform.Bake(ctx, nm, deform.Params{Twist: 1}, d3.Elem(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestBakeEmpty(t *testing.T) {
	_, err := deform.Bake(context.Background(), deform.NormalizedMesh{}, deform.Params{}, d3.Elem(1))
	if !errors.Is(err, deform.ErrEmptyMesh) {
		t.Fatalf("want ErrEmptyMesh, got %v", err)
	}
}
