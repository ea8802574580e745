package meshio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/soypat/deform/mesh"
	"github.com/soypat/glgl/math/ms3"
)

const (
	stlHeaderSize   = 84
	stlTriangleSize = 50
)

// WriteBinarySTL writes the triangles of m to w in binary STL format.
// Facet normals are computed from the vertex positions.
func WriteBinarySTL(w io.Writer, m mesh.Mesh) (int, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	if m.NumTriangles() == 0 {
		return 0, errors.New("mesh has no triangles")
	}
	nt := int64(m.NumTriangles()) // int64 cast so that next line works correctly on 32bit machines.
	if nt > math.MaxUint32 {
		return 0, errors.New("amount of triangles in model exceeds STL design limits")
	}
	header := stlHeader{
		Count: uint32(nt),
	}
	var buf [stlHeaderSize]byte
	header.put(buf[:])
	n, err := w.Write(buf[:])
	if err != nil {
		return n, err
	} else if n != len(buf) {
		return n, io.ErrShortWrite
	}
	bw := bufio.NewWriter(w)
	var d stlTriangle
	for _, tri := range m.Indices {
		d.set(m.Positions[tri[0]], m.Positions[tri[1]], m.Positions[tri[2]])
		d.put(buf[:])
		ngot, err := bw.Write(buf[:stlTriangleSize])
		n += ngot
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// WriteASCIISTL writes the triangles of m to w in ASCII STL format
// as a solid named name.
func WriteASCIISTL(w io.Writer, name string, m mesh.Mesh) (int, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	if strings.ContainsAny(name, "\r\n") {
		return 0, errors.New("solid name contains line break")
	}
	bw := bufio.NewWriter(w)
	n, _ := bw.WriteString("solid " + name + "\n")
	var (
		d       stlTriangle
		scratch []byte
	)
	for _, tri := range m.Indices {
		d.set(m.Positions[tri[0]], m.Positions[tri[1]], m.Positions[tri[2]])
		scratch = append(scratch[:0], "  facet normal "...)
		scratch = appendASCIIVec(scratch, d.Normal)
		scratch = append(scratch, "\n    outer loop\n"...)
		for _, v := range [3][3]float32{d.Vertex1, d.Vertex2, d.Vertex3} {
			scratch = append(scratch, "      vertex "...)
			scratch = appendASCIIVec(scratch, v)
			scratch = append(scratch, '\n')
		}
		scratch = append(scratch, "    endloop\n  endfacet\n"...)
		ngot, err := bw.Write(scratch)
		n += ngot
		if err != nil {
			return n, err
		}
	}
	ngot, _ := bw.WriteString("endsolid " + name + "\n")
	n += ngot
	return n, bw.Flush()
}

func appendASCIIVec(b []byte, v [3]float32) []byte {
	for i, f := range v {
		if i > 0 {
			b = append(b, ' ')
		}
		b = strconv.AppendFloat(b, float64(f), 'e', -1, 32)
	}
	return b
}

// CreateSTL writes m as a binary STL file at path, truncating it if it exists.
func CreateSTL(path string, m mesh.Mesh) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	_, err = WriteBinarySTL(fp, m)
	if err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}

// ReadSTL reads a binary or ASCII STL model from r and returns it as an
// indexed mesh. Vertices closer than weldTol are merged.
func ReadSTL(r io.Reader, weldTol float32) (mesh.Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return mesh.Mesh{}, err
	}
	var tris []ms3.Triangle
	if isBinarySTL(data) {
		tris, err = readBinarySTL(data)
	} else {
		tris, err = readASCIISTL(data)
		if err != nil && fitsBinarySTL(data) {
			// Binary file with a "solid" header and trailing bytes.
			if btris, berr := readBinarySTL(data); berr == nil {
				tris, err = btris, nil
			}
		}
	}
	if err != nil {
		return mesh.Mesh{}, err
	}
	return mesh.FromTriangles(tris, weldTol)
}

// isBinarySTL reports whether data has the exact length announced by a
// binary STL header. ASCII files may also start with "solid" so the
// header text alone cannot be trusted.
func isBinarySTL(data []byte) bool {
	if len(data) < stlHeaderSize {
		return false
	}
	count := binary.LittleEndian.Uint32(data[80:])
	if int64(len(data)) == stlHeaderSize+int64(count)*stlTriangleSize {
		return true
	}
	return !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid"))
}

// fitsBinarySTL reports whether data holds at least the triangles announced
// by its binary STL header.
func fitsBinarySTL(data []byte) bool {
	if len(data) < stlHeaderSize {
		return false
	}
	count := int64(binary.LittleEndian.Uint32(data[80:]))
	return count > 0 && int64(len(data)-stlHeaderSize) >= count*stlTriangleSize
}

func readBinarySTL(data []byte) (output []ms3.Triangle, readErr error) {
	if len(data) < stlHeaderSize {
		return nil, errors.New("encountered EOF while reading STL header")
	}
	var header stlHeader
	header.get(data)
	if header.Count == 0 {
		return nil, errors.New("STL header indicates 0 triangles present")
	}
	body := data[stlHeaderSize:]
	if int64(len(body)) < int64(header.Count)*stlTriangleSize {
		return nil, fmt.Errorf("STL header indicates %d triangles, found data for %d", header.Count, len(body)/stlTriangleSize)
	}
	output = make([]ms3.Triangle, 0, header.Count)
	var d stlTriangle
	for i := 0; i < int(header.Count); i++ {
		d.get(body[i*stlTriangleSize:])
		if bad3F32(d.Vertex1) || bad3F32(d.Vertex2) || bad3F32(d.Vertex3) {
			return nil, fmt.Errorf("%d/%d STL triangles read: inf/NaN STL triangle vertex", i+1, header.Count)
		}
		output = append(output, d.Triangle())
	}
	return output, nil
}

func readASCIISTL(data []byte) ([]ms3.Triangle, error) {
	var (
		output []ms3.Triangle
		tri    ms3.Triangle
		nv     int
		line   int
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "vertex":
			if len(fields) != 4 {
				return nil, fmt.Errorf("STL line %d: vertex needs 3 coordinates", line)
			}
			if nv == 3 {
				return nil, fmt.Errorf("STL line %d: facet with more than 3 vertices", line)
			}
			var v [3]float32
			for i := range v {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("STL line %d: %w", line, err)
				}
				v[i] = float32(f)
			}
			if bad3F32(v) {
				return nil, fmt.Errorf("STL line %d: inf/NaN STL triangle vertex", line)
			}
			tri[nv] = vecFromArray(v)
			nv++
		case "endloop":
			if nv != 3 {
				return nil, fmt.Errorf("STL line %d: facet with %d vertices", line, nv)
			}
			output = append(output, tri)
			nv = 0
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(output) == 0 {
		return nil, errors.New("no facets found in ASCII STL")
	}
	return output, nil
}

// stlHeader defines the STL file header.
type stlHeader struct {
	_     [80]uint8 // Header
	Count uint32    // Number of triangles
}

func (h stlHeader) put(b []byte) {
	_ = b[83] //early bounds check
	clear(b[:80])
	binary.LittleEndian.PutUint32(b[80:], h.Count)
}

func (h *stlHeader) get(b []byte) {
	_ = b[83]
	h.Count = binary.LittleEndian.Uint32(b[80:])
}

// stlTriangle defines the triangle data within an STL file.
type stlTriangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
	_       uint16 // Attribute byte count
}

func (t *stlTriangle) set(a, b, c ms3.Vec) {
	t.Normal = ms3.Vec{}.Array()
	n := ms3.Cross(ms3.Sub(b, a), ms3.Sub(c, a))
	if l := ms3.Norm(n); l > 0 {
		t.Normal = ms3.Scale(1/l, n).Array()
	}
	t.Vertex1 = a.Array()
	t.Vertex2 = b.Array()
	t.Vertex3 = c.Array()
}

func (t stlTriangle) put(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to marshal stlTriangle")
	}
	put3F32(b, t.Normal)
	put3F32(b[12:], t.Vertex1)
	put3F32(b[24:], t.Vertex2)
	put3F32(b[36:], t.Vertex3)
	binary.LittleEndian.PutUint16(b[48:], 0) // Zero out attributes.
}

func (t *stlTriangle) get(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to unmarshal stlTriangle")
	}
	get3F32(b, &t.Normal)
	get3F32(b[12:], &t.Vertex1)
	get3F32(b[24:], &t.Vertex2)
	get3F32(b[36:], &t.Vertex3)
	// no attributes supported yet.
}

func (t stlTriangle) Triangle() ms3.Triangle {
	return ms3.Triangle{vecFromArray(t.Vertex1), vecFromArray(t.Vertex2), vecFromArray(t.Vertex3)}
}

func put3F32(b []byte, f [3]float32) {
	_ = b[11] // early bounds check
	binary.LittleEndian.PutUint32(b, math.Float32bits(f[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f[2]))
}

func get3F32(b []byte, f *[3]float32) {
	_ = b[11] // early bounds check
	f[0] = math.Float32frombits(binary.LittleEndian.Uint32(b))
	f[1] = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	f[2] = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
}

func bad3F32(f [3]float32) bool {
	return math32.IsNaN(f[0]) || math32.IsInf(f[0], 0) ||
		math32.IsNaN(f[1]) || math32.IsInf(f[1], 0) ||
		math32.IsNaN(f[2]) || math32.IsInf(f[2], 0)
}

func vecFromArray(f [3]float32) ms3.Vec {
	return ms3.Vec{X: f[0], Y: f[1], Z: f[2]}
}
