// Package render writes what the geometry pipeline produces in forms people
// and other tools can look at: STL meshes, plots and charts of crystal
// profiles, DXF cross-sections and diagrams of the placement tree.
package render

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/chazu/detgeom/pkg/kernel"
)

// stlHeader fills the 80-byte header of binary STL files. It must not start
// with "solid", which readers take as the ASCII variant.
const stlHeader = "detgeom binary STL"

type stlTriangle struct {
	Normal     [3]float32
	V1, V2, V3 [3]float32
	Attributes uint16
}

// WriteSTL writes the triangles of all meshes as a single binary STL solid.
// Facet normals are recomputed from the winding.
func WriteSTL(w io.Writer, meshes ...*kernel.Mesh) error {
	total := 0
	for _, m := range meshes {
		total += m.TriangleCount()
	}
	if uint64(total) > math.MaxUint32 {
		return fmt.Errorf("render: %d triangles do not fit in an STL file", total)
	}

	bw := bufio.NewWriter(w)
	var header [80]byte
	copy(header[:], stlHeader)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("render: write STL header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(total)); err != nil {
		return fmt.Errorf("render: write STL header: %w", err)
	}

	for _, m := range meshes {
		for i := 0; i < m.TriangleCount(); i++ {
			v := m.Triangle(i)
			tri := stlTriangle{Normal: facetNormal(v), V1: v[0], V2: v[1], V3: v[2]}
			if err := binary.Write(bw, binary.LittleEndian, &tri); err != nil {
				return fmt.Errorf("render: write STL facet of %s: %w", m.PartName, err)
			}
		}
	}
	return bw.Flush()
}

// facetNormal returns the unit normal of a counter-clockwise triangle, or
// zero for a degenerate one.
func facetNormal(v [3][3]float32) [3]float32 {
	var a, b [3]float64
	for k := 0; k < 3; k++ {
		a[k] = float64(v[1][k] - v[0][k])
		b[k] = float64(v[2][k] - v[0][k])
	}
	n := [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
	l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l == 0 {
		return [3]float32{}
	}
	return [3]float32{float32(n[0] / l), float32(n[1] / l), float32(n[2] / l)}
}
