// Package export serializes contour layers and fabrication meshes.
package export

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/topoforge/topoforge/internal/mesh"
)

// ErrEmptyMesh rejects serializing a mesh with no live triangles.
var ErrEmptyMesh = errors.New("export: mesh has no triangles")

// WriteSTLBinary writes the live triangles of the store as a binary
// STL solid. The 80-byte header carries the model name; normals come
// from the store's cache.
func WriteSTLBinary(w io.Writer, s *mesh.Store, name string) error {
	n := s.NumTriangles()
	if n == 0 {
		return ErrEmptyMesh
	}

	bw := bufio.NewWriter(w)
	var header [80]byte
	copy(header[:], name)
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(n)); err != nil {
		return err
	}

	var werr error
	record := make([]float32, 12)
	s.EachTriangle(func(id int, t mesh.Triangle) {
		if werr != nil {
			return
		}
		record[0] = float32(t.Normal.X)
		record[1] = float32(t.Normal.Y)
		record[2] = float32(t.Normal.Z)
		for i, vi := range t.V {
			v := s.Vertex(vi)
			record[3+i*3] = float32(v.X)
			record[4+i*3] = float32(v.Y)
			record[5+i*3] = float32(v.Z)
		}
		if err := binary.Write(bw, binary.LittleEndian, record); err != nil {
			werr = err
			return
		}
		// Attribute byte count, always zero.
		if err := binary.Write(bw, binary.LittleEndian, uint16(0)); err != nil {
			werr = err
		}
	})
	if werr != nil {
		return werr
	}
	return bw.Flush()
}

// WriteSTLASCII writes the live triangles as an ASCII STL solid.
func WriteSTLASCII(w io.Writer, s *mesh.Store, name string) error {
	if s.NumTriangles() == 0 {
		return ErrEmptyMesh
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "solid %s\n", name); err != nil {
		return err
	}
	var werr error
	s.EachTriangle(func(id int, t mesh.Triangle) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(bw, "  facet normal %g %g %g\n    outer loop\n",
			t.Normal.X, t.Normal.Y, t.Normal.Z)
		if werr != nil {
			return
		}
		for _, vi := range t.V {
			v := s.Vertex(vi)
			if _, werr = fmt.Fprintf(bw, "      vertex %g %g %g\n", v.X, v.Y, v.Z); werr != nil {
				return
			}
		}
		_, werr = fmt.Fprint(bw, "    endloop\n  endfacet\n")
	})
	if werr != nil {
		return werr
	}
	if _, err := fmt.Fprintf(bw, "endsolid %s\n", name); err != nil {
		return err
	}
	return bw.Flush()
}
