package contour

import (
	"math"

	"github.com/topoforge/topoforge/internal/raster"
)

// Mask is a binary raster over the same pixel lattice as the source
// grid. Layer masks are cumulative: the mask for level i contains
// every pixel of the mask for level i+1.
type Mask struct {
	Width, Height int
	Bits          []bool
}

// NewMask returns an all-clear mask.
func NewMask(w, h int) *Mask {
	return &Mask{Width: w, Height: h, Bits: make([]bool, w*h)}
}

// At reports the bit at (col, row). Out-of-range reads are clear,
// which makes the raster edge act as background during erosion and
// tracing.
func (m *Mask) At(col, row int) bool {
	if col < 0 || row < 0 || col >= m.Width || row >= m.Height {
		return false
	}
	return m.Bits[row*m.Width+col]
}

// Set writes the bit at (col, row).
func (m *Mask) Set(col, row int, v bool) {
	m.Bits[row*m.Width+col] = v
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	c := NewMask(m.Width, m.Height)
	copy(c.Bits, m.Bits)
	return c
}

// buildMask sets every valid pixel at or above the threshold.
func buildMask(g *raster.Grid, threshold float64) *Mask {
	m := NewMask(g.Width, g.Height)
	for r := 0; r < g.Height; r++ {
		for c := 0; c < g.Width; c++ {
			v := g.At(c, r)
			if !g.IsNoData(v) && float64(v) >= threshold {
				m.Bits[r*g.Width+c] = true
			}
		}
	}
	return m
}

// Erode shrinks the set region by a circular structuring element of
// the given pixel radius. A pixel survives only if every pixel within
// the radius is set; pixels beyond the raster edge count as clear, so
// the region also pulls back from the border.
func (m *Mask) Erode(radius int) *Mask {
	if radius < 1 {
		return m.Clone()
	}
	out := NewMask(m.Width, m.Height)
	r2 := float64(radius * radius)
	for row := 0; row < m.Height; row++ {
	pixel:
		for col := 0; col < m.Width; col++ {
			if !m.Bits[row*m.Width+col] {
				continue
			}
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					if float64(dx*dx+dy*dy) > r2 {
						continue
					}
					if !m.At(col+dx, row+dy) {
						continue pixel
					}
				}
			}
			out.Bits[row*m.Width+col] = true
		}
	}
	return out
}

// Subtract clears every pixel of m that is set in other.
func (m *Mask) Subtract(other *Mask) {
	for i, b := range other.Bits {
		if b {
			m.Bits[i] = false
		}
	}
}

// insetRadiusPixels converts an inset offset in millimetres to a
// ground-metre distance and then to a pixel radius, never less than
// one pixel.
func insetRadiusPixels(offsetMM, metersPerPixel float64) int {
	if metersPerPixel <= 0 {
		return 1
	}
	offsetMeters := offsetMM / 1000.0
	r := int(math.Ceil(offsetMeters / metersPerPixel))
	if r < 1 {
		r = 1
	}
	return r
}
