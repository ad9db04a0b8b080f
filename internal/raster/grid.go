// Package raster holds elevation grids and their georeferencing.
package raster

import (
	"fmt"
	"math"
)

// DefaultNoData is the sentinel used by SRTM and most GDAL exports.
const DefaultNoData float32 = -32768

// Grid is a row-major elevation raster with an affine geotransform.
//
// The transform maps pixel coordinates to world coordinates:
//
//	X = T[0] + col*T[1] + row*T[2]
//	Y = T[3] + col*T[4] + row*T[5]
type Grid struct {
	Width, Height int
	Samples       []float32
	Transform     [6]float64
	NoData        float32
}

// New allocates a grid of the given size filled with the no-data value.
func New(width, height int, transform [6]float64, noData float32) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: invalid grid size %dx%d", width, height)
	}
	g := &Grid{
		Width:     width,
		Height:    height,
		Samples:   make([]float32, width*height),
		Transform: transform,
		NoData:    noData,
	}
	for i := range g.Samples {
		g.Samples[i] = noData
	}
	return g, nil
}

// At returns the sample at (col, row). Callers must stay in bounds.
func (g *Grid) At(col, row int) float32 {
	return g.Samples[row*g.Width+col]
}

// Set stores a sample at (col, row).
func (g *Grid) Set(col, row int, v float32) {
	g.Samples[row*g.Width+col] = v
}

// IsNoData reports whether v is missing data: NaN or the sentinel.
func (g *Grid) IsNoData(v float32) bool {
	if v != v {
		return true
	}
	return math.Abs(float64(v-g.NoData)) < 1e-6
}

// WorldXY maps a pixel coordinate through the geotransform. Fractional
// coordinates address pixel corners and sub-pixel positions.
func (g *Grid) WorldXY(col, row float64) (x, y float64) {
	t := &g.Transform
	x = t[0] + col*t[1] + row*t[2]
	y = t[3] + col*t[4] + row*t[5]
	return x, y
}

// ValidRange returns the extrema over non-missing samples. ok is false
// when the grid holds no valid data.
func (g *Grid) ValidRange() (min, max float32, ok bool) {
	min = float32(math.Inf(1))
	max = float32(math.Inf(-1))
	for _, v := range g.Samples {
		if g.IsNoData(v) {
			continue
		}
		ok = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

// ValidCount returns the number of non-missing samples.
func (g *Grid) ValidCount() int {
	n := 0
	for _, v := range g.Samples {
		if !g.IsNoData(v) {
			n++
		}
	}
	return n
}

// Downsample returns a reduced copy where each output sample averages
// the valid samples in its factor-by-factor source block. Blocks with
// no valid samples stay no-data. Pixel sizes in the transform scale by
// the same factor.
func (g *Grid) Downsample(factor int) *Grid {
	if factor <= 1 {
		return g
	}
	outW := (g.Width + factor - 1) / factor
	outH := (g.Height + factor - 1) / factor
	out := &Grid{
		Width:     outW,
		Height:    outH,
		Samples:   make([]float32, outW*outH),
		Transform: g.Transform,
		NoData:    g.NoData,
	}
	f := float64(factor)
	out.Transform[1] *= f
	out.Transform[2] *= f
	out.Transform[4] *= f
	out.Transform[5] *= f

	for or := 0; or < outH; or++ {
		for oc := 0; oc < outW; oc++ {
			var sum float64
			var count int
			for dr := 0; dr < factor; dr++ {
				sr := or*factor + dr
				if sr >= g.Height {
					break
				}
				for dc := 0; dc < factor; dc++ {
					sc := oc*factor + dc
					if sc >= g.Width {
						break
					}
					v := g.At(sc, sr)
					if g.IsNoData(v) {
						continue
					}
					sum += float64(v)
					count++
				}
			}
			if count > 0 {
				out.Samples[or*outW+oc] = float32(sum / float64(count))
			} else {
				out.Samples[or*outW+oc] = g.NoData
			}
		}
	}
	return out
}
