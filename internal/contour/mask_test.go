package contour

import (
	"testing"

	"github.com/topoforge/topoforge/internal/raster"
)

// metricGrid builds a projected grid with 1m pixels and elevations
// supplied row-major.
func metricGrid(t *testing.T, w, h int, elev []float32) *raster.Grid {
	t.Helper()
	g, err := raster.New(w, h, [6]float64{1000, 1, 0, 1000, 0, -1}, raster.DefaultNoData)
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			g.Set(c, r, elev[r*w+c])
		}
	}
	return g
}

func TestBuildMaskThreshold(t *testing.T) {
	g := metricGrid(t, 3, 1, []float32{50, 100, 150})
	m := buildMask(g, 100)
	if m.At(0, 0) {
		t.Error("pixel below threshold should be clear")
	}
	if !m.At(1, 0) {
		t.Error("pixel at threshold should be set")
	}
	if !m.At(2, 0) {
		t.Error("pixel above threshold should be set")
	}
}

func TestBuildMaskSkipsNoData(t *testing.T) {
	g := metricGrid(t, 2, 1, []float32{raster.DefaultNoData, 500})
	m := buildMask(g, 100)
	if m.At(0, 0) {
		t.Error("nodata pixel must never enter a mask")
	}
	if !m.At(1, 0) {
		t.Error("valid pixel above threshold should be set")
	}
}

func TestMasksAreCumulative(t *testing.T) {
	elev := make([]float32, 16)
	for i := range elev {
		elev[i] = float32(i * 100)
	}
	g := metricGrid(t, 4, 4, elev)
	lower := buildMask(g, 300)
	upper := buildMask(g, 900)
	for i, b := range upper.Bits {
		if b && !lower.Bits[i] {
			t.Fatalf("upper mask pixel %d not in lower mask", i)
		}
	}
	if upper.Count() >= lower.Count() {
		t.Errorf("upper mask (%d px) should be smaller than lower (%d px)",
			upper.Count(), lower.Count())
	}
}

func TestErodeShrinksFromEdges(t *testing.T) {
	m := NewMask(5, 5)
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			m.Set(c, r, true)
		}
	}
	e := m.Erode(1)
	// A radius-1 disc erosion strips the outer ring of a full mask.
	if e.Count() != 9 {
		t.Fatalf("expected 9 surviving pixels, got %d", e.Count())
	}
	if !e.At(2, 2) {
		t.Error("center pixel should survive erosion")
	}
	if e.At(0, 0) || e.At(4, 4) {
		t.Error("border pixels should not survive erosion")
	}
}

func TestErodeRadiusZeroIsCopy(t *testing.T) {
	m := NewMask(3, 3)
	m.Set(1, 1, true)
	e := m.Erode(0)
	if e.Count() != 1 || !e.At(1, 1) {
		t.Error("zero radius should return an identical mask")
	}
	e.Set(0, 0, true)
	if m.At(0, 0) {
		t.Error("erode result must not alias the source")
	}
}

func TestSubtract(t *testing.T) {
	a := NewMask(2, 2)
	b := NewMask(2, 2)
	a.Set(0, 0, true)
	a.Set(1, 1, true)
	b.Set(1, 1, true)
	a.Subtract(b)
	if !a.At(0, 0) || a.At(1, 1) {
		t.Errorf("subtract left wrong bits: %v", a.Bits)
	}
}

func TestInsetRadiusPixels(t *testing.T) {
	// 1mm at 30m pixels still erodes by at least one pixel.
	if r := insetRadiusPixels(1.0, 30); r != 1 {
		t.Errorf("expected minimum radius 1, got %d", r)
	}
	// 5000mm = 5m over 2m pixels needs a 3 pixel radius.
	if r := insetRadiusPixels(5000, 2); r != 3 {
		t.Errorf("expected radius 3, got %d", r)
	}
}
