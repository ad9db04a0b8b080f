package raster

import (
	"math"
	"testing"
)

func rampGrid(t *testing.T, w, h int) *Grid {
	t.Helper()
	g, err := New(w, h, [6]float64{0, 1, 0, 0, 0, -1}, DefaultNoData)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			g.Set(col, row, float32(row*w+col))
		}
	}
	return g
}

func TestValidRange(t *testing.T) {
	g := rampGrid(t, 4, 4)
	min, max, ok := g.ValidRange()
	if !ok {
		t.Fatalf("ValidRange() ok = false, want true")
	}
	if min != 0 || max != 15 {
		t.Errorf("ValidRange() = (%v, %v), want (0, 15)", min, max)
	}
}

func TestValidRangeAllNoData(t *testing.T) {
	g, err := New(3, 3, [6]float64{}, DefaultNoData)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, _, ok := g.ValidRange(); ok {
		t.Errorf("ValidRange() ok = true for empty grid, want false")
	}
}

func TestIsNoData(t *testing.T) {
	g := rampGrid(t, 2, 2)
	if !g.IsNoData(DefaultNoData) {
		t.Errorf("sentinel not recognized as no-data")
	}
	if !g.IsNoData(float32(math.NaN())) {
		t.Errorf("NaN not recognized as no-data")
	}
	if g.IsNoData(100) {
		t.Errorf("valid sample flagged as no-data")
	}
}

func TestWorldXY(t *testing.T) {
	g := rampGrid(t, 4, 4)
	x, y := g.WorldXY(2, 3)
	if x != 2 || y != -3 {
		t.Errorf("WorldXY(2,3) = (%v, %v), want (2, -3)", x, y)
	}
}

func TestDownsampleAveragesValidSamples(t *testing.T) {
	g := rampGrid(t, 4, 4)
	g.Set(0, 0, DefaultNoData)

	out := g.Downsample(2)
	if out.Width != 2 || out.Height != 2 {
		t.Fatalf("Downsample(2) size = %dx%d, want 2x2", out.Width, out.Height)
	}
	// Top-left block holds samples 1, 4, 5 after masking corner 0.
	want := float32((1 + 4 + 5) / 3.0)
	if got := out.At(0, 0); math.Abs(float64(got-want)) > 1e-5 {
		t.Errorf("Downsample block mean = %v, want %v", got, want)
	}
	if out.Transform[1] != 2 || out.Transform[5] != -2 {
		t.Errorf("Downsample transform = %v, pixel sizes should double", out.Transform)
	}
}

func TestDownsampleAllNoDataBlock(t *testing.T) {
	g, err := New(2, 2, [6]float64{0, 1, 0, 0, 0, -1}, DefaultNoData)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	out := g.Downsample(2)
	if !out.IsNoData(out.At(0, 0)) {
		t.Errorf("empty block should stay no-data, got %v", out.At(0, 0))
	}
}

func TestDownsampleFactorOneIsIdentity(t *testing.T) {
	g := rampGrid(t, 4, 4)
	if g.Downsample(1) != g {
		t.Errorf("Downsample(1) should return the same grid")
	}
}

func TestMetersPerPixelGeographic(t *testing.T) {
	g, err := New(10, 10, [6]float64{8.0, 0.001, 0, 47.0, 0, -0.001}, DefaultNoData)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	mx, my := g.MetersPerPixel()
	wantX := 0.001 * 111320 * math.Cos(46.995*math.Pi/180)
	wantY := 0.001 * 110540
	if math.Abs(mx-wantX) > 0.5 || math.Abs(my-wantY) > 0.5 {
		t.Errorf("MetersPerPixel() = (%v, %v), want (~%v, ~%v)", mx, my, wantX, wantY)
	}
}

func TestProjectLocalMetersCentersOrigin(t *testing.T) {
	g, err := New(10, 10, [6]float64{8.0, 0.001, 0, 47.0, 0, -0.001}, DefaultNoData)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	p := g.ProjectLocalMeters()
	cx, cy := p.WorldXY(5, 5)
	if math.Abs(cx) > 1e-6 || math.Abs(cy) > 1e-6 {
		t.Errorf("projected center = (%v, %v), want origin", cx, cy)
	}
	x0, _ := p.WorldXY(0, 5)
	x1, _ := p.WorldXY(10, 5)
	widthM := x1 - x0
	wantWidth := 10 * 0.001 * 111320 * math.Cos(46.995*math.Pi/180)
	if math.Abs(widthM-wantWidth) > 1.0 {
		t.Errorf("projected width = %v m, want ~%v m", widthM, wantWidth)
	}
}
