package contour

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestEngineGenerateNestedLayers(t *testing.T) {
	elev := make([]float32, 100)
	for r := 0; r < 10; r++ {
		for c := 0; c < 10; c++ {
			elev[r*10+c] = float32(r * 100)
		}
	}
	g := metricGrid(t, 10, 10, elev)

	e := NewEngine(DefaultConfig(), zap.NewNop())
	layers, stats, err := e.Generate(g, 5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(layers) != 5 {
		t.Fatalf("expected 5 layers, got %d", len(layers))
	}
	if stats.RunID == "" {
		t.Error("stats should carry a run id")
	}
	if stats.DownsampleFactor != 1 {
		t.Errorf("no memory pressure, factor should stay 1, got %d", stats.DownsampleFactor)
	}
	for i := 1; i < len(layers); i++ {
		if layers[i].Elevation <= layers[i-1].Elevation {
			t.Errorf("layer elevations must increase: %g then %g",
				layers[i-1].Elevation, layers[i].Elevation)
		}
		if layers[i].Area >= layers[i-1].Area {
			t.Errorf("nested layers must shrink: layer %d area %g, layer %d area %g",
				i-1, layers[i-1].Area, i, layers[i].Area)
		}
	}
	if layers[0].Area <= 0 {
		t.Error("bottom layer should cover terrain")
	}
}

func TestEngineDropsEmptyLayers(t *testing.T) {
	elev := make([]float32, 16)
	for i := range elev {
		elev[i] = 400
	}
	g := metricGrid(t, 4, 4, elev)

	// A flat grid degenerates to a band around 400, so thresholds
	// above 400 produce empty layers.
	e := NewEngine(DefaultConfig(), zap.NewNop())
	layers, _, err := e.Generate(g, 4)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, l := range layers {
		if l.Empty() {
			t.Errorf("empty layer at %g should have been dropped", l.Elevation)
		}
	}

	cfg := DefaultConfig()
	cfg.ForceAllLayers = true
	forced := NewEngine(cfg, zap.NewNop())
	all, _, err := forced.Generate(g, 4)
	if err != nil {
		t.Fatalf("Generate forced: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("forced run should keep all 4 layers, got %d", len(all))
	}
	if len(all) <= len(layers) {
		t.Errorf("forced run should keep more layers than default (%d vs %d)",
			len(all), len(layers))
	}
}

func TestEngineDownsamplesUnderPressure(t *testing.T) {
	elev := make([]float32, 400)
	for r := 0; r < 20; r++ {
		for c := 0; c < 20; c++ {
			elev[r*20+c] = float32(r * 50)
		}
	}
	g := metricGrid(t, 20, 20, elev)

	calls := 0
	sampler := func() uint64 {
		calls++
		if calls == 1 {
			return 5000 // critical on the first check only
		}
		return 100
	}
	gov := NewGovernorWithSampler(sampler, zap.NewNop())
	e := NewEngineWithGovernor(DefaultConfig(), zap.NewNop(), gov)

	layers, stats, err := e.Generate(g, 4)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if stats.DownsampleFactor != 2 {
		t.Errorf("expected downsample factor 2, got %d", stats.DownsampleFactor)
	}
	if stats.MemoryEvents != 1 {
		t.Errorf("expected 1 memory event, got %d", stats.MemoryEvents)
	}
	if len(layers) == 0 {
		t.Fatal("downsampled run should still produce layers")
	}
}

func TestEngineMemoryExhausted(t *testing.T) {
	elev := make([]float32, 100)
	for i := range elev {
		elev[i] = float32(i * 10)
	}
	g := metricGrid(t, 10, 10, elev)

	gov := NewGovernorWithSampler(func() uint64 { return 8000 }, zap.NewNop())
	e := NewEngineWithGovernor(DefaultConfig(), zap.NewNop(), gov)

	if _, _, err := e.Generate(g, 4); !errors.Is(err, ErrMemoryExhausted) {
		t.Fatalf("expected ErrMemoryExhausted, got %v", err)
	}
}

func TestEngineAllNoData(t *testing.T) {
	elev := make([]float32, 16)
	for i := range elev {
		elev[i] = -32768
	}
	g := metricGrid(t, 4, 4, elev)
	e := NewEngine(DefaultConfig(), zap.NewNop())
	if _, _, err := e.Generate(g, 3); !errors.Is(err, ErrInvalidRaster) {
		t.Fatalf("expected ErrInvalidRaster, got %v", err)
	}
}

func TestEngineInsetCutsSeatingGroove(t *testing.T) {
	// Tall plateau in the middle of a low plain. With inset enabled
	// the lower layer loses a rim-eroded copy of the upper footprint.
	elev := make([]float32, 100)
	for r := 0; r < 10; r++ {
		for c := 0; c < 10; c++ {
			if r >= 3 && r <= 6 && c >= 3 && c <= 6 {
				elev[r*10+c] = 900
			} else {
				elev[r*10+c] = 100
			}
		}
	}
	g := metricGrid(t, 10, 10, elev)

	cfg := DefaultConfig()
	cfg.InsetUpperLayers = true
	cfg.InsetOffsetMM = 1000 // 1m at 1m pixels: one pixel of erosion survives the clamp
	e := NewEngine(cfg, zap.NewNop())
	withInset, _, err := e.Generate(g, 3)
	if err != nil {
		t.Fatalf("Generate with inset: %v", err)
	}

	plain := NewEngine(DefaultConfig(), zap.NewNop())
	without, _, err := plain.Generate(g, 3)
	if err != nil {
		t.Fatalf("Generate without inset: %v", err)
	}

	if len(withInset) == 0 || len(without) == 0 {
		t.Fatal("both runs should produce layers")
	}
	if withInset[0].Area >= without[0].Area {
		t.Errorf("inset should remove area from the bottom layer: %g vs %g",
			withInset[0].Area, without[0].Area)
	}
}

func TestGenerateParallelMatchesSequential(t *testing.T) {
	elev := make([]float32, 100)
	for i := range elev {
		elev[i] = float32(i * 10)
	}
	g := metricGrid(t, 10, 10, elev)
	e := NewEngine(DefaultConfig(), zap.NewNop())

	seq, _, err := e.Generate(g, 4)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	par, _, err := e.GenerateParallel(g, 4, 4)
	if err != nil {
		t.Fatalf("GenerateParallel: %v", err)
	}
	if len(seq) != len(par) {
		t.Fatalf("layer counts differ: %d vs %d", len(seq), len(par))
	}
	for i := range seq {
		if seq[i].Area != par[i].Area {
			t.Errorf("layer %d area differs: %g vs %g", i, seq[i].Area, par[i].Area)
		}
	}
}
