package contour

import (
	"math"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"

	"github.com/topoforge/topoforge/internal/raster"
)

// Layer is one contour band: every polygon of terrain at or above the
// layer elevation. Layers nest, so the footprint of layer i+1 is
// contained in the footprint of layer i.
type Layer struct {
	Elevation float64
	Polygons  []orb.Polygon
	Area      float64
}

// Empty reports whether the layer has no polygons.
func (l Layer) Empty() bool { return len(l.Polygons) == 0 }

// Stats records what a single extraction run did.
type Stats struct {
	RunID            string
	Levels           []float64
	DownsampleFactor int
	LayerPolygons    []int
	InsetApplied     int
	MemoryEvents     int
}

// Engine turns an elevation grid into nested contour layers.
type Engine struct {
	cfg Config
	log *zap.Logger
	gov *Governor
}

// NewEngine builds an engine with a live memory governor.
func NewEngine(cfg Config, log *zap.Logger) *Engine {
	return &Engine{cfg: cfg, log: log, gov: NewGovernor(log)}
}

// NewEngineWithGovernor builds an engine with an injected governor.
func NewEngineWithGovernor(cfg Config, log *zap.Logger, gov *Governor) *Engine {
	return &Engine{cfg: cfg, log: log, gov: gov}
}

// Generate extracts numLayers contour layers from the grid. When the
// governor reports critical pressure the working grid is downsampled,
// the levels regenerated from the coarser range, and the pass
// restarted from the first layer.
func (e *Engine) Generate(g *raster.Grid, numLayers int) ([]Layer, *Stats, error) {
	if numLayers <= 0 {
		return nil, nil, ErrInvalidLayerSpec
	}
	stats := &Stats{RunID: uuid.NewString(), DownsampleFactor: 1}

	work := g
	for {
		minV, maxV, ok := work.ValidRange()
		if !ok {
			return nil, nil, ErrInvalidRaster
		}
		levels, err := GenerateLevels(float64(minV), float64(maxV), numLayers, e.cfg)
		if err != nil {
			return nil, nil, err
		}

		layers, restartFactor, err := e.extractPass(work, levels, stats)
		if err != nil {
			return nil, nil, err
		}
		if restartFactor > 1 {
			e.log.Info("restarting extraction on downsampled grid",
				zap.String("run_id", stats.RunID),
				zap.Int("factor", restartFactor))
			work = work.Downsample(restartFactor)
			stats.DownsampleFactor *= restartFactor
			stats.MemoryEvents++
			continue
		}

		stats.Levels = levels
		layers, err = e.finish(layers, stats)
		if err != nil {
			return nil, nil, err
		}
		return layers, stats, nil
	}
}

// GenerateParallel is a compatibility entry point. Layer masks are
// cumulative and the inset step couples adjacent layers, so layers
// are produced sequentially; the parallel phase of the pipeline is
// the per-layer meshing that follows.
func (e *Engine) GenerateParallel(g *raster.Grid, numLayers, workers int) ([]Layer, *Stats, error) {
	return e.Generate(g, numLayers)
}

// extractPass walks the level list bottom-up. It returns a restart
// factor > 1 when the governor demands a coarser grid.
func (e *Engine) extractPass(work *raster.Grid, levels []float64, stats *Stats) ([]Layer, int, error) {
	mx, my := work.MetersPerPixel()
	pixelMeters := math.Min(mx, my)
	stats.LayerPolygons = stats.LayerPolygons[:0]
	stats.InsetApplied = 0

	numBands := len(levels) - 1
	layers := make([]Layer, 0, numBands)
	for i := 0; i < numBands; i++ {
		factor, err := e.gov.Check()
		if err != nil {
			return nil, 0, err
		}
		if factor > 1 {
			return nil, factor, nil
		}

		mask := buildMask(work, levels[i])

		// Cut a seating groove for the next layer: erode the next
		// layer's footprint inward and remove it from this one. The
		// topmost band keeps its full footprint.
		if e.cfg.InsetUpperLayers && i+1 < numBands {
			next := buildMask(work, levels[i+1])
			if next.Count() > 0 {
				radius := insetRadiusPixels(e.cfg.InsetOffsetMM, pixelMeters)
				mask.Subtract(next.Erode(radius))
				stats.InsetApplied++
			}
		}

		var polys []orb.Polygon
		if mask.Count() > 0 {
			loops := tracePixelLoops(mask)
			polys = assemblePolygons(loops, work, e.cfg.RemoveHoles)
		}
		layer := Layer{Elevation: levels[i], Polygons: polys}
		for _, p := range polys {
			layer.Area += planar.Area(p)
		}
		layers = append(layers, layer)
		stats.LayerPolygons = append(stats.LayerPolygons, len(polys))

		e.log.Debug("layer extracted",
			zap.Int("layer", i),
			zap.Float64("elevation", levels[i]),
			zap.Int("polygons", len(polys)),
			zap.Float64("area", layer.Area))
	}
	return layers, 1, nil
}

// finish drops empty layers unless configured to keep them, and
// rejects runs where no level produced terrain.
func (e *Engine) finish(layers []Layer, stats *Stats) ([]Layer, error) {
	nonEmpty := 0
	for _, l := range layers {
		if !l.Empty() {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return nil, ErrNoLevelsInRange
	}
	if e.cfg.ForceAllLayers {
		return layers, nil
	}
	kept := layers[:0]
	polyCounts := stats.LayerPolygons[:0]
	for i, l := range layers {
		if l.Empty() {
			e.log.Debug("dropping empty layer", zap.Float64("elevation", l.Elevation))
			continue
		}
		kept = append(kept, l)
		polyCounts = append(polyCounts, stats.LayerPolygons[i])
	}
	stats.LayerPolygons = polyCounts
	return kept, nil
}
