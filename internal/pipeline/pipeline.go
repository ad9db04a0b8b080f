// Package pipeline wires contour extraction to fabrication mesh
// construction.
package pipeline

import (
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/topoforge/topoforge/internal/contour"
	"github.com/topoforge/topoforge/internal/mesh"
	"github.com/topoforge/topoforge/internal/raster"
)

// Pipeline errors.
var (
	ErrNoLayers        = errors.New("pipeline: contour extraction produced no layers")
	ErrBadLayerLevels  = errors.New("pipeline: layer elevation missing from level list")
	ErrSingularRaster  = errors.New("pipeline: raster transform is not invertible")
	ErrNonPositiveSpan = errors.New("pipeline: layer top must be above layer base")
)

// Options configures a run.
type Options struct {
	Contour         contour.Config
	NumLayers       int
	VertexTolerance float64
	// Stacked merges every layer into one mesh; off, each layer gets
	// its own.
	Stacked bool
}

// DefaultOptions returns pipeline defaults.
func DefaultOptions() Options {
	return Options{
		Contour:         contour.DefaultConfig(),
		NumLayers:       10,
		VertexTolerance: 1e-6,
		Stacked:         true,
	}
}

// Stats summarizes a pipeline run.
type Stats struct {
	RunID        string
	LayerCount   int
	SkippedRings int
	Vertices     int
	Triangles    int
	Reports      []mesh.Report
}

// Result carries everything a run produced. Layers stay in the
// raster's native coordinates; meshes are built in a local meter
// frame. Stacked runs fill Stacked, per-layer runs fill Meshes.
type Result struct {
	Layers  []contour.Layer
	Stacked *mesh.Store
	Meshes  []*mesh.Store
	Stats   Stats
}

// Pipeline orchestrates one DEM-to-mesh conversion.
type Pipeline struct {
	opts Options
	log  *zap.Logger
}

// New builds a pipeline.
func New(opts Options, log *zap.Logger) *Pipeline {
	if opts.NumLayers <= 0 {
		opts.NumLayers = 10
	}
	if opts.VertexTolerance <= 0 {
		opts.VertexTolerance = 1e-6
	}
	return &Pipeline{opts: opts, log: log}
}

// Run extracts contours from the grid and extrudes each layer into a
// printable shell.
func (p *Pipeline) Run(g *raster.Grid) (*Result, error) {
	runID := uuid.NewString()
	p.log.Info("pipeline run starting",
		zap.String("run_id", runID),
		zap.Int("layers", p.opts.NumLayers),
		zap.Bool("stacked", p.opts.Stacked))

	engine := contour.NewEngine(p.opts.Contour, p.log)
	layers, cstats, err := engine.Generate(g, p.opts.NumLayers)
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}

	projected := g.ProjectLocalMeters()
	toMeters, err := frameMapper(g, projected)
	if err != nil {
		return nil, err
	}

	spans, err := layerSpans(layers, cstats.Levels)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Layers: layers,
		Stats:  Stats{RunID: runID, LayerCount: len(layers)},
	}

	var stacked *mesh.Builder
	if p.opts.Stacked {
		stacked = mesh.NewBuilder(p.opts.VertexTolerance, p.log)
	}
	for i, layer := range layers {
		b := stacked
		if b == nil {
			b = mesh.NewBuilder(p.opts.VertexTolerance, p.log)
		}
		for _, poly := range layer.Polygons {
			meters := p.preparePolygon(poly, toMeters, &res.Stats)
			if meters == nil {
				continue
			}
			if err := b.AddExtrudedPolygon(meters, spans[i].base, spans[i].top, false); err != nil {
				return nil, err
			}
		}
		p.log.Info("layer extruded",
			zap.String("run_id", runID),
			zap.Int("layer", i),
			zap.Float64("elevation", layer.Elevation),
			zap.Float64("z_base", spans[i].base),
			zap.Float64("z_top", spans[i].top))
		if stacked == nil {
			store := b.Build()
			res.Meshes = append(res.Meshes, store)
			p.collect(store, &res.Stats)
		}
	}
	if stacked != nil {
		res.Stacked = stacked.Build()
		p.collect(res.Stacked, &res.Stats)
	}

	p.log.Info("pipeline run complete",
		zap.String("run_id", runID),
		zap.Int("layer_count", res.Stats.LayerCount),
		zap.Int("triangles", res.Stats.Triangles),
		zap.Int("skipped_rings", res.Stats.SkippedRings))
	return res, nil
}

func (p *Pipeline) collect(s *mesh.Store, stats *Stats) {
	ms := s.Stats()
	stats.Vertices += ms.Vertices
	stats.Triangles += ms.Triangles
	stats.Reports = append(stats.Reports, s.Validate())
}

type span struct{ base, top float64 }

// layerSpans derives the vertical extent of every surviving layer.
// The model floor sits at the lowest level; the topmost layer gets
// the average thickness of the full level list.
func layerSpans(layers []contour.Layer, levels []float64) ([]span, error) {
	if len(levels) < 2 {
		return nil, ErrBadLayerLevels
	}
	floor := levels[0]
	avg := (levels[len(levels)-1] - floor) / float64(len(levels)-1)

	spans := make([]span, len(layers))
	for i, l := range layers {
		idx := -1
		for j, lev := range levels {
			if lev == l.Elevation {
				idx = j
				break
			}
		}
		if idx < 0 {
			return nil, ErrBadLayerLevels
		}
		base := l.Elevation - floor
		top := base + avg
		if idx+1 < len(levels) {
			top = levels[idx+1] - floor
		}
		if top <= base {
			return nil, ErrNonPositiveSpan
		}
		spans[i] = span{base: base, top: top}
	}
	return spans, nil
}

// frameMapper returns a function converting native-frame points into
// the projected local-meter frame by going through pixel space.
func frameMapper(native, projected *raster.Grid) (func(orb.Point) orb.Point, error) {
	t := native.Transform
	det := t[1]*t[5] - t[2]*t[4]
	if det == 0 {
		return nil, ErrSingularRaster
	}
	return func(p orb.Point) orb.Point {
		dx, dy := p[0]-t[0], p[1]-t[3]
		col := (dx*t[5] - dy*t[2]) / det
		row := (dy*t[1] - dx*t[4]) / det
		x, y := projected.WorldXY(col, row)
		return orb.Point{x, y}
	}, nil
}

// preparePolygon reprojects a polygon to meters and drops near-zero
// edges. Rings left with fewer than 3 distinct vertices, or carrying
// non-finite coordinates, are skipped and counted.
func (p *Pipeline) preparePolygon(poly orb.Polygon, toMeters func(orb.Point) orb.Point, stats *Stats) orb.Polygon {
	out := make(orb.Polygon, 0, len(poly))
	for ri, ring := range poly {
		simplified := p.simplifyRing(ring, toMeters)
		if simplified == nil {
			stats.SkippedRings++
			p.log.Warn("skipping unusable ring", zap.Int("ring", ri))
			if ri == 0 {
				return nil
			}
			continue
		}
		out = append(out, simplified)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (p *Pipeline) simplifyRing(ring orb.Ring, toMeters func(orb.Point) orb.Point) orb.Ring {
	tol := p.opts.VertexTolerance
	out := make(orb.Ring, 0, len(ring))
	for _, pt := range ring {
		m := toMeters(pt)
		if math.IsNaN(m[0]) || math.IsInf(m[0], 0) || math.IsNaN(m[1]) || math.IsInf(m[1], 0) {
			return nil
		}
		if len(out) > 0 {
			last := out[len(out)-1]
			if math.Hypot(m[0]-last[0], m[1]-last[1]) <= tol {
				continue
			}
		}
		out = append(out, m)
	}
	// Reclose after simplification.
	if len(out) >= 2 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	if len(out) < 4 {
		return nil
	}
	return out
}
