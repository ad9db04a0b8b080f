// Package heightmap triangulates an elevation grid directly into a
// fabrication mesh, two triangles per grid cell, with an optional
// base platform and perimeter walls.
package heightmap

import (
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/topoforge/topoforge/internal/mesh"
	"github.com/topoforge/topoforge/internal/raster"
	"github.com/topoforge/topoforge/pkg/geom"
)

// Heightmap errors.
var (
	ErrGridTooSmall    = errors.New("heightmap: grid needs at least 2x2 samples")
	ErrNoValidSamples  = errors.New("heightmap: grid has no valid samples")
	ErrInvalidLayerNum = errors.New("heightmap: layer count must be positive")
)

// Approximate meters per degree for the local tangent projection.
const (
	metersPerDegreeLon = 111320.0
	metersPerDegreeLat = 110540.0
)

// Config controls surface construction.
type Config struct {
	VerticalScale float64
	BaseHeightMM  float64
	GenerateBase  bool
	GenerateWalls bool

	// ContourMode flattens each layer to its ceiling elevation for
	// laser-cut stacking; off, the surface follows the terrain.
	ContourMode bool
	FlipNormals bool

	MinElevation *float64
	MaxElevation *float64

	// When both are set, grid coordinates are treated as degrees and
	// projected to meters around this center.
	CenterLat *float64
	CenterLon *float64

	VertexTolerance float64
}

// DefaultConfig returns fabrication-ready defaults.
func DefaultConfig() Config {
	return Config{
		VerticalScale:   1.0,
		BaseHeightMM:    5.0,
		GenerateBase:    true,
		GenerateWalls:   true,
		ContourMode:     true,
		VertexTolerance: 1e-6,
	}
}

// Stats summarizes one triangulation run.
type Stats struct {
	SurfaceTriangles int
	BaseTriangles    int
	WallTriangles    int
	SkippedNoData    int
	Cols, Rows       int
	MinElev, MaxElev float32
}

// Triangulator builds terrain surface meshes from a grid.
type Triangulator struct {
	cfg   Config
	log   *zap.Logger
	stats Stats
}

// New returns a triangulator.
func New(cfg Config, log *zap.Logger) *Triangulator {
	if cfg.VerticalScale == 0 {
		cfg.VerticalScale = 1.0
	}
	if cfg.VertexTolerance <= 0 {
		cfg.VertexTolerance = 1e-6
	}
	return &Triangulator{cfg: cfg, log: log}
}

// Stats returns counters from the last run.
func (t *Triangulator) Stats() Stats { return t.stats }

// Triangulate meshes the whole grid.
func (t *Triangulator) Triangulate(g *raster.Grid) (*mesh.Store, error) {
	if g.Width < 2 || g.Height < 2 {
		return nil, ErrGridTooSmall
	}
	minV, maxV, ok := g.ValidRange()
	if !ok {
		return nil, ErrNoValidSamples
	}
	t.stats = Stats{Cols: g.Width, Rows: g.Height, MinElev: minV, MaxElev: maxV}

	b := mesh.NewBuilder(t.cfg.VertexTolerance, t.log)
	t.surface(b, g)
	if t.cfg.GenerateBase {
		t.basePlatform(b, g)
	}
	if t.cfg.GenerateWalls {
		t.sideWalls(b, g, float64(maxV))
	}

	t.log.Info("heightmap triangulation complete",
		zap.Int("surface", t.stats.SurfaceTriangles),
		zap.Int("base", t.stats.BaseTriangles),
		zap.Int("walls", t.stats.WallTriangles),
		zap.Int("skipped_nodata", t.stats.SkippedNoData))
	return b.Build(), nil
}

// TriangulateLayers splits the valid elevation range into n equal
// bands and meshes each band separately, returning per-band meshes
// and their stats.
func (t *Triangulator) TriangulateLayers(g *raster.Grid, n int) ([]*mesh.Store, []Stats, error) {
	if n <= 0 {
		return nil, nil, ErrInvalidLayerNum
	}
	minV, maxV, ok := g.ValidRange()
	if !ok {
		return nil, nil, ErrNoValidSamples
	}
	interval := (float64(maxV) - float64(minV)) / float64(n)
	t.log.Info("triangulating elevation bands",
		zap.Int("layers", n),
		zap.Float64("interval", interval))

	stores := make([]*mesh.Store, 0, n)
	stats := make([]Stats, 0, n)
	for i := 0; i < n; i++ {
		lo := float64(minV) + float64(i)*interval
		hi := float64(minV) + float64(i+1)*interval
		cfg := t.cfg
		cfg.MinElevation = &lo
		cfg.MaxElevation = &hi
		sub := New(cfg, t.log)
		store, err := sub.Triangulate(g)
		if err != nil {
			return nil, nil, err
		}
		stores = append(stores, store)
		stats = append(stats, sub.Stats())
	}
	return stores, stats, nil
}

func (t *Triangulator) surface(b *mesh.Builder, g *raster.Grid) {
	for row := 0; row < g.Height-1; row++ {
		for col := 0; col < g.Width-1; col++ {
			z00 := g.At(col, row)
			z10 := g.At(col+1, row)
			z01 := g.At(col, row+1)
			z11 := g.At(col+1, row+1)
			if t.nodata(g, z00) || t.nodata(g, z10) || t.nodata(g, z01) || t.nodata(g, z11) {
				t.stats.SkippedNoData++
				continue
			}

			var f00, f10, f01, f11 float64
			if t.cfg.ContourMode {
				cellMax := math.Max(math.Max(float64(z00), float64(z10)),
					math.Max(float64(z01), float64(z11)))
				if t.cfg.MinElevation != nil && cellMax < *t.cfg.MinElevation {
					continue
				}
				flat := cellMax
				if t.cfg.MaxElevation != nil {
					flat = *t.cfg.MaxElevation
				}
				flat *= t.cfg.VerticalScale
				f00, f10, f01, f11 = flat, flat, flat, flat
			} else {
				cellMin := math.Min(math.Min(float64(z00), float64(z10)),
					math.Min(float64(z01), float64(z11)))
				cellMax := math.Max(math.Max(float64(z00), float64(z10)),
					math.Max(float64(z01), float64(z11)))
				if t.cfg.MaxElevation != nil && cellMin > *t.cfg.MaxElevation {
					continue
				}
				if t.cfg.MinElevation != nil && cellMax < *t.cfg.MinElevation {
					continue
				}
				f00 = t.clip(float64(z00)) * t.cfg.VerticalScale
				f10 = t.clip(float64(z10)) * t.cfg.VerticalScale
				f01 = t.clip(float64(z01)) * t.cfg.VerticalScale
				f11 = t.clip(float64(z11)) * t.cfg.VerticalScale
			}

			id00 := b.AddVertex(t.vertex(g, float64(col), float64(row), f00))
			id10 := b.AddVertex(t.vertex(g, float64(col+1), float64(row), f10))
			id01 := b.AddVertex(t.vertex(g, float64(col), float64(row+1), f01))
			id11 := b.AddVertex(t.vertex(g, float64(col+1), float64(row+1), f11))

			if t.cfg.FlipNormals {
				b.AddTriangle(id00, id01, id10)
				b.AddTriangle(id10, id01, id11)
			} else {
				b.AddTriangle(id00, id10, id01)
				b.AddTriangle(id10, id11, id01)
			}
			t.stats.SurfaceTriangles += 2
		}
	}
}

// basePlatform stamps the grid footprint at the base elevation with
// inverted winding so the normals face down.
func (t *Triangulator) basePlatform(b *mesh.Builder, g *raster.Grid) {
	baseZ := t.cfg.BaseHeightMM
	for row := 0; row < g.Height-1; row++ {
		for col := 0; col < g.Width-1; col++ {
			id00 := b.AddVertex(t.vertex(g, float64(col), float64(row), baseZ))
			id10 := b.AddVertex(t.vertex(g, float64(col+1), float64(row), baseZ))
			id01 := b.AddVertex(t.vertex(g, float64(col), float64(row+1), baseZ))
			id11 := b.AddVertex(t.vertex(g, float64(col+1), float64(row+1), baseZ))
			b.AddTriangle(id00, id01, id10)
			b.AddTriangle(id10, id01, id11)
			t.stats.BaseTriangles += 2
		}
	}
}

// sideWalls closes the four grid edges down to the base elevation.
// Contour mode uses one constant wall top so stacked layers line up;
// terrain mode follows the edge elevations.
func (t *Triangulator) sideWalls(b *mesh.Builder, g *raster.Grid, dataMax float64) {
	baseZ := t.cfg.BaseHeightMM
	flatTop := dataMax * t.cfg.VerticalScale

	wallZ := func(v float32) float64 {
		if t.cfg.ContourMode {
			return flatTop
		}
		return float64(v) * t.cfg.VerticalScale
	}

	quad := func(c0, r0, c1, r1 int, z0, z1 float64, flip bool) {
		top0 := b.AddVertex(t.vertex(g, float64(c0), float64(r0), z0))
		top1 := b.AddVertex(t.vertex(g, float64(c1), float64(r1), z1))
		base0 := b.AddVertex(t.vertex(g, float64(c0), float64(r0), baseZ))
		base1 := b.AddVertex(t.vertex(g, float64(c1), float64(r1), baseZ))
		if flip {
			b.AddTriangle(top0, top1, base0)
			b.AddTriangle(base0, top1, base1)
		} else {
			b.AddTriangle(top0, base0, top1)
			b.AddTriangle(base0, base1, top1)
		}
		t.stats.WallTriangles += 2
	}

	// Left and right columns.
	for row := 0; row < g.Height-1; row++ {
		l0, l1 := g.At(0, row), g.At(0, row+1)
		if !t.nodata(g, l0) && !t.nodata(g, l1) {
			quad(0, row, 0, row+1, wallZ(l0), wallZ(l1), false)
		}
		r0, r1 := g.At(g.Width-1, row), g.At(g.Width-1, row+1)
		if !t.nodata(g, r0) && !t.nodata(g, r1) {
			quad(g.Width-1, row, g.Width-1, row+1, wallZ(r0), wallZ(r1), true)
		}
	}
	// Top and bottom rows.
	for col := 0; col < g.Width-1; col++ {
		t0, t1 := g.At(col, 0), g.At(col+1, 0)
		if !t.nodata(g, t0) && !t.nodata(g, t1) {
			quad(col, 0, col+1, 0, wallZ(t0), wallZ(t1), true)
		}
		b0, b1 := g.At(col, g.Height-1), g.At(col+1, g.Height-1)
		if !t.nodata(g, b0) && !t.nodata(g, b1) {
			quad(col, g.Height-1, col+1, g.Height-1, wallZ(b0), wallZ(b1), false)
		}
	}
}

func (t *Triangulator) nodata(g *raster.Grid, v float32) bool {
	return g.IsNoData(v) || math.IsNaN(float64(v))
}

func (t *Triangulator) clip(elev float64) float64 {
	if t.cfg.MinElevation != nil && elev < *t.cfg.MinElevation {
		return *t.cfg.MinElevation
	}
	if t.cfg.MaxElevation != nil && elev > *t.cfg.MaxElevation {
		return *t.cfg.MaxElevation
	}
	return elev
}

// vertex maps a pixel corner to world space, projecting degrees to
// local meters when a center is configured.
func (t *Triangulator) vertex(g *raster.Grid, col, row, z float64) geom.Vec3 {
	x, y := g.WorldXY(col, row)
	if t.cfg.CenterLat != nil && t.cfg.CenterLon != nil {
		lat, lon := *t.cfg.CenterLat, *t.cfg.CenterLon
		mLon := metersPerDegreeLon * math.Cos(lat*math.Pi/180)
		x = (x - lon) * mLon
		y = (y - lat) * metersPerDegreeLat
	}
	return geom.Vec3{X: x, Y: y, Z: z}
}
