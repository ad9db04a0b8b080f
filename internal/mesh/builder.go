package mesh

import (
	"math"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/topoforge/topoforge/pkg/geom"
)

// BuilderStats counts deduplication and recovery events during
// accumulation.
type BuilderStats struct {
	DedupHits        int
	RepairedRings    int
	SkippedRings     int
	SkippedTriangles int
}

// Builder accumulates vertices and triangles and produces a Store.
// Vertices are deduplicated by quantizing each coordinate to a
// tolerance-sized lattice and hashing the integer triple, so
// coincident cap and wall corners resolve to one vertex id.
type Builder struct {
	verts []geom.Vec3
	tris  [][3]int
	tol   float64
	index map[[3]int64]int
	stats BuilderStats
	log   *zap.Logger
}

// NewBuilder creates a builder with the given vertex dedup tolerance.
func NewBuilder(tolerance float64, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	if tolerance <= 0 {
		tolerance = 1e-6
	}
	return &Builder{
		tol:   tolerance,
		index: make(map[[3]int64]int),
		log:   log,
	}
}

func (b *Builder) key(p geom.Vec3) [3]int64 {
	return [3]int64{
		int64(math.Round(p.X / b.tol)),
		int64(math.Round(p.Y / b.tol)),
		int64(math.Round(p.Z / b.tol)),
	}
}

// AddVertex returns the id of an existing vertex within tolerance of
// p, or appends p as a new vertex.
func (b *Builder) AddVertex(p geom.Vec3) int {
	k := b.key(p)
	if id, ok := b.index[k]; ok {
		b.stats.DedupHits++
		return id
	}
	id := len(b.verts)
	b.verts = append(b.verts, p)
	b.index[k] = id
	return id
}

// AddTriangle buffers a triangle by vertex ids. Validation happens at
// Build time.
func (b *Builder) AddTriangle(v0, v1, v2 int) {
	b.tris = append(b.tris, [3]int{v0, v1, v2})
}

// VertexCount returns the number of unique vertices accumulated.
func (b *Builder) VertexCount() int { return len(b.verts) }

// TriangleCount returns the number of buffered triangles.
func (b *Builder) TriangleCount() int { return len(b.tris) }

// Stats returns accumulation counters.
func (b *Builder) Stats() BuilderStats { return b.stats }

// AddExtrudedPolygon extrudes a polygon into a watertight prism
// between zBase and zTop: one footprint triangulation stamped as top
// cap and, with reversed winding, as bottom cap, plus two wall
// triangles per boundary edge. Holes are extruded as independently
// wound shells facing inward. flip inverts all winding for
// inside-out solids.
func (b *Builder) AddExtrudedPolygon(poly orb.Polygon, zBase, zTop float64, flip bool) error {
	if len(poly) == 0 {
		return ErrDegeneratePolygon
	}
	if err := b.extrudeRing(poly[0], zBase, zTop, flip); err != nil {
		return err
	}
	for _, hole := range poly[1:] {
		// Reverse the hole ring so its walls face into the cavity.
		rev := make(orb.Ring, len(hole))
		for i, p := range hole {
			rev[len(hole)-1-i] = p
		}
		if err := b.extrudeRing(rev, zBase, zTop, flip); err != nil {
			// A bad hole must not abort the whole polygon.
			b.stats.SkippedRings++
			b.log.Warn("skipping degenerate hole ring", zap.Int("points", len(hole)))
		}
	}
	return nil
}

func (b *Builder) extrudeRing(ring orb.Ring, zBase, zTop float64, flip bool) error {
	pts := normalizeRing(ring)
	if len(pts) < 3 {
		return ErrDegeneratePolygon
	}

	caps, repaired, err := TriangulateRing(orb.Ring(pts))
	if err != nil {
		return err
	}
	if repaired {
		b.stats.RepairedRings++
		b.log.Warn("repaired self-intersecting ring before extrusion",
			zap.Int("points", len(pts)),
			zap.Int("triangles", len(caps)))
	}

	emit := func(a, c, d int) {
		if flip {
			c, d = d, c
		}
		b.AddTriangle(a, c, d)
	}

	// Caps: one footprint triangulation, stamped at both elevations.
	for _, tri := range caps {
		var top, bot [3]int
		for i, p := range tri {
			top[i] = b.AddVertex(geom.Vec3{X: p[0], Y: p[1], Z: zTop})
			bot[i] = b.AddVertex(geom.Vec3{X: p[0], Y: p[1], Z: zBase})
		}
		emit(top[0], top[1], top[2])
		emit(bot[0], bot[2], bot[1])
	}

	// Side walls: one quad per boundary edge.
	n := len(pts)
	topIDs := make([]int, n)
	botIDs := make([]int, n)
	for i, p := range pts {
		topIDs[i] = b.AddVertex(geom.Vec3{X: p[0], Y: p[1], Z: zTop})
		botIDs[i] = b.AddVertex(geom.Vec3{X: p[0], Y: p[1], Z: zBase})
	}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		emit(topIDs[i], botIDs[i], topIDs[j])
		emit(botIDs[i], botIDs[j], topIDs[j])
	}
	return nil
}

// Build validates the accumulated geometry into an immutable Store.
// Triangles rejected by the store (degenerate after quantization) are
// counted and skipped, not fatal.
func (b *Builder) Build() *Store {
	s := NewStore(b.tol, b.log)
	for _, v := range b.verts {
		s.AddVertex(v)
	}
	skipped := 0
	for _, t := range b.tris {
		if _, err := s.AddTriangle(t[0], t[1], t[2]); err != nil {
			skipped++
		}
	}
	if skipped > 0 {
		b.stats.SkippedTriangles += skipped
		b.log.Warn("dropped degenerate triangles during build",
			zap.Int("skipped", skipped))
	}
	b.log.Debug("mesh built",
		zap.Int("vertices", s.NumVertices()),
		zap.Int("triangles", s.NumTriangles()),
		zap.Int("dedup_hits", b.stats.DedupHits))
	return s
}
