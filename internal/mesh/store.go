// Package mesh provides an indexed triangle mesh with incremental
// edge-topology tracking and a builder for watertight solids.
package mesh

import (
	"errors"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/topoforge/topoforge/pkg/geom"
)

// Mesh errors.
var (
	ErrVertexOutOfRange   = errors.New("mesh: vertex index out of range")
	ErrDegenerateTriangle = errors.New("mesh: degenerate triangle rejected")
)

// Triangle area below this is treated as degenerate by Validate and Repair.
const minTriangleArea = 1e-12

// Z extent of one elevation index band.
const bandHeight = 10.0

// Triangle holds three vertex indices with cached derived properties.
type Triangle struct {
	V      [3]int
	Normal geom.Vec3
	Area   float64
}

// Report summarizes a topology validation pass.
type Report struct {
	NonManifoldEdges    int
	BoundaryEdges       int
	DegenerateTriangles int
	Watertight          bool
}

// Stats holds live geometry counts and bounds.
type Stats struct {
	Vertices    int
	Triangles   int
	Edges       int
	SurfaceArea float64
	Min, Max    geom.Vec3
}

// Store owns mesh vertices and triangles and derives edge topology and
// an elevation-banded triangle index. Removed triangles are
// tombstoned, never compacted, so indices stay stable. Mutations are
// serialized by an internal lock; the store is moved between pipeline
// stages, not copied.
type Store struct {
	mu        sync.Mutex
	vertices  []geom.Vec3
	triangles []Triangle
	dead      []bool
	edges     map[uint64][]int
	bands     map[int][]int
	tolerance float64
	liveTris  int
	log       *zap.Logger
}

// NewStore creates an empty store. tolerance is the minimum pairwise
// vertex distance below which a triangle is rejected as degenerate.
func NewStore(tolerance float64, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if tolerance <= 0 {
		tolerance = 1e-6
	}
	return &Store{
		edges:     make(map[uint64][]int),
		bands:     make(map[int][]int),
		tolerance: tolerance,
		log:       log,
	}
}

// edgeKey builds an order-independent identifier for the edge (a, b).
func edgeKey(a, b int) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

// AddVertex appends a vertex and returns its index. Indices are dense
// and never reused.
func (s *Store) AddVertex(p geom.Vec3) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vertices = append(s.vertices, p)
	return len(s.vertices) - 1
}

// Vertex returns the vertex at index i.
func (s *Store) Vertex(i int) geom.Vec3 {
	return s.vertices[i]
}

// NumVertices returns the total vertex count.
func (s *Store) NumVertices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vertices)
}

// AddTriangle validates and inserts a triangle, caching its normal and
// area, and returns its index. Out-of-range or repeated indices and
// near-coincident vertices are rejected.
func (s *Store) AddTriangle(a, b, c int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.vertices)
	if a < 0 || b < 0 || c < 0 || a >= n || b >= n || c >= n {
		return -1, ErrVertexOutOfRange
	}
	if a == b || b == c || a == c {
		return -1, ErrDegenerateTriangle
	}
	pa, pb, pc := s.vertices[a], s.vertices[b], s.vertices[c]
	if pa.Distance(pb) <= s.tolerance || pb.Distance(pc) <= s.tolerance || pa.Distance(pc) <= s.tolerance {
		return -1, ErrDegenerateTriangle
	}

	tri := Triangle{
		V:      [3]int{a, b, c},
		Normal: geom.TriangleNormal(pa, pb, pc),
		Area:   geom.TriangleArea(pa, pb, pc),
	}

	id := len(s.triangles)
	s.triangles = append(s.triangles, tri)
	s.dead = append(s.dead, false)
	s.liveTris++
	s.registerEdges(id, true)
	s.registerBands(id, true)
	return id, nil
}

// Triangle returns the triangle at index id. Callers should check
// Alive first for tombstoned entries.
func (s *Store) Triangle(id int) Triangle {
	return s.triangles[id]
}

// Alive reports whether triangle id exists and has not been removed.
func (s *Store) Alive(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return id >= 0 && id < len(s.triangles) && !s.dead[id]
}

// NumTriangles returns the live triangle count.
func (s *Store) NumTriangles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveTris
}

// RemoveTriangle tombstones a triangle and unregisters its edges.
// Returns false when id is out of range or already removed.
func (s *Store) RemoveTriangle(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(id)
}

func (s *Store) removeLocked(id int) bool {
	if id < 0 || id >= len(s.triangles) || s.dead[id] {
		return false
	}
	s.registerEdges(id, false)
	s.registerBands(id, false)
	s.dead[id] = true
	s.liveTris--
	return true
}

// EachTriangle calls fn for every live triangle.
func (s *Store) EachTriangle(fn func(id int, t Triangle)) {
	for id := range s.triangles {
		if s.dead[id] {
			continue
		}
		fn(id, s.triangles[id])
	}
}

// registerEdges adds or removes the triangle's three edges in the
// registry, maintaining per-edge adjacency incrementally.
func (s *Store) registerEdges(id int, add bool) {
	t := s.triangles[id]
	for i := 0; i < 3; i++ {
		key := edgeKey(t.V[i], t.V[(i+1)%3])
		if add {
			s.edges[key] = append(s.edges[key], id)
			continue
		}
		adj := s.edges[key]
		for j, tid := range adj {
			if tid == id {
				adj = append(adj[:j], adj[j+1:]...)
				break
			}
		}
		if len(adj) == 0 {
			delete(s.edges, key)
		} else {
			s.edges[key] = adj
		}
	}
}

func (s *Store) triangleZRange(id int) (lo, hi float64) {
	t := s.triangles[id]
	lo = s.vertices[t.V[0]].Z
	hi = lo
	for _, v := range t.V[1:] {
		z := s.vertices[v].Z
		if z < lo {
			lo = z
		}
		if z > hi {
			hi = z
		}
	}
	return lo, hi
}

func bandOf(z float64) int {
	return int(math.Floor(z / bandHeight))
}

// registerBands indexes the triangle under every elevation band its
// Z-range overlaps.
func (s *Store) registerBands(id int, add bool) {
	lo, hi := s.triangleZRange(id)
	for b := bandOf(lo); b <= bandOf(hi); b++ {
		if add {
			s.bands[b] = append(s.bands[b], id)
			continue
		}
		ids := s.bands[b]
		for j, tid := range ids {
			if tid == id {
				ids = append(ids[:j], ids[j+1:]...)
				break
			}
		}
		if len(ids) == 0 {
			delete(s.bands, b)
		} else {
			s.bands[b] = ids
		}
	}
}

// TrianglesInElevationRange returns the ids of live triangles whose
// Z-range overlaps [lo, hi], in ascending order.
func (s *Store) TrianglesInElevationRange(lo, hi float64) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int]struct{})
	var out []int
	for b := bandOf(lo); b <= bandOf(hi); b++ {
		for _, id := range s.bands[b] {
			if s.dead[id] {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			tlo, thi := s.triangleZRange(id)
			if thi < lo || tlo > hi {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// Validate walks the edge registry and live triangles and reports
// non-manifold edges, boundary edges, and degenerate triangles. The
// mesh is watertight iff every edge borders exactly two triangles and
// no live triangle is degenerate.
func (s *Store) Validate() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r Report
	r.Watertight = true
	for _, adj := range s.edges {
		switch {
		case len(adj) == 1:
			r.BoundaryEdges++
			r.Watertight = false
		case len(adj) > 2:
			r.NonManifoldEdges++
			r.Watertight = false
		}
	}
	for id, t := range s.triangles {
		if s.dead[id] {
			continue
		}
		if t.Area < minTriangleArea {
			r.DegenerateTriangles++
			r.Watertight = false
		}
	}
	return r
}

// Repair invalidates triangles below the minimal-area threshold and
// rebuilds the affected topology. No vertex welding or hole filling is
// attempted; holes opened by removal show up in the next Validate.
func (s *Store) Repair() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, t := range s.triangles {
		if s.dead[id] || t.Area >= minTriangleArea {
			continue
		}
		if s.removeLocked(id) {
			removed++
		}
	}
	if removed > 0 {
		s.log.Warn("repaired mesh by dropping degenerate triangles",
			zap.Int("removed", removed))
	}
	return removed
}

// Stats returns live counts, bounds, and total surface area.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Vertices:  len(s.vertices),
		Triangles: s.liveTris,
		Edges:     len(s.edges),
		Min:       geom.Vec3{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max:       geom.Vec3{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for _, v := range s.vertices {
		st.Min.X = math.Min(st.Min.X, v.X)
		st.Min.Y = math.Min(st.Min.Y, v.Y)
		st.Min.Z = math.Min(st.Min.Z, v.Z)
		st.Max.X = math.Max(st.Max.X, v.X)
		st.Max.Y = math.Max(st.Max.Y, v.Y)
		st.Max.Z = math.Max(st.Max.Z, v.Z)
	}
	for id, t := range s.triangles {
		if s.dead[id] {
			continue
		}
		st.SurfaceArea += t.Area
	}
	return st
}
