package mesh

import (
	"errors"
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// ErrDegeneratePolygon marks rings with fewer than three distinct points.
var ErrDegeneratePolygon = errors.New("mesh: polygon needs at least 3 distinct vertices")

// Coordinate tolerance for revisit detection during self-intersection
// repair.
const repairQuantum = 1e-9

// TriangulateRing triangulates a closed ring into triangles with
// counter-clockwise winding, returned as point triples. Simple rings
// go through y-monotone partitioning; self-intersecting rings are
// first decomposed into disjoint simple loops by the even-odd rule.
// The second return reports whether that repair path ran.
func TriangulateRing(ring orb.Ring) ([][3]orb.Point, bool, error) {
	pts := normalizeRing(ring)
	if len(pts) < 3 {
		return nil, false, ErrDegeneratePolygon
	}

	if ringIsSimple(pts) {
		tris := triangulateSimple(pts)
		return indexToPoints(pts, tris), false, nil
	}

	loops := repairSelfIntersecting(pts)
	var out [][3]orb.Point
	for _, loop := range loops {
		if len(loop) < 3 {
			continue
		}
		if !ringIsSimple(loop) {
			// A loop can stay degenerate after splitting; drop it
			// rather than looping forever.
			continue
		}
		out = append(out, indexToPoints(loop, triangulateSimple(loop))...)
	}
	if len(out) == 0 {
		return nil, true, ErrDegeneratePolygon
	}
	return out, true, nil
}

// normalizeRing drops the closing point and consecutive duplicates.
func normalizeRing(ring orb.Ring) []orb.Point {
	pts := make([]orb.Point, 0, len(ring))
	for _, p := range ring {
		if len(pts) > 0 && p == pts[len(pts)-1] {
			continue
		}
		pts = append(pts, p)
	}
	for len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	return pts
}

func indexToPoints(pts []orb.Point, tris [][3]int) [][3]orb.Point {
	out := make([][3]orb.Point, len(tris))
	for i, t := range tris {
		out[i] = [3]orb.Point{pts[t[0]], pts[t[1]], pts[t[2]]}
	}
	return out
}

// cross2 returns the z-component of (a-o) x (b-o).
func cross2(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// signedArea returns twice the signed area of the ring.
func signedArea(pts []orb.Point) float64 {
	var sum float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		sum += p[0]*q[1] - q[0]*p[1]
	}
	return sum
}

// below orders vertices for the downward sweep: lower y first, ties
// broken by larger x.
func below(p, q orb.Point) bool {
	return p[1] < q[1] || (p[1] == q[1] && p[0] > q[0])
}

// segIntersect finds the proper crossing of segments (a,b) and (c,d).
// Collinear overlaps and endpoint touches are not reported.
func segIntersect(a, b, c, d orb.Point) (orb.Point, bool) {
	rx, ry := b[0]-a[0], b[1]-a[1]
	sx, sy := d[0]-c[0], d[1]-c[1]
	denom := rx*sy - ry*sx
	if denom == 0 {
		return orb.Point{}, false
	}
	qpx, qpy := c[0]-a[0], c[1]-a[1]
	t := (qpx*sy - qpy*sx) / denom
	u := (qpx*ry - qpy*rx) / denom
	const eps = 1e-12
	if t <= eps || t >= 1-eps || u <= eps || u >= 1-eps {
		return orb.Point{}, false
	}
	return orb.Point{a[0] + t*rx, a[1] + t*ry}, true
}

// segTouch reports any intersection of the two closed segments,
// endpoints included. Used for the simplicity test.
func segTouch(a, b, c, d orb.Point) bool {
	d1 := cross2(c, d, a)
	d2 := cross2(c, d, b)
	d3 := cross2(a, b, c)
	d4 := cross2(a, b, d)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	onSeg := func(p, q, r orb.Point) bool {
		return math.Min(p[0], q[0]) <= r[0] && r[0] <= math.Max(p[0], q[0]) &&
			math.Min(p[1], q[1]) <= r[1] && r[1] <= math.Max(p[1], q[1])
	}
	if d1 == 0 && onSeg(c, d, a) {
		return true
	}
	if d2 == 0 && onSeg(c, d, b) {
		return true
	}
	if d3 == 0 && onSeg(a, b, c) {
		return true
	}
	if d4 == 0 && onSeg(a, b, d) {
		return true
	}
	return false
}

// ringIsSimple tests every non-adjacent edge pair for intersection.
// Quadratic, but rings are tested once and the fast path skips the
// far costlier repair.
func ringIsSimple(pts []orb.Point) bool {
	n := len(pts)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// Skip edges sharing a vertex with edge i.
			if j == i || (j+1)%n == i || j == (i+1)%n {
				continue
			}
			if segTouch(a, b, pts[j], pts[(j+1)%n]) {
				return false
			}
		}
	}
	return true
}

// repairSelfIntersecting decomposes a self-intersecting ring into
// simple loops: crossing points are inserted as vertices, then the
// chain is split every time a point is revisited (even-odd regions
// become separate loops).
func repairSelfIntersecting(pts []orb.Point) [][]orb.Point {
	n := len(pts)

	// Insert crossing points into each edge, ordered along the edge.
	type split struct {
		t float64
		p orb.Point
	}
	splits := make([][]split, n)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i || (j+1)%n == i || j == (i+1)%n {
				continue
			}
			ip, ok := segIntersect(a, b, pts[j], pts[(j+1)%n])
			if !ok {
				continue
			}
			ti := paramAlong(a, b, ip)
			tj := paramAlong(pts[j], pts[(j+1)%n], ip)
			splits[i] = append(splits[i], split{ti, ip})
			splits[j] = append(splits[j], split{tj, ip})
		}
	}

	var chain []orb.Point
	for i := 0; i < n; i++ {
		chain = append(chain, pts[i])
		sort.Slice(splits[i], func(a, b int) bool { return splits[i][a].t < splits[i][b].t })
		for _, s := range splits[i] {
			if chain[len(chain)-1] != s.p {
				chain = append(chain, s.p)
			}
		}
	}

	// Walk the chain, popping a loop whenever a point repeats.
	quant := func(p orb.Point) [2]int64 {
		return [2]int64{
			int64(math.Round(p[0] / repairQuantum)),
			int64(math.Round(p[1] / repairQuantum)),
		}
	}
	pos := make(map[[2]int64]int)
	var stack []orb.Point
	var loops [][]orb.Point
	for _, p := range chain {
		k := quant(p)
		if idx, ok := pos[k]; ok {
			loop := append([]orb.Point(nil), stack[idx:]...)
			for _, q := range stack[idx:] {
				delete(pos, quant(q))
			}
			stack = stack[:idx]
			if len(loop) >= 3 {
				loops = append(loops, loop)
			}
		}
		pos[k] = len(stack)
		stack = append(stack, p)
	}
	if len(stack) >= 3 {
		loops = append(loops, stack)
	}
	return loops
}

func paramAlong(a, b, p orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	if math.Abs(dx) >= math.Abs(dy) {
		if dx == 0 {
			return 0
		}
		return (p[0] - a[0]) / dx
	}
	return (p[1] - a[1]) / dy
}

// Vertex classes for the monotone partition sweep.
type vertexClass int

const (
	vertexRegular vertexClass = iota
	vertexStart
	vertexEnd
	vertexSplit
	vertexMerge
)

// triangulateSimple triangulates a simple ring: enforce CCW, partition
// into y-monotone pieces, then run the two-chain sweep over each
// piece. A ring of n vertices yields exactly n-2 triangles.
func triangulateSimple(pts []orb.Point) [][3]int {
	if len(pts) < 3 {
		return nil
	}
	work := pts
	reversed := false
	if signedArea(pts) < 0 {
		work = make([]orb.Point, len(pts))
		for i, p := range pts {
			work[len(pts)-1-i] = p
		}
		reversed = true
	}

	diags := makeMonotone(work)
	var tris [][3]int
	for _, piece := range splitByDiagonals(work, diags) {
		tris = append(tris, triangulateMonotone(work, piece)...)
	}

	if reversed {
		n := len(pts)
		for i := range tris {
			for j := 0; j < 3; j++ {
				tris[i][j] = n - 1 - tris[i][j]
			}
		}
	}
	return tris
}

// makeMonotone runs the plane sweep that inserts diagonals from split
// and merge vertices, leaving every face y-monotone. pts must be CCW.
func makeMonotone(pts []orb.Point) [][2]int {
	n := len(pts)

	classes := make([]vertexClass, n)
	for i := 0; i < n; i++ {
		prev := pts[(i-1+n)%n]
		cur := pts[i]
		next := pts[(i+1)%n]
		turn := (cur[0]-prev[0])*(next[1]-cur[1]) - (cur[1]-prev[1])*(next[0]-cur[0])
		switch {
		case below(prev, cur) && below(next, cur):
			if turn > 0 {
				classes[i] = vertexStart
			} else {
				classes[i] = vertexSplit
			}
		case below(cur, prev) && below(cur, next):
			if turn > 0 {
				classes[i] = vertexEnd
			} else {
				classes[i] = vertexMerge
			}
		default:
			classes[i] = vertexRegular
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return below(pts[order[b]], pts[order[a]])
	})

	type statusEntry struct {
		edge   int // edge from pts[edge] to pts[edge+1]
		helper int
	}
	var status []statusEntry

	xAt := func(edge int, y float64) float64 {
		a, b := pts[edge], pts[(edge+1)%n]
		if a[1] == b[1] {
			return math.Min(a[0], b[0])
		}
		t := (y - a[1]) / (b[1] - a[1])
		return a[0] + t*(b[0]-a[0])
	}
	findLeft := func(v int) int {
		vx, vy := pts[v][0], pts[v][1]
		best, bestX := -1, math.Inf(-1)
		for k, e := range status {
			x := xAt(e.edge, vy)
			if x <= vx && x > bestX {
				best, bestX = k, x
			}
		}
		return best
	}
	remove := func(edge int) {
		for k, e := range status {
			if e.edge == edge {
				status = append(status[:k], status[k+1:]...)
				return
			}
		}
	}

	seen := make(map[uint64]bool)
	var diags [][2]int
	addDiag := func(a, b int) {
		if a == b {
			return
		}
		key := edgeKey(a, b)
		if seen[key] {
			return
		}
		seen[key] = true
		diags = append(diags, [2]int{a, b})
	}
	// fixup emits a diagonal when an edge's helper was a merge vertex.
	fixup := func(v, helper int) {
		if classes[helper] == vertexMerge {
			addDiag(v, helper)
		}
	}

	for _, v := range order {
		prevEdge := (v - 1 + n) % n
		switch classes[v] {
		case vertexStart:
			status = append(status, statusEntry{v, v})

		case vertexEnd:
			for k, e := range status {
				if e.edge == prevEdge {
					fixup(v, status[k].helper)
					break
				}
			}
			remove(prevEdge)

		case vertexSplit:
			if k := findLeft(v); k >= 0 {
				addDiag(v, status[k].helper)
				status[k].helper = v
			}
			status = append(status, statusEntry{v, v})

		case vertexMerge:
			for k, e := range status {
				if e.edge == prevEdge {
					fixup(v, status[k].helper)
					break
				}
			}
			remove(prevEdge)
			if k := findLeft(v); k >= 0 {
				fixup(v, status[k].helper)
				status[k].helper = v
			}

		case vertexRegular:
			interiorRight := below(pts[(v+1)%n], pts[v]) && below(pts[v], pts[prevEdge])
			if interiorRight {
				for k, e := range status {
					if e.edge == prevEdge {
						fixup(v, status[k].helper)
						break
					}
				}
				remove(prevEdge)
				status = append(status, statusEntry{v, v})
			} else if k := findLeft(v); k >= 0 {
				fixup(v, status[k].helper)
				status[k].helper = v
			}
		}
	}
	return diags
}

// splitByDiagonals partitions the polygon along the sweep's diagonals
// and returns each interior face as a CCW index loop. Faces are traced
// by always taking the most-clockwise outgoing edge.
func splitByDiagonals(pts []orb.Point, diags [][2]int) [][]int {
	n := len(pts)
	if len(diags) == 0 {
		face := make([]int, n)
		for i := range face {
			face[i] = i
		}
		return [][]int{face}
	}

	adj := make([][]int, n)
	addEdge := func(a, b int) {
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	for i := 0; i < n; i++ {
		addEdge(i, (i+1)%n)
	}
	for _, d := range diags {
		addEdge(d[0], d[1])
	}
	for v := range adj {
		sort.Slice(adj[v], func(a, b int) bool {
			pa, pb := pts[adj[v][a]], pts[adj[v][b]]
			angA := math.Atan2(pa[1]-pts[v][1], pa[0]-pts[v][0])
			angB := math.Atan2(pb[1]-pts[v][1], pb[0]-pts[v][0])
			return angA < angB
		})
	}

	used := make(map[[2]int]bool)
	var faces [][]int
	for u := 0; u < n; u++ {
		for _, v := range adj[u] {
			if used[[2]int{u, v}] {
				continue
			}
			var face []int
			cu, cv := u, v
			for {
				used[[2]int{cu, cv}] = true
				face = append(face, cu)
				// Next edge: predecessor of the reverse edge in the
				// CCW-sorted neighbors of cv.
				nbrs := adj[cv]
				idx := 0
				for k, w := range nbrs {
					if w == cu {
						idx = k
						break
					}
				}
				next := nbrs[(idx-1+len(nbrs))%len(nbrs)]
				cu, cv = cv, next
				if cu == u && cv == v {
					break
				}
			}
			// Drop the outer face.
			facePts := make([]orb.Point, len(face))
			for i, idx := range face {
				facePts[i] = pts[idx]
			}
			if signedArea(facePts) > 0 {
				faces = append(faces, face)
			}
		}
	}
	return faces
}

// triangulateMonotone triangulates one y-monotone piece with the
// two-chain stack sweep. poly holds CCW indices into pts.
func triangulateMonotone(pts []orb.Point, poly []int) [][3]int {
	m := len(poly)
	if m < 3 {
		return nil
	}
	if m == 3 {
		return [][3]int{{poly[0], poly[1], poly[2]}}
	}

	top, bot := 0, 0
	for k := 1; k < m; k++ {
		if below(pts[poly[top]], pts[poly[k]]) {
			top = k
		}
		if below(pts[poly[k]], pts[poly[bot]]) {
			bot = k
		}
	}

	type chainVertex struct {
		idx  int
		left bool
	}
	// Walking the CCW loop forward from the top descends the left
	// chain; walking backward descends the right chain.
	var leftChain, rightChain []int
	for k := (top + 1) % m; k != bot; k = (k + 1) % m {
		leftChain = append(leftChain, poly[k])
	}
	for k := (top - 1 + m) % m; k != bot; k = (k - 1 + m) % m {
		rightChain = append(rightChain, poly[k])
	}

	u := make([]chainVertex, 0, m)
	u = append(u, chainVertex{poly[top], true})
	li, ri := 0, 0
	for li < len(leftChain) || ri < len(rightChain) {
		if ri >= len(rightChain) ||
			(li < len(leftChain) && below(pts[rightChain[ri]], pts[leftChain[li]])) {
			u = append(u, chainVertex{leftChain[li], true})
			li++
		} else {
			u = append(u, chainVertex{rightChain[ri], false})
			ri++
		}
	}
	u = append(u, chainVertex{poly[bot], true})

	var tris [][3]int
	emit := func(a, b, c int) {
		if cross2(pts[a], pts[b], pts[c]) < 0 {
			b, c = c, b
		}
		tris = append(tris, [3]int{a, b, c})
	}

	stack := []chainVertex{u[0], u[1]}
	for j := 2; j < len(u)-1; j++ {
		v := u[j]
		if v.left != stack[len(stack)-1].left {
			for len(stack) > 1 {
				emit(v.idx, stack[len(stack)-1].idx, stack[len(stack)-2].idx)
				stack = stack[:len(stack)-1]
			}
			stack = []chainVertex{u[j-1], v}
		} else {
			last := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for len(stack) > 0 {
				topV := stack[len(stack)-1]
				c := cross2(pts[v.idx], pts[last.idx], pts[topV.idx])
				inside := (v.left && c < 0) || (!v.left && c > 0)
				if !inside {
					break
				}
				emit(v.idx, last.idx, topV.idx)
				last = topV
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, last, v)
		}
	}
	last := u[len(u)-1]
	for k := 0; k+1 < len(stack); k++ {
		emit(last.idx, stack[k].idx, stack[k+1].idx)
	}
	return tris
}
