package contour

import (
	"github.com/paulmach/orb"

	"github.com/topoforge/topoforge/internal/raster"
)

// Polygonization walks the boundary edges between set and clear
// pixels and links them into closed loops. Loops are traced with the
// set region on the right of the travel direction, so in pixel
// coordinates outer boundaries come out counter-clockwise and hole
// boundaries clockwise; classification uses that pixel-space sign and
// is therefore independent of the geotransform handedness.
//
// At a saddle corner, where two set pixels meet only diagonally, the
// walk takes the left turn and crosses over to the other pixel. That
// keeps diagonal neighbours on a single outer loop, treating the set
// region as 8-connected.

type corner struct{ x, y int }

type boundaryEdge struct {
	from, to corner
	used     bool
}

// tracePixelLoops extracts every closed boundary loop of the mask in
// pixel-corner coordinates, with collinear runs compressed.
func tracePixelLoops(m *Mask) [][]corner {
	edges := collectEdges(m)
	outgoing := make(map[corner][]int, len(edges))
	for i := range edges {
		outgoing[edges[i].from] = append(outgoing[edges[i].from], i)
	}

	var loops [][]corner
	for i := range edges {
		if edges[i].used {
			continue
		}
		loop := walkLoop(edges, outgoing, i)
		if len(loop) >= 3 {
			loops = append(loops, compressCollinear(loop))
		}
	}
	return loops
}

func collectEdges(m *Mask) []boundaryEdge {
	var edges []boundaryEdge
	for r := 0; r < m.Height; r++ {
		for c := 0; c < m.Width; c++ {
			if !m.At(c, r) {
				continue
			}
			if !m.At(c, r-1) {
				edges = append(edges, boundaryEdge{from: corner{c, r}, to: corner{c + 1, r}})
			}
			if !m.At(c+1, r) {
				edges = append(edges, boundaryEdge{from: corner{c + 1, r}, to: corner{c + 1, r + 1}})
			}
			if !m.At(c, r+1) {
				edges = append(edges, boundaryEdge{from: corner{c + 1, r + 1}, to: corner{c, r + 1}})
			}
			if !m.At(c-1, r) {
				edges = append(edges, boundaryEdge{from: corner{c, r + 1}, to: corner{c, r}})
			}
		}
	}
	return edges
}

func walkLoop(edges []boundaryEdge, outgoing map[corner][]int, start int) []corner {
	var loop []corner
	cur := start
	for {
		e := &edges[cur]
		e.used = true
		loop = append(loop, e.from)
		next := -1
		candidates := outgoing[e.to]
		if len(candidates) == 1 {
			if !edges[candidates[0]].used {
				next = candidates[0]
			}
		} else {
			// Saddle: two incoming and two outgoing edges share
			// this corner. Prefer the left turn.
			dx, dy := e.to.x-e.from.x, e.to.y-e.from.y
			lx, ly := dy, -dx
			best := -1
			for _, ci := range candidates {
				if edges[ci].used {
					continue
				}
				odx := edges[ci].to.x - edges[ci].from.x
				ody := edges[ci].to.y - edges[ci].from.y
				if odx == lx && ody == ly {
					next = ci
					break
				}
				best = ci
			}
			if next == -1 {
				next = best
			}
		}
		if next == -1 {
			break
		}
		cur = next
		if cur == start {
			break
		}
	}
	return loop
}

// compressCollinear drops interior points of straight runs, including
// across the loop seam.
func compressCollinear(loop []corner) []corner {
	if len(loop) < 4 {
		return loop
	}
	out := make([]corner, 0, len(loop))
	n := len(loop)
	for i := 0; i < n; i++ {
		prev := loop[(i+n-1)%n]
		cur := loop[i]
		next := loop[(i+1)%n]
		cross := (cur.x-prev.x)*(next.y-prev.y) - (cur.y-prev.y)*(next.x-prev.x)
		if cross != 0 {
			out = append(out, cur)
		}
	}
	return out
}

func pixelLoopArea2(loop []corner) int {
	sum := 0
	n := len(loop)
	for i := 0; i < n; i++ {
		a, b := loop[i], loop[(i+1)%n]
		sum += a.x*b.y - b.x*a.y
	}
	return sum
}

// pointInPixelLoop is an even-odd ray cast at a half-pixel offset so
// the query point never sits on a lattice edge.
func pointInPixelLoop(px, py float64, loop []corner) bool {
	inside := false
	n := len(loop)
	for i := 0; i < n; i++ {
		a, b := loop[i], loop[(i+1)%n]
		ay, by := float64(a.y), float64(b.y)
		if (ay > py) == (by > py) {
			continue
		}
		t := (py - ay) / (by - ay)
		x := float64(a.x) + t*float64(b.x-a.x)
		if px < x {
			inside = !inside
		}
	}
	return inside
}

// holeProbe returns a point guaranteed to lie in the clear region a
// hole loop encloses. Every downward segment of a hole loop borders a
// clear pixel on its right-hand lattice cell.
func holeProbe(loop []corner) (float64, float64) {
	n := len(loop)
	for i := 0; i < n; i++ {
		a, b := loop[i], loop[(i+1)%n]
		if b.x == a.x && b.y > a.y {
			return float64(a.x) + 0.5, float64(a.y) + 0.5
		}
	}
	return float64(loop[0].x) + 0.5, float64(loop[0].y) + 0.5
}

// assemblePolygons classifies pixel loops by orientation, assigns each
// hole to its smallest containing outer loop, maps corners through the
// geotransform, and normalizes ring winding so exteriors carry
// positive planar area.
func assemblePolygons(loops [][]corner, g *raster.Grid, removeHoles bool) []orb.Polygon {
	type outer struct {
		loop  []corner
		area2 int
		holes [][]corner
	}
	var outers []outer
	var holes [][]corner
	for _, l := range loops {
		if a := pixelLoopArea2(l); a > 0 {
			outers = append(outers, outer{loop: l, area2: a})
		} else if a < 0 {
			holes = append(holes, l)
		}
	}

	if !removeHoles {
		for _, h := range holes {
			px, py := holeProbe(h)
			best := -1
			for i := range outers {
				if !pointInPixelLoop(px, py, outers[i].loop) {
					continue
				}
				if best == -1 || outers[i].area2 < outers[best].area2 {
					best = i
				}
			}
			if best >= 0 {
				outers[best].holes = append(outers[best].holes, h)
			}
		}
	}

	polys := make([]orb.Polygon, 0, len(outers))
	for _, o := range outers {
		poly := orb.Polygon{worldRing(o.loop, g, true)}
		for _, h := range o.holes {
			poly = append(poly, worldRing(h, g, false))
		}
		polys = append(polys, poly)
	}
	return polys
}

// worldRing maps pixel corners to world coordinates and closes the
// ring, reversing if needed so exteriors are counter-clockwise and
// holes clockwise in world space.
func worldRing(loop []corner, g *raster.Grid, exterior bool) orb.Ring {
	ring := make(orb.Ring, 0, len(loop)+1)
	for _, c := range loop {
		x, y := g.WorldXY(float64(c.x), float64(c.y))
		ring = append(ring, orb.Point{x, y})
	}
	ring = append(ring, ring[0])

	area := 0.0
	for i := 0; i < len(ring)-1; i++ {
		area += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	if (exterior && area < 0) || (!exterior && area > 0) {
		for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
			ring[i], ring[j] = ring[j], ring[i]
		}
	}
	return ring
}
