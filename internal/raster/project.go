package raster

import "math"

// Approximate meters per degree near the surface. Longitude shrinks
// with the cosine of latitude; latitude is close to constant.
const (
	metersPerDegreeLon = 111320.0
	metersPerDegreeLat = 110540.0
)

// looksGeographic reports whether the transform origin plausibly sits
// in degree space. Projected rasters carry coordinates far outside
// the lat/lon envelope.
func (g *Grid) looksGeographic() bool {
	return math.Abs(g.Transform[0]) <= 360 && math.Abs(g.Transform[3]) <= 90
}

// MetersPerPixel returns the pixel footprint in meters. Geographic
// transforms convert degrees at the grid's center latitude; projected
// transforms are assumed to already be metric.
func (g *Grid) MetersPerPixel() (mx, my float64) {
	px := math.Abs(g.Transform[1])
	py := math.Abs(g.Transform[5])
	if !g.looksGeographic() {
		return px, py
	}
	_, latCenter := g.WorldXY(float64(g.Width)/2, float64(g.Height)/2)
	mx = px * metersPerDegreeLon * math.Cos(latCenter*math.Pi/180)
	my = py * metersPerDegreeLat
	return mx, my
}

// ProjectLocalMeters returns a copy of the grid whose transform is a
// local tangent-plane meter frame centered on the grid midpoint, with
// Y growing north. Samples are shared, not copied. Grids that are
// already metric come back with only the origin recentered.
func (g *Grid) ProjectLocalMeters() *Grid {
	cx, cy := g.WorldXY(float64(g.Width)/2, float64(g.Height)/2)
	out := *g
	if !g.looksGeographic() {
		out.Transform[0] = g.Transform[0] - cx
		out.Transform[3] = g.Transform[3] - cy
		return &out
	}
	mLon := metersPerDegreeLon * math.Cos(cy*math.Pi/180)
	mLat := metersPerDegreeLat
	out.Transform = [6]float64{
		(g.Transform[0] - cx) * mLon,
		g.Transform[1] * mLon,
		g.Transform[2] * mLon,
		(g.Transform[3] - cy) * mLat,
		g.Transform[4] * mLat,
		g.Transform[5] * mLat,
	}
	return &out
}
