// Package geometry is a thin façade over github.com/paulmach/orb giving the
// coverage engine exactly the planar operations it needs: validity
// canonicalization, area, bounding box, prepared point-in-polygon, and
// polygon intersection/union. All coordinates are assumed to already be in a
// projected CRS whose unit is meters; this package never reprojects.
package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Polygon is a canonicalized simple polygon (one outer ring, optional holes)
// or, via MultiPolygon, a finite union of such polygons.
type Polygon struct {
	multi orb.MultiPolygon
}

// NewPolygon canonicalizes a single ring set into a Polygon.
// Canonicalization here means closing unclosed rings and dropping rings
// with fewer than 3 vertices (4 points once closed); repeated vertices are
// not removed. It is idempotent.
func NewPolygon(rings [][]orb.Point) (Polygon, error) {
	poly := make(orb.Polygon, 0, len(rings))
	for _, ring := range rings {
		r := canonicalizeRing(ring)
		if len(r) < 4 {
			continue
		}
		poly = append(poly, r)
	}
	if len(poly) == 0 {
		return Polygon{}, fmt.Errorf("geometry: polygon has no valid rings")
	}
	return Polygon{multi: orb.MultiPolygon{poly}}, nil
}

// NewMultiPolygon builds a Polygon representing the union of several
// disjoint-or-overlapping simple polygons.
func NewMultiPolygon(polys []Polygon) Polygon {
	out := Polygon{}
	for _, p := range polys {
		out.multi = append(out.multi, p.multi...)
	}
	return out
}

func canonicalizeRing(ring []orb.Point) orb.Ring {
	if len(ring) == 0 {
		return nil
	}
	r := make(orb.Ring, len(ring))
	copy(r, ring)
	if !r[0].Equal(r[len(r)-1]) {
		r = append(r, r[0])
	}
	return r
}

// Empty reports whether the polygon has no rings.
func (p Polygon) Empty() bool {
	return len(p.multi) == 0
}

// Area returns the absolute planar area in the polygon's coordinate units
// (m² for a projected CRS). Holes subtract from their outer ring; ring
// orientation does not matter.
func (p Polygon) Area() float64 {
	var total float64
	for _, poly := range p.multi {
		total += ringSetArea(poly)
	}
	if total < 0 {
		total = -total
	}
	return total
}

func ringSetArea(poly orb.Polygon) float64 {
	if len(poly) == 0 {
		return 0
	}
	area := planar.Area(poly[0])
	if area < 0 {
		area = -area
	}
	for _, hole := range poly[1:] {
		h := planar.Area(hole)
		if h < 0 {
			h = -h
		}
		area -= h
	}
	return area
}

// Bounds returns the axis-aligned bounding box of the polygon.
func (p Polygon) Bounds() orb.Bound {
	return p.multi.Bound()
}

// Prepared builds a PreparedPolygon for repeated point-in-polygon testing.
func (p Polygon) Prepared() *PreparedPolygon {
	return &PreparedPolygon{poly: p}
}

// PreparedPolygon is a one-time-built index over a Polygon's rings that
// makes repeated Covers queries cheap: a bounding-box rejection test
// followed by an exact ray-casting test.
type PreparedPolygon struct {
	poly  Polygon
	bound orb.Bound
	once  bool
}

// Covers reports whether pt lies inside or on the boundary of the prepared
// polygon (closed containment).
func (pp *PreparedPolygon) Covers(pt orb.Point) bool {
	if !pp.once {
		pp.bound = pp.poly.Bounds()
		pp.once = true
	}
	if !pp.bound.Contains(pt) {
		return false
	}
	for _, poly := range pp.poly.multi {
		if ringSetCovers(poly, pt) {
			return true
		}
	}
	return false
}

func ringSetCovers(poly orb.Polygon, pt orb.Point) bool {
	if len(poly) == 0 {
		return false
	}
	if !pointInRing(poly[0], pt) {
		return false
	}
	for _, hole := range poly[1:] {
		if pointInRing(hole, pt) {
			return false
		}
	}
	return true
}

// pointInRing is a standard even-odd ray-casting test, closed on the
// boundary (a point exactly on an edge counts as covered).
func pointInRing(ring orb.Ring, pt orb.Point) bool {
	n := len(ring)
	if n < 4 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := ring[i], ring[j]
		if onSegment(pi, pj, pt) {
			return true
		}
		if (pi[1] > pt[1]) != (pj[1] > pt[1]) {
			xint := (pj[0]-pi[0])*(pt[1]-pi[1])/(pj[1]-pi[1]) + pi[0]
			if pt[0] < xint {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, b, pt orb.Point) bool {
	cross := (b[0]-a[0])*(pt[1]-a[1]) - (b[1]-a[1])*(pt[0]-a[0])
	const eps = 1e-9
	if cross > eps || cross < -eps {
		return false
	}
	if pt[0] < min(a[0], b[0])-eps || pt[0] > max(a[0], b[0])+eps {
		return false
	}
	if pt[1] < min(a[1], b[1])-eps || pt[1] > max(a[1], b[1])+eps {
		return false
	}
	return true
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
