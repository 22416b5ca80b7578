package geometry

import "github.com/paulmach/orb"

// IntersectionArea returns the area of the planar intersection of p and
// clip, in the same units as Area(). It clips every outer ring of p against
// every outer ring of clip using Sutherland-Hodgman and sums the resulting
// polygon areas; holes are not carried through the clip.
//
// Sutherland-Hodgman is exact only when clip is convex. Both AOIs and
// satellite swath footprints are near-convex in the common case this system
// targets; deeply concave clip geometries would need a general clipper such
// as Weiler-Atherton.
func IntersectionArea(p, clip Polygon) float64 {
	if p.Empty() || clip.Empty() {
		return 0
	}
	if !p.Bounds().Intersects(clip.Bounds()) {
		return 0
	}
	var total float64
	for _, subjPoly := range p.multi {
		if len(subjPoly) == 0 {
			continue
		}
		subject := subjPoly[0]
		for _, clipPoly := range clip.multi {
			if len(clipPoly) == 0 {
				continue
			}
			// sutherlandHodgman treats its clip ring as CCW-wound (the
			// half-plane test in isLeft assumes it); normalize so callers
			// need not guarantee ring orientation themselves, since WKT and
			// GeoJSON sources in the wild don't consistently enforce it.
			result := sutherlandHodgman(ensureCCW(subject), ensureCCW(clipPoly[0]))
			if len(result) < 4 {
				continue
			}
			a := shoelaceArea(result)
			if a < 0 {
				a = -a
			}
			total += a
		}
	}
	return total
}

// Union returns the geometric union of a set of polygons, represented as a
// single multi-ring Polygon with all input rings unioned structurally (no
// boolean merge of overlapping rings is performed, so Area() double-counts
// overlap). Sufficient for AOI inputs that arrive as a single feature or a
// small set of disjoint features, the only cases one .geojson file per job
// produces.
func Union(polys ...Polygon) Polygon {
	return NewMultiPolygon(polys)
}

func sutherlandHodgman(subject, clip orb.Ring) orb.Ring {
	output := subject
	clipLen := len(clip)
	if clipLen < 4 {
		return nil
	}
	for i := 0; i < clipLen-1; i++ {
		if len(output) == 0 {
			return nil
		}
		a, b := clip[i], clip[i+1]
		input := output
		output = nil
		if len(input) == 0 {
			continue
		}
		prev := input[len(input)-1]
		prevInside := isLeft(a, b, prev) >= 0
		for _, curr := range input {
			currInside := isLeft(a, b, curr) >= 0
			if currInside {
				if !prevInside {
					output = append(output, lineIntersect(a, b, prev, curr))
				}
				output = append(output, curr)
			} else if prevInside {
				output = append(output, lineIntersect(a, b, prev, curr))
			}
			prev = curr
			prevInside = currInside
		}
	}
	return output
}

// isLeft returns >0 if pt is left of (inside, for a CCW clip ring) the
// directed edge a->b, 0 on the line, <0 if right.
func isLeft(a, b, pt orb.Point) float64 {
	return (b[0]-a[0])*(pt[1]-a[1]) - (pt[0]-a[0])*(b[1]-a[1])
}

func lineIntersect(a, b, p, q orb.Point) orb.Point {
	a1 := b[1] - a[1]
	b1 := a[0] - b[0]
	c1 := a1*a[0] + b1*a[1]

	a2 := q[1] - p[1]
	b2 := p[0] - q[0]
	c2 := a2*p[0] + b2*p[1]

	det := a1*b2 - a2*b1
	if det == 0 {
		return p
	}
	x := (b2*c1 - b1*c2) / det
	y := (a1*c2 - a2*c1) / det
	return orb.Point{x, y}
}

// ensureCCW reverses ring if its signed area is negative (clockwise),
// matching the winding sutherlandHodgman's half-plane test requires.
func ensureCCW(ring orb.Ring) orb.Ring {
	if shoelaceArea(ring) >= 0 {
		return ring
	}
	reversed := make(orb.Ring, len(ring))
	for i, pt := range ring {
		reversed[len(ring)-1-i] = pt
	}
	return reversed
}

func shoelaceArea(ring orb.Ring) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return sum / 2
}
