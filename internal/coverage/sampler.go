package coverage

import (
	"math"

	"github.com/paulmach/orb"

	"satcoverage/internal/geometry"
)

// AutoGridSpacing picks a grid spacing for an AOI when the job config omits
// one: clamp(sqrt(area)/100, 50, 200), targeting on the order of 10^4
// sample points for any reasonably sized AOI.
func AutoGridSpacing(aoiAreaM2 float64) float64 {
	s := math.Sqrt(aoiAreaM2) / 100
	if s < 50 {
		return 50
	}
	if s > 200 {
		return 200
	}
	return s
}

// SamplePoints discretizes aoi into a grid of the given spacing in meters,
// retaining only points covered by the AOI (closed containment). Returns an
// empty slice if nothing is retained; the caller must treat that as
// NoSamplePoints.
func SamplePoints(aoi geometry.Polygon, spacing float64) []Point {
	if spacing <= 0 {
		return nil
	}
	bound := aoi.Bounds()
	prepared := aoi.Prepared()

	var points []Point
	for x := bound.Min[0]; x <= bound.Max[0]; x += spacing {
		for y := bound.Min[1]; y <= bound.Max[1]; y += spacing {
			if prepared.Covers(orb.Point{x, y}) {
				points = append(points, Point{X: x, Y: y})
			}
		}
	}
	return points
}
