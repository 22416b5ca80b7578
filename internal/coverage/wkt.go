package coverage

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"satcoverage/internal/geometry"
)

// parseFootprint decodes a WKT POLYGON or MULTIPOLYGON, already reprojected
// by the caller into the AOI's projected CRS, into a geometry.Polygon.
func parseFootprint(raw string) (geometry.Polygon, error) {
	if raw == "" {
		return geometry.Polygon{}, fmt.Errorf("empty footprint WKT")
	}
	geom, err := wkt.Unmarshal(raw)
	if err != nil {
		return geometry.Polygon{}, fmt.Errorf("parse footprint WKT: %w", err)
	}
	switch g := geom.(type) {
	case orb.Polygon:
		return geometry.NewPolygon(ringsOf(g))
	case orb.MultiPolygon:
		polys := make([]geometry.Polygon, 0, len(g))
		for _, p := range g {
			poly, err := geometry.NewPolygon(ringsOf(p))
			if err != nil {
				continue
			}
			polys = append(polys, poly)
		}
		if len(polys) == 0 {
			return geometry.Polygon{}, fmt.Errorf("multipolygon footprint has no valid parts")
		}
		return geometry.NewMultiPolygon(polys), nil
	default:
		return geometry.Polygon{}, fmt.Errorf("unsupported footprint geometry type %T", geom)
	}
}

func ringsOf(p orb.Polygon) [][]orb.Point {
	rings := make([][]orb.Point, len(p))
	for i, r := range p {
		rings[i] = []orb.Point(r)
	}
	return rings
}
