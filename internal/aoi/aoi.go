// Package aoi loads an Area of Interest from a GeoJSON file and brings it
// (and the WGS84 footprints the catalog returns) into the projected,
// meters-unit CRS the coverage engine requires. The engine itself never
// reprojects; every reprojection in the pipeline happens here.
package aoi

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"

	"satcoverage/internal/geometry"
)

const earthRadiusMeters = 6378137.0

// LocalProjection is a tangent-plane (equirectangular) projection centered
// on an AOI's bounding-box center. For the AOI sizes this system targets
// (single Sentinel-2-scene-scale regions, well under a few hundred
// kilometers across) its areal distortion stays below 1%.
type LocalProjection struct {
	lon0, lat0 float64
	cosLat0    float64
}

// NewLocalProjection centers a projection on the given WGS84 lon/lat.
func NewLocalProjection(lon0, lat0 float64) LocalProjection {
	return LocalProjection{lon0: lon0, lat0: lat0, cosLat0: math.Cos(lat0 * math.Pi / 180)}
}

// Forward converts a WGS84 point to local projected meters.
func (p LocalProjection) Forward(pt orb.Point) orb.Point {
	x := (pt[0] - p.lon0) * math.Pi / 180 * earthRadiusMeters * p.cosLat0
	y := (pt[1] - p.lat0) * math.Pi / 180 * earthRadiusMeters
	return orb.Point{x, y}
}

// Load reads a GeoJSON file (FeatureCollection, single Feature, or bare
// geometry) and returns its WGS84 geometry.
func Load(path string) (orb.Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("aoi: read %s: %w", path, err)
	}
	geom, err := parseGeoJSON(data)
	if err != nil {
		return nil, fmt.Errorf("aoi: %s: %w", path, err)
	}
	return geom, nil
}

func parseGeoJSON(data []byte) (orb.Geometry, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(fc.Features) > 0 {
		return unionFeatureGeometries(fc.Features), nil
	}
	if f, err := geojson.UnmarshalFeature(data); err == nil && f.Geometry != nil {
		return f.Geometry, nil
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	return g.Geometry(), nil
}

func unionFeatureGeometries(features []*geojson.Feature) orb.Geometry {
	var polys orb.MultiPolygon
	for _, f := range features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polys = append(polys, g)
		case orb.MultiPolygon:
			polys = append(polys, g...)
		}
	}
	return polys
}

// ToWKT renders geom (a Polygon or MultiPolygon, in whatever CRS it is
// already in) as WKT text. Used to hand the AOI's native WGS84 polygon to
// the catalog query builder, which expects "SRID=4326;<WKT>".
func ToWKT(geom orb.Geometry) (string, error) {
	switch g := geom.(type) {
	case orb.Polygon:
		return polygonWKT(g), nil
	case orb.MultiPolygon:
		return multiPolygonWKT(g), nil
	default:
		return "", fmt.Errorf("aoi: unsupported geometry type %T", geom)
	}
}

// Project converts a WGS84 geometry into a geometry.Polygon in a local
// meters CRS centered on its own bounding-box center, returning the
// projection so the same caller can reproject catalog footprints into the
// identical CRS.
func Project(geom orb.Geometry) (geometry.Polygon, LocalProjection, error) {
	bound := geom.Bound()
	center := bound.Center()
	proj := NewLocalProjection(center[0], center[1])

	switch g := geom.(type) {
	case orb.Polygon:
		poly, err := geometry.NewPolygon(projectRings(g, proj))
		if err != nil {
			return geometry.Polygon{}, proj, fmt.Errorf("project aoi polygon: %w", err)
		}
		return poly, proj, nil
	case orb.MultiPolygon:
		polys := make([]geometry.Polygon, 0, len(g))
		for _, p := range g {
			poly, err := geometry.NewPolygon(projectRings(p, proj))
			if err != nil {
				continue
			}
			polys = append(polys, poly)
		}
		if len(polys) == 0 {
			return geometry.Polygon{}, proj, fmt.Errorf("project aoi: no valid polygons")
		}
		return geometry.NewMultiPolygon(polys), proj, nil
	default:
		return geometry.Polygon{}, proj, fmt.Errorf("project aoi: unsupported geometry type %T", geom)
	}
}

func projectRings(p orb.Polygon, proj LocalProjection) [][]orb.Point {
	rings := make([][]orb.Point, len(p))
	for i, ring := range p {
		pts := make([]orb.Point, len(ring))
		for j, pt := range ring {
			pts[j] = proj.Forward(pt)
		}
		rings[i] = pts
	}
	return rings
}

// ReprojectFootprintWKT parses a WGS84 WKT footprint as returned by the
// catalog and reprojects it into proj's local meters CRS, returning WKT
// text the coverage engine's candidate filter can parse directly. The
// engine assumes footprints already share the AOI's projected CRS.
func ReprojectFootprintWKT(raw string, proj LocalProjection) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("aoi: empty footprint wkt")
	}
	geom, err := wkt.Unmarshal(raw)
	if err != nil {
		return "", fmt.Errorf("aoi: parse footprint wkt: %w", err)
	}
	switch g := geom.(type) {
	case orb.Polygon:
		return polygonWKT(projectPolygon(g, proj)), nil
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = projectPolygon(p, proj)
		}
		return multiPolygonWKT(out), nil
	default:
		return "", fmt.Errorf("aoi: unsupported footprint geometry %T", geom)
	}
}

func projectPolygon(p orb.Polygon, proj LocalProjection) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, ring := range p {
		pts := make(orb.Ring, len(ring))
		for j, pt := range ring {
			pts[j] = proj.Forward(pt)
		}
		out[i] = pts
	}
	return out
}

func ringWKT(ring orb.Ring) string {
	var b strings.Builder
	b.WriteString("(")
	for i, pt := range ring {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%g %g", pt[0], pt[1])
	}
	b.WriteString(")")
	return b.String()
}

func polygonWKT(p orb.Polygon) string {
	var b strings.Builder
	b.WriteString("POLYGON(")
	for i, ring := range p {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(ringWKT(ring))
	}
	b.WriteString(")")
	return b.String()
}

func multiPolygonWKT(mp orb.MultiPolygon) string {
	var b strings.Builder
	b.WriteString("MULTIPOLYGON(")
	for i, p := range mp {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for j, ring := range p {
			if j > 0 {
				b.WriteString(",")
			}
			b.WriteString(ringWKT(ring))
		}
		b.WriteString(")")
	}
	b.WriteString(")")
	return b.String()
}
