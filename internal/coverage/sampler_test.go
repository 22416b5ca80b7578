package coverage

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"satcoverage/internal/geometry"
)

func mustPolygon(t *testing.T, vertices [][2]float64) geometry.Polygon {
	t.Helper()
	ring := make([]orb.Point, len(vertices))
	for i, v := range vertices {
		ring[i] = orb.Point{v[0], v[1]}
	}
	p, err := geometry.NewPolygon([][]orb.Point{ring})
	if err != nil {
		t.Fatalf("NewPolygon: %v", err)
	}
	return p
}

func TestAutoGridSpacingClamps(t *testing.T) {
	cases := []struct {
		areaM2 float64
		want   float64
	}{
		{1e4, 50},   // 100m-square AOI: sqrt/100 = 1, clamped up
		{1e8, 100},  // 10km-square AOI: sqrt/100 = 100, in range
		{1e12, 200}, // 1000km-square AOI: sqrt/100 = 10000, clamped down
	}
	for _, c := range cases {
		if got := AutoGridSpacing(c.areaM2); got != c.want {
			t.Errorf("AutoGridSpacing(%g) = %v, want %v", c.areaM2, got, c.want)
		}
	}
}

func TestSamplePointsGridCount(t *testing.T) {
	aoi := rectPoly(0, 0, 1000, 1000)
	points := SamplePoints(aoi, 100)

	// 0,100,...,1000 on each axis, all inside the closed square.
	if len(points) != 11*11 {
		t.Fatalf("got %d points, want %d", len(points), 11*11)
	}
	for _, pt := range points {
		if pt.X < 0 || pt.X > 1000 || pt.Y < 0 || pt.Y > 1000 {
			t.Fatalf("point %+v outside the AOI", pt)
		}
	}
}

func TestSamplePointsExcludesOutsidePoints(t *testing.T) {
	// An L-shaped AOI: the upper-right quadrant of its bounding box is cut
	// out, so grid points there must be rejected.
	aoi := mustPolygon(t, [][2]float64{
		{0, 0}, {1000, 0}, {1000, 500}, {500, 500}, {500, 1000}, {0, 1000},
	})
	points := SamplePoints(aoi, 100)
	for _, pt := range points {
		if pt.X > 500 && pt.Y > 500 {
			t.Fatalf("point %+v lies in the cut-out quadrant", pt)
		}
	}
	if len(points) == 0 {
		t.Fatal("expected sample points inside the L shape")
	}
}

func TestSamplePointsZeroSpacing(t *testing.T) {
	aoi := rectPoly(0, 0, 1000, 1000)
	if points := SamplePoints(aoi, 0); points != nil {
		t.Fatalf("expected nil for non-positive spacing, got %d points", len(points))
	}
}

func TestBuildInstanceAutoSpacing(t *testing.T) {
	aoi := rectPoly(0, 0, 10000, 10000)
	footprint := mustParseFootprint(t, rectWKT(0, 0, 10000, 10000))
	products := []ProcessedProduct{{Index: 0, QualityScore: 0.9, Footprint: footprint}}

	instance, ok := BuildInstance(aoi, products, 0, 0.99, 0.5, 0.5)
	if !ok {
		t.Fatal("BuildInstance returned no sample points")
	}
	// auto spacing for a 10km square is sqrt(1e8)/100 = 100m: 101x101 points.
	if len(instance.SamplePoints) != 101*101 {
		t.Fatalf("got %d auto-spaced points, want %d", len(instance.SamplePoints), 101*101)
	}
	if math.Abs(instance.AOIAreaM2-1e8) > 1 {
		t.Fatalf("AOI area = %v, want 1e8", instance.AOIAreaM2)
	}
}
