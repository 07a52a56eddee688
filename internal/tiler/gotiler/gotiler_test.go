package gotiler

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tiledgeo/slicer/internal/tiler"
)

func TestWorldPoint(t *testing.T) {
	const w = 4 // zoom 2

	origin := worldPoint(orb.Point{-180, webMercatorMaxLat}, w)
	if math.Abs(origin.X) > 1e-9 || math.Abs(origin.Y) > 1e-6 {
		t.Fatalf("top-left corner = %+v, want (0,0)", origin)
	}

	center := worldPoint(orb.Point{0, 0}, w)
	if math.Abs(center.X-2) > 1e-9 || math.Abs(center.Y-2) > 1e-9 {
		t.Fatalf("center = %+v, want (2,2)", center)
	}

	// Latitudes beyond the mercator bound clamp instead of diverging.
	pole := worldPoint(orb.Point{0, 90}, w)
	if math.IsInf(pole.Y, 0) || math.IsNaN(pole.Y) || pole.Y > 1e-6 {
		t.Fatalf("pole = %+v, want clamped to the top edge", pole)
	}
}

func TestWorldRingRewindsAfterProjection(t *testing.T) {
	// A GeoJSON-conventional counterclockwise outer ring (in lon/lat,
	// y up) flips winding under the mercator y-flip; worldRing must
	// hand the slicer positive-area rings either way.
	ccw := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	cw := orb.Ring{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}

	for _, r := range []orb.Ring{ccw, cw} {
		projected := worldRing(r, 4)
		if projected.Orientation() != orb.CCW {
			t.Fatalf("projected ring has negative area: %v", projected)
		}
	}
}

func TestSliceGeometryPolygon(t *testing.T) {
	// A polygon over roughly a hemisphere slices into a mix of
	// boundary tiles and filled tiles at z=3.
	poly := orb.Polygon{{{-90, 60}, {-90, -60}, {40, -60}, {40, 60}, {-90, 60}}}
	sliced := SliceGeometry(poly, 3, 1.0/16)
	if sliced == nil {
		t.Fatal("polygon not sliceable")
	}
	if sliced.ZoomLevel() != 3 {
		t.Fatalf("zoom = %d", sliced.ZoomLevel())
	}
	data := sliced.TileData()
	if len(data) == 0 {
		t.Fatal("no boundary tiles produced")
	}
	if len(sliced.FilledTiles()) == 0 {
		t.Fatal("no filled tiles for a hemisphere-sized polygon at z=3")
	}
	seen := make(map[[2]uint32]bool)
	for _, td := range data {
		seen[[2]uint32{td.ID.X, td.ID.Y}] = true
	}
	for _, id := range sliced.FilledTiles() {
		if seen[[2]uint32{id.X, id.Y}] {
			t.Fatalf("tile (%d,%d) both filled and materialized", id.X, id.Y)
		}
	}
}

func TestSliceGeometryPoint(t *testing.T) {
	sliced := SliceGeometry(orb.Point{0, 0}, 2, 0)
	if sliced == nil {
		t.Fatal("point not sliceable")
	}
	data := sliced.TileData()
	if len(data) == 0 {
		t.Fatal("point produced no tiles")
	}
}

func TestSliceGeometryRejectsUnknown(t *testing.T) {
	if got := SliceGeometry(orb.Collection{}, 2, 0); got != nil {
		t.Fatalf("collection sliced to %v, want nil", got)
	}
}

func TestGenerateZoomLevelEncodesTiles(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Polygon{{{-60, 50}, {-60, -50}, {60, -50}, {60, 50}, {-60, 50}}})
	f.Properties["kind"] = "test-area"
	fc.Append(f)

	g := New()
	tiles := g.generateZoomLevel(fc, 2, "areas", 1.0/16)
	if len(tiles) == 0 {
		t.Fatal("no tiles encoded")
	}
	for tile, data := range tiles {
		if len(data) == 0 {
			t.Fatalf("tile %v has empty MVT payload", tile)
		}
		// Gzip magic: MVT payloads are written compressed.
		if data[0] != 0x1f || data[1] != 0x8b {
			t.Fatalf("tile %v payload is not gzipped", tile)
		}
	}
}

func TestTileCollectionWritesArchive(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.LineString{{-10, 10}, {10, -10}}))

	out := t.TempDir() + "/lines.pmtiles"
	err := New().TileCollection(fc, out, tiler.TileConfig{
		Layer:   "lines",
		MinZoom: 0,
		MaxZoom: 3,
		Buffer:  1.0 / 16,
	})
	if err != nil {
		t.Fatalf("TileCollection: %v", err)
	}
}
