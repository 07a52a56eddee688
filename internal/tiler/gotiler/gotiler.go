// Package gotiler generates vector tiles in pure Go.
//
// Features are projected into world tile coordinates, cut per tile by
// internal/tileslice (clipping, antimeridian wrapping, and filled-tile
// detection all happen there), encoded with paulmach/orb's MVT codec,
// and written out as a PMTiles archive by internal/pmtiles. No C++
// tooling is required, so the same binary runs locally, in CI, and in
// WASM targets.
package gotiler

import (
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/simplify"

	"github.com/tiledgeo/slicer/internal/pmtiles"
	"github.com/tiledgeo/slicer/internal/tiler"
	"github.com/tiledgeo/slicer/internal/tileslice"
)

// webMercatorMaxLat is the latitude where the web mercator world square
// ends; input latitudes are clamped to it before projection.
const webMercatorMaxLat = 85.05112877980659

// mvtExtent is the MVT coordinate space per tile; tileslice emits
// 256-pixel tile-local coordinates, scaled up by mvtScale at encode.
const (
	mvtExtent = 4096
	mvtScale  = mvtExtent / 256.0
)

// GoTiler implements tiler.Tiler on top of the tileslice clipper.
type GoTiler struct{}

// New creates a new GoTiler.
func New() *GoTiler {
	return &GoTiler{}
}

// Name returns the engine name.
func (g *GoTiler) Name() string {
	return "go"
}

// Available always returns true (pure Go, no external deps).
func (g *GoTiler) Available() bool {
	return true
}

// Tile converts a GeoJSON file to a PMTiles archive.
func (g *GoTiler) Tile(inputPath, outputPath string, config tiler.TileConfig) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return fmt.Errorf("parsing geojson: %w", err)
	}
	return g.TileCollection(fc, outputPath, config)
}

// TileCollection converts an in-memory feature collection to a PMTiles
// archive, the entry point used when features were loaded through
// sourceload rather than a GeoJSON file on disk.
func (g *GoTiler) TileCollection(fc *geojson.FeatureCollection, outputPath string, config tiler.TileConfig) error {
	minZoom := config.MinZoom
	maxZoom := config.MaxZoom
	if minZoom < 0 {
		minZoom = 0
	}
	if maxZoom < 0 || maxZoom > 14 {
		maxZoom = 14
	}

	out := pmtiles.NewWriter(pmtiles.Mvt)
	for z := minZoom; z <= maxZoom; z++ {
		for tile, data := range g.generateZoomLevel(fc, z, config.Layer, config.Buffer) {
			out.AddTile(uint8(tile.Z), tile.X, tile.Y, data)
		}
	}
	if out.Len() == 0 {
		return fmt.Errorf("no tiles generated")
	}

	return out.WriteFile(outputPath, map[string]any{
		"name":        config.Layer,
		"format":      "pbf",
		"compression": "gzip",
		"minzoom":     minZoom,
		"maxzoom":     maxZoom,
	})
}

// generateZoomLevel slices every feature at one zoom and encodes the
// per-tile results as gzipped MVT.
func (g *GoTiler) generateZoomLevel(fc *geojson.FeatureCollection, zoom int, layerName string, buffer float64) map[maptile.Tile][]byte {
	tileFeatures := make(map[maptile.Tile][]*geojson.Feature)

	addFeature := func(tile maptile.Tile, geom orb.Geometry, props geojson.Properties) {
		f := geojson.NewFeature(geom)
		for k, v := range props {
			f.Properties[k] = v
		}
		tileFeatures[tile] = append(tileFeatures[tile], f)
	}

	for _, src := range fc.Features {
		// The simplifier mutates in place, and the same source
		// geometry is re-sliced at every zoom.
		geom := cloneGeometry(src.Geometry)
		if geom == nil {
			continue
		}
		if epsilon := simplifyEpsilon(maptile.Zoom(zoom)); epsilon > 0 {
			geom = simplify.DouglasPeucker(epsilon).Simplify(geom)
			if geom == nil {
				continue
			}
		}

		sliced := SliceGeometry(geom, zoom, buffer)
		if sliced == nil {
			continue
		}
		area := polygonal(geom)

		for _, td := range sliced.TileData() {
			if out := tileGeometry(td.Groups, geom, area); out != nil {
				addFeature(td.ID, out, src.Properties)
			}
		}
		for _, id := range sliced.FilledTiles() {
			addFeature(id, fullTileSquare(), src.Properties)
		}
	}

	result := make(map[maptile.Tile][]byte, len(tileFeatures))
	for tile, features := range tileFeatures {
		layer := &mvt.Layer{
			Name:     layerName,
			Version:  2,
			Extent:   mvtExtent,
			Features: features,
		}
		data, err := mvt.MarshalGzipped(mvt.Layers{layer})
		if err != nil {
			continue
		}
		result[tile] = data
	}
	return result
}

// SliceGeometry projects one lon/lat geometry into world tile
// coordinates at zoom and runs the slicer over it. Returns nil for
// geometry types that cannot be sliced.
func SliceGeometry(geom orb.Geometry, zoom int, buffer float64) *tileslice.TiledGeometry {
	extents := tileslice.NewWholeWorldExtents(zoom)
	switch gm := geom.(type) {
	case orb.Point:
		return tileslice.SlicePoints(extents, buffer, zoom, normalizedPoints(orb.MultiPoint{gm}))
	case orb.MultiPoint:
		return tileslice.SlicePoints(extents, buffer, zoom, normalizedPoints(gm))
	case orb.LineString, orb.MultiLineString, orb.Ring, orb.Polygon, orb.MultiPolygon:
		w := float64(uint64(1) << uint(zoom))
		return tileslice.SliceShapes(extents, buffer, polygonal(geom), zoom, worldGroups(geom, w))
	default:
		return nil
	}
}

func polygonal(geom orb.Geometry) bool {
	switch geom.(type) {
	case orb.Ring, orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

// worldPoint projects lon/lat to world tile coordinates, where the
// world is w tiles wide and y grows southward.
func worldPoint(p orb.Point, w float64) tileslice.Point {
	lat := math.Max(-webMercatorMaxLat, math.Min(webMercatorMaxLat, p[1]))
	x := (p[0] + 180) / 360
	sin := math.Sin(lat * math.Pi / 180)
	y := 0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)
	return tileslice.Point{X: x * w, Y: y * w}
}

// normalizedPoints projects points into the [0,1] world-normalized
// coordinates the point slicer takes.
func normalizedPoints(mp orb.MultiPoint) []tileslice.Point {
	out := make([]tileslice.Point, len(mp))
	for i, p := range mp {
		out[i] = worldPoint(p, 1)
	}
	return out
}

// worldRing projects one ring, rewinding it if needed: the slicer's
// fill detection requires every ring, outer and hole alike, to have
// positive signed area in world coordinates. Orientation is checked
// after projection — the mercator y-flip inverts lon/lat winding.
func worldRing(r orb.Ring, w float64) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		wp := worldPoint(p, w)
		out[i] = orb.Point{wp.X, wp.Y}
	}
	if out.Orientation() == orb.CW {
		out.Reverse()
	}
	return out
}

func worldLine(ls orb.LineString, w float64) orb.Ring {
	out := make(orb.Ring, len(ls))
	for i, p := range ls {
		wp := worldPoint(p, w)
		out[i] = orb.Point{wp.X, wp.Y}
	}
	return out
}

// worldGroups converts a lon/lat geometry into the slicer's ring
// groups in world coordinates at a w-tile-wide world.
func worldGroups(geom orb.Geometry, w float64) []tileslice.RingGroup {
	switch gm := geom.(type) {
	case orb.LineString:
		return []tileslice.RingGroup{{Outer: worldLine(gm, w)}}
	case orb.MultiLineString:
		groups := make([]tileslice.RingGroup, 0, len(gm))
		for _, ls := range gm {
			groups = append(groups, tileslice.RingGroup{Outer: worldLine(ls, w)})
		}
		return groups
	case orb.Ring:
		return []tileslice.RingGroup{{Outer: worldRing(gm, w)}}
	case orb.Polygon:
		if len(gm) == 0 {
			return nil
		}
		group := tileslice.RingGroup{Outer: worldRing(gm[0], w)}
		for _, hole := range gm[1:] {
			group.Holes = append(group.Holes, worldRing(hole, w))
		}
		return []tileslice.RingGroup{group}
	case orb.MultiPolygon:
		var groups []tileslice.RingGroup
		for _, poly := range gm {
			groups = append(groups, worldGroups(poly, w)...)
		}
		return groups
	}
	return nil
}

// tileGeometry converts one tile's clipped groups back into orb
// geometry in MVT extent coordinates.
func tileGeometry(groups []tileslice.TileGroup, src orb.Geometry, area bool) orb.Geometry {
	if area {
		var mp orb.MultiPolygon
		for _, g := range groups {
			var poly orb.Polygon
			for i, seq := range g.Sequences {
				ring := extentRing(seq)
				// The slicer keeps every ring positively wound; MVT
				// wants interior rings wound opposite their exterior.
				if i > 0 {
					ring.Reverse()
				}
				poly = append(poly, ring)
			}
			if len(poly) > 0 {
				mp = append(mp, poly)
			}
		}
		if len(mp) == 0 {
			return nil
		}
		if len(mp) == 1 {
			return mp[0]
		}
		return mp
	}

	if _, isPoint := src.(orb.Point); isPoint {
		return pointGeometry(groups)
	}
	if _, isPoint := src.(orb.MultiPoint); isPoint {
		return pointGeometry(groups)
	}

	var mls orb.MultiLineString
	for _, g := range groups {
		for _, seq := range g.Sequences {
			ls := make(orb.LineString, len(seq))
			for i, p := range seq {
				ls[i] = orb.Point{p.X * mvtScale, p.Y * mvtScale}
			}
			mls = append(mls, ls)
		}
	}
	if len(mls) == 0 {
		return nil
	}
	if len(mls) == 1 {
		return mls[0]
	}
	return mls
}

func pointGeometry(groups []tileslice.TileGroup) orb.Geometry {
	var mp orb.MultiPoint
	for _, g := range groups {
		for _, seq := range g.Sequences {
			for _, p := range seq {
				mp = append(mp, orb.Point{p.X * mvtScale, p.Y * mvtScale})
			}
		}
	}
	if len(mp) == 0 {
		return nil
	}
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}

func extentRing(seq []tileslice.Point) orb.Ring {
	ring := make(orb.Ring, len(seq))
	for i, p := range seq {
		ring[i] = orb.Point{p.X * mvtScale, p.Y * mvtScale}
	}
	return ring
}

// fullTileSquare is the geometry written for a tile entirely inside a
// polygon's interior: the whole tile, no buffer, no interior detail.
func fullTileSquare() orb.Polygon {
	return orb.Polygon{orb.Ring{
		{0, 0}, {mvtExtent, 0}, {mvtExtent, mvtExtent}, {0, mvtExtent}, {0, 0},
	}}
}

// simplifyEpsilon returns the simplification tolerance (in degrees)
// for a zoom level. Higher zooms keep more detail.
func simplifyEpsilon(zoom maptile.Zoom) float64 {
	switch {
	case zoom >= 14:
		return 0
	case zoom >= 10:
		return 0.00001
	case zoom >= 6:
		return 0.0001
	case zoom >= 4:
		return 0.0005
	default:
		return 0.001
	}
}

// cloneGeometry creates a deep copy of geometry so the per-zoom
// simplify/project passes never corrupt the caller's original.
func cloneGeometry(g orb.Geometry) orb.Geometry {
	switch geom := g.(type) {
	case orb.Point:
		return orb.Point{geom[0], geom[1]}

	case orb.MultiPoint:
		clone := make(orb.MultiPoint, len(geom))
		for i, p := range geom {
			clone[i] = orb.Point{p[0], p[1]}
		}
		return clone

	case orb.LineString:
		clone := make(orb.LineString, len(geom))
		for i, p := range geom {
			clone[i] = orb.Point{p[0], p[1]}
		}
		return clone

	case orb.MultiLineString:
		clone := make(orb.MultiLineString, len(geom))
		for i, ls := range geom {
			clone[i] = make(orb.LineString, len(ls))
			for j, p := range ls {
				clone[i][j] = orb.Point{p[0], p[1]}
			}
		}
		return clone

	case orb.Ring:
		clone := make(orb.Ring, len(geom))
		for i, p := range geom {
			clone[i] = orb.Point{p[0], p[1]}
		}
		return clone

	case orb.Polygon:
		clone := make(orb.Polygon, len(geom))
		for i, ring := range geom {
			clone[i] = make(orb.Ring, len(ring))
			for j, p := range ring {
				clone[i][j] = orb.Point{p[0], p[1]}
			}
		}
		return clone

	case orb.MultiPolygon:
		clone := make(orb.MultiPolygon, len(geom))
		for i, poly := range geom {
			clone[i] = make(orb.Polygon, len(poly))
			for j, ring := range poly {
				clone[i][j] = make(orb.Ring, len(ring))
				for k, p := range ring {
					clone[i][j][k] = orb.Point{p[0], p[1]}
				}
			}
		}
		return clone

	default:
		return nil
	}
}

// Ensure GoTiler implements Tiler.
var _ tiler.Tiler = (*GoTiler)(nil)
