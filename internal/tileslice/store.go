package tileslice

import (
	"github.com/paulmach/orb"
)

// RingGroup is one source polygon's outer ring plus its holes, or one
// source polyline's single sequence in the Outer slot. Coordinates are
// world-unit doubles at the zoom the TiledGeometry was built for;
// polygon rings must already be closed (first == last).
type RingGroup struct {
	Outer orb.Ring
	Holes []orb.Ring
}

// ringPoints flattens the ring into the package's internal Point form.
func ringPoints(r orb.Ring) []Point {
	pts := make([]Point, len(r))
	for i, p := range r {
		pts[i] = Point{X: p[0], Y: p[1]}
	}
	return pts
}

// TileGroup is one surviving source ring-group's clipped output within
// a single tile: Sequences[0] is the outer ring (or the whole
// polyline), any further entries are holes, in input order.
type TileGroup struct {
	Sequences [][]Point
}

// inProgressShapes accumulates, for the rings of a single source group
// across however many world copies it took to slice them, the
// sequences each tile has received so far. It is reset per group —
// sequences from two different input groups never mix — so whatever
// lands in one tile's slot here becomes exactly one output TileGroup
// once the group is flushed.
type inProgressShapes struct {
	buffer float64
	order  []TileID
	byTile map[TileID][]MutableSequence
}

func newInProgressShapes(buffer float64) *inProgressShapes {
	return &inProgressShapes{buffer: buffer, byTile: make(map[TileID][]MutableSequence)}
}

// append records one more clipped sequence for tile id, produced by
// either the outer ring (outer=true) or a hole (outer=false).
//
// Hole-into-filled-outer inference: if this is a hole and the tile has
// no sequences yet, the outer ring never materialized a boundary here
// (the tile sits entirely inside the outer's filled interior), so a
// synthetic tile-sized square is inserted first to give the hole
// something to be cut out of.
func (p *inProgressShapes) append(id TileID, seq MutableSequence, outer bool) {
	existing, seen := p.byTile[id]
	if !seen {
		p.order = append(p.order, id)
	}
	if !outer && len(existing) == 0 {
		existing = append(existing, fillSquare(p.buffer))
	}
	existing = append(existing, seq)
	p.byTile[id] = existing
}

// flush drops degenerate sequences and appends each surviving group
// into dst, in the tile-first-touched order.
func (p *inProgressShapes) flush(dst *tiledGeometryStore, area bool) {
	minPoints := 2
	if area {
		minPoints = 4
	}
	for _, id := range p.order {
		seqs := p.byTile[id]
		if len(seqs) == 0 {
			continue
		}
		if seqs[0].Size() < minPoints {
			// Outer ring (or the polyline itself) failed to survive;
			// the whole group is invalid for this tile.
			continue
		}
		group := TileGroup{Sequences: [][]Point{clonePoints(seqs[0].Points())}}
		for _, s := range seqs[1:] {
			if s.Size() < minPoints {
				continue
			}
			group.Sequences = append(group.Sequences, clonePoints(s.Points()))
		}
		dst.addGroup(id, group)
	}
}

func clonePoints(pts []Point) []Point {
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}

// tiledGeometryStore is the result accumulator: per-tile clipped
// groups plus the filled-range ledger, both owned exclusively by one
// TiledGeometry instance.
type tiledGeometryStore struct {
	tileOrder []TileID
	tiles     map[TileID][]TileGroup
	filled    *filledLedger
}

func newTiledGeometryStore() *tiledGeometryStore {
	return &tiledGeometryStore{tiles: make(map[TileID][]TileGroup)}
}

func (s *tiledGeometryStore) addGroup(id TileID, g TileGroup) {
	if _, ok := s.tiles[id]; !ok {
		s.tileOrder = append(s.tileOrder, id)
	}
	s.tiles[id] = append(s.tiles[id], g)
}

func (s *tiledGeometryStore) addPointSequence(id TileID, pts []Point) {
	if existing, ok := s.tiles[id]; ok {
		// Point slicing appends into the single existing
		// group/sequence for this tile rather than creating
		// additional groups.
		existing[0].Sequences[0] = append(existing[0].Sequences[0], pts...)
		return
	}
	s.tileOrder = append(s.tileOrder, id)
	s.tiles[id] = []TileGroup{{Sequences: [][]Point{append([]Point(nil), pts...)}}}
}

func (s *tiledGeometryStore) applyFilled(x int, r *IntRange, outer bool) {
	if r.IsEmpty() {
		return
	}
	if s.filled == nil {
		if !outer {
			// Nothing to subtract a hole from yet.
			return
		}
		s.filled = newFilledLedger()
	}
	s.filled.apply(x, r, outer)
}

// TileData is one entry of TiledGeometry.TileData: a tile id and the
// surviving ring groups clipped into it.
type TileData struct {
	ID     TileID
	Groups []TileGroup
}

// TiledGeometry cuts one input geometry into per-tile pieces at one
// fixed zoom. Build it with NewTiledGeometry, populate it with exactly
// one SlicePoints or SliceShapes call, then read TileData/FilledTiles.
// It is not safe for concurrent use.
type TiledGeometry struct {
	cfg   config
	store *tiledGeometryStore
}

// NewTiledGeometry constructs an empty TiledGeometry for one input
// geometry at zoom z, with the given clip buffer (tile units) and
// area flag (true for polygons, false for linestrings/points).
func NewTiledGeometry(extents Extents, buffer float64, area bool, z int, logger Logger) *TiledGeometry {
	return &TiledGeometry{
		cfg:   newConfig(extents, buffer, area, z, logger),
		store: newTiledGeometryStore(),
	}
}

// ZoomLevel returns the zoom this instance was constructed for.
func (t *TiledGeometry) ZoomLevel() int { return t.cfg.z }

// SliceShapes slices groups (each an outer ring plus holes, or a bare
// polyline sequence in Outer) into this instance's tile contents. It
// is meant to be called exactly once per TiledGeometry.
func (t *TiledGeometry) SliceShapes(groups []RingGroup) {
	for _, g := range groups {
		sliceGroup(t.cfg, g, t.store)
	}
}

// SlicePoints slices a bare coordinate list (world-normalized [0,1]
// doubles) into this instance's tile contents, the degenerate
// point-geometry fast path.
func (t *TiledGeometry) SlicePoints(coords []Point) {
	slicePointsIntoTiles(t.cfg, coords, t.store)
}

// SliceShapes builds a TiledGeometry for groups at zoom z and slices
// them in one step, the common single-shot use of this package.
func SliceShapes(extents Extents, buffer float64, area bool, z int, groups []RingGroup) *TiledGeometry {
	t := NewTiledGeometry(extents, buffer, area, z, nil)
	t.SliceShapes(groups)
	return t
}

// SlicePoints builds a TiledGeometry for a point geometry at zoom z
// and slices it in one step.
func SlicePoints(extents Extents, buffer float64, z int, coords []Point) *TiledGeometry {
	t := NewTiledGeometry(extents, buffer, false, z, nil)
	t.SlicePoints(coords)
	return t
}

// TileData enumerates every tile with clipped geometry, in the order
// tiles were first touched.
func (t *TiledGeometry) TileData() []TileData {
	out := make([]TileData, 0, len(t.store.tileOrder))
	for _, id := range t.store.tileOrder {
		out = append(out, TileData{ID: id, Groups: t.store.tiles[id]})
	}
	return out
}

// FilledTiles enumerates every tile that is fully covered by a
// polygon's interior but absent from TileData (no boundary passes
// through it, so nothing needed to be materialized).
func (t *TiledGeometry) FilledTiles() []TileID {
	if t.store.filled == nil {
		return nil
	}
	var out []TileID
	for x, r := range t.store.filled.columns() {
		if !t.cfg.extents.InRange(x) {
			continue
		}
		for _, y := range r.Values() {
			if y < t.cfg.extents.MinY() || y >= t.cfg.extents.MaxY() {
				continue
			}
			id := TileID{X: uint32(x), Y: uint32(y), Z: t.cfg.mZoom()}
			if _, present := t.store.tiles[id]; present {
				continue
			}
			out = append(out, id)
		}
	}
	return out
}
