package tileslice

import (
	"math"
	"sort"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// rect builds a closed rectangle ring wound with positive signed area
// (the winding the fill detector expects for outer rings and holes
// alike).
func rect(x1, y1, x2, y2 float64) orb.Ring {
	return orb.Ring{{x1, y1}, {x2, y1}, {x2, y2}, {x1, y2}, {x1, y1}}
}

func tileID(x, y uint32, z int) TileID {
	return maptile.New(x, y, maptile.Zoom(z))
}

func tileByID(t *testing.T, tg *TiledGeometry, id TileID) TileData {
	t.Helper()
	for _, td := range tg.TileData() {
		if td.ID == id {
			return td
		}
	}
	t.Fatalf("no tile data for %v", id)
	return TileData{}
}

func approxEqual(a, b Point) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps
}

func assertSequence(t *testing.T, got []Point, want []Point) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("sequence length = %d, want %d (got %v)", len(got), len(want), got)
	}
	for i := range want {
		if !approxEqual(got[i], want[i]) {
			t.Fatalf("point %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestUnitSquareAtZoomZero(t *testing.T) {
	tg := SliceShapes(NewWholeWorldExtents(0), 0, true, 0, []RingGroup{
		{Outer: rect(0, 0, 1, 1)},
	})

	data := tg.TileData()
	if len(data) != 1 {
		t.Fatalf("tile count = %d, want 1", len(data))
	}
	if data[0].ID != tileID(0, 0, 0) {
		t.Fatalf("tile = %v, want (0,0,0)", data[0].ID)
	}
	if len(data[0].Groups) != 1 || len(data[0].Groups[0].Sequences) != 1 {
		t.Fatalf("want one group with one ring, got %+v", data[0].Groups)
	}
	ring := data[0].Groups[0].Sequences[0]
	if len(ring) < 4 || !approxEqual(ring[0], ring[len(ring)-1]) {
		t.Fatalf("ring not closed: %v", ring)
	}
	if got := tg.FilledTiles(); len(got) != 0 {
		t.Fatalf("filled tiles = %v, want none", got)
	}
}

func TestTileAlignedRectangle(t *testing.T) {
	tg := SliceShapes(NewWholeWorldExtents(2), 0, true, 2, []RingGroup{
		{Outer: rect(0, 0, 1, 1)},
	})

	data := tg.TileData()
	if len(data) != 1 {
		ids := make([]TileID, 0, len(data))
		for _, td := range data {
			ids = append(ids, td.ID)
		}
		t.Fatalf("tile count = %d (%v), want exactly 1", len(data), ids)
	}
	td := tileByID(t, tg, tileID(0, 0, 2))
	if len(td.Groups) != 1 || len(td.Groups[0].Sequences) != 1 {
		t.Fatalf("want one group with one ring, got %+v", td.Groups)
	}
	assertSequence(t, td.Groups[0].Sequences[0], []Point{
		{0, 0}, {256, 0}, {256, 256}, {0, 256}, {0, 0},
	})
	if got := tg.FilledTiles(); len(got) != 0 {
		t.Fatalf("filled tiles = %v, want none", got)
	}
}

func TestFullWorldPolygon(t *testing.T) {
	// The polygon overhangs the world by a full tile on every side, the
	// shape an ocean/world fill arrives in: no tile window ever sees
	// the boundary, so every tile is reported filled and none gets
	// materialized coordinates.
	tg := SliceShapes(NewWholeWorldExtents(2), 0, true, 2, []RingGroup{
		{Outer: rect(-1, -1, 5, 5)},
	})

	if data := tg.TileData(); len(data) != 0 {
		ids := make([]TileID, 0, len(data))
		for _, td := range data {
			ids = append(ids, td.ID)
		}
		t.Fatalf("tile data = %v, want none", ids)
	}

	filled := tg.FilledTiles()
	if len(filled) != 16 {
		t.Fatalf("filled count = %d, want 16", len(filled))
	}
	seen := make(map[TileID]bool, len(filled))
	for _, id := range filled {
		seen[id] = true
	}
	for x := uint32(0); x < 4; x++ {
		for y := uint32(0); y < 4; y++ {
			if !seen[tileID(x, y, 2)] {
				t.Fatalf("tile (%d,%d) missing from filled set", x, y)
			}
		}
	}
}

func TestExactWorldPolygonKeepsBoundaryDetail(t *testing.T) {
	// A polygon exactly on the world edge, unlike the overhanging one
	// above, keeps real boundary rings in the edge tiles and fills
	// only the interior.
	tg := SliceShapes(NewWholeWorldExtents(2), 0, true, 2, []RingGroup{
		{Outer: rect(0, 0, 4, 4)},
	})

	dataTiles := make(map[TileID]bool)
	for _, td := range tg.TileData() {
		dataTiles[td.ID] = true
		for _, g := range td.Groups {
			ring := g.Sequences[0]
			if len(ring) < 4 || !approxEqual(ring[0], ring[len(ring)-1]) {
				t.Fatalf("tile %v outer ring not closed: %v", td.ID, ring)
			}
		}
	}
	filled := tg.FilledTiles()
	for _, id := range filled {
		if dataTiles[id] {
			t.Fatalf("tile %v is both filled and materialized", id)
		}
	}
	if len(dataTiles)+len(filled) != 16 {
		t.Fatalf("covered %d data + %d filled tiles, want 16 total", len(dataTiles), len(filled))
	}
	// Interior tiles carry no boundary.
	for _, interior := range []TileID{tileID(1, 1, 2), tileID(2, 1, 2), tileID(1, 2, 2), tileID(2, 2, 2)} {
		if dataTiles[interior] {
			t.Fatalf("interior tile %v unexpectedly has boundary data", interior)
		}
	}
}

func TestHoleInsideFilledTileGetsSyntheticOuter(t *testing.T) {
	tg := SliceShapes(NewWholeWorldExtents(2), 0, true, 2, []RingGroup{
		{
			Outer: rect(-1, -1, 5, 5),
			Holes: []orb.Ring{rect(1.25, 1.25, 1.75, 1.75)},
		},
	})

	data := tg.TileData()
	if len(data) != 1 || data[0].ID != tileID(1, 1, 2) {
		t.Fatalf("tile data = %+v, want only (1,1,2)", data)
	}
	groups := data[0].Groups
	if len(groups) != 1 || len(groups[0].Sequences) != 2 {
		t.Fatalf("want one group with synthetic outer + hole, got %+v", groups)
	}

	outer := groups[0].Sequences[0]
	if len(outer) != 5 {
		t.Fatalf("synthetic outer has %d points, want 5", len(outer))
	}
	// The synthetic outer square is padded slightly beyond the tile so
	// it strictly encloses the clipped hole.
	if outer[0].X >= 0 || outer[2].X <= 256 {
		t.Fatalf("synthetic outer does not enclose the tile: %v", outer)
	}
	assertSequence(t, groups[0].Sequences[1], []Point{
		{64, 64}, {192, 64}, {192, 192}, {64, 192}, {64, 64},
	})

	filled := tg.FilledTiles()
	if len(filled) != 15 {
		t.Fatalf("filled count = %d, want 15", len(filled))
	}
	for _, id := range filled {
		if id == tileID(1, 1, 2) {
			t.Fatalf("hole tile (1,1) must not be in the filled set")
		}
	}
}

func TestHoleColumnRemovedFromFilledSet(t *testing.T) {
	// A hole slab spanning the whole world height through column 1:
	// its rows are subtracted from the ledger, so nothing in column 1
	// is covered at all.
	tg := SliceShapes(NewWholeWorldExtents(2), 0, true, 2, []RingGroup{
		{
			Outer: rect(-1, -1, 5, 5),
			Holes: []orb.Ring{rect(1, -1, 2, 5)},
		},
	})

	covered := make(map[TileID]bool)
	for _, td := range tg.TileData() {
		covered[td.ID] = true
	}
	for _, id := range tg.FilledTiles() {
		if covered[id] {
			t.Fatalf("tile %v is both filled and materialized", id)
		}
		covered[id] = true
	}

	for y := uint32(0); y < 4; y++ {
		if covered[tileID(1, y, 2)] {
			t.Fatalf("hole column tile (1,%d) should not be covered", y)
		}
	}
	if len(covered) != 12 {
		t.Fatalf("covered %d tiles, want 12 (all but the hole column)", len(covered))
	}
}

func TestPolylineAcrossTwoTiles(t *testing.T) {
	tg := SliceShapes(NewWholeWorldExtents(1), 0, false, 1, []RingGroup{
		{Outer: orb.Ring{{0.5, 0.5}, {1.5, 0.5}}},
	})

	left := tileByID(t, tg, tileID(0, 0, 1))
	if len(left.Groups) != 1 || len(left.Groups[0].Sequences) != 1 {
		t.Fatalf("left tile groups = %+v", left.Groups)
	}
	assertSequence(t, left.Groups[0].Sequences[0], []Point{{128, 128}, {256, 128}})

	right := tileByID(t, tg, tileID(1, 0, 1))
	assertSequence(t, right.Groups[0].Sequences[0], []Point{{0, 128}, {128, 128}})
}

func TestPolylineAcrossAntimeridian(t *testing.T) {
	// Crossing the seam on the left: the overhanging piece re-enters
	// the world through the +W world copy and lands in the rightmost
	// column.
	tg := SliceShapes(NewWholeWorldExtents(1), 0, false, 1, []RingGroup{
		{Outer: orb.Ring{{-0.1, 0.5}, {1.1, 0.5}}},
	})

	left := tileByID(t, tg, tileID(0, 0, 1))
	assertSequence(t, left.Groups[0].Sequences[0], []Point{{0, 128}, {256, 128}})

	right := tileByID(t, tg, tileID(1, 0, 1))
	if len(right.Groups) != 1 {
		t.Fatalf("right tile groups = %d, want 1", len(right.Groups))
	}
	seqs := right.Groups[0].Sequences
	if len(seqs) != 2 {
		t.Fatalf("rightmost column sequences = %d, want the direct piece and the wrapped piece", len(seqs))
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i][0].X < seqs[j][0].X })
	assertSequence(t, seqs[0], []Point{{0, 128}, {25.6, 128}})
	assertSequence(t, seqs[1], []Point{{230.4, 128}, {256, 128}})
}

func TestPolylineReentryStartsNewPiece(t *testing.T) {
	tg := SliceShapes(NewWholeWorldExtents(1), 0, false, 1, []RingGroup{
		{Outer: orb.Ring{{0.5, 0.5}, {1.5, 0.5}, {0.5, 0.7}}},
	})

	td := tileByID(t, tg, tileID(0, 0, 1))
	if len(td.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(td.Groups))
	}
	if got := len(td.Groups[0].Sequences); got != 2 {
		t.Fatalf("pieces = %d, want a retired piece plus a re-entry piece", got)
	}
}

func TestPointAtTileCorner(t *testing.T) {
	tg := SlicePoints(NewWholeWorldExtents(3), 0, 3, []Point{{0.5, 0.5}})

	want := map[TileID]Point{
		tileID(3, 3, 3): {256, 256},
		tileID(4, 3, 3): {0, 256},
		tileID(3, 4, 3): {256, 0},
		tileID(4, 4, 3): {0, 0},
	}
	data := tg.TileData()
	if len(data) != len(want) {
		t.Fatalf("tile count = %d, want %d", len(data), len(want))
	}
	for _, td := range data {
		wp, ok := want[td.ID]
		if !ok {
			t.Fatalf("unexpected tile %v", td.ID)
		}
		if len(td.Groups) != 1 || len(td.Groups[0].Sequences) != 1 {
			t.Fatalf("tile %v groups = %+v, want one group with one sequence", td.ID, td.Groups)
		}
		seq := td.Groups[0].Sequences[0]
		if len(seq) != 1 || !approxEqual(seq[0], wp) {
			t.Fatalf("tile %v point = %v, want %v", td.ID, seq, wp)
		}
	}
}

func TestPointsWrapAroundSeam(t *testing.T) {
	const eps = 1e-6
	tg := SlicePoints(NewWholeWorldExtents(2), 0, 2, []Point{
		{eps, 0.5},
		{1 - eps, 0.5},
	})

	cols := make(map[uint32]bool)
	for _, td := range tg.TileData() {
		cols[td.ID.X] = true
		// Both points straddle the same seam, so they aggregate into
		// one sequence per tile rather than one group each.
		if len(td.Groups) != 1 || len(td.Groups[0].Sequences) != 1 {
			t.Fatalf("tile %v: want a single aggregated group/sequence, got %+v", td.ID, td.Groups)
		}
		if got := len(td.Groups[0].Sequences[0]); got != 2 {
			t.Fatalf("tile %v: aggregated %d points, want 2", td.ID, got)
		}
	}
	if !cols[0] || !cols[3] {
		t.Fatalf("columns touched = %v, want both 0 and 3", cols)
	}
}

func TestBufferedOutputStaysInBounds(t *testing.T) {
	const buffer = 1.0 / 16
	tg := SliceShapes(NewWholeWorldExtents(2), buffer, true, 2, []RingGroup{
		{Outer: rect(0.5, 0.5, 2.5, 2.5)},
	})

	lo := -256*buffer - 1e-9
	hi := 256*(1+buffer) + 1e-9
	for _, td := range tg.TileData() {
		if td.ID.X >= 4 || td.ID.Y >= 4 {
			t.Fatalf("tile %v outside the world", td.ID)
		}
		for _, g := range td.Groups {
			for _, seq := range g.Sequences {
				if len(seq) < 4 || !approxEqual(seq[0], seq[len(seq)-1]) {
					t.Fatalf("tile %v ring not closed: %v", td.ID, seq)
				}
				for _, p := range seq {
					if p.X < lo || p.X > hi || p.Y < lo || p.Y > hi {
						t.Fatalf("tile %v point %v outside [%f,%f]", td.ID, p, lo, hi)
					}
				}
			}
		}
	}
}

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Warn(message string) {
	l.warnings = append(l.warnings, message)
}

func TestWorldSpanningSegmentWarns(t *testing.T) {
	logger := &recordingLogger{}
	tg := NewTiledGeometry(NewWholeWorldExtents(6), 0, false, 6, logger)
	tg.SliceShapes([]RingGroup{
		{Outer: orb.Ring{{0, 0.5}, {63.9, 0.5}}},
	})

	if len(logger.warnings) == 0 {
		t.Fatal("expected a malformed-input warning for a segment sweeping the whole world")
	}
	// Diagnostic only: the geometry is still sliced.
	if len(tg.TileData()) == 0 {
		t.Fatal("warning must not suppress output")
	}
}

func TestZoomLevel(t *testing.T) {
	tg := NewTiledGeometry(NewWholeWorldExtents(5), 0.25, true, 5, nil)
	if tg.ZoomLevel() != 5 {
		t.Fatalf("ZoomLevel = %d, want 5", tg.ZoomLevel())
	}
}

func TestFilledLedgerAlgebra(t *testing.T) {
	l := newFilledLedger()
	l.apply(2, NewIntRangeOf(1, 3), true)
	l.apply(2, NewIntRangeOf(1, 3), true)
	l.apply(2, NewIntRangeOf(1, 3), false)

	if r := l.columns()[2]; !r.IsEmpty() {
		t.Fatalf("column 2 after add,add,remove = %v, want empty", r.Ranges())
	}
}
