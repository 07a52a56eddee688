package tileslice

import (
	"math"
	"sort"

	"github.com/paulmach/orb/maptile"
)

// fillSquarePad is the extra outward pad applied to the synthetic
// "tile is entirely filled" square beyond the normal clip buffer, so
// it strictly encloses any hole ring clipped into the same tile.
const fillSquarePad = 1.0 / 4096

type edgeSide int

const (
	leftSide edgeSide = iota
	rightSide
)

// journalEntry records one run of tile rows a boundary-hugging edge
// swept past without creating a slice. If a later segment of the same
// ring does create a slice in one of these rows, the entry is replayed
// into it so the reconstructed ring still has the edge it skipped.
type journalEntry struct {
	side   edgeSide
	lo, hi int
}

// liveRows tracks, in ascending order, the tile rows that currently
// hold a slice during one cellClip call. The edge-fill skip needs
// "smallest live row >= y" lookups while slices are still being
// created, so a sorted slice with binary search beats re-sorting the
// active map's keys per segment.
type liveRows struct {
	ys []int
}

func (r *liveRows) insert(y int) {
	i := sort.SearchInts(r.ys, y)
	if i < len(r.ys) && r.ys[i] == y {
		return
	}
	r.ys = append(r.ys, 0)
	copy(r.ys[i+1:], r.ys[i:])
	r.ys[i] = y
}

// ceiling returns the smallest live row >= y, if any.
func (r *liveRows) ceiling(y int) (int, bool) {
	i := sort.SearchInts(r.ys, y)
	if i == len(r.ys) {
		return 0, false
	}
	return r.ys[i], true
}

// cellClip cuts one stripe-local sequence (column x already fixed)
// into per-tile pieces along Y, appending survivors into inProgress,
// and returns the y-range (if any) this ring proves is entirely
// filled on both the left and right buffered edges of the column.
//
// Ring winding matters for fill detection: rings must be wound so a
// column interior to the ring sees its right clip edge traced
// downward (increasing y) and its left clip edge traced upward. The
// stripe clipper preserves input winding, so this is a requirement on
// input rings — outer rings and holes alike.
func cellClip(cfg config, x int, points []Point, outer bool, inProgress *inProgressShapes) *IntRange {
	if len(points) == 0 {
		return nil
	}
	k1, k2 := -cfg.buffer, 1+cfg.buffer
	leftEdge, rightEdge := -cfg.buffer, 1+cfg.buffer
	nb := cfg.neighborBuffer

	type rowSlice struct {
		y   int
		seq MutableSequence
	}
	active := map[int]MutableSequence{}
	var all []rowSlice
	var rows liveRows
	var journal []journalEntry
	var leftFilled, rightFilled *IntRange

	newSlice := func(y int) MutableSequence {
		s := NewScalingSequence(0, float64(y), tilePixels)
		// Backfill on demand: this row was previously skipped as
		// "filled"; replay the edges that swept past it so the ring
		// being rebuilt here is locally closed again.
		for _, je := range journal {
			if y < je.lo || y > je.hi {
				continue
			}
			if je.side == leftSide {
				s.AddPoint(leftEdge, float64(y)+k2)
				s.AddPoint(leftEdge, float64(y)+k1)
			} else {
				s.AddPoint(rightEdge, float64(y)+k1)
				s.AddPoint(rightEdge, float64(y)+k2)
			}
		}
		active[y] = s
		all = append(all, rowSlice{y: y, seq: s})
		rows.insert(y)
		return s
	}

	for i := 0; i+1 < len(points); i++ {
		a, b := points[i], points[i+1]

		// A vertical run exactly on the column's buffered edge, traced
		// in the direction the winding convention assigns to a filled
		// column: these are candidates for skipping whole rows.
		onRightEdge := cfg.area && a.X == b.X && a.X == rightEdge && b.Y > a.Y
		onLeftEdge := cfg.area && a.X == b.X && a.X == leftEdge && b.Y < a.Y

		startY := int(math.Floor(min(a.Y, b.Y) - nb))
		endY := int(math.Floor(max(a.Y, b.Y) + nb))

		for y := startY; y <= endY; y++ {
			if onRightEdge || onLeftEdge {
				if _, ok := active[y]; !ok {
					// Skip ahead to the next row that already has
					// boundary detail, or the last row this edge
					// traverses. Rows in between get no slice, only a
					// filled-range mark and a journal entry.
					next, ok := rows.ceiling(y)
					if !ok || next > endY {
						next = endY
					}
					if next > y {
						if onRightEdge {
							if rightFilled == nil {
								rightFilled = NewIntRange()
							}
							rightFilled.Add(y, next-1)
							journal = append(journal, journalEntry{rightSide, y, next - 1})
						} else {
							if leftFilled == nil {
								leftFilled = NewIntRange()
							}
							leftFilled.Add(y, next-1)
							journal = append(journal, journalEntry{leftSide, y, next - 1})
						}
						y = next - 1
						continue
					}
				}
			}

			s, ok := active[y]
			if !ok {
				s = newSlice(y)
			}
			au, bu := a.Y-float64(y), b.Y-float64(y)
			if au >= k1 && au <= k2 {
				s.AddPoint(a.X, a.Y)
			}
			row := float64(y)
			emit := func(u, v float64) { s.AddPoint(v, u+row) }
			exit := clipEdge(emit, au, a.X, bu, b.X, k1, k2)
			if exit != noExit && !cfg.area {
				// A polyline that leaves the window is done in this
				// row; re-entry later starts a fresh piece.
				delete(active, y)
			}
		}
	}

	last := points[len(points)-1]
	lo := int(math.Floor(last.Y-nb)) - 1
	hi := int(math.Floor(last.Y+nb)) + 1
	for y := lo; y <= hi; y++ {
		if s, ok := active[y]; ok {
			u := last.Y - float64(y)
			if u >= k1 && u <= k2 {
				s.AddPoint(last.X, last.Y)
			}
		}
	}

	// Retired polyline slices are no longer in active but are still
	// output; degenerate survivors are weeded out later, at group
	// flush, so a too-short outer still claims its slot there.
	for _, rs := range all {
		if cfg.area {
			rs.seq.CloseRing()
		}
		if rs.y < cfg.extents.MinY() || rs.y >= cfg.extents.MaxY() {
			continue
		}
		if rs.seq.Size() == 0 {
			continue
		}
		id := maptile.New(uint32(x), uint32(rs.y), maptile.Zoom(cfg.z))
		inProgress.append(id, rs.seq, outer)
	}

	if leftFilled == nil || rightFilled == nil {
		return nil
	}
	return rightFilled.Intersect(leftFilled)
}

// fillSquare returns the synthetic 5-point closed square representing
// "this whole tile is inside the outer polygon's body", used when a
// hole is the first ring to touch a tile the outer ring never
// materialized a boundary in.
func fillSquare(buffer float64) MutableSequence {
	pad := buffer + fillSquarePad
	lo := -pad * tilePixels
	hi := (1 + pad) * tilePixels
	s := NewSequence()
	s.AddPoint(lo, lo)
	s.AddPoint(hi, lo)
	s.AddPoint(hi, hi)
	s.AddPoint(lo, hi)
	s.AddPoint(lo, lo)
	return s
}
