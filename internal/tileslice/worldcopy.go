package tileslice

// ringInput is one ring of a group queued for stripe clipping, tagged
// with whether it is the group's outer ring or one of its holes.
type ringInput struct {
	points []Point
	outer  bool
}

// ringStripes is the X-axis clip result for one ring, kept around so
// the world-copy driver can re-bin it under more than one horizontal
// offset without re-running the (offset-invariant) stripe clip.
type ringStripes struct {
	outer bool
	cols  map[int][]MutableSequence
}

// sliceGroup runs the world-copy driver for one ring group:
// stripe-clip every ring once, then feed each stripe slice to the
// cell clipper under whichever of the three world-copy offsets
// {0, -W, +W} lands its column inside [0, W). The group's
// inProgressShapes accumulator spans every ring and every offset this
// group needed, and is flushed into the result store once, at the
// end.
func sliceGroup(cfg config, g RingGroup, dst *tiledGeometryStore) {
	rings := make([]ringInput, 0, 1+len(g.Holes))
	rings = append(rings, ringInput{points: ringPoints(g.Outer), outer: true})
	for _, h := range g.Holes {
		rings = append(rings, ringInput{points: ringPoints(h), outer: false})
	}

	perRing := make([]ringStripes, len(rings))
	var sawLeft, sawRight bool
	for i, r := range rings {
		cols := stripeClip(cfg, r.points)
		perRing[i] = ringStripes{outer: r.outer, cols: cols}
		for x := range cols {
			if x < 0 {
				sawLeft = true
			}
			if x >= cfg.w {
				sawRight = true
			}
		}
	}

	offsets := []int{0}
	if sawRight {
		offsets = append(offsets, -cfg.w)
	}
	if sawLeft {
		offsets = append(offsets, cfg.w)
	}

	progress := newInProgressShapes(cfg.buffer)
	// Ring-major, offset-minor: every applicable world copy of the
	// outer ring is folded into progress before any hole is
	// processed, so the hole-into-filled-outer check in cellClip
	// never sees a tile the outer ring would have reached in a later
	// offset pass.
	for _, ring := range perRing {
		for _, offset := range offsets {
			for x0, slices := range ring.cols {
				finalX := x0 + offset
				if finalX < 0 || finalX >= cfg.w {
					continue
				}
				if !cfg.extents.InRange(finalX) {
					continue
				}
				for _, s := range slices {
					r := cellClip(cfg, finalX, s.Points(), ring.outer, progress)
					if cfg.area {
						dst.applyFilled(finalX, r, ring.outer)
					}
				}
			}
		}
	}

	progress.flush(dst, cfg.area)
}
