package tileslice

import "math"

// stripeClip cuts one input coordinate sequence into per-column
// stripe-local pieces, clipped to [-buffer, 1+buffer] in X. Only X is
// made stripe-local (subtracting the world column index); Y is left
// in world units for the cell clipper's own Y-axis clip.
//
// The returned map is keyed by the raw world stripe column the
// segment touched, with no wrap or world-copy offset applied yet —
// that bookkeeping belongs to the world-copy driver.
func stripeClip(cfg config, points []Point) map[int][]MutableSequence {
	if len(points) < 2 {
		return nil
	}
	k1, k2 := -cfg.buffer, 1+cfg.buffer
	nb := cfg.neighborBuffer

	active := map[int]MutableSequence{}
	out := map[int][]MutableSequence{}
	maxSweep := 0

	newSlice := func(x int) MutableSequence {
		s := NewSequence()
		active[x] = s
		out[x] = append(out[x], s)
		return s
	}

	for i := 0; i+1 < len(points); i++ {
		a, b := points[i], points[i+1]

		lo := int(math.Floor(min(a.X, b.X) - nb))
		hi := int(math.Floor(max(a.X, b.X) + nb))
		if sweep := hi - lo + 1; sweep > maxSweep {
			maxSweep = sweep
		}

		for x := lo; x <= hi; x++ {
			s, ok := active[x]
			if !ok {
				s = newSlice(x)
			}
			ax, bx := a.X-float64(x), b.X-float64(x)
			if ax >= k1 && ax <= k2 {
				s.AddPoint(ax, a.Y)
			}
			emit := func(u, v float64) { s.AddPoint(u, v) }
			exit := clipEdge(emit, ax, a.Y, bx, b.Y, k1, k2)
			if exit != noExit && !cfg.area {
				delete(active, x)
			}
		}
	}

	last := points[len(points)-1]
	lo := int(math.Floor(last.X-nb)) - 1
	hi := int(math.Floor(last.X+nb)) + 1
	for x := lo; x <= hi; x++ {
		if s, ok := active[x]; ok {
			lx := last.X - float64(x)
			if lx >= k1 && lx <= k2 {
				s.AddPoint(lx, last.Y)
			}
		}
	}

	if cfg.area {
		for x, slices := range out {
			kept := slices[:0]
			for _, s := range slices {
				s.CloseRing()
				// A closed ring under four points has at most two distinct
				// vertices: a zero-area sliver along one line. Dropping it
				// here keeps it from claiming a tile slot ahead of a hole.
				if s.Size() >= 4 {
					kept = append(kept, s)
				}
			}
			out[x] = kept
		}
	}

	// Heuristic, diagnostic-only: a single edge sweeping nearly the
	// whole world at a non-trivial zoom almost always means the
	// upstream geometry is malformed. Never gates behavior.
	if cfg.z >= 6 && maxSweep >= cfg.w-1 {
		cfg.logger.Warn("segment sweeps nearly the full world width; input geometry may be malformed")
	}

	return out
}
