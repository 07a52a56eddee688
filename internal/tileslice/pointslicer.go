package tileslice

import "math"

// slicePointsIntoTiles is the point-geometry fast path: no
// stripe/cell clipping, each input coordinate is assigned directly to
// the up to four tiles within neighborBuffer of it.
func slicePointsIntoTiles(cfg config, coords []Point, dst *tiledGeometryStore) {
	nb := cfg.neighborBuffer
	w := cfg.w

	for _, c := range coords {
		wx := c.X * float64(w)
		wy := c.Y * float64(w)

		xMin := int(math.Floor(wx - nb))
		xMax := int(math.Floor(wx + nb))
		yMin := max(cfg.extents.MinY(), int(math.Floor(wy-nb)))
		yMax := min(cfg.extents.MaxY()-1, int(math.Floor(wy+nb)))

		for x := xMin; x <= xMax; x++ {
			wrapped := wrap(x, w)
			if !cfg.extents.InRange(wrapped) {
				continue
			}
			for y := yMin; y <= yMax; y++ {
				id := TileID{X: uint32(wrapped), Y: uint32(y), Z: cfg.mZoom()}
				pt := Point{X: (wx - float64(x)) * tilePixels, Y: (wy - float64(y)) * tilePixels}
				dst.addPointSequence(id, []Point{pt})
			}
		}
	}
}
