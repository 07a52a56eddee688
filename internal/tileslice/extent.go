package tileslice

import "github.com/paulmach/orb/maptile"

// neighborBufferEps is added on top of buffer to decide which
// neighboring tiles a line or point touches, so that geometry lying
// exactly on a tile edge is still attributed to both sides of it.
const neighborBufferEps = 0.1 / 4096

// tilePixels is the tile-local output scale: clipped coordinates are
// reported in [0, tilePixels], extended by the buffer margin.
const tilePixels = 256.0

// TileID identifies one output tile. It is paulmach/orb's maptile.Tile,
// reused directly since it is already a small, hashable (X, Y, Z)
// struct — exactly the "Tile id factory" the slicer needs, and it lets
// callers feed TileID straight into the rest of the orb/mvt stack.
type TileID = maptile.Tile

// Extents answers "is this the output area at this zoom" questions for
// one zoom level. It is supplied by the caller; the slicer never
// constructs one itself.
type Extents interface {
	// InRange reports whether wrapped column x is part of the output
	// area at this zoom.
	InRange(x int) bool
	// MinY is the smallest in-range tile row (inclusive).
	MinY() int
	// MaxY is one past the largest in-range tile row (exclusive).
	MaxY() int
}

// wholeWorldExtents is the trivial Extents implementation: every
// column in [0, W) is in range and every row in [0, W) is in range.
// Used by tests and by callers with no partial-area restriction.
type wholeWorldExtents struct {
	w int
}

// NewWholeWorldExtents returns an Extents covering the full tile
// pyramid at zoom z (no cropping to a partial output area).
func NewWholeWorldExtents(z int) Extents {
	return wholeWorldExtents{w: 1 << uint(z)}
}

func (e wholeWorldExtents) InRange(x int) bool { return x >= 0 && x < e.w }
func (e wholeWorldExtents) MinY() int          { return 0 }
func (e wholeWorldExtents) MaxY() int          { return e.w }

// config bundles the coordinate conventions for one slicing call:
// zoom, world extent, clip buffer and the slightly larger
// neighborBuffer used only to decide candidate tiles, never to accept
// or reject a clipped point.
type config struct {
	z              int
	w              int // world extent, 1<<z
	buffer         float64
	neighborBuffer float64
	area           bool
	extents        Extents
	logger         Logger
}

// mZoom returns z as the maptile.Zoom TileID's Z field expects.
func (c config) mZoom() maptile.Zoom { return maptile.Zoom(c.z) }

func newConfig(extents Extents, buffer float64, area bool, z int, logger Logger) config {
	if logger == nil {
		logger = defaultLogger{}
	}
	return config{
		z:              z,
		w:              1 << uint(z),
		buffer:         buffer,
		neighborBuffer: buffer + neighborBufferEps,
		area:           area,
		extents:        extents,
		logger:         logger,
	}
}

// wrap folds v into [0, w) the way a tile column wraps around the
// antimeridian.
func wrap(v, w int) int {
	v %= w
	if v < 0 {
		v += w
	}
	return v
}
