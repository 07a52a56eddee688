// Package tileslice cuts a single input geometry (points, polylines, or
// polygons with holes) into per-tile pieces at one fixed zoom level.
//
// It is a floating-point stripe clipper, not a general polygon-algebra
// engine: geometry is clipped column by column on X (the stripe
// clipper) and then row by row on Y within each column (the cell
// clipper), with a buffered margin kept around every tile so adjacent
// tiles render seamlessly. Polygons additionally get fully-filled-tile
// detection, so a tile entirely inside a polygon's interior is reported
// without ever materializing its (redundant) boundary coordinates.
//
// A TiledGeometry is built for exactly one input geometry: construct
// it, call SlicePoints or SliceShapes once, then read TileData and
// FilledTiles. It is not safe for concurrent use; run many in parallel
// across goroutines instead, one per input geometry.
package tileslice
