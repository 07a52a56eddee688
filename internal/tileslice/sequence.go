package tileslice

// Point is a 2-D double-precision coordinate. Its meaning (world,
// stripe-local, or tile-local pixels) depends on which stage of the
// pipeline produced it.
type Point struct {
	X, Y float64
}

// MutableSequence is an ordered, growable list of points that can be
// closed into a ring. The stripe and cell clippers build these
// incrementally as they walk an input edge; the same sequence is
// referenced both from the clipper's "currently active" column/row map
// and from that stage's output list, so it must be a reference type.
//
// Go pointers already give two holders of the same *Sequence a shared,
// stable view, so there is no separate arena/index-handle layer here:
// a *Sequence (or *ScalingSequence) IS the handle.
type MutableSequence interface {
	AddPoint(x, y float64)
	CloseRing()
	Size() int
	Points() []Point
}

// Sequence is the plain MutableSequence: points are stored exactly as
// given.
type Sequence struct {
	points []Point
}

// NewSequence returns an empty mutable coordinate sequence.
func NewSequence() *Sequence {
	return &Sequence{}
}

// AddPoint appends (x, y), dropping it when it repeats the current
// last point. Clip emission frequently lands an intersection vertex
// exactly on an endpoint that was just added; collapsing the run keeps
// output rings minimal and keeps degenerate slivers under the
// min-point thresholds they are meant to fail.
func (s *Sequence) AddPoint(x, y float64) {
	p := Point{X: x, Y: y}
	if n := len(s.points); n > 0 && s.points[n-1] == p {
		return
	}
	s.points = append(s.points, p)
}

// CloseRing re-appends the first point if it differs from the last,
// so every polygon ring ends up with first == last.
func (s *Sequence) CloseRing() {
	if len(s.points) == 0 {
		return
	}
	first, last := s.points[0], s.points[len(s.points)-1]
	if first != last {
		s.points = append(s.points, first)
	}
}

func (s *Sequence) Size() int { return len(s.points) }

func (s *Sequence) Points() []Point { return s.points }

// ScalingSequence stores every added point translated by (-ox, -oy)
// and multiplied by scale — used by the cell clipper to go straight
// from tile-local unit coordinates to tile-local pixel coordinates
// without a second pass over the output.
type ScalingSequence struct {
	inner         *Sequence
	ox, oy, scale float64
}

// NewScalingSequence returns a MutableSequence that stores
// (x-ox)*scale, (y-oy)*scale for every AddPoint call.
func NewScalingSequence(ox, oy, scale float64) *ScalingSequence {
	return &ScalingSequence{inner: NewSequence(), ox: ox, oy: oy, scale: scale}
}

func (s *ScalingSequence) AddPoint(x, y float64) {
	s.inner.AddPoint((x-s.ox)*s.scale, (y-s.oy)*s.scale)
}

func (s *ScalingSequence) CloseRing() { s.inner.CloseRing() }

func (s *ScalingSequence) Size() int { return s.inner.Size() }

func (s *ScalingSequence) Points() []Point { return s.inner.Points() }
