package tileslice

import "testing"

func TestSequenceDropsConsecutiveDuplicates(t *testing.T) {
	s := NewSequence()
	s.AddPoint(1, 2)
	s.AddPoint(1, 2)
	s.AddPoint(3, 4)
	s.AddPoint(1, 2)
	if s.Size() != 3 {
		t.Fatalf("size = %d, want 3 (only consecutive repeats collapse)", s.Size())
	}
}

func TestCloseRing(t *testing.T) {
	s := NewSequence()
	s.AddPoint(0, 0)
	s.AddPoint(1, 0)
	s.AddPoint(1, 1)
	s.CloseRing()
	pts := s.Points()
	if len(pts) != 4 || pts[0] != pts[3] {
		t.Fatalf("ring not closed: %v", pts)
	}

	// Already closed: no extra point.
	s.CloseRing()
	if s.Size() != 4 {
		t.Fatalf("closing a closed ring grew it to %d points", s.Size())
	}

	empty := NewSequence()
	empty.CloseRing()
	if empty.Size() != 0 {
		t.Fatalf("closing an empty sequence added points")
	}
}

func TestScalingSequence(t *testing.T) {
	s := NewScalingSequence(0, 2, 256)
	s.AddPoint(0.5, 2.5)
	pts := s.Points()
	if len(pts) != 1 || pts[0] != (Point{X: 128, Y: 128}) {
		t.Fatalf("scaled point = %v, want (128,128)", pts)
	}
}

func TestWrap(t *testing.T) {
	for _, tc := range []struct {
		v, w, want int
	}{
		{0, 4, 0}, {3, 4, 3}, {4, 4, 0}, {5, 4, 1}, {-1, 4, 3}, {-4, 4, 0}, {-5, 4, 3},
	} {
		if got := wrap(tc.v, tc.w); got != tc.want {
			t.Errorf("wrap(%d, %d) = %d, want %d", tc.v, tc.w, got, tc.want)
		}
	}
}
