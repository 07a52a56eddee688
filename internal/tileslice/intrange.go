package tileslice

import "sort"

// IntRange is a set of integers represented as a sorted, coalesced
// list of inclusive [lo, hi] intervals. It backs both the filled-range
// ledger (per-column sets of filled tile rows) and the cell clipper's
// per-edge filled runs.
type IntRange struct {
	intervals [][2]int
}

// NewIntRange returns an empty IntRange.
func NewIntRange() *IntRange {
	return &IntRange{}
}

// NewIntRangeOf returns an IntRange containing exactly [lo, hi].
func NewIntRangeOf(lo, hi int) *IntRange {
	r := NewIntRange()
	r.Add(lo, hi)
	return r
}

// Clone returns an independent copy.
func (r *IntRange) Clone() *IntRange {
	out := &IntRange{intervals: make([][2]int, len(r.intervals))}
	copy(out.intervals, r.intervals)
	return out
}

// IsEmpty reports whether the set contains no integers.
func (r *IntRange) IsEmpty() bool {
	return r == nil || len(r.intervals) == 0
}

// Add unions the inclusive interval [lo, hi] into the set.
func (r *IntRange) Add(lo, hi int) {
	if lo > hi {
		return
	}
	r.intervals = normalize(append(r.intervals, [2]int{lo, hi}))
}

// AddAll unions every interval of other into the set.
func (r *IntRange) AddAll(other *IntRange) {
	if other.IsEmpty() {
		return
	}
	r.intervals = normalize(append(r.intervals, other.intervals...))
}

// RemoveAll subtracts every interval of other from the set.
func (r *IntRange) RemoveAll(other *IntRange) {
	if other.IsEmpty() || r.IsEmpty() {
		return
	}
	r.intervals = subtractIntervals(r.intervals, other.intervals)
}

// Intersect returns a new set containing only the integers present in
// both r and other.
func (r *IntRange) Intersect(other *IntRange) *IntRange {
	return &IntRange{intervals: intersectIntervals(r.intervals, other.intervals)}
}

// Contains reports whether i is a member of the set.
func (r *IntRange) Contains(i int) bool {
	intervals := r.intervals
	lo, hi := 0, len(intervals)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if i < intervals[mid][0] {
			hi = mid - 1
		} else if i > intervals[mid][1] {
			lo = mid + 1
		} else {
			return true
		}
	}
	return false
}

// Ranges returns the set's inclusive [lo, hi] intervals in ascending,
// non-overlapping order. The caller must not mutate the result.
func (r *IntRange) Ranges() [][2]int {
	return r.intervals
}

// Values expands the set to individual integers. Only used for
// per-tile iteration in FilledTiles; prefer Ranges for anything
// performance sensitive.
func (r *IntRange) Values() []int {
	var out []int
	for _, iv := range r.intervals {
		for v := iv[0]; v <= iv[1]; v++ {
			out = append(out, v)
		}
	}
	return out
}

// normalize sorts intervals by lower bound and merges any that overlap
// or touch (hi+1 == nextLo), since this is a set of integers rather
// than a continuous range.
func normalize(intervals [][2]int) [][2]int {
	if len(intervals) == 0 {
		return intervals
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i][0] < intervals[j][0] })
	out := intervals[:1]
	for _, iv := range intervals[1:] {
		last := &out[len(out)-1]
		if iv[0] <= last[1]+1 {
			if iv[1] > last[1] {
				last[1] = iv[1]
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

func intersectIntervals(a, b [][2]int) [][2]int {
	var out [][2]int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := max(a[i][0], b[j][0])
		hi := min(a[i][1], b[j][1])
		if lo <= hi {
			out = append(out, [2]int{lo, hi})
		}
		if a[i][1] < b[j][1] {
			i++
		} else {
			j++
		}
	}
	return out
}

// subtractIntervals returns a minus b, with both already sorted and
// coalesced.
func subtractIntervals(a, b [][2]int) [][2]int {
	var out [][2]int
	j := 0
	for _, ai := range a {
		lo, hi := ai[0], ai[1]
		for j < len(b) && b[j][1] < lo {
			j++
		}
		cut := lo
		k := j
		for k < len(b) && b[k][0] <= hi {
			bLo, bHi := b[k][0], b[k][1]
			if bLo > cut {
				out = append(out, [2]int{cut, bLo - 1})
			}
			if bHi+1 > cut {
				cut = bHi + 1
			}
			if bHi > hi {
				break
			}
			k++
		}
		if cut <= hi {
			out = append(out, [2]int{cut, hi})
		}
		j = k
	}
	return out
}
