// Package tracker rescales raw readings from a sensor whose range is not known
// in advance. The observed extremes widen as readings arrive and every reading
// is mapped linearly into a fixed target interval relative to the extremes
// seen so far.
package tracker

// Tracker is a self-calibrating linear normalizer.
// Invariants: min <= 0 <= max from construction; min never increases and max
// never decreases over the tracker's lifetime.
// Not safe for concurrent use.
type Tracker struct {
	min   float64
	max   float64
	start float64
	width float64
	ratio float64
}

// New returns a tracker that maps readings into [start, stop).
// Both extremes are seeded at zero.
func New(start, stop float64) *Tracker {
	return &Tracker{
		start: start,
		width: stop - start,
	}
}

// Default returns a tracker targeting the unit interval.
func Default() *Tracker {
	return New(0, 1)
}

// Normalize widens the observed range when x is a new extreme and returns x
// rescaled into the target interval. Only one extreme can move per call; ties
// leave the bounds unchanged.
//
// While no extreme has moved off the zero seed the range is degenerate and
// Normalize returns the target start instead of dividing by zero.
func (t *Tracker) Normalize(x float64) float64 {
	t.observe(x)
	return (x-t.min)*t.ratio + t.start
}

func (t *Tracker) observe(x float64) {
	if x < t.min {
		t.min = x
		t.refreshRatio()
	} else if x > t.max {
		t.max = x
		t.refreshRatio()
	}
}

func (t *Tracker) refreshRatio() {
	if t.max == t.min {
		t.ratio = 0
		return
	}
	t.ratio = t.width / (t.max - t.min)
}

// Widen applies previously observed extremes without producing a reading.
// Values that would narrow the range are ignored.
func (t *Tracker) Widen(lo, hi float64) {
	changed := false
	if lo < t.min {
		t.min = lo
		changed = true
	}
	if hi > t.max {
		t.max = hi
		changed = true
	}
	if changed {
		t.refreshRatio()
	}
}

// Bounds returns the observed extremes.
func (t *Tracker) Bounds() (min, max float64) {
	return t.min, t.max
}

// Degenerate reports whether the observed range is still empty.
func (t *Tracker) Degenerate() bool {
	return t.max == t.min
}

// Start returns the lower edge of the target interval.
func (t *Tracker) Start() float64 {
	return t.start
}

// Stop returns the upper edge of the target interval.
func (t *Tracker) Stop() float64 {
	return t.start + t.width
}
