package dial

import (
	"errors"
	"math/rand"
	"slices"
	"testing"
)

func TestDialMapLowMidHighSequence(t *testing.T) {
	d, err := New([]string{"low", "mid", "high"}, Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	steps := []struct {
		raw  float64
		want string
	}{
		{-50, "low"},
		{50, "high"},
		{0, "mid"},
		{25, "high"},
	}
	for _, step := range steps {
		if got := d.Lookup(step.raw); got != step.want {
			t.Fatalf("Lookup(%v): expected %q, got %q", step.raw, step.want, got)
		}
	}
	lo, hi := d.Tracker().Bounds()
	if lo != -50 || hi != 50 {
		t.Fatalf("expected bounds [-50,50], got [%v,%v]", lo, hi)
	}
}

func TestDialMapSeedsFirstOutput(t *testing.T) {
	d, err := New([]string{"first", "second"}, Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if got := d.Current(); got != "first" {
		t.Fatalf("expected seed output %q, got %q", "first", got)
	}
}

func TestDialMapDeadzoneHoldsPreviousOutput(t *testing.T) {
	d, err := New([]string{"a", "b", "c", "d"}, Options{DeadzonePercent: 20})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	steps := []struct {
		raw  float64
		want string
	}{
		{-50, "a"}, // point 0
		{50, "d"},  // point 100
		{0, "c"},   // point 50
		{-27, "c"}, // point 23, gap after zone a
		{-20, "b"}, // point 30
		{22, "b"},  // point 72, gap after zone c
		{26, "d"},  // point 76
	}
	for _, step := range steps {
		if got := d.Lookup(step.raw); got != step.want {
			t.Fatalf("Lookup(%v): expected %q, got %q", step.raw, step.want, got)
		}
	}
}

func TestDialMapOutputAlwaysCandidate(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for count := 2; count <= 70; count += 17 {
		items := make([]int, count)
		for i := range items {
			items[i] = i * 10
		}
		d, err := New(items, Options{DeadzonePercent: 15})
		if err != nil {
			t.Fatalf("count %d: New() error: %v", count, err)
		}
		for i := 0; i < 500; i++ {
			raw := (rng.Float64() - 0.5) * float64(1+i) * 3
			got := d.Lookup(raw)
			if !slices.Contains(items, got) {
				t.Fatalf("count %d: Lookup(%v) returned non-candidate %d", count, raw, got)
			}
		}
	}
}

func TestDialMapRepeatedLookupIsStable(t *testing.T) {
	d, err := New([]string{"a", "b", "c"}, Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	d.Lookup(-5)
	d.Lookup(5)
	first := d.Lookup(1)
	lo, hi := d.Tracker().Bounds()
	for i := 0; i < 10; i++ {
		if got := d.Lookup(1); got != first {
			t.Fatalf("expected repeated lookup to return %q, got %q", first, got)
		}
		l, h := d.Tracker().Bounds()
		if l != lo || h != hi {
			t.Fatalf("bounds changed from [%v,%v] to [%v,%v]", lo, hi, l, h)
		}
	}
}

func TestDialMapAutosort(t *testing.T) {
	d, err := New([]int{30, 10, 20}, Options{Autosort: true})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if got := d.Items(); !slices.Equal(got, []int{10, 20, 30}) {
		t.Fatalf("expected sorted items, got %v", got)
	}
	if got := d.Current(); got != 10 {
		t.Fatalf("expected seed from sorted items, got %d", got)
	}
	if got := d.Lookup(-1); got != 10 {
		t.Fatalf("expected lowest zone to select 10, got %d", got)
	}
	if got := d.Lookup(1); got != 30 {
		t.Fatalf("expected highest zone to select 30, got %d", got)
	}
}

func TestDialMapAutosortNeedsCompare(t *testing.T) {
	type gear struct{ ratio int }
	_, err := NewFunc([]gear{{1}, {2}}, Options{Autosort: true}, nil)
	if !errors.Is(err, ErrUnordered) {
		t.Fatalf("expected ErrUnordered, got %v", err)
	}
	d, err := NewFunc([]gear{{1}, {2}}, Options{}, nil)
	if err != nil {
		t.Fatalf("NewFunc() without autosort error: %v", err)
	}
	if got := d.Current(); got.ratio != 1 {
		t.Fatalf("expected first gear, got %+v", got)
	}
}

func TestDialMapRejectsTooFewOutputs(t *testing.T) {
	for _, items := range [][]string{nil, {}, {"only"}} {
		d, err := New(items, Options{})
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("items %v: expected ErrInvalidArgument, got %v", items, err)
		}
		if d != nil {
			t.Fatalf("items %v: expected nil map on error", items)
		}
	}
}

func TestDialMapRejectsBadDeadzone(t *testing.T) {
	if _, err := New([]int{1, 2, 3}, Options{DeadzonePercent: 100}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for 100%% deadzone, got %v", err)
	}
}

func TestDialMapDenseTarget(t *testing.T) {
	items := make([]int, 60)
	for i := range items {
		items[i] = i
	}
	start, stop := TargetFor(len(items))
	if start != 0 || stop != 120 {
		t.Fatalf("expected dense target [0,120), got [%v,%v)", start, stop)
	}
	d, err := New(items, Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if got := d.Points(); got != 121 {
		t.Fatalf("expected 121 assigned points, got %d", got)
	}
	if got := d.Lookup(-1); got != 0 {
		t.Fatalf("expected item 0, got %d", got)
	}
	if got := d.Lookup(1); got != 59 {
		t.Fatalf("expected item 59, got %d", got)
	}
	if start, stop := TargetFor(50); start != 0 || stop != 100 {
		t.Fatalf("expected default target for 50 items, got [%v,%v)", start, stop)
	}
}

func TestDialMapObserver(t *testing.T) {
	d, err := New([]string{"a", "b", "c", "d"}, Options{DeadzonePercent: 20})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	var hits, misses int
	var lastPoint int
	d.SetObserver(ObserverFunc(func(points []int, hit bool) {
		lastPoint = points[0]
		if hit {
			hits++
		} else {
			misses++
		}
	}))
	d.Lookup(-50)
	d.Lookup(50)
	d.Lookup(-27)
	if hits != 2 || misses != 1 {
		t.Fatalf("expected 2 hits and 1 miss, got %d/%d", hits, misses)
	}
	if lastPoint != 23 {
		t.Fatalf("expected last point 23, got %d", lastPoint)
	}
	d.SetObserver(nil)
	d.Lookup(0)
	if hits != 2 {
		t.Fatalf("expected observer removal to stop callbacks")
	}
}

func TestObserversSkipsNil(t *testing.T) {
	if Observers(nil, nil) != nil {
		t.Fatalf("expected nil observer when all inputs are nil")
	}
	calls := 0
	count := ObserverFunc(func([]int, bool) { calls++ })
	Observers(count, nil, count).ObserveLookup([]int{1}, true)
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestDialMapNearFullDeadzoneLeavesOnlyLastZone(t *testing.T) {
	d, err := New([]string{"a", "b", "c", "d"}, Options{DeadzonePercent: 99.9})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	// Every inner zone is consumed; the last zone keeps [75,101).
	if got := d.Points(); got != 26 {
		t.Fatalf("expected 26 assigned points, got %d", got)
	}
	steps := []struct {
		raw  float64
		want string
	}{
		{-50, "a"}, // point 0, inner zone empty: seed held
		{50, "d"},  // point 100
		{-50, "d"}, // point 0 again: held
		{0, "d"},   // point 50: held
		{25, "d"},  // point 75
	}
	for _, step := range steps {
		if got := d.Lookup(step.raw); got != step.want {
			t.Fatalf("Lookup(%v): expected %q, got %q", step.raw, step.want, got)
		}
	}
	if _, err := New([]string{"a", "b"}, Options{DeadzonePercent: -1}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for negative deadzone, got %v", err)
	}
}
