package dial

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"dialmap/quantize"
	"dialmap/tracker"
	"dialmap/zone"
)

// DialMap selects one of a fixed list of outputs from a single raw axis.
type DialMap[T comparable] struct {
	items    []T
	tracker  *tracker.Tracker
	table    *quantize.Map[T]
	store    T
	observer Observer
}

// New builds a DialMap over ordered outputs; Autosort uses cmp.Compare.
func New[T cmp.Ordered](items []T, opts Options) (*DialMap[T], error) {
	return NewFunc(items, opts, cmp.Compare[T])
}

// NewFunc builds a DialMap over any comparable outputs. compare is only
// consulted when opts.Autosort is set and may be nil otherwise.
func NewFunc[T comparable](items []T, opts Options, compare func(a, b T) int) (*DialMap[T], error) {
	if len(items) < 2 {
		return nil, fmt.Errorf("dial: %d outputs: need at least 2: %w", len(items), ErrInvalidArgument)
	}
	ordered, err := orderedCopy(items, opts, compare)
	if err != nil {
		return nil, err
	}
	start, stop := TargetFor(len(ordered))
	zones, err := zone.Partition(start, stop, len(ordered), opts.DeadzonePercent)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	table, err := quantize.Build(zones, ordered)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &DialMap[T]{
		items:   ordered,
		tracker: tracker.New(start, stop),
		table:   table,
		store:   ordered[0],
	}, nil
}

// Lookup normalizes raw into a dial point and returns the output assigned to
// it. When the point has no output the previous selection is returned
// unchanged; before the first hit that is the first output.
func (d *DialMap[T]) Lookup(raw float64) T {
	point := int(math.Floor(d.tracker.Normalize(raw)))
	item, hit := d.table.Lookup(point)
	if hit {
		d.store = item
	}
	if d.observer != nil {
		pts := [1]int{point}
		d.observer.ObserveLookup(pts[:], hit)
	}
	return d.store
}

// Current returns the last selected output without reading the axis.
func (d *DialMap[T]) Current() T {
	return d.store
}

// Items returns the outputs in zone order.
func (d *DialMap[T]) Items() []T {
	return slices.Clone(d.items)
}

// Tracker exposes the axis calibration.
func (d *DialMap[T]) Tracker() *tracker.Tracker {
	return d.tracker
}

// Points returns the number of dial points that select an output.
func (d *DialMap[T]) Points() int {
	return d.table.Len()
}

// SetObserver installs o for subsequent lookups; nil removes it.
func (d *DialMap[T]) SetObserver(o Observer) {
	d.observer = o
}
