// Package quantize holds the immutable point table that assigns every integer
// dial point inside a zone to that zone's output item. Points inside a
// deadzone, or outside every zone, have no entry.
package quantize

import (
	"fmt"

	"dialmap/zone"
)

type cell[T any] struct {
	item T
	ok   bool
}

// Map is a dense table indexed by dial point. The normalized range is small
// and bounded, so a slice offset by the lowest zone edge replaces a hash map.
type Map[T any] struct {
	offset   int
	cells    []cell[T]
	assigned int
}

// Build assigns items[i] to every point of zones[i].
func Build[T any](zones []zone.Zone, items []T) (*Map[T], error) {
	if len(zones) != len(items) {
		return nil, fmt.Errorf("quantize: %d zones for %d items: %w", len(zones), len(items), zone.ErrInvalidArgument)
	}
	span := zone.Span(zones)
	m := &Map[T]{
		offset: span.Left,
		cells:  make([]cell[T], span.Len()),
	}
	for i, z := range zones {
		for p := z.Left; p < z.Right; p++ {
			c := &m.cells[p-m.offset]
			if !c.ok {
				m.assigned++
			}
			c.item = items[i]
			c.ok = true
		}
	}
	return m, nil
}

// Lookup returns the item assigned to point, if any.
func (m *Map[T]) Lookup(point int) (T, bool) {
	var zero T
	if m == nil {
		return zero, false
	}
	idx := point - m.offset
	if idx < 0 || idx >= len(m.cells) {
		return zero, false
	}
	c := m.cells[idx]
	if !c.ok {
		return zero, false
	}
	return c.item, true
}

// Len returns the number of assigned points.
func (m *Map[T]) Len() int {
	if m == nil {
		return 0
	}
	return m.assigned
}

// Range calls fn for every assigned point in ascending order until fn
// returns false.
func (m *Map[T]) Range(fn func(point int, item T) bool) {
	if m == nil || fn == nil {
		return
	}
	for i, c := range m.cells {
		if !c.ok {
			continue
		}
		if !fn(i+m.offset, c.item) {
			return
		}
	}
}
