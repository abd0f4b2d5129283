package dial

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"dialmap/quantize"
	"dialmap/tracker"
	"dialmap/zone"

	"github.com/zeebo/xxh3"
)

// Reading is one axis input to a multi-axis lookup. An unset reading reuses
// the axis value from the last successful lookup.
type Reading struct {
	Value float64
	Set   bool
}

// At returns a reading carrying v.
func At(v float64) Reading {
	return Reading{Value: v, Set: true}
}

// Hold returns the reading that keeps the axis at its last accepted value.
func Hold() Reading {
	return Reading{}
}

// Readings wraps plain values as set readings.
func Readings(values ...float64) []Reading {
	out := make([]Reading, len(values))
	for i, v := range values {
		out[i] = At(v)
	}
	return out
}

type axis struct {
	tracker *tracker.Tracker
	// groups sends each dial point to the id of the distinct axis value its
	// zone carries.
	groups *quantize.Map[uint32]
}

type combo struct {
	groups []uint32
	row    int
}

// MultiDialMap selects one row of output values from N independent axes.
//
// Each axis is quantized over its own column of the rows. A point tuple
// selects row r when, on every axis, the point's zone carries a value equal
// to r's value on that axis; among several such rows the last one wins.
// Value equality is resolved once at construction into per-axis group ids so
// lookups only hash a tuple of ids. Values must be comparable at run time
// even when T is an interface type.
type MultiDialMap[T comparable] struct {
	rows     [][]T
	axes     []axis
	combos   map[uint64][]combo
	instore  []float64
	outstore []T
	observer Observer

	scratch []uint32
	keyBuf  []byte
}

// NewMulti builds a MultiDialMap over ordered values; Autosort uses
// cmp.Compare on each axis.
func NewMulti[T cmp.Ordered](rows [][]T, opts Options) (*MultiDialMap[T], error) {
	return NewMultiFunc(rows, opts, cmp.Compare[T])
}

// NewMultiFunc builds a MultiDialMap over any comparable values. compare is
// only consulted when opts.Autosort is set.
func NewMultiFunc[T comparable](rows [][]T, opts Options, compare func(a, b T) int) (*MultiDialMap[T], error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("dial: %d rows: need at least 2: %w", len(rows), ErrInvalidArgument)
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("dial: rows have no axes: %w", ErrInvalidArgument)
	}
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("dial: row %d has %d values, expected %d: %w", i, len(row), width, ErrInvalidArgument)
		}
	}

	count := len(rows)
	start, stop := TargetFor(count)
	zones, err := zone.Partition(start, stop, count, opts.DeadzonePercent)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	m := &MultiDialMap[T]{
		rows:    make([][]T, count),
		axes:    make([]axis, width),
		combos:  make(map[uint64][]combo, count),
		instore: make([]float64, width),
		scratch: make([]uint32, width),
		keyBuf:  make([]byte, 4*width),
	}
	rowGroups := make([][]uint32, count)
	for r, row := range rows {
		m.rows[r] = slices.Clone(row)
		rowGroups[r] = make([]uint32, width)
	}

	column := make([]T, count)
	for j := 0; j < width; j++ {
		for r, row := range rows {
			column[r] = row[j]
		}
		values, err := orderedCopy(column, opts, compare)
		if err != nil {
			return nil, err
		}
		ids := make(map[T]uint32, count)
		slotGroups := make([]uint32, count)
		for i, v := range values {
			id, ok := ids[v]
			if !ok {
				id = uint32(len(ids))
				ids[v] = id
			}
			slotGroups[i] = id
		}
		groups, err := quantize.Build(zones, slotGroups)
		if err != nil {
			return nil, fmt.Errorf("dial: axis %d: %w", j, err)
		}
		m.axes[j] = axis{tracker: tracker.New(start, stop), groups: groups}
		for r, row := range rows {
			rowGroups[r][j] = ids[row[j]]
		}
	}

	for r, groups := range rowGroups {
		m.assign(groups, r)
	}
	m.outstore = slices.Clone(m.rows[0])
	return m, nil
}

// assign maps a group tuple to row, replacing any earlier row.
func (m *MultiDialMap[T]) assign(groups []uint32, row int) {
	key := m.hashGroups(groups)
	bucket := m.combos[key]
	for i := range bucket {
		if slices.Equal(bucket[i].groups, groups) {
			bucket[i].row = row
			return
		}
	}
	m.combos[key] = append(bucket, combo{groups: groups, row: row})
}

func (m *MultiDialMap[T]) find(groups []uint32) (int, bool) {
	for _, c := range m.combos[m.hashGroups(groups)] {
		if slices.Equal(c.groups, groups) {
			return c.row, true
		}
	}
	return 0, false
}

func (m *MultiDialMap[T]) hashGroups(groups []uint32) uint64 {
	for i, g := range groups {
		binary.LittleEndian.PutUint32(m.keyBuf[i*4:], g)
	}
	return xxh3.Hash(m.keyBuf[:4*len(groups)])
}

// Lookup reads every axis and returns the selected row. Unset readings reuse
// the axis value from the last successful lookup. On a miss on any axis both
// the selected row and the remembered axis values stay as they were.
// A reading count different from the axis count fails with ErrArity without
// touching any state.
func (m *MultiDialMap[T]) Lookup(inputs []Reading) ([]T, error) {
	if len(inputs) != len(m.axes) {
		return nil, fmt.Errorf("dial: %d readings for %d axes: %w", len(inputs), len(m.axes), ErrArity)
	}
	adjusted := make([]float64, len(m.axes))
	points := make([]int, len(m.axes))
	hit := true
	for j := range m.axes {
		ax := &m.axes[j]
		v := m.instore[j]
		if inputs[j].Set {
			v = inputs[j].Value
		}
		adjusted[j] = v
		points[j] = int(math.Floor(ax.tracker.Normalize(v)))
		g, ok := ax.groups.Lookup(points[j])
		if !ok {
			hit = false
			continue
		}
		m.scratch[j] = g
	}
	if hit {
		row, ok := m.find(m.scratch)
		if ok {
			m.outstore = slices.Clone(m.rows[row])
			copy(m.instore, adjusted)
		} else {
			hit = false
		}
	}
	if m.observer != nil {
		m.observer.ObserveLookup(points, hit)
	}
	return slices.Clone(m.outstore), nil
}

// Current returns the last selected row.
func (m *MultiDialMap[T]) Current() []T {
	return slices.Clone(m.outstore)
}

// Held returns the axis values accepted by the last successful lookup.
func (m *MultiDialMap[T]) Held() []float64 {
	return slices.Clone(m.instore)
}

// Axes returns the number of axes.
func (m *MultiDialMap[T]) Axes() int {
	return len(m.axes)
}

// Rows returns the number of output rows.
func (m *MultiDialMap[T]) Rows() int {
	return len(m.rows)
}

// Tracker exposes the calibration of axis j.
func (m *MultiDialMap[T]) Tracker(j int) *tracker.Tracker {
	return m.axes[j].tracker
}

// SetObserver installs o for subsequent lookups; nil removes it.
func (m *MultiDialMap[T]) SetObserver(o Observer) {
	m.observer = o
}
