// Package stats tracks per-profile lookup counters for periodic console output.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dialmap/dial"

	"github.com/dustin/go-humanize"
)

// Tracker tracks lookup outcomes by profile.
type Tracker struct {
	// counters live in sync.Map + atomic.Uint64 so per-lookup increments don't fight over a mutex
	hits    sync.Map // string -> *atomic.Uint64
	misses  sync.Map // string -> *atomic.Uint64
	arity   sync.Map // string -> *atomic.Uint64
	invalid sync.Map // string -> *atomic.Uint64
	start   atomic.Int64
}

// NewTracker creates a new stats tracker
func NewTracker() *Tracker {
	t := &Tracker{}
	t.start.Store(time.Now().UnixNano())
	return t
}

// IncrementHit counts a lookup whose point landed in a zone.
func (t *Tracker) IncrementHit(profile string) {
	incrementCounter(&t.hits, profile)
}

// IncrementMiss counts a lookup that kept the previous output.
func (t *Tracker) IncrementMiss(profile string) {
	incrementCounter(&t.misses, profile)
}

// IncrementArity counts a multi-axis lookup rejected for its reading count.
func (t *Tracker) IncrementArity(profile string) {
	incrementCounter(&t.arity, profile)
}

// IncrementInvalid counts an input line that did not parse as finite readings.
func (t *Tracker) IncrementInvalid(profile string) {
	incrementCounter(&t.invalid, profile)
}

// Hits returns a copy of hit counts by profile.
func (t *Tracker) Hits() map[string]uint64 {
	return snapshot(&t.hits)
}

// Misses returns a copy of miss counts by profile.
func (t *Tracker) Misses() map[string]uint64 {
	return snapshot(&t.misses)
}

// ArityErrors returns a copy of arity error counts by profile.
func (t *Tracker) ArityErrors() map[string]uint64 {
	return snapshot(&t.arity)
}

// InvalidInputs returns a copy of unparsable line counts by profile.
func (t *Tracker) InvalidInputs() map[string]uint64 {
	return snapshot(&t.invalid)
}

// GetTotal returns hits plus misses across all profiles.
func (t *Tracker) GetTotal() uint64 {
	var total uint64
	for _, m := range []*sync.Map{&t.hits, &t.misses} {
		m.Range(func(_, value any) bool {
			total += value.(*atomic.Uint64).Load()
			return true
		})
	}
	return total
}

// GetUptime returns how long the tracker has been running
func (t *Tracker) GetUptime() time.Duration {
	start := t.start.Load()
	return time.Since(time.Unix(0, start))
}

// Reset resets all counters
func (t *Tracker) Reset() {
	for _, m := range []*sync.Map{&t.hits, &t.misses, &t.arity, &t.invalid} {
		m.Range(func(key, _ any) bool {
			m.Delete(key)
			return true
		})
	}
	t.start.Store(time.Now().UnixNano())
}

// SnapshotLines returns human-readable stats ready for console display.
func (t *Tracker) SnapshotLines() []string {
	lines := make([]string, 0, 5)
	lines = append(lines, formatMapCounts("Hits by profile", &t.hits))
	lines = append(lines, formatMapCounts("Misses by profile", &t.misses))
	lines = append(lines, formatMapCounts("Arity errors by profile", &t.arity))
	lines = append(lines, formatMapCounts("Invalid inputs by profile", &t.invalid))
	lines = append(lines, fmt.Sprintf("Lookups: %s in %s", humanize.Comma(int64(t.GetTotal())), t.GetUptime().Round(time.Millisecond)))
	return lines
}

// ProfileObserver returns a dial.Observer that counts lookups under profile.
func (t *Tracker) ProfileObserver(profile string) dial.Observer {
	return dial.ObserverFunc(func(_ []int, hit bool) {
		if hit {
			t.IncrementHit(profile)
			return
		}
		t.IncrementMiss(profile)
	})
}

func snapshot(m *sync.Map) map[string]uint64 {
	counts := make(map[string]uint64)
	m.Range(func(key, value any) bool {
		counts[key.(string)] = value.(*atomic.Uint64).Load()
		return true
	})
	return counts
}

func formatMapCounts(label string, counts *sync.Map) string {
	values := snapshot(counts)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(label)
	builder.WriteString(": ")
	for i, k := range keys {
		if i > 0 {
			builder.WriteString(", ")
		}
		fmt.Fprintf(&builder, "%s=%s", k, humanize.Comma(int64(values[k])))
	}
	if len(keys) == 0 {
		builder.WriteString("(none)")
	}
	return builder.String()
}

func incrementCounter(m *sync.Map, key string) {
	if strings.TrimSpace(key) == "" {
		return
	}
	if value, ok := m.Load(key); ok {
		value.(*atomic.Uint64).Add(1)
		return
	}
	counter := &atomic.Uint64{}
	actual, loaded := m.LoadOrStore(key, counter)
	if loaded {
		actual.(*atomic.Uint64).Add(1)
		return
	}
	counter.Add(1)
}
