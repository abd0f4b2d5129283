// Package zone partitions a target interval into contiguous integer zones,
// one per output slot, with an optional deadzone carved from the trailing edge
// of every zone but the last.
package zone

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument reports a partition request that cannot produce
// meaningful zones.
var ErrInvalidArgument = errors.New("invalid argument")

// Zone is the half-open integer range [Left, Right).
type Zone struct {
	Left  int
	Right int
}

// Len returns the number of integer points in the zone.
func (z Zone) Len() int {
	if z.Right <= z.Left {
		return 0
	}
	return z.Right - z.Left
}

// Empty reports whether the deadzone consumed the whole zone.
func (z Zone) Empty() bool {
	return z.Len() == 0
}

// Contains reports whether point p falls inside the zone.
func (z Zone) Contains(p int) bool {
	return p >= z.Left && p < z.Right
}

func (z Zone) String() string {
	return fmt.Sprintf("[%d,%d)", z.Left, z.Right)
}

// Linspace returns num evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, num int) []float64 {
	if num <= 0 {
		return nil
	}
	if num == 1 {
		return []float64{start}
	}
	delta := (stop - start) / float64(num-1)
	out := make([]float64, num)
	for i := range out {
		out[i] = start + delta*float64(i)
	}
	return out
}

// Partition splits [start, stop] into count zones. Zone i spans
// [floor(bp[i]), floor(bp[i+1]-gap)) where bp are count+1 evenly spaced
// breakpoints and gap is deadzonePercent of the first interval width.
// The final zone has no gap and includes floor(stop).
func Partition(start, stop float64, count int, deadzonePercent float64) ([]Zone, error) {
	if count < 2 {
		return nil, fmt.Errorf("zone: count %d: need at least 2 zones: %w", count, ErrInvalidArgument)
	}
	if math.IsNaN(deadzonePercent) || math.IsInf(deadzonePercent, 0) || deadzonePercent < 0 || deadzonePercent >= 100 {
		return nil, fmt.Errorf("zone: deadzone %v%% outside [0,100): %w", deadzonePercent, ErrInvalidArgument)
	}
	if !(stop > start) {
		return nil, fmt.Errorf("zone: empty interval [%v,%v]: %w", start, stop, ErrInvalidArgument)
	}

	bp := Linspace(start, stop, count+1)
	gap := (bp[1] - bp[0]) * (deadzonePercent / 100)

	zones := make([]Zone, 0, count)
	for i := 0; i < count-1; i++ {
		left := int(math.Floor(bp[i]))
		right := int(math.Floor(bp[i+1] - gap))
		if right < left {
			right = left
		}
		zones = append(zones, Zone{Left: left, Right: right})
	}
	last := Zone{
		Left:  int(math.Floor(bp[count-1])),
		Right: int(math.Floor(bp[count])) + 1,
	}
	zones = append(zones, last)
	return zones, nil
}

// Span returns the smallest range covering every zone.
func Span(zones []Zone) Zone {
	if len(zones) == 0 {
		return Zone{}
	}
	span := zones[0]
	for _, z := range zones[1:] {
		if z.Left < span.Left {
			span.Left = z.Left
		}
		if z.Right > span.Right {
			span.Right = z.Right
		}
	}
	return span
}
