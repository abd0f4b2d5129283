// Package dial turns raw readings from uncalibrated inputs into discrete
// output selections. A DialMap handles one axis; a MultiDialMap combines
// several independent axes into one table of output rows.
//
// Both keep the last selected output and return it whenever the current
// reading lands in a deadzone or outside every zone, so outputs do not
// flicker near zone edges. Neither type is safe for concurrent use.
package dial

import (
	"errors"
	"fmt"
	"slices"

	"dialmap/zone"
)

var (
	// ErrInvalidArgument is returned when a map is built from fewer than two
	// outputs, from ragged rows, or with an unusable deadzone.
	ErrInvalidArgument = zone.ErrInvalidArgument
	// ErrArity is returned when a multi-axis lookup receives the wrong number
	// of readings.
	ErrArity = errors.New("reading count does not match axis count")
	// ErrUnordered is returned when Autosort is requested without a compare
	// function.
	ErrUnordered = errors.New("autosort requires a compare function")
)

// Options tunes map construction.
type Options struct {
	// DeadzonePercent is the share of each zone, in [0,100), removed from its
	// trailing edge.
	DeadzonePercent float64
	// Autosort orders the outputs before zones are assigned.
	Autosort bool
}

const (
	defaultTargetStop = 100
	denseItemCount    = 50
)

// TargetFor returns the normalized interval used for count outputs. Large
// output lists get two points per zone instead of sharing a fixed 100-point
// grid.
func TargetFor(count int) (start, stop float64) {
	if count > denseItemCount {
		return 0, float64(2 * count)
	}
	return 0, defaultTargetStop
}

func orderedCopy[T any](values []T, opts Options, compare func(a, b T) int) ([]T, error) {
	out := slices.Clone(values)
	if !opts.Autosort {
		return out, nil
	}
	if compare == nil {
		return nil, fmt.Errorf("dial: %w", ErrUnordered)
	}
	slices.SortStableFunc(out, compare)
	return out, nil
}
