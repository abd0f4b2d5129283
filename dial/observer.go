package dial

// Observer is told about every completed lookup. points holds the dial point
// computed for each axis and is only valid for the duration of the call.
type Observer interface {
	ObserveLookup(points []int, hit bool)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(points []int, hit bool)

func (f ObserverFunc) ObserveLookup(points []int, hit bool) {
	f(points, hit)
}

// Observers fans a lookup out to several observers, skipping nils.
func Observers(list ...Observer) Observer {
	kept := make([]Observer, 0, len(list))
	for _, o := range list {
		if o != nil {
			kept = append(kept, o)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return ObserverFunc(func(points []int, hit bool) {
		for _, o := range kept {
			o.ObserveLookup(points, hit)
		}
	})
}
