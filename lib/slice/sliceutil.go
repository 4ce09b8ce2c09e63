package sliceutil

func Map[From any, To any](v []From, f func(From) To) []To {
	out := make([]To, len(v))
	for idx := 0; idx < len(v); idx++ {
		out[idx] = f(v[idx])
	}
	return out
}

// Count returns how many elements of v satisfy f.
func Count[T any](v []T, f func(T) bool) int {
	n := 0
	for _, e := range v {
		if f(e) {
			n++
		}
	}
	return n
}
