package pipeline

import "fmt"

// Partition splits items into parts contiguous slices. With L items, the
// first L%parts slices hold L/parts+1 items and the rest hold L/parts, so
// sizes never differ by more than one and the slices concatenate back to
// items. When L < parts the trailing slices are empty. The returned slices
// share items' backing array but cannot append into each other.
//
// Partition panics if parts is less than one.
func Partition[T any](items []T, parts int) [][]T {
	if parts < 1 {
		panic(fmt.Sprintf("pipeline: Partition called with %d parts", parts))
	}

	q, r := len(items)/parts, len(items)%parts
	out := make([][]T, parts)
	for i := range parts {
		start := i*q + min(i, r)
		end := (i+1)*q + min(i+1, r)
		out[i] = items[start:end:end]
	}
	return out
}
