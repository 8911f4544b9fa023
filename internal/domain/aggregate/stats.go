package aggregate

import (
	"math"
	"sort"
)

// Percentile returns the nearest-rank p-th percentile of the finite values:
// sorted ascending, index ceil(p/100*n)-1 clamped to [0, n-1]. It is unknown
// when there are no finite values.
func Percentile(values []float64, p float64) Value {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	n := len(finite)
	if n == 0 {
		return Value{}
	}
	sort.Float64s(finite)
	idx := int(math.Ceil(p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return Of(finite[idx])
}

// Jaccard returns |A∩B| / |A∪B| over the distinct elements of a and b. Two
// empty sets are identical.
func Jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[s] = struct{}{}
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	inter := 0
	for s := range setA {
		if _, ok := setB[s]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(setA)+len(setB)-inter)
}

func firstK(ids []string, k int) []string {
	if k > 0 && len(ids) > k {
		return ids[:k]
	}
	return ids
}
