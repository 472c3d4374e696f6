package norm

import (
	"math"
	"sort"
)

// quantileR7 returns the p-th quantile of v by the R-7 method (linear
// interpolation between order statistics, the R default). v is sorted in
// place. The interpolation rule is pinned here rather than delegated to a
// statistics library so that factor computations cannot drift with a
// dependency default.
func quantileR7(v []float64, p float64) float64 {
	sort.Float64s(v)
	if p >= 1 {
		return v[len(v)-1]
	}
	h := float64(len(v)-1) * p
	i := int(h)
	frac := h - math.Floor(h)
	if frac == 0 {
		return v[i]
	}
	return v[i] + frac*(v[i+1]-v[i])
}

// ranks returns the 1-based sample ranks of f. Ties receive the mean rank
// of their coequals, so ranks may be half-integers.
func ranks(f []float64) []float64 {
	idx := make([]int, len(f))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return f[idx[a]] < f[idx[b]] })

	r := make([]float64, len(f))
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && f[idx[j]] == f[idx[i]] {
			j++
		}
		// Positions i..j-1 hold equal values; each gets their mean rank.
		mean := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			r[idx[k]] = mean
		}
		i = j
	}
	return r
}

// interpolate evaluates ref at a fractional 0-based position, linearly
// between adjacent elements.
func interpolate(ref []float64, pos float64) float64 {
	if pos <= 0 {
		return ref[0]
	}
	if pos >= float64(len(ref)-1) {
		return ref[len(ref)-1]
	}
	i := int(pos)
	frac := pos - float64(i)
	return ref[i] + frac*(ref[i+1]-ref[i])
}
