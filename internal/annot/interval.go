// Package annot computes gene lengths from genome annotation using the
// union-of-exons model.
package annot

import "sort"

// Interval is a 1-based inclusive genomic interval.
type Interval struct {
	Start int64
	End   int64
}

// Len returns the number of positions the interval covers.
func (iv Interval) Len() int64 { return iv.End - iv.Start + 1 }

// Union merges overlapping and adjacent intervals and returns the minimal
// covering set together with the total number of covered positions. The
// input slice is not modified.
func Union(ivs []Interval) ([]Interval, int64) {
	if len(ivs) == 0 {
		return nil, 0
	}

	sorted := append([]Interval(nil), ivs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := sorted[:1]
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		// Intervals abutting at a single base coalesce too: [1,4] and
		// [5,9] cover a contiguous run.
		if iv.Start <= last.End+1 {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}

	var total int64
	for _, iv := range merged {
		total += iv.Len()
	}
	return merged, total
}
