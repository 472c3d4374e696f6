package annot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         []Interval
		wantMerged []Interval
		wantTotal  int64
	}{
		{
			name: "empty",
		},
		{
			name:       "single",
			in:         []Interval{{Start: 5, End: 9}},
			wantMerged: []Interval{{Start: 5, End: 9}},
			wantTotal:  5,
		},
		{
			name:       "overlapping exons merge, not sum",
			in:         []Interval{{Start: 1, End: 10}, {Start: 5, End: 15}},
			wantMerged: []Interval{{Start: 1, End: 15}},
			wantTotal:  15,
		},
		{
			name:       "adjacent intervals coalesce",
			in:         []Interval{{Start: 1, End: 4}, {Start: 5, End: 9}},
			wantMerged: []Interval{{Start: 1, End: 9}},
			wantTotal:  9,
		},
		{
			name:       "disjoint stay apart",
			in:         []Interval{{Start: 1, End: 4}, {Start: 6, End: 9}},
			wantMerged: []Interval{{Start: 1, End: 4}, {Start: 6, End: 9}},
			wantTotal:  8,
		},
		{
			name:       "contained interval absorbed",
			in:         []Interval{{Start: 1, End: 100}, {Start: 20, End: 30}},
			wantMerged: []Interval{{Start: 1, End: 100}},
			wantTotal:  100,
		},
		{
			name: "unsorted input",
			in: []Interval{
				{Start: 50, End: 60},
				{Start: 1, End: 10},
				{Start: 8, End: 20},
			},
			wantMerged: []Interval{{Start: 1, End: 20}, {Start: 50, End: 60}},
			wantTotal:  31,
		},
		{
			name:       "duplicate intervals",
			in:         []Interval{{Start: 3, End: 7}, {Start: 3, End: 7}},
			wantMerged: []Interval{{Start: 3, End: 7}},
			wantTotal:  5,
		},
		{
			name:       "single base",
			in:         []Interval{{Start: 42, End: 42}},
			wantMerged: []Interval{{Start: 42, End: 42}},
			wantTotal:  1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			merged, total := Union(tt.in)
			assert.Equal(t, tt.wantMerged, merged)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestUnion_DoesNotModifyInput(t *testing.T) {
	t.Parallel()

	in := []Interval{{Start: 9, End: 12}, {Start: 1, End: 3}}
	Union(in)
	assert.Equal(t, []Interval{{Start: 9, End: 12}, {Start: 1, End: 3}}, in)
}
