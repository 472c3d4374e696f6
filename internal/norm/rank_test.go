package norm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantileR7(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    []float64
		p    float64
		want float64
	}{
		{
			name: "exact order statistic",
			v:    []float64{200, 300, 500, 2000, 7000},
			p:    0.75,
			want: 2000,
		},
		{
			name: "interpolated",
			v:    []float64{1, 2, 3, 4},
			p:    0.75,
			want: 3.25,
		},
		{
			name: "median of even length",
			v:    []float64{1, 2, 3, 4},
			p:    0.5,
			want: 2.5,
		},
		{
			name: "p=1 is the maximum",
			v:    []float64{5, 1, 9},
			p:    1,
			want: 9,
		},
		{
			name: "unsorted input",
			v:    []float64{7000, 200, 2000, 500, 300},
			p:    0.75,
			want: 2000,
		},
		{
			name: "single value",
			v:    []float64{42},
			p:    0.75,
			want: 42,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := append([]float64(nil), tt.v...)
			assert.InDelta(t, tt.want, quantileR7(v, tt.p), 1e-12)
		})
	}
}

func TestRanks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{
			name: "distinct values",
			in:   []float64{5, 2, 3, 4},
			want: []float64{4, 1, 2, 3},
		},
		{
			name: "tie gets mean rank",
			in:   []float64{4, 1, 4, 2},
			want: []float64{3.5, 1, 3.5, 2},
		},
		{
			name: "all equal",
			in:   []float64{7, 7, 7},
			want: []float64{2, 2, 2},
		},
		{
			name: "empty",
			in:   nil,
			want: []float64{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ranks(tt.in)
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestInterpolate(t *testing.T) {
	t.Parallel()

	ref := []float64{2, 3, 4.5, 6}

	assert.InDelta(t, 2.0, interpolate(ref, 0), 1e-12)
	assert.InDelta(t, 3.75, interpolate(ref, 1.5), 1e-12)
	assert.InDelta(t, 6.0, interpolate(ref, 3), 1e-12)
	assert.InDelta(t, 2.0, interpolate(ref, -0.5), 1e-12, "clamped below")
	assert.InDelta(t, 6.0, interpolate(ref, 9), 1e-12, "clamped above")
}
