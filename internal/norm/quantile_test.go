package norm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertti/countnorm/internal/exprs"
)

// quantileMatrix is the hand-computed example: three samples over four
// genes with one tie in S2.
func quantileMatrix(t *testing.T) *exprs.Matrix {
	return mustMatrix(t,
		[]string{"S1", "S2", "S3"},
		[]string{"A", "B", "C", "D"},
		[][]float64{
			{5, 2, 3, 4},
			{4, 1, 4, 2},
			{3, 4, 6, 8},
		},
	)
}

func TestQuantile_Reference(t *testing.T) {
	t.Parallel()

	st, err := Quantile{}.Fit(quantileMatrix(t))
	require.NoError(t, err)

	ref, err := Quantile{}.Reference(st)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 3, 14.0 / 3, 17.0 / 3}, ref, 1e-12)
}

func TestQuantile_TransformTrainingMatrix(t *testing.T) {
	t.Parallel()

	m := quantileMatrix(t)
	q := Quantile{}

	st, err := q.Fit(m)
	require.NoError(t, err)
	out, err := q.Transform(st, m)
	require.NoError(t, err)

	want := [][]float64{
		{17.0 / 3, 2, 3, 14.0 / 3},
		// The tied 4s in S2 share rank 2.5 and land halfway between the
		// reference values at ranks 2 and 3.
		{31.0 / 6, 2, 31.0 / 6, 3},
		{2, 3, 14.0 / 3, 17.0 / 3},
	}
	for i := range want {
		assert.InDeltaSlice(t, want[i], out.Data[i], 1e-12)
	}
}

func TestQuantile_Idempotent(t *testing.T) {
	t.Parallel()

	m := quantileMatrix(t)
	q := Quantile{}

	st, err := q.Fit(m)
	require.NoError(t, err)
	once, err := q.Transform(st, m)
	require.NoError(t, err)
	twice, err := q.Transform(st, once)
	require.NoError(t, err)

	for i := range once.Data {
		assert.InDeltaSlice(t, once.Data[i], twice.Data[i], 1e-12)
	}
}

func TestQuantile_TransformNewSample(t *testing.T) {
	t.Parallel()

	q := Quantile{}
	st, err := q.Fit(quantileMatrix(t))
	require.NoError(t, err)

	fresh := mustMatrix(t,
		[]string{"S9"},
		[]string{"A", "B", "C", "D"},
		[][]float64{{10, 40, 20, 30}},
	)
	out, err := q.Transform(st, fresh)
	require.NoError(t, err)

	// Ranks 1..4 map straight onto the reference distribution.
	assert.InDeltaSlice(t, []float64{2, 17.0 / 3, 3, 14.0 / 3}, out.Data[0], 1e-12)
}

func TestQuantile_RefitReplacesReference(t *testing.T) {
	t.Parallel()

	m := quantileMatrix(t)
	q := Quantile{}

	st1, err := q.Fit(m)
	require.NoError(t, err)

	doubled := m.Clone()
	for _, row := range doubled.Data {
		for j := range row {
			row[j] *= 2
		}
	}
	st2, err := q.Fit(doubled)
	require.NoError(t, err)

	ref1, err := q.Reference(st1)
	require.NoError(t, err)
	ref2, err := q.Reference(st2)
	require.NoError(t, err)

	for r := range ref1 {
		assert.InDelta(t, 2*ref1[r], ref2[r], 1e-12)
	}

	// The earlier state is untouched by the refit.
	again, err := q.Reference(st1)
	require.NoError(t, err)
	assert.Equal(t, ref1, again)
}

func TestQuantile_TransformBeforeFit(t *testing.T) {
	t.Parallel()

	m := quantileMatrix(t)

	_, err := Quantile{}.Transform(nil, m)
	assert.ErrorIs(t, err, ErrState)

	_, err = Quantile{}.Transform(Stateless, m)
	assert.ErrorIs(t, err, ErrState)
}

func TestQuantile_GeneSetMismatch(t *testing.T) {
	t.Parallel()

	q := Quantile{}
	st, err := q.Fit(quantileMatrix(t))
	require.NoError(t, err)

	tests := []struct {
		name  string
		genes []string
	}{
		{name: "different genes", genes: []string{"W", "X", "Y", "Z"}},
		{name: "reordered genes", genes: []string{"B", "A", "C", "D"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := mustMatrix(t, []string{"S1"}, tt.genes, [][]float64{{1, 2, 3, 4}})
			_, err := q.Transform(st, m)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	short := mustMatrix(t, []string{"S1"}, []string{"A", "B"}, [][]float64{{1, 2}})
	_, err = q.Transform(st, short)
	assert.ErrorIs(t, err, ErrValidation)
}
