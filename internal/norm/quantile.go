package norm

import (
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vertti/countnorm/internal/exprs"
)

// Quantile is quantile normalization. Fit sorts each training sample and
// averages the sorted values rank-wise into a reference distribution;
// Transform replaces every value with the reference value at its
// average-tie rank, interpolating linearly for fractional ranks. Fit is
// mandatory: transforming with a nil state is an error. Refitting returns a
// fresh state with no residue from earlier fits.
type Quantile struct{}

type quantileState struct {
	genes []string
	ref   []float64 // reference distribution, ascending, one value per rank
}

func (s *quantileState) fitted() string { return "quantile" }

// Reference returns a copy of the fitted reference distribution of st, or
// an error if st was not produced by Quantile.Fit.
func (Quantile) Reference(st State) ([]float64, error) {
	qs, ok := st.(*quantileState)
	if !ok {
		return nil, fmt.Errorf("%w: not a fitted quantile state", ErrState)
	}
	return append([]float64(nil), qs.ref...), nil
}

// Fit builds the reference distribution from the training matrix.
func (Quantile) Fit(train *exprs.Matrix) (State, error) {
	if err := checkInput(train); err != nil {
		return nil, err
	}

	ref := make([]float64, train.NGenes())
	sorted := make([]float64, train.NGenes())
	for _, row := range train.Data {
		copy(sorted, row)
		sort.Float64s(sorted)
		for r, v := range sorted {
			ref[r] += v
		}
	}
	n := float64(train.NSamples())
	for r := range ref {
		ref[r] /= n
	}

	return &quantileState{
		genes: append([]string(nil), train.Genes...),
		ref:   ref,
	}, nil
}

// Transform remaps every sample of m onto the fitted reference
// distribution by rank.
func (q Quantile) Transform(st State, m *exprs.Matrix) (*exprs.Matrix, error) {
	qs, ok := st.(*quantileState)
	if !ok {
		return nil, fmt.Errorf("%w: quantile transform before fit", ErrState)
	}
	if err := checkInput(m); err != nil {
		return nil, err
	}
	if err := checkGenes(qs.genes, m); err != nil {
		return nil, err
	}

	out := m.Clone()
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range out.Data {
		i := i
		g.Go(func() error {
			row := out.Data[i]
			for j, r := range ranks(row) {
				// ranks are 1-based and half-integral on ties; the
				// reference is indexed from 0.
				row[j] = interpolate(qs.ref, r-1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
