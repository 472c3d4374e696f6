package norm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/vertti/countnorm/internal/exprs"
)

// DefaultPercentile is the quartile used by upper-quartile factors.
const DefaultPercentile = 0.75

// UQ computes upper-quartile normalization. The per-sample factor is the
// P-th percentile of the sample's non-zero counts, centered on the
// geometric mean of the per-sample percentiles (or divided by the fixed
// reference quartile Ref when set). Zero-count genes are excluded from the
// percentile so the bulk of unexpressed genes cannot drag it down.
//
// Transform returns counts scaled per million of each sample's effective
// library size (library size times the sample's centered quartile-to-size
// ratio), the edgeR convention. CUF applies the factors to raw counts
// instead.
type UQ struct {
	P   float64 // percentile in (0,1); 0 means DefaultPercentile
	Ref float64 // fixed reference quartile; 0 means geometric-mean centering
}

func (u UQ) percentile() float64 {
	if u.P == 0 {
		return DefaultPercentile
	}
	return u.P
}

// upperQuartiles returns the per-sample percentile of non-zero counts.
func (u UQ) upperQuartiles(m *exprs.Matrix) ([]float64, error) {
	p := u.percentile()
	if p <= 0 || p > 1 {
		return nil, fmt.Errorf("%w: percentile %v outside (0, 1]", ErrValidation, u.P)
	}
	q := make([]float64, m.NSamples())
	scratch := make([]float64, 0, m.NGenes())
	for i, row := range m.Data {
		scratch = scratch[:0]
		for _, v := range row {
			if v != 0 {
				scratch = append(scratch, v)
			}
		}
		if len(scratch) == 0 {
			return nil, fmt.Errorf("%w: sample %q has no non-zero counts", ErrDegenerateSample, m.Samples[i])
		}
		q[i] = quantileR7(scratch, p)
	}
	return q, nil
}

// Factors returns the per-sample upper-quartile factors, centered so that
// dividing counts by them removes systematic sample-to-sample shifts while
// preserving count-like magnitude.
func (u UQ) Factors(m *exprs.Matrix) ([]float64, error) {
	if err := checkInput(m); err != nil {
		return nil, err
	}
	q, err := u.upperQuartiles(m)
	if err != nil {
		return nil, err
	}
	center := u.Ref
	if center == 0 {
		center = stat.GeometricMean(q, nil)
	}
	floats.Scale(1/center, q)
	return q, nil
}

// ratioFactors returns quartile-to-library-size ratios centered on their
// geometric mean. These feed the effective library sizes used by Transform.
func (u UQ) ratioFactors(m *exprs.Matrix, sizes []float64) ([]float64, error) {
	q, err := u.upperQuartiles(m)
	if err != nil {
		return nil, err
	}
	floats.Div(q, sizes)
	floats.Scale(1/stat.GeometricMean(q, nil), q)
	return q, nil
}

// Fit is a no-op: factors are always derived from the transformed matrix.
func (u UQ) Fit(*exprs.Matrix) (State, error) { return Stateless, nil }

// Transform returns counts scaled per million of effective library size.
func (u UQ) Transform(st State, m *exprs.Matrix) (*exprs.Matrix, error) {
	if !statelessOK(st) {
		return nil, fmt.Errorf("%w: UQ fitted with a foreign state", ErrState)
	}
	if err := checkInput(m); err != nil {
		return nil, err
	}
	sizes, err := LibrarySizes(m)
	if err != nil {
		return nil, err
	}
	f, err := u.ratioFactors(m, sizes)
	if err != nil {
		return nil, err
	}

	out := m.Clone()
	for i, row := range out.Data {
		floats.Scale(1e6/(sizes[i]*f[i]), row)
	}
	return out, nil
}

// CUF divides raw counts by upper-quartile factors, preserving count-like
// magnitude.
type CUF struct {
	P   float64 // see UQ.P
	Ref float64 // see UQ.Ref
}

// Fit is a no-op.
func (c CUF) Fit(*exprs.Matrix) (State, error) { return Stateless, nil }

// Transform returns counts divided by each sample's upper-quartile factor.
func (c CUF) Transform(st State, m *exprs.Matrix) (*exprs.Matrix, error) {
	if !statelessOK(st) {
		return nil, fmt.Errorf("%w: CUF fitted with a foreign state", ErrState)
	}
	if err := checkInput(m); err != nil {
		return nil, err
	}
	f, err := UQ{P: c.P, Ref: c.Ref}.Factors(m)
	if err != nil {
		return nil, err
	}

	out := m.Clone()
	for i, row := range out.Data {
		floats.Scale(1/f[i], row)
	}
	return out, nil
}
