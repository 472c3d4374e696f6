package norm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/vertti/countnorm/internal/annot"
	"github.com/vertti/countnorm/internal/exprs"
)

// CPM is counts-per-million normalization. It is stateless: library sizes
// are always recomputed from the matrix being transformed, never from a
// training set, so for every sample the output row sums to 1e6.
type CPM struct{}

// Fit is a no-op.
func (CPM) Fit(*exprs.Matrix) (State, error) { return Stateless, nil }

// Transform returns counts scaled per million of each sample's library size.
func (CPM) Transform(st State, m *exprs.Matrix) (*exprs.Matrix, error) {
	if !statelessOK(st) {
		return nil, fmt.Errorf("%w: CPM fitted with a foreign state", ErrState)
	}
	if err := checkInput(m); err != nil {
		return nil, err
	}
	sizes, err := LibrarySizes(m)
	if err != nil {
		return nil, err
	}

	out := m.Clone()
	for i, row := range out.Data {
		floats.Scale(1e6/sizes[i], row)
	}
	return out, nil
}

// resolveKb returns per-column gene lengths in kilobases.
func resolveKb(lengths annot.Lengths, genes []string) ([]float64, error) {
	if lengths == nil {
		return nil, fmt.Errorf("%w: no gene lengths provided", ErrAnnotation)
	}
	bp, err := lengths.Resolve(genes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnnotation, err)
	}
	floats.Scale(1e-3, bp)
	return bp, nil
}

// FPKM is fragments-per-kilobase-million normalization: CPM divided by gene
// length in kilobases, with no renormalization, so row sums are not fixed.
type FPKM struct {
	Lengths annot.Lengths
}

// Fit is a no-op.
func (f FPKM) Fit(*exprs.Matrix) (State, error) { return Stateless, nil }

// Transform returns library-size-normalized, length-divided counts.
func (f FPKM) Transform(st State, m *exprs.Matrix) (*exprs.Matrix, error) {
	if !statelessOK(st) {
		return nil, fmt.Errorf("%w: FPKM fitted with a foreign state", ErrState)
	}
	if err := checkInput(m); err != nil {
		return nil, err
	}
	kb, err := resolveKb(f.Lengths, m.Genes)
	if err != nil {
		return nil, err
	}

	out, err := CPM{}.Transform(Stateless, m)
	if err != nil {
		return nil, err
	}
	for _, row := range out.Data {
		floats.Div(row, kb)
	}
	return out, nil
}

// TPM is transcripts-per-million normalization: counts are divided by gene
// length in kilobases and the resulting rates renormalized per million, so
// every sample's row sums to 1e6.
type TPM struct {
	Lengths annot.Lengths
}

// Fit is a no-op.
func (t TPM) Fit(*exprs.Matrix) (State, error) { return Stateless, nil }

// Transform returns length- then library-normalized counts.
func (t TPM) Transform(st State, m *exprs.Matrix) (*exprs.Matrix, error) {
	if !statelessOK(st) {
		return nil, fmt.Errorf("%w: TPM fitted with a foreign state", ErrState)
	}
	if err := checkInput(m); err != nil {
		return nil, err
	}
	kb, err := resolveKb(t.Lengths, m.Genes)
	if err != nil {
		return nil, err
	}

	out := m.Clone()
	for i, row := range out.Data {
		floats.Div(row, kb)
		total := floats.Sum(row)
		if total == 0 {
			return nil, fmt.Errorf("%w: sample %q has zero library size", ErrDegenerateSample, m.Samples[i])
		}
		floats.Scale(1e6/total, row)
	}
	return out, nil
}
