// Package exprs provides the sample-by-gene expression matrix.
package exprs

import (
	"fmt"
	"math"
)

// Matrix holds expression values for samples (rows) by genes (columns).
// Data[i][j] is the value for sample Samples[i] and gene Genes[j].
type Matrix struct {
	Samples []string
	Genes   []string
	Data    [][]float64
}

// New builds a Matrix and validates its shape and values. Sample and gene
// identifiers must be unique, every row must have one value per gene, and
// all values must be finite and non-negative.
func New(samples, genes []string, data [][]float64) (*Matrix, error) {
	if err := checkUnique("sample", samples); err != nil {
		return nil, err
	}
	if err := checkUnique("gene", genes); err != nil {
		return nil, err
	}
	if len(data) != len(samples) {
		return nil, fmt.Errorf("matrix has %d rows for %d samples", len(data), len(samples))
	}
	for i, row := range data {
		if len(row) != len(genes) {
			return nil, fmt.Errorf("sample %q has %d values for %d genes", samples[i], len(row), len(genes))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("sample %q, gene %q: value is not finite", samples[i], genes[j])
			}
			if v < 0 {
				return nil, fmt.Errorf("sample %q, gene %q: negative value %v", samples[i], genes[j], v)
			}
		}
	}
	return &Matrix{Samples: samples, Genes: genes, Data: data}, nil
}

func checkUnique(kind string, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("empty %s identifier", kind)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("duplicate %s identifier %q", kind, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// NSamples returns the number of samples.
func (m *Matrix) NSamples() int { return len(m.Samples) }

// NGenes returns the number of genes.
func (m *Matrix) NGenes() int { return len(m.Genes) }

// Row returns the value slice for sample i. The slice is shared with the
// matrix and must not be modified.
func (m *Matrix) Row(i int) []float64 { return m.Data[i] }

// Clone returns a deep copy of the matrix with freshly allocated identifier
// and data slices.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{
		Samples: append([]string(nil), m.Samples...),
		Genes:   append([]string(nil), m.Genes...),
		Data:    make([][]float64, len(m.Data)),
	}
	for i, row := range m.Data {
		c.Data[i] = append([]float64(nil), row...)
	}
	return c
}

// ValidateCounts verifies that every cell holds a non-negative integer, as
// required of raw count input.
func (m *Matrix) ValidateCounts() error {
	for i, row := range m.Data {
		for j, v := range row {
			if v != math.Trunc(v) {
				return fmt.Errorf("sample %q, gene %q: raw count %v is not an integer", m.Samples[i], m.Genes[j], v)
			}
		}
	}
	return nil
}
