// Package norm implements RNA-seq count normalization: CPM, FPKM, TPM,
// upper-quartile and TMM factors with their count-adjusted variants, and
// quantile normalization.
//
// Every method satisfies Normalizer, a two-phase fit/transform contract.
// Fit consumes a training matrix and returns an immutable State; Transform
// consumes a State and a matrix and returns a new matrix, never modifying
// either input. Stateless methods return the shared Stateless value from
// Fit and accept it (or nil) in Transform.
package norm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/vertti/countnorm/internal/exprs"
)

// State is the opaque result of fitting a normalizer. States are immutable
// and safe for concurrent Transform calls.
type State interface {
	fitted() string
}

// Normalizer is the uniform two-phase contract shared by all methods.
type Normalizer interface {
	Fit(train *exprs.Matrix) (State, error)
	Transform(st State, m *exprs.Matrix) (*exprs.Matrix, error)
}

type emptyState struct{}

func (emptyState) fitted() string { return "stateless" }

// Stateless is the State returned by methods whose Fit is a no-op.
var Stateless State = emptyState{}

// statelessOK reports whether st is acceptable to a stateless Transform.
func statelessOK(st State) bool {
	if st == nil {
		return true
	}
	_, ok := st.(emptyState)
	return ok
}

// LibrarySizes returns the total raw count of each sample. A sample whose
// total is zero makes every ratio-based normalization undefined and is
// reported as degenerate.
func LibrarySizes(m *exprs.Matrix) ([]float64, error) {
	sizes := make([]float64, m.NSamples())
	for i, row := range m.Data {
		sizes[i] = floats.Sum(row)
		if sizes[i] == 0 {
			return nil, fmt.Errorf("%w: sample %q has zero library size", ErrDegenerateSample, m.Samples[i])
		}
	}
	return sizes, nil
}

// checkInput validates a matrix argument shared by all Transform methods.
func checkInput(m *exprs.Matrix) error {
	if m == nil || m.NSamples() == 0 || m.NGenes() == 0 {
		return fmt.Errorf("%w: empty matrix", ErrValidation)
	}
	return nil
}

// checkGenes verifies that m carries exactly the genes a state was fitted
// on, in the same order. Implicit alignment would silently misattribute
// values, so mismatches fail fast.
func checkGenes(fitted []string, m *exprs.Matrix) error {
	if len(fitted) != len(m.Genes) {
		return fmt.Errorf("%w: fitted on %d genes, input has %d", ErrValidation, len(fitted), len(m.Genes))
	}
	for j, g := range fitted {
		if m.Genes[j] != g {
			return fmt.Errorf("%w: gene sets differ at column %d: %q vs %q", ErrValidation, j, g, m.Genes[j])
		}
	}
	return nil
}
