package norm

import "errors"

// Error categories reported by the normalization engine. Callers match them
// with errors.Is; every error returned by this package wraps exactly one.
var (
	// ErrValidation reports malformed expression data: negative values,
	// duplicate identifiers, or mismatched gene sets between operands.
	ErrValidation = errors.New("norm: invalid expression data")

	// ErrAnnotation reports a gene without a usable annotation entry, or a
	// non-positive gene length.
	ErrAnnotation = errors.New("norm: annotation error")

	// ErrDegenerateSample reports a sample on which a ratio-based method is
	// undefined: zero library size, no non-zero counts, or too few genes
	// surviving the TMM trim.
	ErrDegenerateSample = errors.New("norm: degenerate sample")

	// ErrState reports a Transform call with a missing or foreign fitted
	// state.
	ErrState = errors.New("norm: invalid normalizer state")
)
