package norm

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/vertti/countnorm/internal/exprs"
)

// TMM trim defaults, the edgeR values.
const (
	DefaultMTrim = 0.30
	DefaultATrim = 0.05
)

// TMM computes trimmed-mean-of-M-values normalization factors against a
// reference sample.
//
// Without an explicit RefSample, Fit selects the reference: the training
// sample whose library size is closest to the geometric mean of all
// training library sizes (lowest index on ties). Its counts and library
// size are frozen in the returned State, and Transform computes factors of
// its input against that frozen reference. With RefSample set, Fit is a
// no-op and the reference is resolved by identifier in the matrix being
// transformed.
//
// For each sample, genes with a zero count in either the sample or the
// reference are dropped, per-gene log-ratios (M) and mean log-intensities
// (A) are double-trimmed by rank, and the factor is the inverse-variance
// weighted mean of the surviving M values, exponentiated. The reference's
// own factor is exactly 1.
//
// Transform returns counts scaled per million of effective library size
// (library size times the geometric-mean-centered factor), the edgeR
// convention. CTF applies the factors to raw counts instead.
type TMM struct {
	MTrim     float64 // two-sided M-value trim fraction; 0 means DefaultMTrim
	ATrim     float64 // two-sided A-value trim fraction; 0 means DefaultATrim
	MinKept   int     // fewest genes that must survive trimming; 0 means 1
	Strict    bool    // report a degenerate sample instead of degrading the factor to 1
	RefSample string  // explicit reference sample identifier; empty selects one during Fit
}

type tmmState struct {
	genes     []string
	refSample string
	refCounts []float64
	refSize   float64
}

func (s *tmmState) fitted() string { return "tmm" }

func (t TMM) mTrim() float64 {
	if t.MTrim == 0 {
		return DefaultMTrim
	}
	return t.MTrim
}

func (t TMM) aTrim() float64 {
	if t.ATrim == 0 {
		return DefaultATrim
	}
	return t.ATrim
}

func (t TMM) minKept() int {
	if t.MinKept <= 0 {
		return 1
	}
	return t.MinKept
}

// Fit freezes the reference sample from the training matrix, or returns
// Stateless when an explicit RefSample is configured.
func (t TMM) Fit(train *exprs.Matrix) (State, error) {
	if t.RefSample != "" {
		return Stateless, nil
	}
	if err := checkInput(train); err != nil {
		return nil, err
	}
	sizes, err := LibrarySizes(train)
	if err != nil {
		return nil, err
	}

	gm := stat.GeometricMean(sizes, nil)
	ref := 0
	best := math.Abs(sizes[0] - gm)
	for i, s := range sizes[1:] {
		if d := math.Abs(s - gm); d < best {
			best = d
			ref = i + 1
		}
	}

	return &tmmState{
		genes:     append([]string(nil), train.Genes...),
		refSample: train.Samples[ref],
		refCounts: append([]float64(nil), train.Data[ref]...),
		refSize:   sizes[ref],
	}, nil
}

// reference resolves the reference counts and library size for a transform.
func (t TMM) reference(st State, m *exprs.Matrix) ([]float64, float64, error) {
	switch s := st.(type) {
	case nil:
		if t.RefSample == "" {
			return nil, 0, fmt.Errorf("%w: TMM transform before fit", ErrState)
		}
	case *tmmState:
		if err := checkGenes(s.genes, m); err != nil {
			return nil, 0, err
		}
		return s.refCounts, s.refSize, nil
	case emptyState:
		if t.RefSample == "" {
			return nil, 0, fmt.Errorf("%w: TMM transform before fit", ErrState)
		}
	default:
		return nil, 0, fmt.Errorf("%w: TMM fitted with a foreign state", ErrState)
	}

	for i, id := range m.Samples {
		if id == t.RefSample {
			size := floats.Sum(m.Data[i])
			if size == 0 {
				return nil, 0, fmt.Errorf("%w: reference sample %q has zero library size", ErrDegenerateSample, id)
			}
			return m.Data[i], size, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: reference sample %q not in matrix", ErrValidation, t.RefSample)
}

// Factors returns the per-sample TMM factors of m against the reference
// carried by st (or named by RefSample). The reference's own factor is 1.
func (t TMM) Factors(st State, m *exprs.Matrix) ([]float64, error) {
	if err := checkInput(m); err != nil {
		return nil, err
	}
	mTrim, aTrim := t.mTrim(), t.aTrim()
	if mTrim < 0 || mTrim >= 0.5 || aTrim < 0 || aTrim >= 0.5 {
		return nil, fmt.Errorf("%w: trim fractions must be in [0, 0.5)", ErrValidation)
	}
	ref, refSize, err := t.reference(st, m)
	if err != nil {
		return nil, err
	}
	sizes, err := LibrarySizes(m)
	if err != nil {
		return nil, err
	}

	// Samples are independent given the read-only reference; compute their
	// factors concurrently.
	f := make([]float64, m.NSamples())
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range m.Data {
		i := i
		g.Go(func() error {
			var err error
			f[i], err = t.sampleFactor(m.Samples[i], m.Data[i], sizes[i], ref, refSize)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

// sampleFactor computes one sample's factor against the reference.
func (t TMM) sampleFactor(id string, x []float64, size float64, ref []float64, refSize float64) (float64, error) {
	if floats.Equal(x, ref) {
		return 1, nil
	}

	var (
		ms = make([]float64, 0, len(x))
		as = make([]float64, 0, len(x))
		ws = make([]float64, 0, len(x))
	)
	for j, xv := range x {
		yv := ref[j]
		if xv == 0 || yv == 0 {
			continue
		}
		rx := xv / size
		ry := yv / refSize
		ms = append(ms, math.Log2(rx/ry))
		as = append(as, math.Log2(rx*ry)/2)
		// Asymptotic binomial variance of M; the weight is its inverse.
		ws = append(ws, (size-xv)/(size*xv)+(refSize-yv)/(refSize*yv))
	}

	n := float64(len(ms))
	mLow := math.Floor(n*t.mTrim()) + 1
	mHigh := n - math.Floor(n*t.mTrim())
	aLow := math.Floor(n*t.aTrim()) + 1
	aHigh := n - math.Floor(n*t.aTrim())

	rm := ranks(ms)
	ra := ranks(as)

	var num, den float64
	kept := 0
	for j := range ms {
		if rm[j] < mLow || rm[j] > mHigh || ra[j] < aLow || ra[j] > aHigh {
			continue
		}
		if ws[j] == 0 {
			continue
		}
		num += ms[j] / ws[j]
		den += 1 / ws[j]
		kept++
	}

	if kept < t.minKept() || den == 0 {
		if t.Strict {
			return 0, fmt.Errorf("%w: sample %q: only %d genes survive the TMM trim", ErrDegenerateSample, id, kept)
		}
		return 1, nil
	}
	return math.Pow(2, num/den), nil
}

// Transform returns counts scaled per million of effective library size.
func (t TMM) Transform(st State, m *exprs.Matrix) (*exprs.Matrix, error) {
	f, err := t.Factors(st, m)
	if err != nil {
		return nil, err
	}
	sizes, err := LibrarySizes(m)
	if err != nil {
		return nil, err
	}
	floats.Scale(1/stat.GeometricMean(f, nil), f)

	out := m.Clone()
	for i, row := range out.Data {
		floats.Scale(1e6/(sizes[i]*f[i]), row)
	}
	return out, nil
}

// CTF divides raw counts by TMM factors, preserving count-like magnitude.
type CTF struct {
	MTrim     float64 // see TMM.MTrim
	ATrim     float64 // see TMM.ATrim
	MinKept   int     // see TMM.MinKept
	Strict    bool    // see TMM.Strict
	RefSample string  // see TMM.RefSample
}

func (c CTF) tmm() TMM {
	return TMM{MTrim: c.MTrim, ATrim: c.ATrim, MinKept: c.MinKept, Strict: c.Strict, RefSample: c.RefSample}
}

// Fit freezes the reference sample, as for TMM.
func (c CTF) Fit(train *exprs.Matrix) (State, error) { return c.tmm().Fit(train) }

// Transform returns counts divided by each sample's TMM factor.
func (c CTF) Transform(st State, m *exprs.Matrix) (*exprs.Matrix, error) {
	f, err := c.tmm().Factors(st, m)
	if err != nil {
		return nil, err
	}

	out := m.Clone()
	for i, row := range out.Data {
		floats.Scale(1/f[i], row)
	}
	return out, nil
}
