package annot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/vertti/countnorm/internal/exprs"
)

// Resolve returns the length for each of the given genes, in order. Every
// gene must have a positive length; a missing or zero-length gene is an
// annotation error.
func (l Lengths) Resolve(genes []string) ([]float64, error) {
	out := make([]float64, len(genes))
	for i, g := range genes {
		n, ok := l[g]
		if !ok {
			return nil, fmt.Errorf("gene %q has no annotation entry", g)
		}
		if n <= 0 {
			return nil, fmt.Errorf("gene %q has non-positive length %d", g, n)
		}
		out[i] = float64(n)
	}
	return out, nil
}

// ReadLengths parses a two-column gene-lengths table with a single header
// row: gene_id, length. Gzip input is decompressed transparently.
func ReadLengths(r io.Reader, comma rune) (Lengths, error) {
	in, err := exprs.OpenMaybeGzip(r)
	if err != nil {
		return nil, err
	}

	c := csv.NewReader(in)
	c.Comma = comma
	c.Comment = '#'
	c.FieldsPerRecord = 2

	if _, err := c.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty gene-lengths table")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	lengths := make(Lengths)
	for {
		rec, err := c.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading gene lengths: %w", err)
		}
		gene := strings.TrimSpace(rec[0])
		n, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("gene %q: non-integer length %q", gene, rec[1])
		}
		if n <= 0 {
			return nil, fmt.Errorf("gene %q: non-positive length %d", gene, n)
		}
		if _, ok := lengths[gene]; ok {
			return nil, fmt.Errorf("duplicate gene %q in lengths table", gene)
		}
		lengths[gene] = n
	}
	if len(lengths) == 0 {
		return nil, errors.New("gene-lengths table has no entries")
	}
	return lengths, nil
}

// ReadLengthsFile reads a gene-lengths table from path, picking the
// delimiter from the file extension.
func ReadLengthsFile(path string) (Lengths, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open gene lengths: %w", err)
	}
	defer f.Close()

	lengths, err := ReadLengths(f, exprs.DelimiterFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lengths, nil
}

// WriteLengths emits the lengths of the listed genes as a two-column table
// in the order given.
func (l Lengths) WriteLengths(w io.Writer, genes []string, comma rune) error {
	c := csv.NewWriter(w)
	c.Comma = comma
	if err := c.Write([]string{"gene_id", "length"}); err != nil {
		return err
	}
	for _, g := range genes {
		n, ok := l[g]
		if !ok {
			return fmt.Errorf("gene %q has no annotation entry", g)
		}
		if err := c.Write([]string{g, strconv.FormatInt(n, 10)}); err != nil {
			return err
		}
	}
	c.Flush()
	return c.Error()
}

// Genes returns all annotated gene identifiers in lexical order.
func (l Lengths) Genes() []string {
	genes := make([]string, 0, len(l))
	for g := range l {
		genes = append(genes, g)
	}
	sort.Strings(genes)
	return genes
}
