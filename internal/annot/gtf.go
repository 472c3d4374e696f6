package annot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/vertti/countnorm/internal/exprs"
)

// Lengths maps gene identifiers to union-exon lengths in bases.
type Lengths map[string]int64

// Exon is a single exon record from genome annotation. Coordinates are
// 1-based inclusive. Transcript and strand are deliberately absent: the
// union-exon model pools every exon of a gene.
type Exon struct {
	GeneID string
	Chrom  string
	Start  int64
	End    int64
}

type chromKey struct {
	gene  string
	chrom string
}

// FromExons groups exons by gene (and chromosome, for annotations that reuse
// a gene identifier across chromosomes) and sums per-group union lengths.
// The result does not depend on the order of the input records.
func FromExons(exons []Exon) (Lengths, error) {
	groups := make(map[chromKey][]Interval)
	for _, e := range exons {
		if e.GeneID == "" {
			return nil, errors.New("exon record without gene_id")
		}
		if e.Start < 1 || e.End < e.Start {
			return nil, fmt.Errorf("gene %q: invalid exon coordinates [%d, %d]", e.GeneID, e.Start, e.End)
		}
		k := chromKey{gene: e.GeneID, chrom: e.Chrom}
		groups[k] = append(groups[k], Interval{Start: e.Start, End: e.End})
	}

	lengths := make(Lengths)
	for k, ivs := range groups {
		_, n := Union(ivs)
		lengths[k.gene] += n
	}
	return lengths, nil
}

// ReadGTF parses GTF-formatted annotation and returns union-exon gene
// lengths. Only rows with feature type "exon" are consumed; comment lines
// start with '#'. Gzip input is decompressed transparently.
func ReadGTF(r io.Reader) (Lengths, error) {
	in, err := exprs.OpenMaybeGzip(r)
	if err != nil {
		return nil, err
	}

	var (
		exons  []Exon
		lineNo int
	)
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 9 {
			return nil, fmt.Errorf("gtf line %d: %d fields, want 9", lineNo, len(fields))
		}
		if fields[2] != "exon" {
			continue
		}
		start, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("gtf line %d: bad start %q", lineNo, fields[3])
		}
		end, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("gtf line %d: bad end %q", lineNo, fields[4])
		}
		geneID, ok := attribute(fields[8], "gene_id")
		if !ok {
			return nil, fmt.Errorf("gtf line %d: exon without gene_id attribute", lineNo)
		}
		exons = append(exons, Exon{GeneID: geneID, Chrom: fields[0], Start: start, End: end})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading gtf: %w", err)
	}
	if len(exons) == 0 {
		return nil, errors.New("annotation contains no exon records")
	}

	return FromExons(exons)
}

// ReadGTFFile reads GTF annotation from path, decompressing .gz files.
func ReadGTFFile(path string) (Lengths, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open annotation: %w", err)
	}
	defer f.Close()

	lengths, err := ReadGTF(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lengths, nil
}

// attribute extracts a quoted GTF attribute value, e.g.
// gene_id "ENSG00000223972"; -> ENSG00000223972.
func attribute(attrs, key string) (string, bool) {
	for _, part := range strings.Split(attrs, ";") {
		part = strings.TrimSpace(part)
		rest, ok := strings.CutPrefix(part, key)
		if !ok || rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
			continue
		}
		v := strings.TrimSpace(rest)
		v = strings.Trim(v, `"`)
		if v != "" {
			return v, true
		}
	}
	return "", false
}
