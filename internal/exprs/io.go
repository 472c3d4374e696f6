package exprs

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// DelimiterFor returns the field delimiter implied by a file name: tab for
// .tsv and .txt, comma otherwise. A trailing .gz is ignored.
func DelimiterFor(path string) rune {
	p := strings.TrimSuffix(strings.ToLower(path), ".gz")
	if strings.HasSuffix(p, ".tsv") || strings.HasSuffix(p, ".txt") {
		return '\t'
	}
	return ','
}

// OpenMaybeGzip wraps r so that gzip input is decompressed transparently.
// Detection uses the gzip magic bytes, so it works for streams without a
// file name.
func OpenMaybeGzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	header, err := br.Peek(2)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return br, nil
		}
		return nil, fmt.Errorf("cannot inspect input: %w", err)
	}
	if header[0] == 0x1f && header[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("cannot open gzip input: %w", err)
		}
		return gz, nil
	}
	return br, nil
}

// Read parses a delimited expression table: a header row of gene identifiers
// and one row per sample, the first column carrying sample identifiers.
func Read(r io.Reader, comma rune) (*Matrix, error) {
	in, err := OpenMaybeGzip(r)
	if err != nil {
		return nil, err
	}

	c := csv.NewReader(in)
	c.Comma = comma
	c.Comment = '#'

	header, err := c.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty expression table")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) < 2 {
		return nil, errors.New("expression table has no gene columns")
	}
	genes := append([]string(nil), header[1:]...)

	var (
		samples []string
		data    [][]float64
	)
	for {
		rec, err := c.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(samples)+2, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("sample %q: %d fields, want %d", rec[0], len(rec), len(header))
		}
		row := make([]float64, len(genes))
		for j, field := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("sample %q, gene %q: non-numeric value %q", rec[0], genes[j], field)
			}
			row[j] = v
		}
		samples = append(samples, rec[0])
		data = append(data, row)
	}
	if len(samples) == 0 {
		return nil, errors.New("expression table has no sample rows")
	}

	return New(samples, genes, data)
}

// ReadFile reads an expression table from path, picking the delimiter from
// the file extension and decompressing .gz input.
func ReadFile(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open input: %w", err)
	}
	defer f.Close()

	m, err := Read(f, DelimiterFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Write emits the matrix as a delimited table in the same layout Read
// consumes, preserving sample and gene order.
func (m *Matrix) Write(w io.Writer, comma rune) error {
	c := csv.NewWriter(w)
	c.Comma = comma

	header := make([]string, 0, len(m.Genes)+1)
	header = append(header, "sample_id")
	header = append(header, m.Genes...)
	if err := c.Write(header); err != nil {
		return err
	}

	rec := make([]string, len(m.Genes)+1)
	for i, row := range m.Data {
		rec[0] = m.Samples[i]
		for j, v := range row {
			rec[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := c.Write(rec); err != nil {
			return err
		}
	}
	c.Flush()
	return c.Error()
}

// WriteFile writes the matrix to path. An existing file is only overwritten
// when force is set. A .gz extension selects gzip output.
func (m *Matrix) WriteFile(path string, force bool) error {
	w, done, err := CreateOutput(path, force)
	if err != nil {
		return err
	}
	if err := m.Write(w, DelimiterFor(path)); err != nil {
		_ = done()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return done()
}

// CreateOutput opens path for writing, refusing to clobber an existing file
// unless force is set, and layering gzip compression for .gz paths. The
// returned function flushes and closes the output.
func CreateOutput(path string, force bool) (io.Writer, func() error, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return nil, nil, fmt.Errorf("%s already exists, use -force to overwrite", path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create output: %w", err)
	}
	bw := bufio.NewWriterSize(f, 1<<20)
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz := gzip.NewWriter(bw)
		return gz, func() error {
			if err := gz.Close(); err != nil {
				_ = f.Close()
				return err
			}
			if err := bw.Flush(); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		}, nil
	}
	return bw, func() error {
		if err := bw.Flush(); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}, nil
}
