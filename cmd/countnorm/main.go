// countnorm normalizes RNA-seq gene-expression count matrices.
package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/vertti/countnorm/internal/annot"
	"github.com/vertti/countnorm/internal/exprs"
	"github.com/vertti/countnorm/internal/norm"
)

var version = "dev"

const (
	exitSuccess = 0
	exitError   = 1
)

type config struct {
	inputFile   string
	outputFile  string
	force       bool
	tsv         bool
	gtfFile     string
	lengthsFile string
	percentile  float64
	mTrim       float64
	aTrim       float64
	refSample   string
	trainFile   string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitError
	}

	switch args[0] {
	case "-h", "-help", "--help", "help":
		usage()
		return exitSuccess
	case "-version", "--version", "version":
		fmt.Printf("countnorm version %s\n", version)
		return exitSuccess
	}

	method := args[0]
	cfg, err := parseFlags(method, args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			return exitSuccess
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}

	if err := execute(method, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}
	return exitSuccess
}

func parseFlags(method string, args []string) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("countnorm "+method, flag.ContinueOnError)
	fs.Usage = func() { usage() }

	fs.StringVar(&cfg.inputFile, "i", "", "input expression matrix (default: stdin)")
	fs.StringVar(&cfg.outputFile, "o", "", "output file (default: stdout)")
	fs.BoolVar(&cfg.force, "force", false, "overwrite already existing output file")
	fs.BoolVar(&cfg.tsv, "tsv", false, "tab-delimited stdin/stdout instead of comma")

	switch method {
	case "fpkm", "tpm":
		fs.StringVar(&cfg.gtfFile, "gtf", "", "compute gene lengths from this GTF file")
		fs.StringVar(&cfg.lengthsFile, "lengths", "", "file with precomputed gene lengths")
	case "uq", "cuf":
		fs.Float64Var(&cfg.percentile, "p", norm.DefaultPercentile, "percentile of non-zero counts")
	case "tmm", "ctf":
		fs.Float64Var(&cfg.mTrim, "m-trim", norm.DefaultMTrim, "two-sided trim fraction for M-values")
		fs.Float64Var(&cfg.aTrim, "a-trim", norm.DefaultATrim, "two-sided trim fraction for A-values")
		fs.StringVar(&cfg.refSample, "ref", "", "reference sample identifier (default: auto-selected)")
	case "quantile":
		fs.StringVar(&cfg.trainFile, "train", "", "training matrix for the reference distribution (default: the input)")
	case "cpm":
	case "lengths":
		fs.StringVar(&cfg.gtfFile, "gtf", "", "compute gene lengths from this GTF file")
	default:
		usage()
		return cfg, fmt.Errorf("unknown method %q", method)
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	// A positional argument is the input file.
	if rest := fs.Args(); len(rest) > 0 && cfg.inputFile == "" {
		cfg.inputFile = rest[0]
	}
	return cfg, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `countnorm - RNA-seq count normalization

Usage:
  countnorm <method> [options] [input]

Matrix methods (write a normalized matrix):
  cpm        Counts per million
  fpkm       Fragments per kilobase million (needs -gtf or -lengths)
  tpm        Transcripts per million (needs -gtf or -lengths)
  cuf        Counts adjusted with upper-quartile factors
  ctf        Counts adjusted with TMM factors
  quantile   Quantile normalization (optionally -train)

Factor methods (write a per-sample factor table):
  uq         Upper-quartile factors
  tmm        TMM factors

Annotation:
  lengths    Union-exon gene lengths from a GTF file (-gtf)

Common options:
  -i file    input expression matrix (default: stdin; .gz transparent)
  -o file    output file (default: stdout)
  -force     overwrite existing output
  -tsv       tab-delimited stdin/stdout

Examples:
  countnorm cpm -i counts.csv -o cpm.csv
  countnorm tpm -gtf annotation.gtf.gz counts.csv
  countnorm tmm -i counts.csv
  cat counts.csv | countnorm quantile > normalized.csv
`)
}

func execute(method string, cfg config) error {
	if method == "lengths" {
		return executeLengths(cfg)
	}

	m, err := readMatrix(cfg.inputFile, cfg.tsv)
	if err != nil {
		return err
	}
	if method != "quantile" {
		if err := m.ValidateCounts(); err != nil {
			return err
		}
	}

	switch method {
	case "uq":
		f, err := norm.UQ{P: cfg.percentile}.Factors(m)
		if err != nil {
			return err
		}
		return writeFactors(cfg, m.Samples, f)
	case "tmm":
		t := norm.TMM{MTrim: cfg.mTrim, ATrim: cfg.aTrim, RefSample: cfg.refSample}
		st, err := t.Fit(m)
		if err != nil {
			return err
		}
		f, err := t.Factors(st, m)
		if err != nil {
			return err
		}
		return writeFactors(cfg, m.Samples, f)
	}

	n, train, err := normalizerFor(method, cfg, m)
	if err != nil {
		return err
	}
	st, err := n.Fit(train)
	if err != nil {
		return err
	}
	out, err := n.Transform(st, m)
	if err != nil {
		return err
	}
	return writeMatrix(cfg, out)
}

// normalizerFor builds the Normalizer for a matrix method along with the
// matrix its Fit should see.
func normalizerFor(method string, cfg config, m *exprs.Matrix) (norm.Normalizer, *exprs.Matrix, error) {
	switch method {
	case "cpm":
		return norm.CPM{}, m, nil
	case "fpkm":
		lengths, err := resolveLengths(cfg)
		if err != nil {
			return nil, nil, err
		}
		return norm.FPKM{Lengths: lengths}, m, nil
	case "tpm":
		lengths, err := resolveLengths(cfg)
		if err != nil {
			return nil, nil, err
		}
		return norm.TPM{Lengths: lengths}, m, nil
	case "cuf":
		return norm.CUF{P: cfg.percentile}, m, nil
	case "ctf":
		return norm.CTF{MTrim: cfg.mTrim, ATrim: cfg.aTrim, RefSample: cfg.refSample}, m, nil
	case "quantile":
		train := m
		if cfg.trainFile != "" {
			var err error
			train, err = exprs.ReadFile(cfg.trainFile)
			if err != nil {
				return nil, nil, err
			}
		}
		return norm.Quantile{}, train, nil
	}
	return nil, nil, fmt.Errorf("unknown method %q", method)
}

func resolveLengths(cfg config) (annot.Lengths, error) {
	switch {
	case cfg.gtfFile != "" && cfg.lengthsFile != "":
		return nil, fmt.Errorf("use either -gtf or -lengths, not both")
	case cfg.gtfFile != "":
		return annot.ReadGTFFile(cfg.gtfFile)
	case cfg.lengthsFile != "":
		return annot.ReadLengthsFile(cfg.lengthsFile)
	}
	return nil, fmt.Errorf("method requires -gtf or -lengths")
}

func executeLengths(cfg config) error {
	if cfg.gtfFile == "" {
		return fmt.Errorf("lengths requires -gtf")
	}
	lengths, err := annot.ReadGTFFile(cfg.gtfFile)
	if err != nil {
		return err
	}

	w, done, err := openOutput(cfg)
	if err != nil {
		return err
	}
	if err := lengths.WriteLengths(w, lengths.Genes(), outputDelimiter(cfg)); err != nil {
		_ = done()
		return err
	}
	return done()
}

func readMatrix(path string, tsv bool) (*exprs.Matrix, error) {
	if path == "" || path == "-" {
		comma := ','
		if tsv {
			comma = '\t'
		}
		return exprs.Read(os.Stdin, comma)
	}
	return exprs.ReadFile(path)
}

func outputDelimiter(cfg config) rune {
	if cfg.outputFile != "" {
		return exprs.DelimiterFor(cfg.outputFile)
	}
	if cfg.tsv {
		return '\t'
	}
	return ','
}

// openOutput returns the destination writer and the function that flushes
// and closes it.
func openOutput(cfg config) (io.Writer, func() error, error) {
	if cfg.outputFile == "" || cfg.outputFile == "-" {
		bw := bufio.NewWriterSize(os.Stdout, 1<<20)
		return bw, bw.Flush, nil
	}
	return exprs.CreateOutput(cfg.outputFile, cfg.force)
}

func writeMatrix(cfg config, m *exprs.Matrix) error {
	w, done, err := openOutput(cfg)
	if err != nil {
		return err
	}
	if err := m.Write(w, outputDelimiter(cfg)); err != nil {
		_ = done()
		return err
	}
	return done()
}

func writeFactors(cfg config, samples []string, factors []float64) error {
	w, done, err := openOutput(cfg)
	if err != nil {
		return err
	}

	c := csv.NewWriter(w)
	c.Comma = outputDelimiter(cfg)
	if err := c.Write([]string{"sample_id", "factor"}); err != nil {
		_ = done()
		return err
	}
	for i, id := range samples {
		if err := c.Write([]string{id, strconv.FormatFloat(factors[i], 'g', -1, 64)}); err != nil {
			_ = done()
			return err
		}
	}
	c.Flush()
	if err := c.Error(); err != nil {
		_ = done()
		return err
	}
	return done()
}
