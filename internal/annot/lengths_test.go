package annot

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLengths(t *testing.T) {
	t.Parallel()

	const in = `gene_id,length
Gene_1,200
Gene_2,300
Gene_3,500
`
	lengths, err := ReadLengths(strings.NewReader(in), ',')
	require.NoError(t, err)
	assert.Equal(t, Lengths{"Gene_1": 200, "Gene_2": 300, "Gene_3": 500}, lengths)
}

func TestReadLengths_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "header only", in: "gene_id,length\n"},
		{name: "non-integer length", in: "gene_id,length\nG1,12.5\n"},
		{name: "zero length", in: "gene_id,length\nG1,0\n"},
		{name: "negative length", in: "gene_id,length\nG1,-10\n"},
		{name: "duplicate gene", in: "gene_id,length\nG1,10\nG1,20\n"},
		{name: "extra column", in: "gene_id,length\nG1,10,extra\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ReadLengths(strings.NewReader(tt.in), ',')
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	lengths := Lengths{"G1": 200, "G2": 1000}

	got, err := lengths.Resolve([]string{"G2", "G1"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 200}, got)

	_, err = lengths.Resolve([]string{"G1", "G3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "G3")
}

func TestWriteLengths_RoundTrip(t *testing.T) {
	t.Parallel()

	lengths := Lengths{"G1": 200, "G2": 1000}

	var buf bytes.Buffer
	require.NoError(t, lengths.WriteLengths(&buf, lengths.Genes(), ','))

	back, err := ReadLengths(&buf, ',')
	require.NoError(t, err)
	assert.Equal(t, lengths, back)
}

func TestWriteLengths_MissingGene(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Lengths{"G1": 200}.WriteLengths(&buf, []string{"G1", "G2"}, ',')
	assert.Error(t, err)
}

func TestGenes_Sorted(t *testing.T) {
	t.Parallel()

	lengths := Lengths{"B": 1, "A": 2, "C": 3}
	assert.Equal(t, []string{"A", "B", "C"}, lengths.Genes())
}
