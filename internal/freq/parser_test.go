package freq

import (
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/hlapanel/internal/hla"
)

const sampleTable = "locus\tallele\tfrequency\tpopulation\n" +
	"A\tHLA-A*02:01\t0.2850\tNorthern Europe\n" +
	"A\tHLA-A*24:01\t0.0900\tNorthern Europe\n" +
	"DRB1\tHLA-DRB1*15:01\t0.1400\tNorthern Europe\n" +
	"B\tHLA-B*07:02\t0.1200\tJapan\n"

func TestParser_ReadAll(t *testing.T) {
	p, err := NewParserFromReader(strings.NewReader(sampleTable), "")
	require.NoError(t, err)
	assert.True(t, p.HasPopulation())

	records, err := p.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, Record{
		Population: "Northern Europe",
		Locus:      hla.LocusA,
		Allele:     "HLA-A*02:01",
		Frequency:  0.285,
	}, records[0])
	assert.Equal(t, hla.LocusDRB1, records[2].Locus)
	assert.Equal(t, "Japan", records[3].Population)
	assert.Equal(t, []string{"Northern Europe", "Japan"}, Populations(records))
}

func TestParser_ColumnOrderAndCSV(t *testing.T) {
	input := "population,frequency,allele,locus\n" +
		"Kenya,0.11,HLA-C*06:02,C\n"
	p, err := NewParserFromReader(strings.NewReader(input), ",")
	require.NoError(t, err)

	cols := p.Columns()
	assert.Equal(t, 0, cols.Population)
	assert.Equal(t, 3, cols.Locus)

	records, err := p.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, hla.LocusC, records[0].Locus)
	assert.Equal(t, "Kenya", records[0].Population)
}

func TestParser_NoPopulationColumn(t *testing.T) {
	input := "locus\tallele\tfrequency\nA\tHLA-A*01:01\t0.15\n"
	p, err := NewParserFromReader(strings.NewReader(input), "")
	require.NoError(t, err)
	assert.False(t, p.HasPopulation())

	records, err := p.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, DefaultPopulation, records[0].Population)
}

func TestParser_SkipsUnsupportedRows(t *testing.T) {
	input := "locus\tallele\tfrequency\tpopulation\n" +
		"DQA1\tHLA-DQA1*01:01\t0.2\tX\n" +
		"A\tHLA-A*01:01\t\tX\n" +
		"A\tHLA-A*01:02\tNA\tX\n" +
		"\n" +
		"A\tHLA-A*02:01\t0.3\tX" // no trailing newline
	p, err := NewParserFromReader(strings.NewReader(input), "")
	require.NoError(t, err)

	records, err := p.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "HLA-A*02:01", records[0].Allele)
	assert.Equal(t, 3, p.Skipped())
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"missing column", "locus\tallele\npopulation\n", 1},
		{"empty", "", 0},
		{"bad frequency", "locus\tallele\tfrequency\nA\tHLA-A*01:01\tabc\n", 2},
		{"out of range", "locus\tallele\tfrequency\nA\tHLA-A*01:01\t1.5\n", 2},
		{"negative", "locus\tallele\tfrequency\nA\tHLA-A*01:01\t-0.1\n", 2},
		{"short row", "locus\tallele\tfrequency\tpopulation\nA\tHLA-A*01:01\n", 2},
		{"empty allele", "locus\tallele\tfrequency\nA\t \t0.1\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewParserFromReader(strings.NewReader(tt.input), "")
			if err == nil {
				_, err = p.ReadAll()
			}
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "expected ParseError, got %v", err)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestNewParser_File(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "freq.tsv")
	require.NoError(t, os.WriteFile(plain, []byte(sampleTable), 0644))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(sampleTable))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	gzipped := filepath.Join(dir, "freq.tsv.gz")
	require.NoError(t, os.WriteFile(gzipped, buf.Bytes(), 0644))

	for _, path := range []string{plain, gzipped} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			p, err := NewParser(path, "")
			require.NoError(t, err)
			defer p.Close()

			records, err := p.ReadAll()
			require.NoError(t, err)
			assert.Len(t, records, 4)
		})
	}

	_, err = NewParser(filepath.Join(dir, "missing.tsv"), "")
	assert.Error(t, err)
}

func TestWriter_RoundTrip(t *testing.T) {
	p, err := NewParserFromReader(strings.NewReader(sampleTable), "")
	require.NoError(t, err)
	records, err := p.ReadAll()
	require.NoError(t, err)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader())
	for _, r := range records {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "locus\tallele\tfrequency\tpopulation", lines[0])
	assert.Equal(t, "A\tHLA-A*02:01\t0.285\tNorthern Europe", lines[1])

	p2, err := NewParserFromReader(&buf, "")
	require.NoError(t, err)
	again, err := p2.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, records, again)
}
