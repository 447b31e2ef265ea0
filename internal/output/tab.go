package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// TabWriter writes panel tables in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"class",
			"locus",
			"allele",
			"frequency",
			"external_name",
			"phenotype_frequency",
			"marginal_gain",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// WriteTable writes every row of a table.
func (tw *TabWriter) WriteTable(t Table) error {
	for _, r := range t.Rows {
		if err := tw.Write(t, r); err != nil {
			return err
		}
	}
	return nil
}

// Write writes a single row of table t.
func (tw *TabWriter) Write(t Table, r Row) error {
	external := r.ExternalName
	if external == "" {
		external = "-"
	}

	values := []string{
		t.Class.Short(),
		string(r.Locus),
		r.Allele,
		formatFloat(r.Frequency),
		external,
		formatFloat(r.PhenotypeFrequency),
		formatFloat(r.MarginalGain),
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
