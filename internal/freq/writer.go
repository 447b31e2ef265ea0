package freq

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Writer writes frequency records as a tab-delimited table that Parser reads back.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a frequency table writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (fw *Writer) WriteHeader() error {
	_, err := fw.w.WriteString(strings.Join([]string{ColLocus, ColAllele, ColFrequency, ColPopulation}, "\t") + "\n")
	return err
}

// Write writes a single record.
func (fw *Writer) Write(r Record) error {
	values := []string{
		string(r.Locus),
		r.Allele,
		strconv.FormatFloat(r.Frequency, 'g', -1, 64),
		r.Population,
	}
	_, err := fw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (fw *Writer) Flush() error {
	return fw.w.Flush()
}
