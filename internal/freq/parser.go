package freq

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/hlapanel/internal/hla"
)

// Frequency table column names.
const (
	ColLocus      = "locus"
	ColAllele     = "allele"
	ColFrequency  = "frequency"
	ColPopulation = "population"
)

// ColumnIndices holds the indices of frequency table columns, -1 when absent.
type ColumnIndices struct {
	Locus      int
	Allele     int
	Frequency  int
	Population int
}

// Parser reads frequency records from a delimited table.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	sep        string
	lineNumber int
	columns    ColumnIndices
	skipped    int
}

// NewParser opens a frequency table at path. Gzipped files are detected by
// their magic bytes. Use "-" for stdin. An empty sep means TAB.
func NewParser(path, sep string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin, sep)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frequency table: %w", err)
	}

	br := bufio.NewReader(file)
	p := &Parser{file: file, sep: sep}

	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = br
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader creates a parser reading from r.
func NewParserFromReader(r io.Reader, sep string) (*Parser, error) {
	p := &Parser{reader: bufio.NewReader(r), sep: sep}
	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) separator() string {
	if p.sep == "" {
		return "\t"
	}
	return p.sep
}

// readLine returns the next non-empty line without its terminator.
// It returns io.EOF when the input is exhausted.
func (p *Parser) readLine() (string, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			return "", err
		}
		p.lineNumber++
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			if err == io.EOF {
				return "", io.EOF
			}
			continue
		}
		return line, nil
	}
}

func (p *Parser) parseHeader() error {
	line, err := p.readLine()
	if err != nil {
		if err == io.EOF {
			return &ParseError{Line: p.lineNumber, Message: "no header line found"}
		}
		return fmt.Errorf("read header: %w", err)
	}

	p.columns = ColumnIndices{Locus: -1, Allele: -1, Frequency: -1, Population: -1}
	for i, col := range strings.Split(line, p.separator()) {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case ColLocus:
			p.columns.Locus = i
		case ColAllele:
			p.columns.Allele = i
		case ColFrequency:
			p.columns.Frequency = i
		case ColPopulation:
			p.columns.Population = i
		}
	}

	for _, req := range []struct {
		name string
		idx  int
	}{
		{ColLocus, p.columns.Locus},
		{ColAllele, p.columns.Allele},
		{ColFrequency, p.columns.Frequency},
	} {
		if req.idx == -1 {
			return &ParseError{
				Line:    p.lineNumber,
				Message: fmt.Sprintf("required column %q not found in header", req.name),
			}
		}
	}
	return nil
}

// Columns returns the parsed column indices.
func (p *Parser) Columns() ColumnIndices {
	return p.columns
}

// HasPopulation reports whether the table has a population column.
func (p *Parser) HasPopulation() bool {
	return p.columns.Population >= 0
}

// Skipped returns the number of rows dropped so far because their locus is not
// supported or their frequency is missing.
func (p *Parser) Skipped() int {
	return p.skipped
}

// Next reads the next record. Returns nil, nil at end of input.
func (p *Parser) Next() (*Record, error) {
	for {
		line, err := p.readLine()
		if err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read frequency line: %w", err)
		}

		rec, skip, err := p.parseLine(line)
		if err != nil {
			return nil, err
		}
		if skip {
			p.skipped++
			continue
		}
		return rec, nil
	}
}

func (p *Parser) parseLine(line string) (*Record, bool, error) {
	fields := strings.Split(line, p.separator())
	need := max(p.columns.Locus, p.columns.Allele, p.columns.Frequency, p.columns.Population) + 1
	if len(fields) < need {
		return nil, false, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least %d columns, found %d", need, len(fields)),
		}
	}

	locus, err := hla.ParseLocus(fields[p.columns.Locus])
	if err != nil {
		return nil, true, nil
	}

	raw := strings.TrimSpace(fields[p.columns.Frequency])
	switch strings.ToLower(raw) {
	case "", "na", "nan":
		return nil, true, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) {
		return nil, false, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid frequency %q", raw),
		}
	}
	if f < 0 || f > 1 {
		return nil, false, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("frequency %g outside [0,1]", f),
		}
	}

	allele := strings.TrimSpace(fields[p.columns.Allele])
	if allele == "" {
		return nil, false, &ParseError{Line: p.lineNumber, Message: "empty allele"}
	}

	pop := DefaultPopulation
	if p.columns.Population >= 0 {
		pop = fields[p.columns.Population]
	}

	return &Record{
		Population: pop,
		Locus:      locus,
		Allele:     allele,
		Frequency:  f,
	}, false, nil
}

// ReadAll reads all remaining records.
func (p *Parser) ReadAll() ([]Record, error) {
	var records []Record
	for {
		rec, err := p.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return records, nil
		}
		records = append(records, *rec)
	}
}

// Close closes the underlying file, if any.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error parsing a frequency table.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("frequency table parse error at line %d: %s", e.Line, e.Message)
}
