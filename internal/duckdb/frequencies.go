package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/hlapanel/internal/freq"
	"github.com/inodb/hlapanel/internal/hla"
)

// PopulationCount is a population and the number of frequency rows it has.
type PopulationCount struct {
	Population string
	Rows       int64
}

// ImportStats summarizes an import.
type ImportStats struct {
	Rows    int64
	Skipped int
	Cached  bool // the store already held this file and nothing was loaded
}

// recordKey identifies an exact frequency row for deduplication.
type recordKey struct {
	population, locus, allele string
	frequency                 float64
}

// InsertRecords batch-inserts frequency records using the Appender API.
// Exact duplicate rows are written once.
func (s *Store) InsertRecords(records []freq.Record) error {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[recordKey]bool, len(records))
	deduped := make([]freq.Record, 0, len(records))
	for _, r := range records {
		k := recordKey{r.Population, string(r.Locus), r.Allele, r.Frequency}
		if !seen[k] {
			seen[k] = true
			deduped = append(deduped, r)
		}
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "hla_frequencies")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range deduped {
		if err := appender.AppendRow(r.Population, string(r.Locus), r.Allele, r.Frequency); err != nil {
			return fmt.Errorf("append frequency: %w", err)
		}
	}

	return appender.Flush()
}

// ClearFrequencies removes all frequency rows and the import record.
func (s *Store) ClearFrequencies() error {
	if _, err := s.db.Exec("DELETE FROM hla_frequencies"); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM imports")
	return err
}

// Records returns the stored frequency rows for the given populations, or for
// every population when none are given. Rows come back ordered by population,
// locus, allele and frequency.
func (s *Store) Records(populations []string) ([]freq.Record, error) {
	query := `SELECT population, locus, allele, frequency FROM hla_frequencies`
	args := make([]any, 0, len(populations))
	if len(populations) > 0 {
		placeholders := make([]string, len(populations))
		for i, p := range populations {
			placeholders[i] = "?"
			args = append(args, p)
		}
		query += ` WHERE population IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY population, locus, allele, frequency`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query frequencies: %w", err)
	}
	defer rows.Close()

	var records []freq.Record
	for rows.Next() {
		var (
			r     freq.Record
			locus string
		)
		if err := rows.Scan(&r.Population, &locus, &r.Allele, &r.Frequency); err != nil {
			return nil, fmt.Errorf("scan frequency: %w", err)
		}
		if r.Locus, err = hla.ParseLocus(locus); err != nil {
			return nil, fmt.Errorf("stored frequency row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frequencies: %w", err)
	}
	return records, nil
}

// Populations lists the stored populations alphabetically with their row counts.
func (s *Store) Populations() ([]PopulationCount, error) {
	rows, err := s.db.Query(`SELECT population, count(*) FROM hla_frequencies
		GROUP BY population ORDER BY population`)
	if err != nil {
		return nil, fmt.Errorf("query populations: %w", err)
	}
	defer rows.Close()

	var pops []PopulationCount
	for rows.Next() {
		var pc PopulationCount
		if err := rows.Scan(&pc.Population, &pc.Rows); err != nil {
			return nil, fmt.Errorf("scan population: %w", err)
		}
		pops = append(pops, pc)
	}
	return pops, rows.Err()
}

// Count returns the number of stored frequency rows.
func (s *Store) Count() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT count(*) FROM hla_frequencies`).Scan(&n)
	return n, err
}

// ImportTable replaces the store's contents with the frequency table at path.
// A file already imported with the same fingerprint is not read again.
// Use "-" for stdin, which is never cached.
func (s *Store) ImportTable(path, sep string) (ImportStats, error) {
	var fp FileFingerprint
	if path != "-" {
		var err error
		if fp, err = StatFile(path); err != nil {
			return ImportStats{}, fmt.Errorf("stat frequency table: %w", err)
		}
		last, ok, err := s.upToDate(fp, SourceTable)
		if err != nil {
			return ImportStats{}, err
		}
		if ok {
			return ImportStats{Rows: last.Rows, Cached: true}, nil
		}
	}

	p, err := freq.NewParser(path, sep)
	if err != nil {
		return ImportStats{}, err
	}
	defer p.Close()

	records, err := p.ReadAll()
	if err != nil {
		return ImportStats{}, err
	}

	if err := s.ClearFrequencies(); err != nil {
		return ImportStats{}, fmt.Errorf("clear frequencies: %w", err)
	}
	if err := s.InsertRecords(records); err != nil {
		return ImportStats{}, err
	}
	n, err := s.Count()
	if err != nil {
		return ImportStats{}, fmt.Errorf("count frequencies: %w", err)
	}
	if path != "-" {
		if err := s.recordImport(fp, SourceTable, n); err != nil {
			return ImportStats{}, err
		}
	}
	return ImportStats{Rows: n, Skipped: p.Skipped()}, nil
}
