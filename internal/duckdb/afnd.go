package duckdb

import (
	"fmt"
	"strings"
)

// afndQuery selects the classical HLA rows of an Allele Frequency Net Database
// dump as locus, allele, frequency and population. Alleles are given the HLA-
// prefix and, when the dump omits it, the "<gene>*" prefix.
const afndQuery = `SELECT
	gene AS locus,
	CASE WHEN starts_with(allele, gene || '*') THEN 'HLA-' || allele
	     ELSE 'HLA-' || gene || '*' || allele END AS allele,
	TRY_CAST(alleles_over_2n AS DOUBLE) AS frequency,
	population
FROM read_csv('%s', delim = '\t', header = true, all_varchar = true)
WHERE "group" = 'hla'
  AND gene IN ('A', 'B', 'C', 'DRB1', 'DQB1', 'DPB1')
  AND TRY_CAST(alleles_over_2n AS DOUBLE) BETWEEN 0 AND 1`

func sqlString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// ImportAFND replaces the store's contents with the HLA rows of an AFND dump.
// A dump already imported with the same fingerprint is not read again.
func (s *Store) ImportAFND(path string) (ImportStats, error) {
	fp, err := StatFile(path)
	if err != nil {
		return ImportStats{}, fmt.Errorf("stat AFND dump: %w", err)
	}
	last, ok, err := s.upToDate(fp, SourceAFND)
	if err != nil {
		return ImportStats{}, err
	}
	if ok {
		return ImportStats{Rows: last.Rows, Cached: true}, nil
	}

	if err := s.ClearFrequencies(); err != nil {
		return ImportStats{}, fmt.Errorf("clear frequencies: %w", err)
	}
	insert := `INSERT INTO hla_frequencies SELECT population, locus, allele, frequency FROM (` +
		fmt.Sprintf(afndQuery, sqlString(fp.Path)) + `)`
	if _, err := s.db.Exec(insert); err != nil {
		return ImportStats{}, fmt.Errorf("load AFND dump: %w", err)
	}
	n, err := s.Count()
	if err != nil {
		return ImportStats{}, fmt.Errorf("count frequencies: %w", err)
	}
	if err := s.recordImport(fp, SourceAFND, n); err != nil {
		return ImportStats{}, err
	}
	return ImportStats{Rows: n}, nil
}

// ConvertAFND writes the HLA rows of the AFND dump at src to dst as a
// tab-separated frequency table with columns locus, allele, frequency and
// population. It returns the number of rows written.
func (s *Store) ConvertAFND(src, dst string) (int64, error) {
	query := fmt.Sprintf(afndQuery, sqlString(src)) + ` ORDER BY population, locus, allele`

	var n int64
	if err := s.db.QueryRow(`SELECT count(*) FROM (` + query + `)`).Scan(&n); err != nil {
		return 0, fmt.Errorf("read AFND dump: %w", err)
	}
	copyStmt := fmt.Sprintf(`COPY (%s) TO '%s' (HEADER, DELIMITER '\t')`, query, sqlString(dst))
	if _, err := s.db.Exec(copyStmt); err != nil {
		return 0, fmt.Errorf("write frequency table: %w", err)
	}
	return n, nil
}
