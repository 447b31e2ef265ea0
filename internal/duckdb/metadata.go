package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Import sources recorded in the imports table.
const (
	SourceTable = "table"
	SourceAFND  = "afnd"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file. The path is made
// absolute so the same file always yields the same fingerprint.
func StatFile(path string) (FileFingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    abs,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Matches reports whether two fingerprints describe the same file contents.
func (f FileFingerprint) Matches(o FileFingerprint) bool {
	return f.Path == o.Path && f.Size == o.Size && f.ModTime.Equal(o.ModTime)
}

// ImportInfo describes a previously recorded import.
type ImportInfo struct {
	Fingerprint FileFingerprint
	Source      string
	Rows        int64
}

// LastImport returns the most recent recorded import, or nil when the store
// has never imported a file.
func (s *Store) LastImport() (*ImportInfo, error) {
	var (
		info  ImportInfo
		modNs int64
	)
	err := s.db.QueryRow(`SELECT path, size, mod_time_ns, source, row_count FROM imports LIMIT 1`).
		Scan(&info.Fingerprint.Path, &info.Fingerprint.Size, &modNs, &info.Source, &info.Rows)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	info.Fingerprint.ModTime = time.Unix(0, modNs)
	return &info, nil
}

// upToDate reports whether the store already holds an import of fp from source.
func (s *Store) upToDate(fp FileFingerprint, source string) (*ImportInfo, bool, error) {
	last, err := s.LastImport()
	if err != nil || last == nil {
		return nil, false, err
	}
	return last, last.Source == source && last.Fingerprint.Matches(fp), nil
}

// recordImport replaces the import record. The store holds a single table, so
// only the latest import is kept.
func (s *Store) recordImport(fp FileFingerprint, source string, rows int64) error {
	if _, err := s.db.Exec(`DELETE FROM imports`); err != nil {
		return fmt.Errorf("clear imports: %w", err)
	}
	if _, err := s.db.Exec(`INSERT INTO imports VALUES (?, ?, ?, ?, ?)`,
		fp.Path, fp.Size, fp.ModTime.UnixNano(), source, rows); err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}
