// Package cache implements Nova's incremental-compile cache: one row per
// source file, keyed by path and content hash, storing whether the last
// compile of that exact content succeeded and the diagnostics it produced.
// Its Open/init/per-table-struct shape is grounded on the teacher's
// server/dao/sqlite package (NewDatastore opening one *sql.DB and handing
// out table-scoped DAO structs that each run their own init()).
package cache

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/dekarrin/rezi"
	"github.com/dekarrin/nova/internal/diag"

	"modernc.org/sqlite"
)

// Record is the rezi-encodable shape a diag.Error is converted to/from for
// storage; it deliberately doesn't reuse diag.Error directly so the cache's
// on-disk format doesn't shift every time that type grows a field.
type Record struct {
	Kind    string
	Message string
	Loc     string
}

func toRecord(e *diag.Error) Record {
	return Record{Kind: e.Kind.String(), Message: e.Message, Loc: e.Location.String()}
}

// Entry is one cached compile result for a single source file.
type Entry struct {
	Path        string
	ContentHash string
	Success     bool
	Diagnostics []Record
	CompiledAt  time.Time
}

// Store is the incremental-compile cache, backed by one sqlite database
// file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the cache database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapDBError(err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	stmt := `CREATE TABLE IF NOT EXISTS compile_cache (
		path TEXT NOT NULL PRIMARY KEY,
		content_hash TEXT NOT NULL,
		success INTEGER NOT NULL,
		diagnostics TEXT NOT NULL,
		compiled_at INTEGER NOT NULL
	);`
	_, err := s.db.Exec(stmt)
	return wrapDBError(err)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the cached entry for path, if one exists whose stored
// content hash matches contentHash exactly -- any mismatch (including "no
// row at all") is reported as a cache miss, never an error.
func (s *Store) Lookup(ctx context.Context, path, contentHash string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT content_hash, success, diagnostics, compiled_at FROM compile_cache WHERE path = ?;`, path)

	var storedHash, encDiags string
	var success int
	var compiledAt int64
	err := row.Scan(&storedHash, &success, &encDiags, &compiledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, wrapDBError(err)
	}
	if storedHash != contentHash {
		return Entry{}, false, nil
	}

	diags, err := decodeDiagnostics(encDiags)
	if err != nil {
		return Entry{}, false, err
	}

	return Entry{
		Path:        path,
		ContentHash: storedHash,
		Success:     success != 0,
		Diagnostics: diags,
		CompiledAt:  time.Unix(compiledAt, 0),
	}, true, nil
}

// Put records the result of compiling path at contentHash, overwriting any
// prior row for that path.
func (s *Store) Put(ctx context.Context, path, contentHash string, errs []*diag.Error) error {
	recs := make([]Record, len(errs))
	for i, e := range errs {
		recs[i] = toRecord(e)
	}
	encDiags := encodeDiagnostics(recs)

	successFlag := 0
	if len(errs) == 0 {
		successFlag = 1
	}

	_, execErr := s.db.ExecContext(ctx,
		`INSERT INTO compile_cache (path, content_hash, success, diagnostics, compiled_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET content_hash=excluded.content_hash,
		   success=excluded.success, diagnostics=excluded.diagnostics, compiled_at=excluded.compiled_at;`,
		path, contentHash, successFlag, encDiags, time.Now().Unix())
	return wrapDBError(execErr)
}

func encodeDiagnostics(recs []Record) string {
	data := rezi.EncBinary(recs)
	return base64.StdEncoding.EncodeToString(data)
}

func decodeDiagnostics(enc string) ([]Record, error) {
	if enc == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, fmt.Errorf("stored diagnostics are not valid base64: %w", err)
	}
	var recs []Record
	n, err := rezi.DecBinary(data, &recs)
	if err != nil {
		return nil, fmt.Errorf("REZI decode of cached diagnostics: %w", err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("REZI decoded byte count mismatch; only consumed %d/%d bytes", n, len(data))
	}
	return recs, nil
}

func wrapDBError(err error) error {
	if err == nil {
		return nil
	}
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		return fmt.Errorf("%s", sqlite.ErrorCodeString[sqliteErr.Code()])
	}
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return err
}
