// Package state persists run, item, and fingerprint bookkeeping in a SQLite
// database under the pipeline's metadata root. The store is shared
// read/write by every worker; SQLite (WAL, busy timeout) serializes the
// writes, and the dedup engine's mutex serializes compare+append sequences.
package state

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DBFile is the database filename created under the metadata root.
const DBFile = "state.db"

// Scope controls how far fingerprint lookups reach.
type Scope int

const (
	// ScopeRun compares fingerprints only within the current run. Default.
	ScopeRun Scope = iota
	// ScopeStore compares fingerprints across every run sharing this store
	// path, so duplicates are caught between pipeline executions.
	ScopeStore
)

// Run is one pipeline execution's audit record.
type Run struct {
	ID           string
	PipelineName string
	StartedAt    time.Time
	TotalItems   int
	Status       string
}

// Item is one processed record's outcome.
type Item struct {
	RunID     string
	ItemIndex int
	Status    string
}

// Store is a SQLite-backed state store. Safe for concurrent use.
type Store struct {
	db    *sql.DB
	scope Scope
}

// Option configures a Store at open time.
type Option func(*Store)

// WithScope sets the fingerprint lookup scope (default ScopeRun).
func WithScope(s Scope) Option {
	return func(st *Store) {
		st.scope = s
	}
}

// Open opens or creates the state database under dir and runs migrations.
// The directory is created if it does not exist.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	path := filepath.Join(dir, DBFile)
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Scope returns the configured lookup scope.
func (s *Store) Scope() Scope { return s.scope }

func (s *Store) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		if _, err := s.db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersion {
		return fmt.Errorf("unknown schema version %d (want %d)", v, schemaVersion)
	}
	return nil
}

func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// CreateRun records the start of a pipeline execution.
func (s *Store) CreateRun(ctx context.Context, runID, pipelineName string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs(run_id, pipeline_name, started_at, total_items, status) VALUES(?, ?, ?, 0, 'running')",
		runID, pipelineName, nowUTC())
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun finalizes a run's item count and status.
func (s *Store) FinishRun(ctx context.Context, runID string, totalItems int, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE runs SET total_items = ?, status = ? WHERE run_id = ?",
		totalItems, status, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Runs lists all recorded runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, pipeline_name, started_at, total_items, status FROM runs ORDER BY started_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &r.PipelineName, &started, &r.TotalItems, &r.Status); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AddItem records one processed record's outcome.
func (s *Store) AddItem(ctx context.Context, runID string, itemIndex int, status string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO items(run_id, item_index, status, created_at) VALUES(?, ?, ?, ?) ON CONFLICT(run_id, item_index) DO UPDATE SET status=excluded.status",
		runID, itemIndex, status, nowUTC())
	if err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	return nil
}

// Items lists a run's item outcomes ordered by index.
func (s *Store) Items(ctx context.Context, runID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, item_index, status FROM items WHERE run_id = ? ORDER BY item_index", runID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.RunID, &it.ItemIndex, &it.Status); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// AddHash appends an exact-hash fingerprint.
func (s *Store) AddHash(ctx context.Context, runID string, itemIndex int, field, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO hashes(run_id, item_index, field, value, created_at) VALUES(?, ?, ?, ?, ?)",
		runID, itemIndex, field, value, nowUTC())
	if err != nil {
		return fmt.Errorf("add hash: %w", err)
	}
	return nil
}

// HashExists reports whether an identical fingerprint was already stored
// within the configured scope.
func (s *Store) HashExists(ctx context.Context, runID, field, value string) (bool, error) {
	q := "SELECT 1 FROM hashes WHERE field = ? AND value = ?"
	args := []any{field, value}
	if s.scope == ScopeRun {
		q += " AND run_id = ?"
		args = append(args, runID)
	}
	q += " LIMIT 1"

	var one int
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("hash lookup: %w", err)
	}
	return true, nil
}

// AddSimHash appends a simhash fingerprint. The uint64 is stored as its
// two's-complement int64 so the full bit pattern round-trips.
func (s *Store) AddSimHash(ctx context.Context, runID string, itemIndex int, field string, value uint64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO simhashes(run_id, item_index, field, value, created_at) VALUES(?, ?, ?, ?, ?)",
		runID, itemIndex, field, int64(value), nowUTC())
	if err != nil {
		return fmt.Errorf("add simhash: %w", err)
	}
	return nil
}

// SimHashes returns every stored simhash for the field within scope.
func (s *Store) SimHashes(ctx context.Context, runID, field string) ([]uint64, error) {
	q := "SELECT value FROM simhashes WHERE field = ?"
	args := []any{field}
	if s.scope == ScopeRun {
		q += " AND run_id = ?"
		args = append(args, runID)
	}
	return s.querySimHashes(ctx, q, args)
}

// SimHashCandidates preselects stored simhashes sharing at least one 16-bit
// band with the query fingerprint. Complete for Hamming distance <= 3 by
// pigeonhole over the four bands.
func (s *Store) SimHashCandidates(ctx context.Context, runID, field string, query uint64) ([]uint64, error) {
	v := int64(query)
	b0 := v & 0xFFFF
	b1 := (v >> 16) & 0xFFFF
	b2 := (v >> 32) & 0xFFFF
	b3 := (v >> 48) & 0xFFFF

	q := "SELECT value FROM simhashes WHERE field = ? AND (b0 = ? OR b1 = ? OR b2 = ? OR b3 = ?)"
	args := []any{field, b0, b1, b2, b3}
	if s.scope == ScopeRun {
		q += " AND run_id = ?"
		args = append(args, runID)
	}
	return s.querySimHashes(ctx, q, args)
}

func (s *Store) querySimHashes(ctx context.Context, q string, args []any) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("simhash lookup: %w", err)
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, uint64(v))
	}
	return out, rows.Err()
}

// AddEmbedding appends an embedding fingerprint as a float32 little-endian
// blob.
func (s *Store) AddEmbedding(ctx context.Context, runID string, itemIndex int, field string, vec []float32) error {
	buf := make([]byte, 0, len(vec)*4)
	for _, f := range vec {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO embeddings(run_id, item_index, field, value, created_at) VALUES(?, ?, ?, ?, ?)",
		runID, itemIndex, field, buf, nowUTC())
	if err != nil {
		return fmt.Errorf("add embedding: %w", err)
	}
	return nil
}

// Embeddings returns every stored embedding for the field within scope.
// Blobs whose length is not a multiple of 4 are skipped.
func (s *Store) Embeddings(ctx context.Context, runID, field string) ([][]float32, error) {
	q := "SELECT value FROM embeddings WHERE field = ?"
	args := []any{field}
	if s.scope == ScopeRun {
		q += " AND run_id = ?"
		args = append(args, runID)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("embedding lookup: %w", err)
	}
	defer rows.Close()

	var out [][]float32
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		if len(blob)%4 != 0 {
			continue
		}
		vec := make([]float32, len(blob)/4)
		for i := range vec {
			vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
		}
		out = append(out, vec)
	}
	return out, rows.Err()
}
