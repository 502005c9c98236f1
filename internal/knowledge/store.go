// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge holds the regulatory passages the retrieval engine
// searches. Passages live in named partitions of a vector store; a SQLite
// file for local use or Postgres with pgvector for shared deployments.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/compliance-review/pkg/types"
)

const (
	corpusDir = "corpus"
	indexDir  = "index"
	dbFile    = "knowledge.db"
)

// ErrDimensionMismatch is returned when a query vector and a stored vector
// differ in length.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// SQLiteStore keeps passages and their embeddings in a local SQLite
// database. Similarity is computed in process.
type SQLiteStore struct {
	db           *sql.DB
	knowledgeDir string
}

// NewSQLiteStore opens or creates knowledgeDir/index/knowledge.db and
// creates the schema if it does not exist.
func NewSQLiteStore(knowledgeDir string) (*SQLiteStore, error) {
	dbDir := filepath.Join(knowledgeDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db, knowledgeDir: knowledgeDir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Dir returns the knowledge base directory.
func (s *SQLiteStore) Dir() string {
	return s.knowledgeDir
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS passages (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			partition TEXT NOT NULL,
			id TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT,
			embedding BLOB,
			UNIQUE(partition, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_passages_partition ON passages(partition)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			source TEXT PRIMARY KEY,
			version TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS seeded_passages (
			source TEXT NOT NULL,
			partition TEXT NOT NULL,
			id TEXT NOT NULL,
			PRIMARY KEY (source, partition, id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Partitions returns every partition holding at least one passage, in
// order of first insertion.
func (s *SQLiteStore) Partitions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT partition FROM passages GROUP BY partition ORDER BY MIN(rowid)`)
	if err != nil {
		return nil, fmt.Errorf("listing partitions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning partition: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Add inserts p into partition, replacing any passage with the same id.
// A nil embedding stores the passage for sparse retrieval only.
func (s *SQLiteStore) Add(ctx context.Context, partition string, p types.StoredPassage, embedding []float32) error {
	meta, err := encodeMetadata(p.Metadata)
	if err != nil {
		return err
	}
	var blob []byte
	if len(embedding) > 0 {
		blob = encodeEmbedding(embedding)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO passages (partition, id, content, metadata, embedding)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(partition, id) DO UPDATE SET
			content=excluded.content, metadata=excluded.metadata, embedding=excluded.embedding`,
		partition, p.ID, p.Content, meta, blob,
	)
	if err != nil {
		return fmt.Errorf("inserting passage %s: %w", p.ID, err)
	}
	return nil
}

// Query returns the k passages of partition nearest to embedding by cosine
// distance. Passages stored without an embedding are not candidates.
func (s *SQLiteStore) Query(ctx context.Context, partition string, embedding []float32, k int) ([]types.Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata, embedding FROM passages
		 WHERE partition = ? AND embedding IS NOT NULL
		 ORDER BY rowid`, partition)
	if err != nil {
		return nil, fmt.Errorf("querying partition %s: %w", partition, err)
	}
	defer rows.Close()

	var matches []types.Match
	for rows.Next() {
		var (
			m    types.Match
			meta sql.NullString
			blob []byte
		)
		if err := rows.Scan(&m.ID, &m.Content, &meta, &blob); err != nil {
			return nil, fmt.Errorf("scanning passage: %w", err)
		}
		stored := decodeEmbedding(blob)
		if len(stored) != len(embedding) {
			return nil, fmt.Errorf("passage %s has %d dimensions, query has %d: %w",
				m.ID, len(stored), len(embedding), ErrDimensionMismatch)
		}
		m.Metadata = decodeMetadata(meta)
		m.Distance = cosineDistance(embedding, stored)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// All returns every passage of partition in insertion order.
func (s *SQLiteStore) All(ctx context.Context, partition string) ([]types.StoredPassage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata FROM passages WHERE partition = ? ORDER BY rowid`, partition)
	if err != nil {
		return nil, fmt.Errorf("reading partition %s: %w", partition, err)
	}
	defer rows.Close()

	var out []types.StoredPassage
	for rows.Next() {
		var (
			p    types.StoredPassage
			meta sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Content, &meta); err != nil {
			return nil, fmt.Errorf("scanning passage: %w", err)
		}
		p.Metadata = decodeMetadata(meta)
		out = append(out, p)
	}
	return out, rows.Err()
}

// SeededVersion returns the version recorded for source by MarkSeeded.
func (s *SQLiteStore) SeededVersion(ctx context.Context, source string) (string, bool, error) {
	var version string
	err := s.db.QueryRowContext(ctx,
		`SELECT version FROM indexing_status WHERE source = ?`, source,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading indexing status: %w", err)
	}
	return version, true, nil
}

// SeededPassages returns the passages recorded for source by MarkSeeded.
func (s *SQLiteStore) SeededPassages(ctx context.Context, source string) ([]PassageRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT partition, id FROM seeded_passages WHERE source = ? ORDER BY partition, id`, source)
	if err != nil {
		return nil, fmt.Errorf("reading seeded passages: %w", err)
	}
	defer rows.Close()

	var out []PassageRef
	for rows.Next() {
		var r PassageRef
		if err := rows.Scan(&r.Partition, &r.ID); err != nil {
			return nil, fmt.Errorf("scanning seeded passage: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkSeeded records that source has been ingested at version and now
// holds exactly passages.
func (s *SQLiteStore) MarkSeeded(ctx context.Context, source, version string, passages []PassageRef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO indexing_status (source, version) VALUES (?, ?)
		 ON CONFLICT(source) DO UPDATE SET version=excluded.version`,
		source, version,
	); err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM seeded_passages WHERE source = ?`, source); err != nil {
		return fmt.Errorf("clearing seeded passages: %w", err)
	}
	for _, r := range passages {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO seeded_passages (source, partition, id) VALUES (?, ?, ?)`,
			source, r.Partition, r.ID,
		); err != nil {
			return fmt.Errorf("recording seeded passage %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing indexing status: %w", err)
	}
	return nil
}

// Prune deletes the stale passages of source that no other source has
// seeded. It returns the number of passages removed.
func (s *SQLiteStore) Prune(ctx context.Context, source string, stale []PassageRef) (int, error) {
	removed := 0
	for _, r := range stale {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM passages WHERE partition = ? AND id = ?
			 AND NOT EXISTS (SELECT 1 FROM seeded_passages
				WHERE partition = ? AND id = ? AND source <> ?)`,
			r.Partition, r.ID, r.Partition, r.ID, source,
		)
		if err != nil {
			return removed, fmt.Errorf("pruning passage %s: %w", r.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			removed += int(n)
		}
	}
	return removed, nil
}

// encodeEmbedding packs v as little-endian float32 values.
func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

// cosineDistance returns 1 - cos(a, b). A zero vector is at distance 1
// from everything.
func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func encodeMetadata(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding metadata: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeMetadata(s sql.NullString) map[string]any {
	if !s.Valid || s.String == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil
	}
	return m
}
