// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pdiddy/compliance-review/pkg/types"
)

// PGVectorStore keeps passages in Postgres and lets pgvector rank them.
type PGVectorStore struct {
	pool *pgxpool.Pool
}

// NewPGVectorStore connects to databaseURL and verifies the connection.
func NewPGVectorStore(ctx context.Context, databaseURL string) (*PGVectorStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PGVectorStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PGVectorStore) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema creates the pgvector extension and tables if needed.
func (s *PGVectorStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS regulatory_passages (
			seq BIGSERIAL,
			partition TEXT NOT NULL,
			id TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector,
			PRIMARY KEY (partition, id)
		)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			source TEXT PRIMARY KEY,
			version TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS seeded_passages (
			source TEXT NOT NULL,
			partition TEXT NOT NULL,
			id TEXT NOT NULL,
			PRIMARY KEY (source, partition, id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Partitions returns every partition holding at least one passage, in
// order of first insertion.
func (s *PGVectorStore) Partitions(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT partition FROM regulatory_passages GROUP BY partition ORDER BY MIN(seq)`)
	if err != nil {
		return nil, fmt.Errorf("listing partitions: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning partitions: %w", err)
	}
	return out, nil
}

// Add inserts p into partition, replacing any passage with the same id.
func (s *PGVectorStore) Add(ctx context.Context, partition string, p types.StoredPassage, embedding []float32) error {
	var meta any
	if len(p.Metadata) > 0 {
		data, err := json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		meta = string(data)
	}
	var vec any
	if len(embedding) > 0 {
		vec = formatVector(embedding)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO regulatory_passages (partition, id, content, metadata, embedding)
		 VALUES ($1, $2, $3, $4::jsonb, $5::vector)
		 ON CONFLICT (partition, id) DO UPDATE SET
			content = EXCLUDED.content, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`,
		partition, p.ID, p.Content, meta, vec,
	)
	if err != nil {
		return fmt.Errorf("inserting passage %s: %w", p.ID, err)
	}
	return nil
}

// Query returns the k passages of partition nearest to embedding using the
// pgvector cosine distance operator.
func (s *PGVectorStore) Query(ctx context.Context, partition string, embedding []float32, k int) ([]types.Match, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, content, metadata, embedding <=> $2::vector AS distance
		 FROM regulatory_passages
		 WHERE partition = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $2::vector, seq
		 LIMIT $3`,
		partition, formatVector(embedding), k,
	)
	if err != nil {
		return nil, fmt.Errorf("querying partition %s: %w", partition, err)
	}
	defer rows.Close()

	var matches []types.Match
	for rows.Next() {
		var (
			m    types.Match
			meta []byte
		)
		if err := rows.Scan(&m.ID, &m.Content, &meta, &m.Distance); err != nil {
			return nil, fmt.Errorf("scanning passage: %w", err)
		}
		m.Metadata = unmarshalMetadata(meta)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passages: %w", err)
	}
	return matches, nil
}

// All returns every passage of partition in insertion order.
func (s *PGVectorStore) All(ctx context.Context, partition string) ([]types.StoredPassage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, content, metadata FROM regulatory_passages WHERE partition = $1 ORDER BY seq`,
		partition)
	if err != nil {
		return nil, fmt.Errorf("reading partition %s: %w", partition, err)
	}
	defer rows.Close()

	var out []types.StoredPassage
	for rows.Next() {
		var (
			p    types.StoredPassage
			meta []byte
		)
		if err := rows.Scan(&p.ID, &p.Content, &meta); err != nil {
			return nil, fmt.Errorf("scanning passage: %w", err)
		}
		p.Metadata = unmarshalMetadata(meta)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passages: %w", err)
	}
	return out, nil
}

// SeededVersion returns the version recorded for source by MarkSeeded.
func (s *PGVectorStore) SeededVersion(ctx context.Context, source string) (string, bool, error) {
	var version string
	err := s.pool.QueryRow(ctx,
		`SELECT version FROM indexing_status WHERE source = $1`, source,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading indexing status: %w", err)
	}
	return version, true, nil
}

// SeededPassages returns the passages recorded for source by MarkSeeded.
func (s *PGVectorStore) SeededPassages(ctx context.Context, source string) ([]PassageRef, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT partition, id FROM seeded_passages WHERE source = $1 ORDER BY partition, id`, source)
	if err != nil {
		return nil, fmt.Errorf("reading seeded passages: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[PassageRef])
	if err != nil {
		return nil, fmt.Errorf("scanning seeded passages: %w", err)
	}
	return out, nil
}

// MarkSeeded records that source has been ingested at version and now
// holds exactly passages.
func (s *PGVectorStore) MarkSeeded(ctx context.Context, source, version string, passages []PassageRef) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO indexing_status (source, version) VALUES ($1, $2)
			 ON CONFLICT (source) DO UPDATE SET version = EXCLUDED.version`,
			source, version,
		); err != nil {
			return fmt.Errorf("updating indexing status: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM seeded_passages WHERE source = $1`, source); err != nil {
			return fmt.Errorf("clearing seeded passages: %w", err)
		}
		for _, r := range passages {
			if _, err := tx.Exec(ctx,
				`INSERT INTO seeded_passages (source, partition, id) VALUES ($1, $2, $3)
				 ON CONFLICT DO NOTHING`,
				source, r.Partition, r.ID,
			); err != nil {
				return fmt.Errorf("recording seeded passage %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

// Prune deletes the stale passages of source that no other source has
// seeded. It returns the number of passages removed.
func (s *PGVectorStore) Prune(ctx context.Context, source string, stale []PassageRef) (int, error) {
	removed := 0
	for _, r := range stale {
		tag, err := s.pool.Exec(ctx,
			`DELETE FROM regulatory_passages WHERE partition = $1 AND id = $2
			 AND NOT EXISTS (SELECT 1 FROM seeded_passages
				WHERE partition = $1 AND id = $2 AND source <> $3)`,
			r.Partition, r.ID, source,
		)
		if err != nil {
			return removed, fmt.Errorf("pruning passage %s: %w", r.ID, err)
		}
		removed += int(tag.RowsAffected())
	}
	return removed, nil
}

// formatVector renders an embedding in pgvector's text input format.
func formatVector(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func unmarshalMetadata(data []byte) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
