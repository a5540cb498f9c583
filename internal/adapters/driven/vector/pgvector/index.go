// Package pgvector provides a Postgres-backed vector index using the
// pgvector extension. It suits installations where report corpora are
// too large to hold in process memory, at the cost of a database
// round trip per search.
package pgvector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
)

// Ensure the adapter implements the vector ports.
var (
	_ driven.VectorIndexFactory = (*Factory)(nil)
	_ driven.IndexSnapshot      = (*Snapshot)(nil)
)

// Factory builds immutable snapshot views over a pgvector table.
//
// Each build inserts the document's vectors under a fresh build ID and
// only then drops the document's previous builds, so a concurrent
// search against the old snapshot keeps working during re-ingest.
type Factory struct {
	pool *pgxpool.Pool
}

// NewFactory connects to Postgres and prepares the vector table.
func NewFactory(ctx context.Context, connString string) (*Factory, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	f := &Factory{pool: pool}
	if err := f.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return f, nil
}

// Close releases the connection pool.
func (f *Factory) Close() {
	f.pool.Close()
}

func (f *Factory) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS vector_chunks (
			build_id    UUID NOT NULL,
			document_id TEXT NOT NULL,
			chunk_id    TEXT NOT NULL,
			position    INTEGER NOT NULL,
			embedding   vector NOT NULL,
			PRIMARY KEY (build_id, chunk_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vector_chunks_build ON vector_chunks (build_id)`,
	}
	for _, stmt := range statements {
		if _, err := f.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("preparing schema: %w", err)
		}
	}
	return nil
}

// Build inserts the document's vectors under a new build ID and returns
// a snapshot bound to it. The build is all-or-nothing.
func (f *Factory) Build(ctx context.Context, doc domain.Document, chunks []domain.Chunk, vectors [][]float32, modelName string) (driven.IndexSnapshot, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s has no chunks to index: %w", doc.ID, domain.ErrEmbeddingUnavailable)
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("document %s: %d chunks but %d vectors: %w",
			doc.ID, len(chunks), len(vectors), domain.ErrEmbeddingUnavailable)
	}
	dims := len(vectors[0])
	if dims == 0 {
		return nil, fmt.Errorf("document %s: zero-dimension vectors: %w", doc.ID, domain.ErrEmbeddingUnavailable)
	}
	for i, vec := range vectors {
		if len(vec) != dims {
			return nil, fmt.Errorf("document %s: chunk %d has %d dimensions, expected %d: %w",
				doc.ID, i, len(vec), dims, domain.ErrEmbeddingUnavailable)
		}
	}

	buildID := uuid.New()

	batch := &pgx.Batch{}
	for i, c := range chunks {
		batch.Queue(
			`INSERT INTO vector_chunks (build_id, document_id, chunk_id, position, embedding)
			 VALUES ($1, $2, $3, $4, $5)`,
			buildID, doc.ID, c.ID, c.Position, pgv.NewVector(vectors[i]),
		)
	}

	tx, err := f.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning build transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return nil, fmt.Errorf("inserting vectors for %s: %w", doc.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("closing batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing build: %w", err)
	}

	// Old builds are only dropped once the new one is fully committed.
	if _, err := f.pool.Exec(ctx,
		`DELETE FROM vector_chunks WHERE document_id = $1 AND build_id <> $2`,
		doc.ID, buildID); err != nil {
		return nil, fmt.Errorf("dropping previous builds for %s: %w", doc.ID, err)
	}

	return &Snapshot{
		pool:       f.pool,
		buildID:    buildID,
		documentID: doc.ID,
		modelName:  modelName,
		dimensions: dims,
		size:       len(chunks),
	}, nil
}

// Snapshot is an immutable view over one build's rows.
type Snapshot struct {
	pool       *pgxpool.Pool
	buildID    uuid.UUID
	documentID string
	modelName  string
	dimensions int
	size       int
}

// Search finds the k nearest chunks by cosine distance. Ties break by
// chunk position so ranking stays deterministic.
func (s *Snapshot) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w",
			len(query), s.dimensions, domain.ErrIndexModelMismatch)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT chunk_id, 1 - (embedding <=> $1) AS similarity
		 FROM vector_chunks
		 WHERE build_id = $2
		 ORDER BY embedding <=> $1, position
		 LIMIT $3`,
		pgv.NewVector(query), s.buildID, k,
	)
	if err != nil {
		return nil, fmt.Errorf("searching document %s: %w", s.documentID, err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var hit driven.VectorHit
		if err := rows.Scan(&hit.ChunkID, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		if hit.Similarity < 0 {
			hit.Similarity = 0
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// DocumentID returns the owning document.
func (s *Snapshot) DocumentID() string { return s.documentID }

// ModelName returns the embedding model the snapshot was built with.
func (s *Snapshot) ModelName() string { return s.modelName }

// Dimensions returns the vector size the snapshot was built with.
func (s *Snapshot) Dimensions() int { return s.dimensions }

// Size returns the number of indexed chunks.
func (s *Snapshot) Size() int { return s.size }
