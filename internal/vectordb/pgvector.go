package vectordb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/ziadkadry99/manualqa/internal/documents"
)

const pgTable = "manual_chunks"

// PGVectorStore implements Store on PostgreSQL with the pgvector extension.
// Rows are durable as soon as Add returns, so Persist is a no-op.
type PGVectorStore struct {
	pool  *pgxpool.Pool
	dims  int
	count atomic.Int64
}

// NewPGVectorStore connects to connString. dims must match the embedder.
func NewPGVectorStore(ctx context.Context, connString string, dims int) (*PGVectorStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PGVectorStore{pool: pool, dims: dims}, nil
}

func (s *PGVectorStore) Reset(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`DROP TABLE IF EXISTS ` + pgTable,
		fmt.Sprintf(`CREATE TABLE %s (
			id        TEXT PRIMARY KEY,
			source    TEXT NOT NULL,
			page      INTEGER NOT NULL,
			content   TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, pgTable, s.dims),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reset %s: %w", pgTable, err)
		}
	}
	s.count.Store(0)
	return nil
}

func (s *PGVectorStore) Add(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO `+pgTable+` (id, source, page, content, embedding)
			 VALUES ($1, $2, $3, $4, $5)`,
			e.ID, e.Chunk.Source, int(e.Chunk.Page), e.Chunk.Text, pgvector.NewVector(e.Embedding),
		)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	s.count.Add(int64(len(entries)))
	return nil
}

func (s *PGVectorStore) Query(ctx context.Context, vec []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT source, page, content, 1 - (embedding <=> $1) AS score
		 FROM `+pgTable+`
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(vec), k,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var (
			source, content string
			page            int
			score           float64
		)
		if err := rows.Scan(&source, &page, &content, &score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		out = append(out, SearchResult{
			Chunk: documents.Chunk{Text: content, Source: source, Page: documents.PageNumber(page)},
			Score: float32(score),
		})
	}
	return out, rows.Err()
}

func (s *PGVectorStore) Persist(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `ANALYZE `+pgTable); err != nil {
		return fmt.Errorf("analyze %s: %w", pgTable, err)
	}
	return nil
}

func (s *PGVectorStore) Load(ctx context.Context) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, pgTable).Scan(&exists); err != nil {
		return fmt.Errorf("checking for %s: %w", pgTable, err)
	}
	if !exists {
		return fmt.Errorf("%w: table %s does not exist", ErrIndexNotFound, pgTable)
	}

	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM `+pgTable).Scan(&n); err != nil {
		return fmt.Errorf("counting %s: %w", pgTable, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: table %s is empty", ErrIndexNotFound, pgTable)
	}
	s.count.Store(n)
	return nil
}

func (s *PGVectorStore) Count() int {
	return int(s.count.Load())
}

func (s *PGVectorStore) Close() error {
	s.pool.Close()
	return nil
}
