package vector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/platformai/qa-agent/embeddings"
)

const defaultSearchLimit = 5

// PostgresStore keeps chunks in a pgvector-backed table. One instance wraps
// the process-wide pool and is safe for concurrent use.
type PostgresStore struct {
	pool     *pgxpool.Pool
	embedder embeddings.Embedder
}

func NewPostgresStore(pool *pgxpool.Pool, embedder embeddings.Embedder) *PostgresStore {
	return &PostgresStore{pool: pool, embedder: embedder}
}

func (s *PostgresStore) Add(ctx context.Context, ids []string, texts []string, metadatas []map[string]any) error {
	if len(ids) != len(texts) {
		return fmt.Errorf("ids and texts length mismatch: %d vs %d", len(ids), len(texts))
	}
	if metadatas != nil && len(metadatas) != len(ids) {
		return fmt.Errorf("ids and metadatas length mismatch: %d vs %d", len(ids), len(metadatas))
	}
	if len(ids) == 0 {
		return nil
	}
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed texts: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedding count mismatch: have %d texts, %d embeddings", len(texts), len(vectors))
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for i, id := range ids {
		meta := map[string]any{}
		if metadatas != nil && metadatas[i] != nil {
			meta = metadatas[i]
		}
		metaJSON, marshalErr := json.Marshal(meta)
		if marshalErr != nil {
			err = fmt.Errorf("marshal metadata for %s: %w", id, marshalErr)
			return err
		}

		if _, err = tx.Exec(ctx, `
			INSERT INTO qa_chunks (id, document, metadata, embedding, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			ON CONFLICT (id) DO UPDATE
			SET document = EXCLUDED.document,
			    metadata = EXCLUDED.metadata,
			    embedding = EXCLUDED.embedding,
			    updated_at = NOW()
		`, id, texts[i], metaJSON, pgvector.NewVector(vectors[i])); err != nil {
			err = fmt.Errorf("upsert chunk %s: %w", id, err)
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if k <= 0 {
		k = defaultSearchLimit
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := k * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT id, document, metadata, (embedding <-> $1::vector) AS distance
		FROM qa_chunks
		ORDER BY embedding <-> $1::vector
		LIMIT $2
	`, pgvector.NewVector(vectors[0]), k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0, k)
	for rows.Next() {
		var item Result
		var metaJSON []byte
		if scanErr := rows.Scan(&item.ID, &item.Document, &metaJSON, &item.Distance); scanErr != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", scanErr)
		}
		if len(metaJSON) > 0 {
			if unmarshalErr := json.Unmarshal(metaJSON, &item.Metadata); unmarshalErr != nil {
				return nil, fmt.Errorf("decode chunk metadata: %w", unmarshalErr)
			}
		}
		results = append(results, item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM qa_chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if _, err := s.pool.Exec(ctx, "TRUNCATE qa_chunks"); err != nil {
		return fmt.Errorf("truncate chunks: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
