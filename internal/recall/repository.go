// Package recall mirrors embedded graph nodes into Postgres/pgvector and
// answers cosine-similarity queries over them. The whole package is
// optional: nothing else depends on it, and it only runs when a Postgres
// DSN is configured.
package recall

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/mindforge-ai/mindforge/internal/graph"
)

// Repository stores node embeddings for similarity search.
type Repository interface {
	Upsert(ctx context.Context, node graph.Node) error
	Delete(ctx context.Context, nodeID string) error
	DeleteAll(ctx context.Context) error
	Search(ctx context.Context, embedding []float32, limit int, threshold float64) ([]Result, error)
	Ping(ctx context.Context) error
}

// PostgresRepository implements Repository using pgx + pgvector.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository wraps an existing connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Upsert(ctx context.Context, node graph.Node) error {
	vec := pgvector.NewVector(node.Embedding)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO recall_nodes (node_id, node_type, content, embedding, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (node_id) DO UPDATE
		 SET node_type = excluded.node_type,
		     content = excluded.content,
		     embedding = excluded.embedding,
		     updated_at = now()`,
		node.ID, string(node.Type), node.Content, vec,
	)
	if err != nil {
		return fmt.Errorf("upserting recall node: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, nodeID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM recall_nodes WHERE node_id = $1`, nodeID)
	if err != nil {
		return fmt.Errorf("deleting recall node: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM recall_nodes`)
	if err != nil {
		return fmt.Errorf("clearing recall nodes: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Search(ctx context.Context, embedding []float32, limit int, threshold float64) ([]Result, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx,
		`SELECT node_id, node_type, content, updated_at,
		        1 - (embedding <=> $1) AS similarity
		 FROM recall_nodes
		 WHERE 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching recall nodes: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var res Result
		if err := rows.Scan(&res.NodeID, &res.Type, &res.Content, &res.UpdatedAt, &res.Similarity); err != nil {
			return nil, fmt.Errorf("scanning recall result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
