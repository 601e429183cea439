// Package pg provides a PostgreSQL/pgvector-backed vector store with
// server-side attribute filtering over a JSONB metadata column.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"github.com/glowstack/dermassist/config"
	"github.com/glowstack/dermassist/vector"
)

// PGVectorStore implements vector.VectorStore and vector.FilterableStore
// using PostgreSQL with the pgvector extension.
type PGVectorStore struct {
	db        *sql.DB
	dimension int
	tableName string
}

// PGVectorConfig holds pgvector configuration.
type PGVectorConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	SSLMode   string
	Dimension int    // Embedding dimension (default: 1536 for OpenAI)
	TableName string // Table name (default: embeddings)
}

// DefaultPGVectorConfig returns default pgvector configuration.
func DefaultPGVectorConfig() *PGVectorConfig {
	return &PGVectorConfig{
		Host:      "127.0.0.1",
		Port:      5432,
		User:      "postgres",
		DBName:    "dermassist",
		SSLMode:   "disable",
		Dimension: 1536,
		TableName: "embeddings",
	}
}

// NewPGVectorStore creates a new pgvector-based vector store.
func NewPGVectorStore(cfg *PGVectorConfig) (*PGVectorStore, error) {
	if cfg == nil {
		cfg = DefaultPGVectorConfig()
	}
	if cfg.TableName == "" {
		cfg.TableName = "embeddings"
	}
	if err := config.NewValidator().
		RequireNonEmpty("host", cfg.Host).
		ValidatePort("port", cfg.Port).
		RequireNonEmpty("dbname", cfg.DBName).
		RequirePositive("dimension", cfg.Dimension).
		Err(); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}

	store := &PGVectorStore{
		db:        db,
		dimension: cfg.Dimension,
		tableName: cfg.TableName,
	}
	if err := store.setup(context.Background()); err != nil {
		return nil, fmt.Errorf("setup pgvector: %w", err)
	}
	return store, nil
}

func (s *PGVectorStore) setup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	createTableSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(255) PRIMARY KEY,
		text TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.tableName, s.dimension)

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// AddEmbedding inserts or updates an embedding row.
func (s *PGVectorStore) AddEmbedding(ctx context.Context, embedding *vector.Embedding) error {
	if embedding == nil {
		return fmt.Errorf("embedding cannot be nil")
	}
	if embedding.ID == "" {
		return fmt.Errorf("embedding ID cannot be empty")
	}
	if len(embedding.Vector) != s.dimension {
		return fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.dimension, len(embedding.Vector))
	}

	meta := embedding.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, text, embedding, metadata)
	VALUES ($1, $2, $3::vector, $4::jsonb)
	ON CONFLICT (id) DO UPDATE SET
		text = EXCLUDED.text,
		embedding = EXCLUDED.embedding,
		metadata = EXCLUDED.metadata,
		created_at = CURRENT_TIMESTAMP
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query, embedding.ID, embedding.Text, vectorToString(embedding.Vector), metaJSON)
	if err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}
	return nil
}

// Search finds the nearest embeddings by cosine distance.
func (s *PGVectorStore) Search(ctx context.Context, queryVector []float32, topK int) ([]*vector.Embedding, error) {
	return s.searchFiltered(ctx, queryVector, nil, topK)
}

// SearchFiltered pushes the attribute filter into the SQL WHERE clause so
// the candidate set shrinks before ranking.
func (s *PGVectorStore) SearchFiltered(ctx context.Context, queryVector []float32, filter vector.Filter, topK int) ([]*vector.Embedding, error) {
	return s.searchFiltered(ctx, queryVector, filter, topK)
}

func (s *PGVectorStore) searchFiltered(ctx context.Context, queryVector []float32, filter vector.Filter, topK int) ([]*vector.Embedding, error) {
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("query vector dimension mismatch: expected %d, got %d", s.dimension, len(queryVector))
	}
	if topK <= 0 {
		topK = 10
	}

	where, args := buildWhere(filter, 2)
	args = append([]any{vectorToString(queryVector)}, args...)

	query := fmt.Sprintf(`
	SELECT id, text, embedding::text, metadata
	FROM %s
	%s
	ORDER BY embedding <=> $1::vector, id
	LIMIT %d`, s.tableName, where, topK)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}
	defer rows.Close()

	var out []*vector.Embedding
	for rows.Next() {
		var (
			id       string
			text     string
			vecStr   string
			metaJSON []byte
		)
		if err := rows.Scan(&id, &text, &vecStr, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan embedding row: %w", err)
		}
		vec, err := stringToVector(vecStr)
		if err != nil {
			return nil, fmt.Errorf("decode embedding %s: %w", id, err)
		}
		var meta map[string]any
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &meta); err != nil {
				return nil, fmt.Errorf("decode metadata %s: %w", id, err)
			}
		}
		out = append(out, &vector.Embedding{ID: id, Text: text, Vector: vec, Metadata: meta})
	}
	return out, rows.Err()
}

// buildWhere translates a filter into SQL predicates over the JSONB column.
// Placeholders start at the given index because $1 is the query vector.
func buildWhere(filter vector.Filter, startIdx int) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}

	attrs := make([]string, 0, len(filter))
	for attr := range filter {
		attrs = append(attrs, attr)
	}
	// deterministic clause order
	sort.Strings(attrs)

	clauses := make([]string, 0, len(filter))
	args := make([]any, 0, len(filter))
	idx := startIdx
	for _, attr := range attrs {
		pred := filter[attr]
		switch pred.Op {
		case vector.OpEq:
			clauses = append(clauses, fmt.Sprintf("LOWER(metadata->>'%s') = LOWER($%d)", attr, idx))
			args = append(args, fmt.Sprintf("%v", pred.Value))
		case vector.OpLte:
			clauses = append(clauses, fmt.Sprintf("(metadata->>'%s')::numeric <= $%d", attr, idx))
			args = append(args, pred.Value)
		case vector.OpGte:
			clauses = append(clauses, fmt.Sprintf("(metadata->>'%s')::numeric >= $%d", attr, idx))
			args = append(args, pred.Value)
		case vector.OpContains:
			// case-insensitive membership, matching the in-memory evaluator
			clauses = append(clauses, fmt.Sprintf(
				"(CASE WHEN jsonb_typeof(metadata->'%[1]s') = 'array'"+
					" THEN EXISTS (SELECT 1 FROM jsonb_array_elements_text(metadata->'%[1]s') elem WHERE LOWER(elem) = LOWER($%[2]d))"+
					" ELSE LOWER(metadata->>'%[1]s') = LOWER($%[2]d) END)", attr, idx))
			args = append(args, fmt.Sprintf("%v", pred.Value))
		default:
			continue
		}
		idx++
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// DeleteEmbedding removes an embedding by ID.
func (s *PGVectorStore) DeleteEmbedding(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("embedding not found")
	}
	return nil
}

// GetEmbedding retrieves a specific embedding by ID.
func (s *PGVectorStore) GetEmbedding(ctx context.Context, id string) (*vector.Embedding, error) {
	query := fmt.Sprintf("SELECT id, text, embedding::text, metadata FROM %s WHERE id = $1", s.tableName)
	row := s.db.QueryRowContext(ctx, query, id)

	var (
		text     string
		vecStr   string
		metaJSON []byte
	)
	if err := row.Scan(&id, &text, &vecStr, &metaJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("embedding not found")
		}
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	vec, err := stringToVector(vecStr)
	if err != nil {
		return nil, fmt.Errorf("decode embedding %s: %w", id, err)
	}
	var meta map[string]any
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			return nil, fmt.Errorf("decode metadata %s: %w", id, err)
		}
	}
	return &vector.Embedding{ID: id, Text: text, Vector: vec, Metadata: meta}, nil
}

// Clear removes all embeddings.
func (s *PGVectorStore) Clear(ctx context.Context) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s", s.tableName)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("clear embeddings: %w", err)
	}
	return nil
}

// Count returns the number of embeddings.
func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableName)
	var count int
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// Close releases the database handle.
func (s *PGVectorStore) Close() error {
	return s.db.Close()
}

func vectorToString(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", v)
	}
	b.WriteByte(']')
	return b.String()
}

func stringToVector(s string) ([]float32, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		var v float64
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%g", &v); err != nil {
			return nil, fmt.Errorf("parse component %d: %w", i, err)
		}
		vec[i] = float32(v)
	}
	return vec, nil
}
