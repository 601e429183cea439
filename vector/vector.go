package vector

import (
	"context"
	"math"
)

// Embedding represents a stored vector together with the text it was derived
// from and the structured attributes used for filtered search.
type Embedding struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// VectorStore defines the interface for vector storage and similarity search.
type VectorStore interface {
	// AddEmbedding adds a new embedding to the store
	AddEmbedding(ctx context.Context, embedding *Embedding) error

	// Search finds embeddings similar to the query vector
	Search(ctx context.Context, queryVector []float32, topK int) ([]*Embedding, error)

	// DeleteEmbedding removes an embedding by ID
	DeleteEmbedding(ctx context.Context, id string) error

	// GetEmbedding retrieves a specific embedding by ID
	GetEmbedding(ctx context.Context, id string) (*Embedding, error)

	// Clear removes all embeddings
	Clear(ctx context.Context) error

	// Count returns the number of embeddings
	Count(ctx context.Context) (int, error)
}

// FilterableStore is implemented by stores that can evaluate structured
// attribute filters at query time, before ranking. Stores without this
// capability are post-filtered by the caller over an over-fetched set.
type FilterableStore interface {
	SearchFiltered(ctx context.Context, queryVector []float32, filter Filter, topK int) ([]*Embedding, error)
}

// Embedder defines the interface for creating embeddings from text.
type Embedder interface {
	// Embed converts text to a vector embedding
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts multiple texts to embeddings
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension return number of embedding dimensions
	Dimension() int
}

// CosineSimilarity calculates the cosine similarity between two vectors
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (normA*normB + 1e-8)
}

// Normalize scales the vector to unit length (L2 norm) in place.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
