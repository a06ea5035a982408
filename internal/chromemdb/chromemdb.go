package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"

	"rag-chat/internal/models"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
)

const collectionName = "documents"

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Index is an immutable similarity index over one batch of chunks. It owns a
// private in-memory chromem database; a new batch gets a new Index.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
	chunks     []models.Chunk
	dim        int
}

// Build embeds every chunk and loads them into a fresh collection. Document
// IDs are the chunk positions, which break similarity ties on retrieval.
func Build(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, errors.New("no chunks to index")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != dim {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(vectors[i]), dim)
		}
		docs[i] = chromem.Document{
			ID:      strconv.Itoa(i),
			Content: c.Content,
			Metadata: map[string]string{
				"document": strconv.Itoa(c.Document),
				"position": strconv.Itoa(c.Position),
			},
			Embedding: vectors[i],
		}
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, embeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}
	log.Debug().Int("chunks", len(docs)).Int("dimensions", dim).Msg("Index built")

	return &Index{
		db:         db,
		collection: collection,
		embedder:   embedder,
		chunks:     append([]models.Chunk(nil), chunks...),
		dim:        dim,
	}, nil
}

func embeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}

// Count returns the number of indexed chunks.
func (idx *Index) Count() int {
	return idx.collection.Count()
}

// Chunks returns the indexed chunks in insertion order.
func (idx *Index) Chunks() []models.Chunk {
	return append([]models.Chunk(nil), idx.chunks...)
}

// Retrieve returns the k chunks most similar to query, most similar first.
// Equal similarities keep insertion order.
func (idx *Index) Retrieve(ctx context.Context, query string, k int) ([]models.Chunk, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := idx.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vec) != idx.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(vec), idx.dim)
	}

	// chromem orders ties arbitrarily, so rank the whole collection here.
	results, err := idx.collection.QueryEmbedding(ctx, vec, idx.collection.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	ranked, err := rank(results)
	if err != nil {
		return nil, err
	}

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]models.Chunk, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, idx.chunks[r.pos])
	}
	return out, nil
}

type scored struct {
	pos        int
	similarity float32
}

func rank(results []chromem.Result) ([]scored, error) {
	ranked := make([]scored, 0, len(results))
	for _, r := range results {
		pos, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, fmt.Errorf("unexpected document id %q: %w", r.ID, err)
		}
		ranked = append(ranked, scored{pos: pos, similarity: r.Similarity})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].similarity != ranked[j].similarity {
			return ranked[i].similarity > ranked[j].similarity
		}
		return ranked[i].pos < ranked[j].pos
	})
	return ranked, nil
}
