package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/tmc/langchaingo/embeddings"
)

// MockEmbedder is an offline embedder: a hashed bag of lowercase words,
// L2-normalised. Texts sharing words land close together.
type MockEmbedder struct {
	Dim int
}

var _ embeddings.Embedder = MockEmbedder{}

func NewMockEmbedder(dim int) MockEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return MockEmbedder{Dim: dim}
}

func (m MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := m.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (m MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dim := m.Dim
	if dim <= 0 {
		dim = 256
	}
	vec := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%uint32(dim)]++
	}
	if len(words) == 0 {
		vec[0] = 1
	}

	var sum float64
	for _, x := range vec {
		sum += float64(x * x)
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}
