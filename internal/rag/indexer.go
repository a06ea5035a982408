package rag

import (
	"context"
	"fmt"

	"rag-chat/internal/chromemdb"
	"rag-chat/internal/models"
	"rag-chat/internal/parser"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
)

type Indexer struct {
	extractor parser.Extractor
	splitter  parser.Splitter
	embedder  embeddings.Embedder
}

func NewIndexer(extractor parser.Extractor, splitter parser.Splitter, embedder embeddings.Embedder) *Indexer {
	return &Indexer{extractor: extractor, splitter: splitter, embedder: embedder}
}

// Chunk extracts and splits every document, keeping input order across
// documents and splitter order within each one. Any failure aborts the batch.
func (ix *Indexer) Chunk(docs []parser.Document) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for i, doc := range docs {
		text, err := ix.extractor.Extract(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to extract document %d (%s): %w", i, doc.Name, err)
		}
		parts, err := ix.splitter.Split(text)
		if err != nil {
			return nil, fmt.Errorf("failed to split document %d (%s): %w", i, doc.Name, err)
		}
		for p, content := range parts {
			chunks = append(chunks, models.Chunk{Content: content, Document: i, Position: p})
		}
		log.Debug().Int("document", i).Str("name", doc.Name).Int("chunks", len(parts)).Msg("Document chunked")
	}
	return chunks, nil
}

// Build returns a new index over docs, or nil when they hold no text.
func (ix *Indexer) Build(ctx context.Context, docs []parser.Document) (*chromemdb.Index, error) {
	chunks, err := ix.Chunk(docs)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	return chromemdb.Build(ctx, ix.embedder, chunks)
}
