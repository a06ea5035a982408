package rag

import (
	"fmt"

	"rag-chat/internal/config"
	"rag-chat/internal/embedding"
	"rag-chat/internal/llmservice"
	"rag-chat/internal/parser"
	"rag-chat/internal/websearch"
)

// NewSessionFromConfig builds every collaborator from cfg.
func NewSessionFromConfig(cfg *config.Config) (*Session, error) {
	splitter, err := parser.NewSplitter(cfg.RAG.Splitter, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}
	model, err := llmservice.NewModel(&cfg.LLM, "")
	if err != nil {
		return nil, err
	}
	vision := model
	if cfg.LLM.VisionModel != "" && cfg.LLM.VisionModel != cfg.LLM.Model {
		if vision, err = llmservice.NewModel(&cfg.LLM, cfg.LLM.VisionModel); err != nil {
			return nil, fmt.Errorf("failed to create vision model: %w", err)
		}
	}
	searcher, err := websearch.New(&cfg.Search)
	if err != nil {
		return nil, err
	}

	return NewSession(cfg, Deps{
		Extractor: parser.NewExtractor(),
		Splitter:  splitter,
		Embedder:  embedder,
		Model:     model,
		Vision:    vision,
		Searcher:  searcher,
	})
}
