package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"rag-chat/internal/chromemdb"
	"rag-chat/internal/config"
	"rag-chat/internal/llmservice"
	"rag-chat/internal/models"
	"rag-chat/internal/parser"
	"rag-chat/internal/websearch"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrEmptyQuestion = errors.New("question is empty")

var tracer = otel.Tracer("rag")

// Deps are the external collaborators of a Session. Vision defaults to
// Model. A nil Searcher disables web search.
type Deps struct {
	Extractor parser.Extractor
	Splitter  parser.Splitter
	Embedder  embeddings.Embedder
	Model     llms.Model
	Vision    llms.Model
	Searcher  websearch.Searcher
}

// Session owns at most one live index. Answer reads it through an atomic
// pointer; BuildIndex calls are serialised and swap in a fully built index.
type Session struct {
	indexer      *Indexer
	reformulator *Reformulator
	classifier   SufficiencyClassifier
	composer     *Composer
	searcher     websearch.Searcher
	vision       llms.Model

	topK        int
	temperature float64
	timeouts    config.TimeoutConfig

	index   atomic.Pointer[chromemdb.Index]
	buildMu sync.Mutex
}

func NewSession(cfg *config.Config, deps Deps) (*Session, error) {
	if deps.Extractor == nil || deps.Splitter == nil || deps.Embedder == nil || deps.Model == nil {
		return nil, errors.New("extractor, splitter, embedder and model are required")
	}
	classifier, err := NewClassifier(cfg.RAG.Classifier, deps.Model, cfg.RAG.MinContextChars, cfg.LLM.Temperature)
	if err != nil {
		return nil, err
	}
	vision := deps.Vision
	if vision == nil {
		vision = deps.Model
	}

	return &Session{
		indexer:      NewIndexer(deps.Extractor, deps.Splitter, deps.Embedder),
		reformulator: NewReformulator(deps.Model, cfg.LLM.Temperature),
		classifier:   classifier,
		composer:     NewComposer(deps.Model, cfg.LLM.Temperature),
		searcher:     deps.Searcher,
		vision:       vision,
		topK:         cfg.RAG.TopK,
		temperature:  cfg.LLM.Temperature,
		timeouts:     cfg.Timeouts,
	}, nil
}

// BuildIndex replaces the live index with one built from docs and returns
// its chunk count. When docs yield no text the live index is kept and 0 is
// returned. On error nothing changes.
func (s *Session) BuildIndex(ctx context.Context, docs []parser.Document) (int, error) {
	ctx, span := tracer.Start(ctx, "rag.build_index", trace.WithAttributes(attribute.Int("rag.documents", len(docs))))
	defer span.End()

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	start := time.Now()
	ctx, cancel := withTimeout(ctx, s.timeouts.Embedding)
	defer cancel()

	idx, err := s.indexer.Build(ctx, docs)
	if err != nil {
		fail(span, err)
		return 0, err
	}
	if idx == nil {
		log.Info().Int("documents", len(docs)).Msg("No text extracted; keeping current index")
		return 0, nil
	}

	s.index.Store(idx)
	span.SetAttributes(attribute.Int("rag.chunks", idx.Count()))
	log.Info().Int("documents", len(docs)).Int("chunks", idx.Count()).Dur("duration", time.Since(start)).Msg("Index replaced")
	return idx.Count(), nil
}

// IndexStats reports whether an index is live and how many chunks it holds.
func (s *Session) IndexStats() models.IndexStats {
	idx := s.index.Load()
	if idx == nil {
		return models.IndexStats{}
	}
	return models.IndexStats{Ready: true, Chunks: idx.Count()}
}

// Answer runs one question through the session. history is only read; the
// session keeps nothing between calls.
func (s *Session) Answer(ctx context.Context, question string, history models.History, forceWebSearch bool) (*models.PromptResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	ctx, span := tracer.Start(ctx, "rag.answer", trace.WithAttributes(
		attribute.Int("rag.history_turns", len(history)),
		attribute.Bool("rag.force_web_search", forceWebSearch),
	))
	defer span.End()

	start := time.Now()
	idx := s.index.Load()

	var (
		res *models.PromptResponse
		err error
	)
	if idx != nil && !forceWebSearch {
		res, err = s.answerFromDocuments(ctx, idx, question, history)
	} else {
		res, err = s.answerFromWeb(ctx, question, history)
	}
	if err != nil {
		fail(span, err)
		log.Error().Err(err).Bool("force_web_search", forceWebSearch).Msg("Answer failed")
		return nil, err
	}

	span.SetAttributes(attribute.String("rag.route", string(res.Route)))
	log.Info().Str("route", string(res.Route)).Str("query", res.Query).Dur("duration", time.Since(start)).Msg("Answered")
	return res, nil
}

func (s *Session) answerFromDocuments(ctx context.Context, idx *chromemdb.Index, question string, history models.History) (*models.PromptResponse, error) {
	standalone, err := s.reformulate(ctx, history, question)
	if err != nil {
		return nil, err
	}

	chunks, err := s.retrieve(ctx, idx, standalone)
	if err != nil {
		return nil, err
	}

	sufficient, err := s.classify(ctx, standalone, joinChunks(chunks), history)
	if err != nil {
		return nil, err
	}

	var results string
	if !sufficient {
		if s.searcher == nil {
			log.Warn().Msg("Context insufficient but web search is disabled; answering from documents")
		} else if results, err = s.search(ctx, standalone); err != nil {
			return nil, err
		}
	}

	return s.compose(ctx, standalone, history, chunks, results)
}

// answerFromWeb serves the no-index and forced paths. A failed or disabled
// search falls back to a general answer.
func (s *Session) answerFromWeb(ctx context.Context, question string, history models.History) (*models.PromptResponse, error) {
	var results string
	if s.searcher == nil {
		log.Debug().Msg("Web search disabled; answering from general knowledge")
	} else {
		var err error
		results, err = s.search(ctx, question)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			log.Warn().Err(err).Msg("Web search failed; answering from general knowledge")
			results = ""
		}
	}
	return s.compose(ctx, question, history, nil, results)
}

func (s *Session) reformulate(ctx context.Context, history models.History, question string) (string, error) {
	ctx, span := tracer.Start(ctx, "rag.reformulate")
	defer span.End()
	ctx, cancel := withTimeout(ctx, s.timeouts.Generation)
	defer cancel()

	standalone, err := s.reformulator.Reformulate(ctx, history, question)
	if err != nil {
		fail(span, err)
		return "", fmt.Errorf("failed to reformulate question: %w", err)
	}
	log.Debug().Str("question", question).Str("standalone", standalone).Msg("Question reformulated")
	return standalone, nil
}

func (s *Session) retrieve(ctx context.Context, idx *chromemdb.Index, query string) ([]models.Chunk, error) {
	ctx, span := tracer.Start(ctx, "rag.retrieve")
	defer span.End()
	ctx, cancel := withTimeout(ctx, s.timeouts.Embedding)
	defer cancel()

	chunks, err := idx.Retrieve(ctx, query, s.topK)
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	span.SetAttributes(attribute.Int("rag.chunks", len(chunks)))
	log.Debug().Int("chunks", len(chunks)).Msg("Context retrieved")
	return chunks, nil
}

func (s *Session) classify(ctx context.Context, question, retrieved string, history models.History) (bool, error) {
	ctx, span := tracer.Start(ctx, "rag.classify")
	defer span.End()
	ctx, cancel := withTimeout(ctx, s.timeouts.Generation)
	defer cancel()

	sufficient, err := s.classifier.IsSufficient(ctx, question, retrieved, history)
	if err != nil {
		fail(span, err)
		return false, fmt.Errorf("failed to judge context: %w", err)
	}
	span.SetAttributes(attribute.Bool("rag.sufficient", sufficient))
	log.Debug().Bool("sufficient", sufficient).Int("context_chars", len(retrieved)).Msg("Context judged")
	return sufficient, nil
}

func (s *Session) search(ctx context.Context, query string) (string, error) {
	ctx, cancel := withTimeout(ctx, s.timeouts.Search)
	defer cancel()

	results, err := s.searcher.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("web search failed: %w", err)
	}
	return results, nil
}

func (s *Session) compose(ctx context.Context, question string, history models.History, chunks []models.Chunk, results string) (*models.PromptResponse, error) {
	ctx, span := tracer.Start(ctx, "rag.compose")
	defer span.End()
	ctx, cancel := withTimeout(ctx, s.timeouts.Generation)
	defer cancel()

	answer, route, err := s.composer.Compose(ctx, question, history, chunks, results)
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("failed to compose answer: %w", err)
	}
	return &models.PromptResponse{Query: question, Route: route, Content: answer}, nil
}

// AnalyzeImage describes an image in one stateless model call. It never
// touches the index.
func (s *Session) AnalyzeImage(ctx context.Context, image []byte, filename string) (string, error) {
	ctx, span := tracer.Start(ctx, "rag.analyze_image", trace.WithAttributes(
		attribute.String("rag.filename", filename),
		attribute.Int("rag.image_bytes", len(image)),
	))
	defer span.End()
	ctx, cancel := withTimeout(ctx, s.timeouts.Generation)
	defer cancel()

	out, err := llmservice.DescribeImage(ctx, s.vision, models.ImagePrompt, image, filename, s.temperature)
	if err != nil {
		fail(span, err)
		return "", fmt.Errorf("failed to analyze image: %w", err)
	}
	return out, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
