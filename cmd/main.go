package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"rag-chat/internal/api"
	"rag-chat/internal/config"
	"rag-chat/internal/helper"
	"rag-chat/internal/llmservice"
	"rag-chat/internal/parser"
	"rag-chat/internal/rag"
	"rag-chat/internal/telemetry"
)

const configFilePath = "./configs/config.yaml"

func main() {
	configPath := flag.String("config", configFilePath, "Path to the YAML config file")
	files := flag.String("file", "", "Comma-separated documents to index for a one-shot query")
	query := flag.String("query", "", "Question to answer once and exit")
	web := flag.Bool("web", false, "Force web search for -query")
	dryRun := flag.Bool("dry-run", false, "Print the chunks of -file without embedding them")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		helper.SetupLogger(&config.LoggingConfig{}, os.Stdout)
		log.Fatal().Err(err).Msg("Error loading config")
	}
	helper.SetupLogger(&cfg.Logging, os.Stdout)
	log.Debug().Interface("config", cfg.Redacted()).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *dryRun:
		printChunks(cfg, splitList(*files))
	case *query != "":
		answerOnce(ctx, cfg, splitList(*files), *query, *web)
	default:
		serve(ctx, cfg)
	}
}

func serve(ctx context.Context, cfg *config.Config) {
	shutdown, err := telemetry.InitTracer(ctx, &cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing tracer")
	}
	defer shutdown(context.Background())

	session, err := rag.NewSessionFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating session")
	}

	var transcriber llmservice.Transcriber
	if cfg.Transcription.Key != "" {
		transcriber = llmservice.NewTranscriber(&cfg.Transcription)
	} else {
		log.Warn().Msg("No transcription key configured; /transcribe is disabled")
	}

	rdb, err := api.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable; rate limiting disabled")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	gin.SetMode(cfg.Server.GinMode)
	server := api.NewServer(cfg, session, transcriber, rdb)
	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("HTTP server stopped")
	}
}

func answerOnce(ctx context.Context, cfg *config.Config, paths []string, query string, web bool) {
	session, err := rag.NewSessionFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating session")
	}

	if len(paths) > 0 {
		docs, err := helper.ReadDocuments(paths)
		if err != nil {
			log.Fatal().Err(err).Msg("Error reading documents")
		}
		chunks, err := session.BuildIndex(ctx, docs)
		if err != nil {
			log.Fatal().Err(err).Msg("Error indexing documents")
		}
		log.Info().Int("files", len(docs)).Int("chunks", chunks).Msg("Indexed documents")
	}

	response, err := session.Answer(ctx, query, nil, web)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Query)

	log.Info().Msg("Route: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Route)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Content)
}

func printChunks(cfg *config.Config, paths []string) {
	if len(paths) == 0 {
		log.Fatal().Msg("Please provide documents with the -file flag")
	}
	docs, err := helper.ReadDocuments(paths)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading documents")
	}
	splitter, err := parser.NewSplitter(cfg.RAG.Splitter, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating splitter")
	}

	chunks, err := rag.NewIndexer(parser.NewExtractor(), splitter, nil).Chunk(docs)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing documents")
	}
	log.Info().Int("chunks", len(chunks)).Msg("Parsed content")
	helper.PrettyPrint(chunks)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
