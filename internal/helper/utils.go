package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rag-chat/internal/config"
	"rag-chat/internal/parser"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger configures the global zerolog logger: console output with
// RFC3339 timestamps and caller, or plain JSON when cfg.JSON is set.
func SetupLogger(cfg *config.LoggingConfig, out io.Writer) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.JSON {
		zerolog.TimeFieldFormat = time.RFC3339
		log.Logger = zerolog.New(out).With().Timestamp().Caller().Logger()
		return
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp().Caller().Logger()
}

// ReadDocuments loads files from disk, keeping their names for format detection.
func ReadDocuments(paths []string) ([]parser.Document, error) {
	docs := make([]parser.Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		docs = append(docs, parser.Document{Name: filepath.Base(p), Data: data})
	}
	return docs, nil
}

// pretty print
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Msg("Error pretty printing")
	}
	fmt.Println(string(b))
}
