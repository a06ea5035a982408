package main

import (
	"context"
	"flag"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"rag-chat/internal/config"
	"rag-chat/internal/helper"
	"rag-chat/internal/rag"
	"rag-chat/internal/tui"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "Path to the YAML config file")
	logFile := flag.String("log", "", "Write logs to this file instead of discarding them")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		helper.SetupLogger(&config.LoggingConfig{}, os.Stderr)
		log.Fatal().Err(err).Msg("Error loading config")
	}

	// the terminal belongs to the UI
	var out io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			helper.SetupLogger(&cfg.Logging, os.Stderr)
			log.Fatal().Err(err).Msg("Error opening log file")
		}
		defer f.Close()
		out = f
	}
	helper.SetupLogger(&cfg.Logging, out)

	session, err := rag.NewSessionFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating session")
	}

	if paths := flag.Args(); len(paths) > 0 {
		docs, err := helper.ReadDocuments(paths)
		if err != nil {
			log.Fatal().Err(err).Msg("Error reading documents")
		}
		if _, err := session.BuildIndex(context.Background(), docs); err != nil {
			log.Fatal().Err(err).Msg("Error indexing documents")
		}
	}

	timeout := cfg.Timeouts.Generation*3 + cfg.Timeouts.Embedding + cfg.Timeouts.Search
	p := tea.NewProgram(tui.New(session, timeout), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal().Err(err).Msg("TUI error")
	}
}
