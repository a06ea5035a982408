package helper

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"rag-chat/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestReadDocuments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notas.txt")
	require.NoError(t, os.WriteFile(path, []byte("hola"), 0o600))

	docs, err := ReadDocuments([]string{path})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "notas.txt", docs[0].Name)
	require.Equal(t, []byte("hola"), docs[0].Data)

	_, err = ReadDocuments([]string{filepath.Join(dir, "missing.pdf")})
	require.Error(t, err)
}

func TestSetupLoggerJSON(t *testing.T) {
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	SetupLogger(&config.LoggingConfig{Level: "warn", JSON: true}, &buf)
	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"k":"v"`)
	require.Contains(t, buf.String(), `"message":"shown"`)
}
