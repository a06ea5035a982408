package websearch

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"rag-chat/internal/config"

	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	calls atomic.Int32
	err   error
}

func (s *stubSearcher) Search(ctx context.Context, query string) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return "Title: " + query, nil
}

func TestGuardedPassesThrough(t *testing.T) {
	stub := &stubSearcher{}
	g := NewGuarded("stub", stub, 600, time.Minute)

	out, err := g.Search(context.Background(), "golang")
	require.NoError(t, err)
	require.Equal(t, "Title: golang", out)
	require.EqualValues(t, 1, stub.calls.Load())
}

func TestGuardedOpensAfterFailures(t *testing.T) {
	boom := errors.New("connection reset")
	stub := &stubSearcher{err: boom}
	g := NewGuarded("stub", stub, 600, time.Minute)

	for range 3 {
		_, err := g.Search(context.Background(), "q")
		require.ErrorIs(t, err, boom)
	}

	_, err := g.Search(context.Background(), "q")
	require.ErrorIs(t, err, ErrUnavailable)
	require.EqualValues(t, 3, stub.calls.Load())
}

func TestGuardedRespectsContext(t *testing.T) {
	stub := &stubSearcher{}
	g := NewGuarded("stub", stub, 1, time.Minute)

	_, err := g.Search(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Search(ctx, "second")
	require.ErrorIs(t, err, ErrUnavailable)
	require.EqualValues(t, 1, stub.calls.Load())
}

func TestNew(t *testing.T) {
	s, err := New(&config.SearchConfig{Provider: "none"})
	require.NoError(t, err)
	require.Nil(t, s)

	s, err = New(&config.SearchConfig{Provider: "mock", MaxResults: 3})
	require.NoError(t, err)
	out, err := s.Search(context.Background(), "clima")
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(out, "URL: "))

	s, err = New(&config.SearchConfig{Provider: "duckduckgo", MaxResults: 3, UserAgent: "test"})
	require.NoError(t, err)
	require.IsType(t, &Guarded{}, s)

	_, err = New(&config.SearchConfig{Provider: "bing"})
	require.Error(t, err)
}
