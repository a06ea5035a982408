package websearch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rag-chat/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/tools/duckduckgo"
)

// ErrUnavailable means no search could be attempted: no provider is
// configured, the breaker is open or the rate limiter gave up.
var ErrUnavailable = errors.New("web search unavailable")

// Searcher returns provider-formatted result text for a query. The number of
// results is fixed when the searcher is created.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// New builds the configured searcher wrapped in a breaker and rate limiter.
// Provider "none" yields a nil Searcher.
func New(cfg *config.SearchConfig) (Searcher, error) {
	var s Searcher
	switch cfg.Provider {
	case "none":
		log.Info().Msg("Web search disabled")
		return nil, nil
	case "mock":
		s = NewMock(cfg.MaxResults)
	case "", "duckduckgo":
		ddg, err := NewDuckDuckGo(cfg.MaxResults, cfg.UserAgent)
		if err != nil {
			return nil, err
		}
		s = ddg
	default:
		return nil, fmt.Errorf("unknown search provider: %s", cfg.Provider)
	}
	return NewGuarded(cfg.Provider, s, cfg.RatePerMinute, cfg.BreakerOpen), nil
}

type DuckDuckGo struct {
	tool *duckduckgo.Tool
}

func NewDuckDuckGo(maxResults int, userAgent string) (*DuckDuckGo, error) {
	tool, err := duckduckgo.New(maxResults, userAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create duckduckgo tool: %w", err)
	}
	return &DuckDuckGo{tool: tool}, nil
}

func (d *DuckDuckGo) Search(ctx context.Context, query string) (string, error) {
	out, err := d.tool.Call(ctx, query)
	if err != nil {
		return "", fmt.Errorf("duckduckgo search failed: %w", err)
	}
	return out, nil
}

// Mock returns canned results derived from the query.
type Mock struct {
	maxResults int
}

func NewMock(maxResults int) *Mock {
	return &Mock{maxResults: maxResults}
}

func (m *Mock) Search(ctx context.Context, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 1; i <= m.maxResults; i++ {
		fmt.Fprintf(&b, "Title: Resultado %d sobre %s\nDescription: Texto de ejemplo para %q.\nURL: https://example.com/%d\n\n", i, query, query, i)
	}
	return b.String(), nil
}
