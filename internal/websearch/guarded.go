package websearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// Guarded puts a rate limiter and a circuit breaker in front of a provider.
// It does not retry.
type Guarded struct {
	name    string
	next    Searcher
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewGuarded(name string, next Searcher, ratePerMinute int, openTimeout time.Duration) *Guarded {
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	if openTimeout <= 0 {
		openTimeout = time.Minute
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "websearch-" + name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})

	return &Guarded{
		name:    name,
		next:    next,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), max(1, ratePerMinute/10)),
	}
}

func (g *Guarded) Search(ctx context.Context, query string) (string, error) {
	ctx, span := otel.Tracer("websearch").Start(ctx, "websearch.search")
	defer span.End()
	span.SetAttributes(attribute.String("websearch.provider", g.name))

	if err := g.limiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("websearch.rate_limited", true))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.Search(ctx, query)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("websearch.circuit_breaker_open", true))
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", err
	}

	text := result.(string)
	span.SetAttributes(attribute.Int("websearch.result_bytes", len(text)))
	return text, nil
}
