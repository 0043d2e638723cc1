package analysis

import (
	"context"
	"fmt"

	"sector-gateway/news"

	"golang.org/x/time/rate"
)

// Throttled limita a taxa global de chamadas ao backend (token bucket).
//
// É uma camada de política separada da orquestração: espera por um token
// respeitando o ctx e não faz retry. Se o ctx vencer antes do token, a chamada
// conta como falha de transporte.
type Throttled struct {
	Next    Analyzer
	Limiter *rate.Limiter
}

// NewThrottled devolve next sem wrapper quando rps <= 0.
func NewThrottled(next Analyzer, rps float64, burst int) Analyzer {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{Next: next, Limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *Throttled) Analyze(ctx context.Context, sector string, items []news.Item) (string, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: throttle wait: %v", ErrTransport, err)
		}
	}
	return t.Next.Analyze(ctx, sector, items)
}
