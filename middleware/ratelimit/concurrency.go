package ratelimit

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"sector-gateway/middleware/ratelimit/application"
	"sector-gateway/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	AcquireTimeout time.Duration
	// OnReject escreve a resposta quando não há vaga; padrão 503 texto puro.
	OnReject func(w http.ResponseWriter, r *http.Request)
}

// ConcurrencyMiddleware limita requisições simultâneas. Max <= 0 desliga o limite.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.OnReject == nil {
		opts.OnReject = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := svc.Acquire(r.Context())
			if err != nil {
				if !errors.Is(err, application.ErrSaturated) {
					// cliente desistiu enquanto esperava; não há quem receba resposta
					slog.DebugContext(r.Context(), "concurrency: client gone while waiting", "error", err)
				}
				opts.OnReject(w, r)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
