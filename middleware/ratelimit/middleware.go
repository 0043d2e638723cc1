package ratelimit

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"sector-gateway/middleware/ratelimit/application"
	"sector-gateway/middleware/ratelimit/domain"
)

type KeyFunc func(r *http.Request) string

// RejectFunc escreve a resposta de uma requisição negada.
// O transport injeta aqui o formato de erro da API (problem+json).
type RejectFunc func(w http.ResponseWriter, r *http.Request, err *domain.LimitError)

type Options struct {
	Store               domain.LimiterStore
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	Route               string
	AddRateLimitHeaders bool
	OnReject            RejectFunc
	Now                 func() time.Time
}

type windowInfo interface {
	MaxRequests() int
	Window() time.Duration
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// Middleware aplica a janela deslizante por chave antes do próximo handler.
// No gateway é usado no /login, com chave por IP; o /analyze é limitado
// dentro do pipeline, por identidade/sessão.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.OnReject == nil {
		opts.OnReject = func(w http.ResponseWriter, _ *http.Request, err *domain.LimitError) {
			http.Error(w, err.Error(), http.StatusTooManyRequests)
		}
	}

	svc := application.Service{
		Store: opts.Store,
		Stats: opts.Stats,
		Route: opts.Route,
		Now:   opts.Now,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				if wi, ok := opts.Store.(windowInfo); ok {
					SetLimitHeaders(w, wi.MaxRequests(), wi.Window())
				}
			}

			remaining, err := svc.Admit(r.Context(), domain.Key(key), "")
			if err != nil {
				var lerr *domain.LimitError
				if !errors.As(err, &lerr) {
					lerr = &domain.LimitError{Key: domain.Key(key)}
				}
				SetRetryAfter(w, lerr)
				opts.OnReject(w, r, lerr)
				return
			}
			if opts.AddRateLimitHeaders {
				SetRemaining(w, remaining)
			}

			next.ServeHTTP(w, r)
		})
	}
}
