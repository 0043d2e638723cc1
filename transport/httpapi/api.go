// Package httpapi é a borda HTTP do gateway: login, análise de setor,
// health e info, com erros em application/problem+json.
//
// Cadeia de middlewares montada por Handler:
//
//	Recover -> RequestLog -> ConcurrencyMiddleware -> mux
//
// O /login ainda passa pelo ratelimit.Middleware (chave por IP) quando
// LoginLimiter está configurado.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"sector-gateway/middleware/ratelimit"
	"sector-gateway/middleware/ratelimit/domain"
	"sector-gateway/middleware/ratelimit/infra"
)

// StatsSnapshot é satisfeito por *infra.MemoryStatsStore.
type StatsSnapshot interface {
	Total() infra.Counters
	ByRoute() map[string]infra.Counters
	BySector() map[string]infra.Counters
}

type API struct {
	Tokens   Tokens
	Sessions Sessions
	Pipeline Analyzer

	// LoginLimiter nil desliga o throttle do /login.
	LoginLimiter domain.LimiterStore
	LoginStats   domain.StatsStore
	TrustXFF     bool

	// Stats nil não registra o GET /stats.
	Stats StatsSnapshot

	ConcurrencyMax     int
	ConcurrencyTimeout time.Duration

	Name    string
	Version string
	Logger  *slog.Logger
}

// Routes registra as rotas sem a cadeia de middlewares externa.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	var login http.Handler = http.HandlerFunc(a.login)
	if a.LoginLimiter != nil {
		login = ratelimit.Middleware(ratelimit.Options{
			Store:               a.LoginLimiter,
			Stats:               a.LoginStats,
			TrustXForwardedFor:  a.TrustXFF,
			Route:               "login",
			AddRateLimitHeaders: true,
			OnReject: func(w http.ResponseWriter, _ *http.Request, err *domain.LimitError) {
				WriteProblem(w, http.StatusTooManyRequests, err.Error(), nil)
			},
		})(login)
	}

	mux.Handle("POST /login", login)
	mux.HandleFunc("GET /analyze/{sector}", a.analyze)
	mux.HandleFunc("GET /health", a.health)
	mux.HandleFunc("GET /{$}", a.info)
	if a.Stats != nil {
		mux.HandleFunc("GET /stats", a.stats)
	}
	return mux
}

func (a *API) Handler() http.Handler {
	log := a.logger()

	var h http.Handler = a.Routes()
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            a.ConcurrencyMax,
		AcquireTimeout: a.ConcurrencyTimeout,
		OnReject: func(w http.ResponseWriter, _ *http.Request) {
			WriteProblem(w, http.StatusServiceUnavailable, "server is at capacity, retry shortly", nil)
		},
	})(h)
	h = RequestLog(log)(h)
	h = Recover(log)(h)
	return h
}
