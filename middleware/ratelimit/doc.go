// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (admit/deny com retry-after, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela deslizante, semáforo, stats em memória/Redis)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + headers
//
// Uso no gateway:
//
//  1. /login: Middleware com chave por IP (ou X-Forwarded-For, se confiável)
//  2. /analyze: o pipeline chama application.Service.Admit com a chave
//     sessão/identidade; o transport traduz LimitError em 429 + Retry-After
//  3. todas as rotas: ConcurrencyMiddleware responde 503 quando saturado
//
// Variáveis de ambiente do binário (cmd/gateway) controlam o comportamento,
// como RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW_SECONDS, LOGIN_RATE_REQUESTS e CONCURRENCY_MAX.
package ratelimit
