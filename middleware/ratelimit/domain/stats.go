package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão de admissão do limiter.
//
// Route é uma string genérica ("GET /analyze", "login", ...), sem acoplar a HTTP.
// Sector só é preenchido quando a admissão veio do pipeline de análise.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key/Sector sem controle pode
// explodir o número de chaves em uma base como Redis).
type StatsEvent struct {
	Key     Key
	Allowed bool

	Route  string
	Sector string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do rate limit.
//
// O chamador trata erro como best-effort (não derruba a request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
