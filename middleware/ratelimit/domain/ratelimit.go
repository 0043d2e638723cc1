package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Key identifica o dono de um bucket (identidade autenticada, session id, IP).
type Key string

// ErrRateLimitExceeded é o sentinel para qualquer negação do limiter.
var ErrRateLimitExceeded = errors.New("ratelimit: rate limit exceeded")

// Limiter decide a admissão de uma chamada para uma única chave.
//
// A implementação em infra é janela deslizante com contagem exata; a decisão
// depende apenas dos timestamps da janela corrente daquela chave.
type Limiter interface {
	Admit() Decision
}

// LimiterStore obtém um limiter por chave (ex: IP, identidade, sessão).
// A implementação pode manter cache, TTL, etc.
type LimiterStore interface {
	Get(Key) Limiter
}

type Decision struct {
	Allowed bool
	// Remaining é a cota restante na janela após uma admissão.
	Remaining int
	// RetryAfter é o tempo até o timestamp mais antigo sair da janela.
	// Só é preenchido quando a chamada é negada.
	RetryAfter time.Duration
}

// LimitError carrega o retry-after de uma negação.
type LimitError struct {
	Key        Key
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded. Try again in %ds", e.RetryAfterSeconds())
}

func (e *LimitError) Is(target error) bool { return target == ErrRateLimitExceeded }

// RetryAfterSeconds arredonda para cima, nunca menos que 1s (valor de header).
func (e *LimitError) RetryAfterSeconds() int {
	s := int(math.Ceil(e.RetryAfter.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
