// helpers de header compartilhados pelo middleware de login e pelo handler de análise.

package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"sector-gateway/middleware/ratelimit/domain"
)

func SetLimitHeaders(w http.ResponseWriter, max int, window time.Duration) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(max))
	w.Header().Set("X-RateLimit-Window", strconv.Itoa(int(window.Seconds())))
}

func SetRemaining(w http.ResponseWriter, remaining int) {
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
}

// SetRetryAfter usa segundos inteiros arredondados para cima.
func SetRetryAfter(w http.ResponseWriter, err *domain.LimitError) {
	w.Header().Set("Retry-After", strconv.Itoa(err.RetryAfterSeconds()))
	w.Header().Set("X-RateLimit-Remaining", "0")
}
