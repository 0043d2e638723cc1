package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"sector-gateway/auth/token"
	"sector-gateway/middleware/ratelimit"
	"sector-gateway/middleware/ratelimit/domain"
	"sector-gateway/pipeline"
)

const (
	detailCollection = "Data collection failed"
	detailAnalysis   = "AI analysis failed"
	detailInternal   = "Internal server error"
)

// writeError traduz os erros do pipeline e da autenticação para status HTTP.
// O detalhe completo fica só no log; o cliente recebe uma mensagem fixa.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	ctx := r.Context()

	var verr *pipeline.ValidationError
	var lerr *domain.LimitError

	switch {
	case errors.As(err, &verr):
		WriteProblem(w, http.StatusUnprocessableEntity, verr.Error(), map[string][]string{
			verr.Field: {verr.Msg},
		})
	case token.IsAuthError(err):
		writeUnauthorized(w, err)
	case errors.As(err, &lerr):
		ratelimit.SetRetryAfter(w, lerr)
		WriteProblem(w, http.StatusTooManyRequests, lerr.Error(), nil)
	case errors.Is(err, pipeline.ErrCollection):
		log.ErrorContext(ctx, "analyze: upstream news failure", "error", err)
		WriteProblem(w, http.StatusBadGateway, detailCollection, nil)
	case errors.Is(err, pipeline.ErrAnalysis):
		log.ErrorContext(ctx, "analyze: upstream analysis failure", "error", err)
		WriteProblem(w, http.StatusBadGateway, detailAnalysis, nil)
	default:
		log.ErrorContext(ctx, "unhandled error", "error", err)
		WriteProblem(w, http.StatusInternalServerError, detailInternal, nil)
	}
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	detail := "Invalid token"
	switch {
	case errors.Is(err, token.ErrMissingToken):
		detail = "Missing or invalid Authorization header"
	case errors.Is(err, token.ErrExpiredToken):
		detail = "Token expired"
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="sector-gateway"`)
	WriteProblem(w, http.StatusUnauthorized, detail, nil)
}
