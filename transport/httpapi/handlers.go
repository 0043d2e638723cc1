package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"sector-gateway/auth/token"
	"sector-gateway/internal/logctx"
	"sector-gateway/middleware/ratelimit"
	"sector-gateway/middleware/ratelimit/infra"
	"sector-gateway/pipeline"
)

const (
	SessionHeader       = "Session-Id"
	legacySessionHeader = "X-Session-Id"

	maxLoginBody = 4 << 10
)

type Tokens interface {
	Issue(identity string) (token.Token, error)
	Verify(raw string) (string, error)
	TTL() time.Duration
}

type Sessions interface {
	Start(identity string) (string, error)
}

// Analyzer é satisfeito por *pipeline.Pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.Request) (pipeline.Report, error)
}

type loginRequest struct {
	UserID string `json:"user_id"`
}

type loginResponse struct {
	Token            string `json:"token"`
	SessionID        string `json:"session_id"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

type infoResponse struct {
	Name      string   `json:"name"`
	Version   string   `json:"version,omitempty"`
	Endpoints []string `json:"endpoints"`
}

// login não verifica credencial: qualquer user_id não vazio recebe token e sessão.
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" && isJSON(r) {
		var body loginRequest
		dec := json.NewDecoder(io.LimitReader(r.Body, maxLoginBody))
		if err := dec.Decode(&body); err != nil && err != io.EOF {
			WriteProblem(w, http.StatusUnprocessableEntity, "malformed JSON body", nil)
			return
		}
		userID = strings.TrimSpace(body.UserID)
	}
	if userID == "" {
		WriteProblem(w, http.StatusUnprocessableEntity, "user_id is required", map[string][]string{
			"user_id": {"field required"},
		})
		return
	}

	tok, err := a.Tokens.Issue(userID)
	if err != nil {
		writeError(w, r, a.logger(), err)
		return
	}
	sid, err := a.Sessions.Start(userID)
	if err != nil {
		writeError(w, r, a.logger(), err)
		return
	}

	ctx := logctx.WithAuthData(r.Context(), &logctx.AuthData{Identity: userID, SessionID: sid})
	a.logger().InfoContext(ctx, "login: session started")

	writeJSON(w, http.StatusOK, loginResponse{
		Token:            tok.Value,
		SessionID:        sid,
		ExpiresInSeconds: int(a.Tokens.TTL().Seconds()),
	})
}

func (a *API) analyze(w http.ResponseWriter, r *http.Request) {
	raw, err := token.ParseBearer(r.Header.Get("Authorization"))
	if err != nil {
		writeUnauthorized(w, err)
		return
	}
	identity, err := a.Tokens.Verify(raw)
	if err != nil {
		a.logger().DebugContext(r.Context(), "analyze: token rejected", "error", err)
		writeUnauthorized(w, err)
		return
	}

	sid := strings.TrimSpace(r.Header.Get(SessionHeader))
	if sid == "" {
		sid = strings.TrimSpace(r.Header.Get(legacySessionHeader))
	}
	ctx := logctx.WithAuthData(r.Context(), &logctx.AuthData{Identity: identity, SessionID: sid})
	r = r.WithContext(ctx)

	rep, err := a.Pipeline.Analyze(ctx, pipeline.Request{
		Identity:  identity,
		SessionID: sid,
		Sector:    r.PathValue("sector"),
	})
	if err != nil {
		writeError(w, r, a.logger(), err)
		return
	}

	ratelimit.SetRemaining(w, rep.Remaining)
	writeJSON(w, http.StatusOK, rep)
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{
		Name:      a.name(),
		Version:   a.Version,
		Endpoints: []string{"/analyze/{sector}", "/login", "/health"},
	})
}

type statsResponse struct {
	Total    infra.Counters            `json:"total"`
	ByRoute  map[string]infra.Counters `json:"by_route"`
	BySector map[string]infra.Counters `json:"by_sector"`
}

func (a *API) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Total:    a.Stats.Total(),
		ByRoute:  a.Stats.ByRoute(),
		BySector: a.Stats.BySector(),
	})
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func (a *API) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *API) name() string {
	if a.Name != "" {
		return a.Name
	}
	return "Trade Opportunities API"
}
